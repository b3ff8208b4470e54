package geometry

import "math"

const (
	DefaultPixelsPerDegree = 15.6
	DefaultHorizonOffset   = 320
	DefaultPanoramaWidth   = 1000
)

// Panorama is the cylindrical horizon view. It scrolls so that the current
// azimuth stays in the middle of the viewport.
type Panorama struct {
	PixelsPerDegree float64
	// HorizonOffset is the y pixel of 0° elevation.
	HorizonOffset float64
	Width         float64
	// Shift is the x pixel of azimuth 0°.
	Shift float64
}

func NewPanorama() *Panorama {
	p := &Panorama{
		PixelsPerDegree: DefaultPixelsPerDegree,
		HorizonOffset:   DefaultHorizonOffset,
		Width:           DefaultPanoramaWidth,
	}
	p.Follow(0)
	return p
}

func (*Panorama) Kind() Kind { return KindPanorama }

// Follow recenters the view on az. Call it on every telemetry update.
func (p *Panorama) Follow(az float64) {
	p.Shift = p.Width/2 - az*p.PixelsPerDegree
}

func (p *Panorama) Translate(pt Point) Angles {
	return Angles{
		Az:    Normalize((pt.X - p.Shift) / p.PixelsPerDegree),
		El:    (p.HorizonOffset - pt.Y) / p.PixelsPerDegree,
		HasAz: true,
		HasEl: true,
	}
}

// X is the x pixel at which az is drawn, before wrapping.
func (p *Panorama) X(az float64) float64 {
	return az*p.PixelsPerDegree + p.Shift
}

// Y is the y pixel at which el is drawn.
func (p *Panorama) Y(el float64) float64 {
	return p.HorizonOffset - el*p.PixelsPerDegree
}

type Tick struct {
	Az    float64
	X     float64
	Major bool
}

// Ticks returns azimuth marks every 10° that fall inside the viewport, with
// a major mark every 30°.
func (p *Panorama) Ticks() []Tick {
	if p.PixelsPerDegree <= 0 {
		return nil
	}
	first := math.Ceil(-p.Shift/p.PixelsPerDegree/10) * 10
	last := (p.Width - p.Shift) / p.PixelsPerDegree
	var ticks []Tick
	for az := first; az <= last; az += 10 {
		ticks = append(ticks, Tick{
			Az:    Normalize(az),
			X:     p.X(az),
			Major: math.Mod(az, 30) == 0,
		})
	}
	return ticks
}
