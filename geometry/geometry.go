// Package geometry maps pointer positions on the console's input surfaces to
// azimuth and elevation in degrees.
//
// All translations are pure. Azimuths are normalized into [0, 360);
// elevations are passed through unclamped.
package geometry

import "math"

type Kind int

const (
	KindDial Kind = iota
	KindElevationDial
	KindPanorama
)

func (k Kind) String() string {
	switch k {
	case KindDial:
		return "dial"
	case KindElevationDial:
		return "elevation"
	case KindPanorama:
		return "panorama"
	}
	return "unknown"
}

// Point is a pointer position in surface pixels, y pointing down.
type Point struct {
	X, Y float64
}

// Angles is the result of a translation. HasAz and HasEl report which axes
// the surface produces.
type Angles struct {
	Az, El       float64
	HasAz, HasEl bool
}

type Surface interface {
	Kind() Kind
	Translate(p Point) Angles
}

// Normalize wraps an azimuth into [0, 360).
func Normalize(az float64) float64 {
	az = math.Mod(az, 360)
	if az < 0 {
		az += 360
	}
	if az >= 360 || az == 0 {
		// Mod of tiny negatives can round up to 360; also folds -0.
		return 0
	}
	return az
}

func radToDeg(a float64) float64 {
	return 360 * a / (2 * math.Pi)
}

// screenAngle is the counter-clockwise angle of p about origin, with screen y
// flipped so that up is positive.
func screenAngle(origin, p Point) float64 {
	return math.Atan2(-(p.Y - origin.Y), p.X-origin.X)
}

// Dial is the top-down azimuth map: up is 0°, clockwise positive.
type Dial struct {
	Origin Point
}

var (
	// MapDial is the large sky map, 1000px square.
	MapDial = Dial{Origin: Point{500, 500}}
	// CompactDial is the small azimuth widget.
	CompactDial = Dial{Origin: Point{10, 90}}
)

func (Dial) Kind() Kind { return KindDial }

func (d Dial) Translate(p Point) Angles {
	angle := screenAngle(d.Origin, p)
	angle -= math.Pi / 2
	if angle < 0 {
		angle += 2 * math.Pi
	}
	angle = -angle
	return Angles{Az: Normalize(radToDeg(angle)), HasAz: true}
}

// ElevationDial is the quarter-circle elevation gauge; right is 0°, up is 90°.
type ElevationDial struct {
	Origin Point
}

var ElevationGauge = ElevationDial{Origin: Point{10, 90}}

func (ElevationDial) Kind() Kind { return KindElevationDial }

func (d ElevationDial) Translate(p Point) Angles {
	return Angles{El: radToDeg(screenAngle(d.Origin, p)), HasEl: true}
}
