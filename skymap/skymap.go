// Package skymap places the antenna's current and commanded pointing on a
// sky chart.
package skymap

import (
	"time"

	"github.com/w1xm/rci_console/rotator"
	"github.com/w1xm/rci_console/status"
)

// Converter maps horizontal coordinates seen from lat/lon at t to right
// ascension (hours) and declination (degrees).
type Converter interface {
	HorizontalToEquatorial(az, el, lat, lon float64, t time.Time) (ra, dec float64)
}

type ConverterFunc func(az, el, lat, lon float64, t time.Time) (ra, dec float64)

func (f ConverterFunc) HorizontalToEquatorial(az, el, lat, lon float64, t time.Time) (float64, float64) {
	return f(az, el, lat, lon, t)
}

// Mean is the default converter, using mean sidereal time with no
// precession, nutation or refraction.
var Mean Converter = ConverterFunc(rotator.HorizontalToEquatorial)

type Pointer struct {
	Name    string
	RA      float64
	Dec     float64
	Visible bool
}

const (
	StatusPointer = "status"
	TargetPointer = "target"
)

// Pointers returns the status pointer (actual position) and the target
// pointer (commanded position). The target is only visible while the
// controller holds position on both axes. Pointers whose coordinates are
// missing from the snapshot are returned hidden.
func Pointers(s status.Snapshot, conv Converter, t time.Time) []Pointer {
	if conv == nil {
		conv = Mean
	}
	lat, okLat := s.Float("Latitude")
	lon, okLon := s.Float("Longitude")
	site := okLat && okLon

	pointer := func(name, azField, elField string, visible bool) Pointer {
		p := Pointer{Name: name}
		az, okAz := s.Float(azField)
		el, okEl := s.Float(elField)
		if !site || !okAz || !okEl {
			return p
		}
		p.RA, p.Dec = conv.HorizontalToEquatorial(az, el, lat, lon, t)
		p.Visible = visible
		return p
	}
	return []Pointer{
		pointer(StatusPointer, "AzPos", "ElPos", true),
		pointer(TargetPointer, "CommandAzPos", "CommandElPos", s.PositionHold()),
	}
}
