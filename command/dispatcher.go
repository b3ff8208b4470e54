package command

import (
	"log"
	"math"

	"github.com/w1xm/rci_console/rotator"
)

// Sender transmits a command. Implementations must not block and must drop
// the command when they cannot deliver it.
type Sender interface {
	Send(c Command)
}

// Dispatcher turns operator intent into commands. Delivery is at most once
// and unacknowledged; the resulting state shows up in telemetry.
type Dispatcher struct {
	s Sender
}

var (
	_ rotator.Rotator    = (*Dispatcher)(nil)
	_ rotator.Offsetter  = (*Dispatcher)(nil)
	_ rotator.Shutdowner = (*Dispatcher)(nil)
	_ rotator.Writer     = (*Dispatcher)(nil)
	_ rotator.Tracker    = (*Dispatcher)(nil)
)

func NewDispatcher(s Sender) *Dispatcher {
	return &Dispatcher{s: s}
}

func finite(name string, v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		log.Printf("dropping %s: value %v is not finite", name, v)
		return false
	}
	return true
}

func (d *Dispatcher) Write(register int, values ...uint16) {
	if values == nil {
		values = []uint16{}
	}
	d.s.Send(Write{Register: register, Values: values})
}

func (d *Dispatcher) SetAzimuthPosition(angle float64) {
	if finite("set_azimuth_position", angle) {
		d.s.Send(SetAzimuthPosition{Position: angle})
	}
}

func (d *Dispatcher) SetElevationPosition(angle float64) {
	if finite("set_elevation_position", angle) {
		d.s.Send(SetElevationPosition{Position: angle})
	}
}

func (d *Dispatcher) SetAzimuthVelocity(v float64) {
	if finite("set_azimuth_velocity", v) {
		d.s.Send(SetAzimuthVelocity{Velocity: v})
	}
}

func (d *Dispatcher) SetElevationVelocity(v float64) {
	if finite("set_elevation_velocity", v) {
		d.s.Send(SetElevationVelocity{Velocity: v})
	}
}

func (d *Dispatcher) SetAzimuthOffset(offset float64) {
	if finite("set_azimuth_offset", offset) {
		d.s.Send(SetAzimuthOffset{Position: offset})
	}
}

func (d *Dispatcher) SetElevationOffset(offset float64) {
	if finite("set_elevation_offset", offset) {
		d.s.Send(SetElevationOffset{Position: offset})
	}
}

// SetOffsets sets both offsets; they are subtracted from commanded positions
// by the server.
func (d *Dispatcher) SetOffsets(az, el float64) {
	d.SetAzimuthOffset(az)
	d.SetElevationOffset(el)
}

// Goto commands both axes to a position.
func (d *Dispatcher) Goto(az, el float64) {
	d.SetAzimuthPosition(az)
	d.SetElevationPosition(el)
}

func (d *Dispatcher) Track(body int) {
	d.s.Send(Track{Body: body})
}

func (d *Dispatcher) Stop() {
	d.s.Send(Stop{})
}

func (d *Dispatcher) StopHard() {
	d.s.Send(StopHard{})
}

func (d *Dispatcher) ExitShutdown() {
	d.s.Send(ExitShutdown{})
}

func (d *Dispatcher) SetBandTX(band int, enabled bool) {
	d.s.Send(SetBandTX{Band: band, Enabled: enabled})
}

// SetBandRX also cancels TX on the band server-side.
func (d *Dispatcher) SetBandRX(band int, enabled bool) {
	d.s.Send(SetBandRX{Band: band, Enabled: enabled})
}

func (d *Dispatcher) AddStar(s Star) {
	if finite("add_star", s.RA) && finite("add_star", s.Dec) {
		d.s.Send(AddStar{Star: s})
	}
}
