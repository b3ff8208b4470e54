// Package command defines the operator commands understood by the radar
// server and their JSON wire encoding.
package command

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Command is one outbound message. Each concrete type encodes its own fields;
// Marshal adds the "command" name.
type Command interface {
	Name() string
}

type Write struct {
	Register int      `json:"register"`
	Values   []uint16 `json:"values"`
}

type SetAzimuthPosition struct {
	Position float64 `json:"position"`
}

type SetElevationPosition struct {
	Position float64 `json:"position"`
}

// SetAzimuthVelocity is in degrees/second, positive clockwise.
type SetAzimuthVelocity struct {
	Velocity float64 `json:"velocity"`
}

type SetElevationVelocity struct {
	Velocity float64 `json:"velocity"`
}

type SetAzimuthOffset struct {
	Position float64 `json:"position"`
}

type SetElevationOffset struct {
	Position float64 `json:"position"`
}

// Track selects a body from the server's Bodies list. Body 0 stops tracking.
type Track struct {
	Body int `json:"body"`
}

type Stop struct{}

// StopHard commands zero velocity on both axes instead of releasing the servos.
type StopHard struct{}

type ExitShutdown struct{}

type SetBandTX struct {
	Band    int  `json:"band"`
	Enabled bool `json:"enabled"`
}

type SetBandRX struct {
	Band    int  `json:"band"`
	Enabled bool `json:"enabled"`
}

type Star struct {
	StarName       string  `json:"starname"`
	Catalog        string  `json:"catalog"`
	StarNumber     int64   `json:"starnumber"`
	RA             float64 `json:"ra"`  // ICRS right ascension (hours)
	Dec            float64 `json:"dec"` // ICRS declination (degrees)
	ProMoRA        float64 `json:"promora"`
	ProMoDec       float64 `json:"promodec"`
	Parallax       float64 `json:"parallax"`
	RadialVelocity float64 `json:"radialvelocity"`
}

type AddStar struct {
	Star Star `json:"star"`
}

// Ack acknowledges a status sequence number on throttled sessions.
type Ack struct {
	Seq int `json:"seq"`
}

func (Write) Name() string                { return "write" }
func (SetAzimuthPosition) Name() string   { return "set_azimuth_position" }
func (SetElevationPosition) Name() string { return "set_elevation_position" }
func (SetAzimuthVelocity) Name() string   { return "set_azimuth_velocity" }
func (SetElevationVelocity) Name() string { return "set_elevation_velocity" }
func (SetAzimuthOffset) Name() string     { return "set_azimuth_offset" }
func (SetElevationOffset) Name() string   { return "set_elevation_offset" }
func (Track) Name() string                { return "track" }
func (Stop) Name() string                 { return "stop" }
func (StopHard) Name() string             { return "stop_hard" }
func (ExitShutdown) Name() string         { return "exit_shutdown" }
func (SetBandTX) Name() string            { return "set_band_tx" }
func (SetBandRX) Name() string            { return "set_band_rx" }
func (AddStar) Name() string              { return "add_star" }
func (Ack) Name() string                  { return "ack" }

var constructors = map[string]func() Command{
	"write":                  func() Command { return &Write{} },
	"set_azimuth_position":   func() Command { return &SetAzimuthPosition{} },
	"set_elevation_position": func() Command { return &SetElevationPosition{} },
	"set_azimuth_velocity":   func() Command { return &SetAzimuthVelocity{} },
	"set_elevation_velocity": func() Command { return &SetElevationVelocity{} },
	"set_azimuth_offset":     func() Command { return &SetAzimuthOffset{} },
	"set_elevation_offset":   func() Command { return &SetElevationOffset{} },
	"track":                  func() Command { return &Track{} },
	"stop":                   func() Command { return &Stop{} },
	"stop_hard":              func() Command { return &StopHard{} },
	"exit_shutdown":          func() Command { return &ExitShutdown{} },
	"set_band_tx":            func() Command { return &SetBandTX{} },
	"set_band_rx":            func() Command { return &SetBandRX{} },
	"add_star":               func() Command { return &AddStar{} },
	"ack":                    func() Command { return &Ack{} },
}

// Marshal encodes c as {"command":<name>, ...fields}, with the name first.
func Marshal(c Command) ([]byte, error) {
	name, err := json.Marshal(c.Name())
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", c.Name(), err)
	}
	var buf bytes.Buffer
	buf.WriteString(`{"command":`)
	buf.Write(name)
	if len(body) > 2 {
		buf.WriteByte(',')
		buf.Write(body[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a wire message into its concrete command type. The
// returned value is the struct, not a pointer.
func Unmarshal(data []byte) (Command, error) {
	var head struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	newCmd, ok := constructors[head.Command]
	if !ok {
		return nil, fmt.Errorf("unknown command %q", head.Command)
	}
	c := newCmd()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", head.Command, err)
	}
	return deref(c), nil
}

func deref(c Command) Command {
	switch c := c.(type) {
	case *Write:
		return *c
	case *SetAzimuthPosition:
		return *c
	case *SetElevationPosition:
		return *c
	case *SetAzimuthVelocity:
		return *c
	case *SetElevationVelocity:
		return *c
	case *SetAzimuthOffset:
		return *c
	case *SetElevationOffset:
		return *c
	case *Track:
		return *c
	case *Stop:
		return *c
	case *StopHard:
		return *c
	case *ExitShutdown:
		return *c
	case *SetBandTX:
		return *c
	case *SetBandRX:
		return *c
	case *AddStar:
		return *c
	case *Ack:
		return *c
	}
	return c
}
