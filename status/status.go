// Package status holds the most recent telemetry snapshot received from the
// controller.
package status

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Snapshot is one complete telemetry payload as sent by the controller.
// A Snapshot is never modified after it is parsed; readers must not mutate it.
type Snapshot map[string]interface{}

var ErrNotObject = errors.New("status is not a JSON object")

// Parse decodes one inbound message. Anything other than a JSON object is an
// error.
func Parse(data []byte) (Snapshot, error) {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parsing status: %w", err)
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, ErrNotObject
	}
	return Snapshot(m), nil
}

func (s Snapshot) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Float returns a numeric field.
func (s Snapshot) Float(name string) (float64, bool) {
	f, ok := s[name].(float64)
	return f, ok
}

func (s Snapshot) Int(name string) (int, bool) {
	f, ok := s.Float(name)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func (s Snapshot) String(name string) string {
	str, _ := s[name].(string)
	return str
}

func (s Snapshot) Bool(name string) bool {
	b, _ := s[name].(bool)
	return b
}

// Bools returns a bit-vector field such as Status or CommandStatus.
func (s Snapshot) Bools(name string) []bool {
	raw, ok := s[name].([]interface{})
	if !ok {
		return nil
	}
	out := make([]bool, len(raw))
	for i, v := range raw {
		out[i], _ = v.(bool)
	}
	return out
}

func (s Snapshot) Strings(name string) []string {
	raw, ok := s[name].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, len(raw))
	for i, v := range raw {
		out[i], _ = v.(string)
	}
	return out
}

// PositionHold reports whether the controller is holding a commanded position
// on both axes.
func (s Snapshot) PositionHold() bool {
	return s.String("CommandAzFlags") == "POSITION" && s.String("CommandElFlags") == "POSITION"
}

// Authorized reports whether the server accepts commands from this session.
func (s Snapshot) Authorized() bool {
	return s.Bool("Authorized")
}

var shutdownFaults = [...]string{
	"None",
	"RAM write/read test failure",
	"Azimuth A/D not done",
	"Elevation A/D not done",
	"Azimuth tach inconsistent",
	"Elevation tach inconsistent",
	"Upper Elevation limit",
	"Lower Elevation limit",
	"Unresponsive Azimuth",
	"Unresponsive Elevation",
	"Azimuth overvelocity",
	"Elevation overvelocity",
	"Elevation position out of range",
}

// ShutdownFault describes an RCI shutdown code. Unknown codes return false.
func ShutdownFault(code int) (string, bool) {
	if code < 0 || code >= len(shutdownFaults) {
		return "", false
	}
	return shutdownFaults[code], true
}

// Shutdown returns the snapshot's shutdown code and its description.
func (s Snapshot) Shutdown() (int, string) {
	code, ok := s.Int("ShutdownError")
	if !ok {
		return 0, ""
	}
	desc, _ := ShutdownFault(code)
	return code, desc
}
