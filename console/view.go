package console

import (
	"time"

	"github.com/w1xm/rci_console/geometry"
	"github.com/w1xm/rci_console/skymap"
	"github.com/w1xm/rci_console/status"
)

type KnobView struct {
	Text    string  `json:"text"`
	Value   float64 `json:"value"`
	Focused *int    `json:"focused,omitempty"`
}

type PanoramaView struct {
	Shift float64         `json:"shift"`
	Ticks []geometry.Tick `json:"ticks"`
}

// View is a rendering-ready summary of the console.
type View struct {
	Connection     string              `json:"connection"`
	Authorized     bool                `json:"authorized"`
	AzPos          string              `json:"az_pos"`
	ElPos          string              `json:"el_pos"`
	CommandAzPos   string              `json:"command_az_pos"`
	CommandElPos   string              `json:"command_el_pos"`
	PositionHold   bool                `json:"position_hold"`
	Shutdown       int                 `json:"shutdown"`
	ShutdownReason string              `json:"shutdown_reason,omitempty"`
	Bodies         []string            `json:"bodies"`
	TrackingBody   int                 `json:"tracking_body"`
	StatusBits     string              `json:"status_bits,omitempty"`
	WriteRegisters string              `json:"write_registers,omitempty"`
	Knobs          map[string]KnobView `json:"knobs"`
	Pointers       []skymap.Pointer    `json:"pointers"`
	Panorama       PanoramaView        `json:"panorama"`
}

func (c *Console) View(t time.Time) View {
	s := c.model.Current()
	deg := func(name string) string {
		return status.FormatDegrees(s.Float(name))
	}
	code, reason := s.Shutdown()
	body, _ := s.Int("CommandTrackingBody")
	v := View{
		Connection:     c.sess.State().String(),
		Authorized:     s.Authorized(),
		AzPos:          deg("AzPos"),
		ElPos:          deg("ElPos"),
		CommandAzPos:   deg("CommandAzPos"),
		CommandElPos:   deg("CommandElPos"),
		PositionHold:   s.PositionHold(),
		Shutdown:       code,
		ShutdownReason: reason,
		Bodies:         s.Strings("Bodies"),
		TrackingBody:   body,
		StatusBits:     status.FormatBits(s.Bools("Status")),
		WriteRegisters: status.FormatHex(s["WriteRegisters"]),
		Knobs:          make(map[string]KnobView),
		Pointers:       skymap.Pointers(s, c.conv, t),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for name, k := range c.knobs {
		kv := KnobView{Text: k.editor.Render().String(), Value: k.editor.Value()}
		if place, ok := k.editor.Focused(); ok {
			kv.Focused = &place
		}
		v.Knobs[name] = kv
	}
	v.Panorama = PanoramaView{Shift: c.panorama.Shift, Ticks: c.panorama.Ticks()}
	return v
}
