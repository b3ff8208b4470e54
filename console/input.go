package console

import (
	"fmt"
	"unicode/utf8"

	"github.com/w1xm/rci_console/knob"
)

// KnobInput is one widget event. Place is the digit exponent the event
// targets where relevant.
type KnobInput struct {
	Action string  `json:"action"` // focus, blur, type, key, spin, wheel
	Place  int     `json:"place"`
	Text   string  `json:"text"`
	Key    string  `json:"key"` // left, right, up, down, backspace
	Delta  float64 `json:"delta"`
}

var keys = map[string]knob.Key{
	"left":      knob.KeyLeft,
	"right":     knob.KeyRight,
	"up":        knob.KeyUp,
	"down":      knob.KeyDown,
	"backspace": knob.KeyBackspace,
}

// Knob applies in to the named knob and returns what it now displays.
func (c *Console) Knob(name string, in KnobInput) (knob.Display, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k, ok := c.knobs[name]
	if !ok {
		return knob.Display{}, fmt.Errorf("%w %q", ErrUnknownKnob, name)
	}
	e := k.editor
	switch in.Action {
	case "", "show":
	case "focus":
		e.Focus(in.Place)
	case "blur":
		e.Blur()
	case "type":
		for len(in.Text) > 0 {
			r, size := utf8.DecodeRuneInString(in.Text)
			e.Type(r)
			in.Text = in.Text[size:]
		}
	case "key":
		key, ok := keys[in.Key]
		if !ok {
			return knob.Display{}, fmt.Errorf("unknown key %q", in.Key)
		}
		e.Key(key)
	case "spin":
		dir := 1
		if in.Delta < 0 {
			dir = -1
		}
		e.SpinPlace(in.Place, dir)
	case "wheel":
		e.Wheel(in.Place, in.Delta)
	default:
		return knob.Display{}, fmt.Errorf("unknown action %q", in.Action)
	}
	return e.Render(), nil
}

// KnobValue is the knob's current numeric value.
func (c *Console) KnobValue(name string) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k, ok := c.knobs[name]
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrUnknownKnob, name)
	}
	return k.editor.Value(), nil
}
