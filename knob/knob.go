// Package knob implements the value-editing behaviour of the console's
// digit-wheel widgets.
//
// A knob shows one digit per decimal place, from 10^(Digits-1) down to
// 10^-Decimals. Each place can be spun (wheel, arrow keys, spin buttons) or
// overwritten by typing. While a place has focus, local edits win over values
// pushed from telemetry.
package knob

import (
	"math"
)

type Config struct {
	// Min and Max bound the value. Without Wrap, a zero bound means unbounded.
	Min, Max float64
	// Wrap makes the value periodic in [Min, Max).
	Wrap bool
	// Decimals is the number of fractional places.
	Decimals int
	// Digits is the number of integer places; 3 if unset.
	Digits int
	// Writable knobs accept input; others only display.
	Writable bool
	Unit     string
}

type Key int

const (
	KeyLeft Key = iota
	KeyRight
	KeyUp
	KeyDown
	KeyBackspace
)

// Editor is the per-widget edit state. It is not safe for concurrent use; the
// owner serializes input and telemetry events.
//
// Focus ends two ways. Blur drops any local edit and shows the external
// value. Typing the least significant place keeps the typed value, since it
// has just been sent through OnChange; the next SetExternal replaces it.
type Editor struct {
	cfg Config

	value    float64
	external float64
	focused  bool
	// place is the exponent of the focused digit.
	place  int
	active bool

	// OnChange is called with the new value after every local edit.
	OnChange func(value float64)
}

func New(cfg Config) *Editor {
	if cfg.Digits <= 0 {
		cfg.Digits = 3
	}
	if cfg.Decimals < 0 {
		cfg.Decimals = 0
	}
	return &Editor{cfg: cfg, active: true, place: -cfg.Decimals}
}

func (e *Editor) Config() Config {
	return e.cfg
}

func (e *Editor) Value() float64 {
	return e.value
}

func (e *Editor) maxPlace() int { return e.cfg.Digits - 1 }
func (e *Editor) minPlace() int { return -e.cfg.Decimals }

// Focused returns the focused place exponent, or false when idle.
func (e *Editor) Focused() (int, bool) {
	return e.place, e.focused
}

// SetExternal supplies the value from telemetry. It is shown immediately when
// idle and held until Blur otherwise.
func (e *Editor) SetExternal(v float64) {
	e.external = v
	if !e.focused {
		e.value = v
	}
}

// SetActive dims the thousands marks when false.
func (e *Editor) SetActive(active bool) {
	e.active = active
}

// Focus gives input focus to the digit at 10^place. Places outside the knob
// are ignored.
func (e *Editor) Focus(place int) {
	if !e.cfg.Writable || place < e.minPlace() || place > e.maxPlace() {
		return
	}
	e.focused = true
	e.place = place
}

// Blur releases focus and reverts the display to the external value.
func (e *Editor) Blur() {
	e.focused = false
	e.value = e.external
}

func (e *Editor) set(v float64) {
	e.value = v
	if e.OnChange != nil {
		e.OnChange(v)
	}
}

func isNegZero(v float64) bool {
	return v == 0 && math.Signbit(v)
}

func pow10(place int) float64 {
	return math.Pow(10, float64(place))
}

// snap removes floating point noise below the smallest place so that
// repeated edits land on exact decimal values.
func (e *Editor) snap(v float64) float64 {
	d := float64(e.cfg.Decimals)
	scale := math.Pow(10, d)
	q := v * scale
	r := math.Round(q)
	if math.Abs(q-r) > 1e-6 {
		return v
	}
	out := r / scale
	if out == 0 && math.Signbit(v) {
		return math.Copysign(0, -1)
	}
	return out
}

func (e *Editor) clamp(v float64) float64 {
	c := e.cfg
	if c.Wrap {
		span := c.Max - c.Min
		if span <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
			return v
		}
		for v >= c.Max {
			v -= span
		}
		for v < c.Min {
			v += span
		}
		return v
	}
	if c.Max != 0 && v >= c.Max {
		return c.Max
	}
	if c.Min != 0 && v < c.Min {
		return c.Min
	}
	return v
}

// SpinPlace adds direction*10^place to the value.
func (e *Editor) SpinPlace(place, direction int) {
	if !e.cfg.Writable || place < e.minPlace() || place > e.maxPlace() {
		return
	}
	e.set(e.snap(e.clamp(e.snap(e.value + float64(direction)*pow10(place)))))
}

// Spin spins the focused place.
func (e *Editor) Spin(direction int) {
	if !e.focused {
		return
	}
	e.SpinPlace(e.place, direction)
}

// Wheel spins the place under the pointer by one step in the direction of
// delta.
func (e *Editor) Wheel(place int, delta float64) {
	switch {
	case delta > 0:
		e.SpinPlace(place, 1)
	case delta < 0:
		e.SpinPlace(place, -1)
	}
}

// Key handles navigation keys on the focused place. Left and Backspace move
// toward the more significant places, Right toward the less significant.
func (e *Editor) Key(k Key) {
	if !e.focused {
		return
	}
	switch k {
	case KeyLeft, KeyBackspace:
		if e.place < e.maxPlace() {
			e.place++
		}
	case KeyRight:
		if e.place > e.minPlace() {
			e.place--
		}
	case KeyUp:
		e.Spin(1)
	case KeyDown:
		e.Spin(-1)
	}
}

// Type handles a typed character on the focused place. Digits overwrite the
// place and advance focus one place to the right; '-'/'_' and '+'/'=' set the
// sign; 'z'/'Z' zeroes this place and everything to its right. Other
// characters are ignored.
func (e *Editor) Type(ch rune) {
	if !e.focused || !e.cfg.Writable {
		return
	}
	v := e.value
	scale := pow10(e.place)
	switch ch {
	case '-', '_':
		e.set(-math.Abs(v))
		return
	case '+', '=':
		e.set(math.Abs(v))
		return
	case 'z', 'Z':
		factor := scale * 10
		e.set(e.snap(math.Trunc(e.snap(v/factor)) * factor))
		return
	}
	if ch < '0' || ch > '9' {
		return
	}
	input := float64(ch - '0')

	negative := v < 0 || isNegZero(v)
	if negative {
		v = -v
	}
	var current float64
	if e.place == 0 {
		// Setting the units digit also clears the fraction.
		current = math.Mod(v, 10)
	} else {
		current = math.Mod(math.Floor(e.snapQuotient(v/scale)), 10)
	}
	v = e.snap(v + (input-current)*scale)
	if negative {
		v = -v
	}
	e.set(e.clamp(v))

	if e.place > e.minPlace() {
		e.place--
	} else {
		e.focused = false
	}
}

// snapQuotient rounds q to the nearest integer when it is within floating
// point noise of it, so that 12/0.1 counts as 120.
func (e *Editor) snapQuotient(q float64) float64 {
	if r := math.Round(q); math.Abs(q-r) < 1e-6 {
		return r
	}
	return q
}
