package knob

import (
	"strconv"
	"strings"
)

// Digit is one rendered place.
type Digit struct {
	Place   int
	Char    byte
	Dim     bool
	Focused bool
}

// Mark is a thousands separator drawn to the left of the digit at Place.
type Mark struct {
	Place   int
	Visible bool
	Dim     bool
}

// Display is what a knob draws, most significant place first.
type Display struct {
	Digits   []Digit
	Marks    []Mark
	Decimals int
	Unit     string
}

// Format renders v with the knob's decimals and no grouping. Negative zero
// keeps its sign so the operator sees it while composing a negative number.
func (e *Editor) Format(v float64) string {
	return strconv.FormatFloat(v, 'f', e.cfg.Decimals, 64)
}

// Render lays out the current value. Places beyond the formatted value show
// a dim '0'.
func (e *Editor) Render() Display {
	str := strings.Replace(e.Format(e.value), ".", "", 1)
	intDigits := len(strings.TrimPrefix(str, "-")) - e.cfg.Decimals

	d := Display{Decimals: e.cfg.Decimals, Unit: e.cfg.Unit}
	last := len(str) - 1
	for place := e.maxPlace(); place >= e.minPlace(); place-- {
		idx := place - e.minPlace()
		digit := Digit{Place: place, Char: '0', Dim: true}
		if idx <= last {
			digit.Char = str[last-idx]
			digit.Dim = false
		}
		digit.Focused = e.focused && e.place == place
		d.Digits = append(d.Digits, digit)

		// Separators sit between places 3k+3 and 3k+2.
		if place%3 == 2 && place > 0 && place < e.maxPlace() {
			d.Marks = append(d.Marks, Mark{
				Place:   place,
				Visible: intDigits > place+1,
				Dim:     !e.active || !e.cfg.Writable,
			})
		}
	}
	return d
}

// Text is the visible characters of the display: undimmed digits, visible
// marks and the decimal point.
func (d Display) Text() string {
	var b strings.Builder
	marks := make(map[int]Mark)
	for _, m := range d.Marks {
		marks[m.Place] = m
	}
	for _, digit := range d.Digits {
		if m, ok := marks[digit.Place]; ok && m.Visible {
			b.WriteByte(',')
		}
		if !digit.Dim {
			b.WriteByte(digit.Char)
		}
		if digit.Place == 0 && d.Decimals > 0 {
			b.WriteByte('.')
		}
	}
	return b.String()
}

// String is the full place-by-place rendering including dim zeros.
func (d Display) String() string {
	var b strings.Builder
	for _, digit := range d.Digits {
		b.WriteByte(digit.Char)
		if digit.Place == 0 && d.Decimals > 0 {
			b.WriteByte('.')
		}
	}
	if d.Unit != "" {
		b.WriteString(d.Unit)
	}
	return b.String()
}
