package status

import (
	"strconv"
	"strings"
)

// FormatDegrees renders an angle with two decimals and no grouping. Missing
// values render as the empty string.
func FormatDegrees(v float64, ok bool) string {
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// FormatBits renders a bit vector with the highest index first.
func FormatBits(bits []bool) string {
	var b strings.Builder
	for i := len(bits) - 1; i >= 0; i-- {
		if bits[i] {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// FormatHex renders a number or a list of numbers in hex, e.g. RawRegisters.
func FormatHex(v interface{}) string {
	switch v := v.(type) {
	case float64:
		return strconv.FormatInt(int64(v), 16)
	case int:
		return strconv.FormatInt(int64(v), 16)
	case []interface{}:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = FormatHex(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return ""
}
