package exporter

import (
	"math"
	"strconv"
)

// formatFloat formats a float64 the way it reads back: shortest round-trip
// digits, ".0" on integral values, exponent form for very large or small magnitudes
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ""
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}

	abs := math.Abs(f)
	if abs >= 1e16 || (abs != 0 && abs < 1e-4) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if f == math.Trunc(f) {
		s += ".0"
	}
	return s
}

// formatInt formats an int value for CSV output
func formatInt(i int) string {
	return strconv.Itoa(i)
}

// formatBool formats a boolean value the way pandas writes it
func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// formatCell renders one cell; missing cells are empty
func formatCell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return formatFloat(x)
	case int:
		return formatInt(x)
	case bool:
		return formatBool(x)
	case string:
		return x
	default:
		return ""
	}
}
