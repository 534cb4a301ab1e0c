package datanorm

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ToFloat coerces a decoded JSON or spreadsheet value to a float64.
// Non-numeric, missing, NaN and infinite values become 0.
func ToFloat(v any) float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		f, _ = t.Float64()
	case string:
		f = parseNumber(t)
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// parseNumber accepts "12.4", " 12,4 " and "1,234.5".
func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// ToString renders a scalar as trimmed text. Integral floats print without
// a decimal point so that order codes read from spreadsheets stay intact.
func ToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// OrSentinel returns ToString(v), or Sentinel when it is empty.
func OrSentinel(v any) string {
	if s := ToString(v); s != "" {
		return s
	}
	return Sentinel
}

// IsBlank reports whether a string carries no value.
func IsBlank(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == Sentinel
}
