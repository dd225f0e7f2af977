package tools

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// String extracts text from a loosely typed argument: a string, a number,
// an object with a "value" field, or the first element of an array.
// Anything else is "".
func String(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case json.Number:
		return x.String()
	case map[string]any:
		if inner, ok := x["value"]; ok {
			return scalar(inner)
		}
		return ""
	case []any:
		if len(x) > 0 {
			return scalar(x[0])
		}
		return ""
	default:
		return ""
	}
}

// scalar renders a nested value one level deep.
func scalar(v any) string {
	switch v.(type) {
	case map[string]any, []any, nil:
		return ""
	case bool:
		return strconv.FormatBool(v.(bool))
	}
	return String(v)
}

// Quantity coerces an argument to a positive integer, truncating
// fractions. Missing, non-numeric, non-finite or sub-1 values give 1.
// Values beyond int32 are clamped so the conversion cannot overflow.
func Quantity(v any) int {
	f, ok := number(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f < 1 {
		return 1
	}
	return int(min(f, math.MaxInt32))
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	case map[string]any:
		return number(x["value"])
	case []any:
		if len(x) == 1 {
			return number(x[0])
		}
	}
	return 0, false
}
