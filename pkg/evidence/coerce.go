package evidence

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Extractors return loosely typed JSON: amounts arrive as "RM 12,000",
// booleans as "yes", counts as floats. These helpers fold that into Go
// scalars with zero values for anything unreadable.

var (
	nonDecimal   = regexp.MustCompile(`[^0-9.]`)
	nonDigit     = regexp.MustCompile(`[^0-9]`)
	leadingFloat = regexp.MustCompile(`^[0-9]*\.?[0-9]*`)
)

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case nil:
		return 0
	case float64:
		return t
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		s := leadingFloat.FindString(nonDecimal.ReplaceAllString(t, ""))
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func toInt(v any) int {
	switch t := v.(type) {
	case nil:
		return 0
	case float64:
		return int(math.Floor(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0
		}
		return int(math.Floor(f))
	case string:
		n, err := strconv.Atoi(nonDigit.ReplaceAllString(t, ""))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func toBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(t) {
		case "true", "yes", "1", "y":
			return true
		}
		return false
	case float64:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case nil:
		return false
	default:
		return true
	}
}

func toStrings(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s := toString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// object returns the nested object at key, or nil when absent or not an object.
func object(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	o, _ := m[key].(map[string]any)
	return o
}

func field(m map[string]any, key string) any {
	if m == nil {
		return nil
	}
	return m[key]
}
