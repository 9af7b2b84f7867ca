package normalize

import (
	"encoding/json"
	"strconv"
	"strings"
)

// NoiseFloor is the intensity at or below which an emotion reading is noise.
const NoiseFloor = 0.1

// FraudEmotions are the expression categories associated with deception.
var FraudEmotions = []string{
	"Guilt", "Shame", "Anxiety", "Doubt", "Fear", "Embarrassment", "Distress", "Disgust",
}

func isFraudEmotion(name string) bool {
	for _, e := range FraudEmotions {
		if strings.EqualFold(e, name) {
			return true
		}
	}
	return false
}

// ExpressionScore returns the peak fraud-emotion intensity in an expression
// analyzer payload. It accepts a bare list of {name|label|emotion,
// score|probability} entries, an object holding that list under
// top_emotions or emotions, or an object keyed by emotion name. Either may be
// wrapped in a "metrics" object. Readings at or below NoiseFloor score 0.
func ExpressionScore(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return 0
	}
	if obj, ok := data.(map[string]any); ok {
		if inner, ok := obj["metrics"]; ok && inner != nil {
			data = inner
		}
	}
	if obj, ok := data.(map[string]any); ok {
		if list, ok := obj["top_emotions"].([]any); ok {
			data = list
		} else if list, ok := obj["emotions"].([]any); ok {
			data = list
		}
	}

	peak := 0.0
	switch v := data.(type) {
	case []any:
		for _, entry := range v {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			name := firstString(m, "name", "label", "emotion")
			if name != "" && isFraudEmotion(name) {
				peak = max(peak, firstNumber(m, "score", "probability"))
			}
		}
	case map[string]any:
		for name, score := range v {
			if isFraudEmotion(name) {
				peak = max(peak, number(score))
			}
		}
	}

	if peak <= NoiseFloor {
		return 0
	}
	return clamp01(peak)
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func firstNumber(m map[string]any, keys ...string) float64 {
	for _, k := range keys {
		if n := number(m[k]); n != 0 {
			return n
		}
	}
	return 0
}

func number(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
