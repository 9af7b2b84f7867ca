package normalize

import (
	"encoding/json"
	"fmt"
	"math"
)

const (
	BlinkRateBaselinePerMin = 18.0
	LipTensionBaseline      = 0.45
	BlinkDurationBaselineMs = 150.0
	lipCompressionOnset     = 0.4
	lipCompressionGain      = 1.5
	blinkRateSpan           = 20.0
	blinkDurationSpan       = 500.0
	blinkRateCap            = 0.4
	lipCompressionCap       = 0.4
	blinkDurationCap        = 0.2
)

// VisualMetrics is the visual analyzer's facial landmark summary. Older
// analyzer builds use the short field names.
type VisualMetrics struct {
	BlinkCount         *float64 `json:"blink_count,omitempty"`
	BlinkRatePerMin    *float64 `json:"blink_rate_per_min"`
	BlinkRate          *float64 `json:"blink_rate,omitempty"`
	AvgBlinkDurationMs *float64 `json:"avg_blink_duration_ms"`
	BlinkDuration      *float64 `json:"blink_duration,omitempty"`
	AvgLipTension      *float64 `json:"avg_lip_tension"`
	LipTension         *float64 `json:"lip_tension,omitempty"`
	AvgEAR             *float64 `json:"avg_ear,omitempty"`
}

// ParseVisualMetrics decodes the metrics object.
func ParseVisualMetrics(raw json.RawMessage) (*VisualMetrics, error) {
	if isNull(raw) {
		return nil, nil
	}
	var m VisualMetrics
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("visual metrics: %w", err)
	}
	return &m, nil
}

// VisualBehavior sums blink-rate deviation, lip compression and blink
// duration irregularity, each capped, and clamps the total to [0,1].
// Missing measurements default to the baselines and contribute nothing.
func VisualBehavior(m *VisualMetrics) float64 {
	if m == nil {
		return 0
	}
	rate := value(BlinkRateBaselinePerMin, m.BlinkRatePerMin, m.BlinkRate)
	blinkDev := math.Min(blinkRateCap, math.Abs(rate-BlinkRateBaselinePerMin)/blinkRateSpan)

	lip := value(LipTensionBaseline, m.AvgLipTension, m.LipTension)
	lipRisk := math.Min(lipCompressionCap, math.Max(0, lipCompressionOnset-lip)*lipCompressionGain)

	dur := value(BlinkDurationBaselineMs, m.AvgBlinkDurationMs, m.BlinkDuration)
	durRisk := math.Min(blinkDurationCap, math.Abs(dur-BlinkDurationBaselineMs)/blinkDurationSpan)

	return clamp01(blinkDev + lipRisk + durRisk)
}
