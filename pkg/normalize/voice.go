package normalize

import (
	"encoding/json"
	"fmt"
	"math"
)

// Voice baselines for a calm speaker and the spans over which deviation
// saturates.
const (
	JitterBaselinePercent  = 0.8
	ShimmerBaselinePercent = 2.0
	PitchSDBaselineHz      = 15.0
	HNRBaselineDB          = 15.0

	jitterSpan  = 7.0
	shimmerSpan = 15.0
	pitchSDSpan = 150.0
	hnrSpan     = 20.0

	jitterWeight  = 0.25
	shimmerWeight = 0.25
	pitchSDWeight = 0.20
	hnrWeight     = 0.10
)

// VoiceMetrics is the voice analyzer's acoustic measurement of one window.
type VoiceMetrics struct {
	JitterPercent  *float64 `json:"jitter_percent"`
	ShimmerPercent *float64 `json:"shimmer_percent"`
	PitchSDHz      *float64 `json:"pitch_sd_hz"`
	MeanPitchHz    *float64 `json:"mean_pitch_hz,omitempty"`
	HNRDB          *float64 `json:"hnr_db"`
	DurationS      *float64 `json:"duration_s,omitempty"`
}

// ParseVoiceMetrics decodes the metrics object. Null or empty input yields
// nil metrics.
func ParseVoiceMetrics(raw json.RawMessage) (*VoiceMetrics, error) {
	if isNull(raw) {
		return nil, nil
	}
	var m VoiceMetrics
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("voice metrics: %w", err)
	}
	return &m, nil
}

// VoiceStress scores vocal stress. Each deviation term is rescaled against
// its baseline and clamped to [0,1]; the weighted sum is squared so small
// measurement noise stays near zero. Nil metrics (no audio track) score 0,
// and an unmeasured metric sits at its baseline.
func VoiceStress(m *VoiceMetrics) float64 {
	if m == nil {
		return 0
	}
	jitter := clamp01((measured(m.JitterPercent, JitterBaselinePercent) - JitterBaselinePercent) / jitterSpan)
	shimmer := clamp01((measured(m.ShimmerPercent, ShimmerBaselinePercent) - ShimmerBaselinePercent) / shimmerSpan)
	pitchSD := clamp01((measured(m.PitchSDHz, PitchSDBaselineHz) - PitchSDBaselineHz) / pitchSDSpan)
	hnr := clamp01((HNRBaselineDB - measured(m.HNRDB, HNRBaselineDB)) / hnrSpan)

	raw := jitter*jitterWeight + shimmer*shimmerWeight + pitchSD*pitchSDWeight + hnr*hnrWeight
	return clamp01(math.Pow(raw, 2))
}

func isNull(raw json.RawMessage) bool {
	s := string(raw)
	return len(raw) == 0 || s == "null" || s == "{}"
}
