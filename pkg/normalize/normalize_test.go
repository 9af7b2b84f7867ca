package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestVoiceStress(t *testing.T) {
	tests := []struct {
		name string
		m    *VoiceMetrics
		want float64
	}{
		{"no audio", nil, 0},
		{"baseline", &VoiceMetrics{JitterPercent: f(0.8), ShimmerPercent: f(2.0), PitchSDHz: f(15), HNRDB: f(15)}, 0},
		{"better than baseline", &VoiceMetrics{JitterPercent: f(0.2), ShimmerPercent: f(1.0), PitchSDHz: f(5), HNRDB: f(25)}, 0},
		{"jitter only", &VoiceMetrics{JitterPercent: f(4.3), ShimmerPercent: f(2.0), PitchSDHz: f(15), HNRDB: f(15)}, 0.125 * 0.125},
		{"saturated", &VoiceMetrics{JitterPercent: f(30), ShimmerPercent: f(40), PitchSDHz: f(400), HNRDB: f(-10)}, 0.8 * 0.8},
		{"unmeasured metrics sit at baseline", &VoiceMetrics{ShimmerPercent: f(17)}, 0.25 * 0.25},
		{"zero hnr is a measurement", &VoiceMetrics{HNRDB: f(0)}, (0.75 * 0.1) * (0.75 * 0.1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, VoiceStress(tt.m), 1e-12)
		})
	}
}

func TestVisualBehavior(t *testing.T) {
	tests := []struct {
		name string
		m    *VisualMetrics
		want float64
	}{
		{"nil", nil, 0},
		{"empty defaults to baselines", &VisualMetrics{}, 0},
		{"baseline", &VisualMetrics{BlinkRatePerMin: f(18), AvgLipTension: f(0.45), AvgBlinkDurationMs: f(150)}, 0},
		{"partial deviation", &VisualMetrics{BlinkRatePerMin: f(24), AvgLipTension: f(0.3), AvgBlinkDurationMs: f(200)}, 0.3 + 0.15 + 0.1},
		{"caps", &VisualMetrics{BlinkRatePerMin: f(60), AvgLipTension: f(0.01), AvgBlinkDurationMs: f(900)}, 1.0},
		{"short field names", &VisualMetrics{BlinkRate: f(8), LipTension: f(0.45), BlinkDuration: f(150)}, 0.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, VisualBehavior(tt.m), 1e-12)
		})
	}
}

func TestExpressionScore(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want float64
	}{
		{"empty", ``, 0},
		{"garbage", `not json`, 0},
		{"list", `[{"name":"Guilt","score":0.6},{"name":"Joy","score":0.9}]`, 0.6},
		{"object", `{"Fear":0.35,"Calmness":0.8,"Disgust":0.2}`, 0.35},
		{"noise floor", `{"Fear":0.1,"Shame":0.05}`, 0},
		{"wrapped top emotions", `{"metrics":{"top_emotions":[{"label":"Anxiety","probability":0.42}]}}`, 0.42},
		{"emotions key with emotion field", `{"emotions":[{"emotion":"distress","score":0.77}]}`, 0.77},
		{"no fraud emotions", `{"top_emotions":[{"name":"Joy","score":0.99}]}`, 0},
		{"null metrics falls back to body", `{"metrics":null,"Doubt":0.5}`, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ExpressionScore(json.RawMessage(tt.raw)), 1e-12)
		})
	}
}

func TestParseMetrics(t *testing.T) {
	v, err := ParseVoiceMetrics(json.RawMessage(`{"jitter_percent":1.2,"shimmer_percent":3.1,"pitch_sd_hz":22,"hnr_db":13.5}`))
	require.NoError(t, err)
	require.NotNil(t, v.HNRDB)
	assert.Equal(t, 13.5, *v.HNRDB)

	v, err = ParseVoiceMetrics(json.RawMessage(`null`))
	require.NoError(t, err)
	assert.Nil(t, v)

	vis, err := ParseVisualMetrics(json.RawMessage(`{"blink_rate_per_min":21,"avg_lip_tension":0.41}`))
	require.NoError(t, err)
	assert.Equal(t, 21.0, *vis.BlinkRatePerMin)

	_, err = ParseVisualMetrics(json.RawMessage(`[1,2]`))
	assert.Error(t, err)
}
