//go:build property
// +build property

package normalize

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestNormalizersBounded(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("voice stress stays in [0,1]", prop.ForAll(
		func(jitter, shimmer, pitch, hnr float64) bool {
			s := VoiceStress(&VoiceMetrics{JitterPercent: &jitter, ShimmerPercent: &shimmer, PitchSDHz: &pitch, HNRDB: &hnr})
			return s >= 0 && s <= 1
		},
		gen.Float64Range(-50, 50),
		gen.Float64Range(-50, 100),
		gen.Float64Range(-100, 1000),
		gen.Float64Range(-60, 60),
	))

	properties.Property("visual behavior stays in [0,1]", prop.ForAll(
		func(rate, lip, dur float64) bool {
			s := VisualBehavior(&VisualMetrics{BlinkRatePerMin: &rate, AvgLipTension: &lip, AvgBlinkDurationMs: &dur})
			return s >= 0 && s <= 1
		},
		gen.Float64Range(-10, 200),
		gen.Float64Range(-1, 2),
		gen.Float64Range(-100, 5000),
	))

	properties.Property("expression score is 0 or above the noise floor", prop.ForAll(
		func(score float64) bool {
			raw := json.RawMessage(fmt.Sprintf(`{"Guilt": %g}`, score))
			s := ExpressionScore(raw)
			return s == 0 || (s > NoiseFloor && s <= 1)
		},
		gen.Float64Range(0, 2),
	))

	properties.TestingRun(t)
}
