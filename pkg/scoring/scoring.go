// Package scoring combines the three normalized modality scores of one
// interview window into a composite deception score.
package scoring

import "math"

const (
	// HighRiskThreshold marks a window for reviewer attention.
	HighRiskThreshold = 0.7
	// MediumRiskThreshold separates LOW from MEDIUM.
	MediumRiskThreshold = 0.4

	modalities = 3
)

// RiskLevel buckets a score for display.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Breakdown holds the per-modality contributions, each in [0,1].
type Breakdown struct {
	VoiceStress           float64 `json:"voiceStress"`
	VisualBehavior        float64 `json:"visualBehavior"`
	ExpressionMeasurement float64 `json:"expressionMeasurement"`
}

// Composite is the scored window.
type Composite struct {
	DeceptionScore float64   `json:"deceptionScore"`
	Breakdown      Breakdown `json:"breakdown"`
	RiskLevel      RiskLevel `json:"riskLevel"`
	HighRisk       bool      `json:"highRisk"`
}

// Combine weighs the three modalities equally. Inputs are clamped to [0,1]
// and rounded to four decimals before averaging, so the persisted score is
// the mean of the persisted breakdown.
func Combine(voice, visual, expression float64) Composite {
	b := Breakdown{
		VoiceStress:           Round4(clamp01(voice)),
		VisualBehavior:        Round4(clamp01(visual)),
		ExpressionMeasurement: Round4(clamp01(expression)),
	}
	score := Round4((b.VoiceStress + b.VisualBehavior + b.ExpressionMeasurement) / modalities)
	return Composite{
		DeceptionScore: score,
		Breakdown:      b,
		RiskLevel:      Level(score),
		HighRisk:       IsHighRisk(score),
	}
}

// Level buckets a score: above 0.7 is HIGH, above 0.4 is MEDIUM.
func Level(score float64) RiskLevel {
	switch {
	case score > HighRiskThreshold:
		return RiskHigh
	case score > MediumRiskThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

// IsHighRisk reports whether score crosses the high-risk threshold.
func IsHighRisk(score float64) bool {
	return score > HighRiskThreshold
}

// Round4 rounds to four decimal places.
func Round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Min(1, math.Max(0, x))
}
