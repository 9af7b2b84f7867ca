//go:build property
// +build property

package trinity

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/leobarcove/true-claim-insight/pkg/evidence"
)

var priorities = []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

// resultFor decodes a generated code into one of pass, fail, skip or error
// at one of four priorities.
func resultFor(i, code int) CheckResult {
	id := fmt.Sprintf("R%02d", i)
	p := priorities[code%4]
	switch code / 4 {
	case 0:
		return verdict(id, p, true, 1, "pass")
	case 1:
		return verdict(id, p, false, 1, "fail")
	case 2:
		return skipped(id, "missing")
	default:
		return failedToEvaluate(id, p, "unreadable")
	}
}

func TestAggregateBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("score and coverage stay bounded and match the counts", prop.ForAll(
		func(codes []int) bool {
			results := make([]CheckResult, len(codes))
			run, passed := 0, 0
			for i, c := range codes {
				results[i] = resultFor(i, c)
				if results[i].Status == CheckRun {
					run++
					if results[i].Passed() {
						passed++
					}
				}
			}
			r := Aggregate(results)

			if r.TotalScore < 0 || r.TotalScore > 100 {
				return false
			}
			if r.VerificationCoverage < 0 || r.VerificationCoverage > 1 {
				return false
			}
			if run == 0 {
				return r.TotalScore == 0 && r.Status == StatusIncomplete
			}
			want := int(float64(passed)*100/float64(run) + 0.5)
			return r.TotalScore == want
		},
		gen.SliceOf(gen.IntRange(0, 15)),
	))

	properties.Property("any critical failure rejects", prop.ForAll(
		func(codes []int) bool {
			results := make([]CheckResult, len(codes))
			critical := false
			for i, c := range codes {
				results[i] = resultFor(i, c)
				if results[i].Failed() && results[i].Priority == PriorityCritical {
					critical = true
				}
			}
			return (Aggregate(results).Status == StatusRejected) == critical
		},
		gen.SliceOf(gen.IntRange(0, 15)),
	))

	properties.TestingRun(t)
}

func TestSkippedInvariant(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("skipped rules carry no verdict and no confidence", prop.ForAll(
		func(conf float64) bool {
			rule := Rule{ID: "X", Priority: PriorityHigh, Eval: func(*evidence.Bag, ClaimMeta) CheckResult {
				r := skipped("X", "missing")
				r.Confidence = conf
				r.IsPass = boolPtr(true)
				return r
			}}
			res := evaluate(rule, nil, ClaimMeta{})
			return res.IsPass == nil && res.Confidence == 0 && res.Status == CheckSkipped
		},
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}
