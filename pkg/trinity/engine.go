package trinity

import (
	"fmt"
	"math"
	"strings"

	"github.com/leobarcove/true-claim-insight/pkg/evidence"
)

// Rule evaluates one check. Rules never return an error: missing documents
// become SKIPPED and unreadable fields become ERROR.
type Rule struct {
	ID       string
	Priority Priority
	Eval     func(*evidence.Bag, ClaimMeta) CheckResult
}

// DefaultRules is the fixed battery, in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{CheckIdentityPolicyMatch, PriorityCritical, checkIdentityPolicy},
		{CheckIdentityOwnerMatch, PriorityCritical, checkIdentityOwner},
		{CheckNRICDOBConsistency, PriorityHigh, checkNRICBirthDate},
		{CheckAuthorizedDriver, PriorityHigh, checkAuthorizedDriver},
		{CheckVehicleDetailsMatch, PriorityCritical, checkVehicleDetails},
		{CheckRoadTaxValid, PriorityHigh, checkRoadTax},
		{CheckVisualMakeModelMatch, PriorityMedium, checkVisualMakeModel},
		{CheckIncidentVehicleMatch, PriorityCritical, checkIncidentVehicle},
		{CheckPolicyActive, PriorityCritical, checkPolicyActive},
		{CheckWeatherConsistency, PriorityMedium, checkWeather},
		{CheckPoliceSignatures, PriorityMedium, checkSignatures},
		{CheckRepairWithinInsured, PriorityHigh, checkRepairCost},
		{CheckVisualDamage, PriorityMedium, checkVisualDamage},
		{CheckAirbagAnomaly, PriorityMedium, checkAirbag},
	}
}

// Engine runs a rule battery. The zero value is not usable; call NewEngine.
type Engine struct {
	rules []Rule
}

// NewEngine returns an engine over rules, or DefaultRules when none are given.
func NewEngine(rules ...Rule) *Engine {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Engine{rules: rules}
}

// AuditClaim runs the default battery over bag.
func AuditClaim(bag *evidence.Bag, meta ClaimMeta) Report {
	return NewEngine().Audit(bag, meta)
}

// Audit evaluates every rule and aggregates. It performs no I/O and returns
// the same report for the same inputs.
func (e *Engine) Audit(bag *evidence.Bag, meta ClaimMeta) Report {
	if bag == nil {
		bag = &evidence.Bag{}
	}
	results := make([]CheckResult, 0, len(e.rules))
	for _, rule := range e.rules {
		results = append(results, evaluate(rule, bag, meta))
	}
	report := Aggregate(results)
	report.ClaimID = meta.ClaimID
	return report
}

// evaluate contains a panicking rule to an ERROR result.
func evaluate(rule Rule, bag *evidence.Bag, meta ClaimMeta) (res CheckResult) {
	defer func() {
		if r := recover(); r != nil {
			res = failedToEvaluate(rule.ID, rule.Priority, fmt.Sprintf("rule evaluation failed: %v", r))
		}
	}()
	res = rule.Eval(bag, meta)
	res.CheckID = rule.ID
	if res.Status == CheckSkipped {
		res.IsPass = nil
		res.Confidence = 0
		res.Variance = nil
	}
	return res
}

// Aggregate folds ordered check results into a report. Only checks that ran
// to a verdict count toward TotalScore and VerificationCoverage; SKIPPED and
// ERROR results are left out of both. Priority decides the status only, so
// every counted check weighs the same in TotalScore.
func Aggregate(results []CheckResult) Report {
	checks := make(map[string]CheckResult, len(results))
	var criticalFails, warnings []CheckResult
	runnable, passed := 0, 0

	for _, r := range results {
		checks[r.CheckID] = r
		if r.Status == CheckRun {
			runnable++
		}
		switch {
		case r.Passed():
			passed++
		case r.Failed() && r.Priority == PriorityCritical:
			criticalFails = append(criticalFails, r)
		case r.Failed():
			warnings = append(warnings, r)
		}
	}

	report := Report{
		Status:      StatusVerified,
		Checks:      checks,
		Summary:     "Verification successful. All checks passed.",
		RiskFactors: []string{},
	}

	switch {
	case len(criticalFails) > 0:
		report.Status = StatusRejected
		report.Summary = "Critical Mismatches detected: " + joinIDs(criticalFails)
		report.RiskFactors = details(criticalFails)
	case len(warnings) > 0:
		report.Status = StatusFlagged
		report.Summary = "Flagged for review: " + joinIDs(warnings)
		report.RiskFactors = details(warnings)
	case runnable == 0:
		report.Status = StatusIncomplete
		report.Summary = "No valid cross-checks possible due to missing documents."
	}

	if runnable > 0 {
		report.TotalScore = int(math.Round(100 * float64(passed) / float64(runnable)))
	}
	if len(results) > 0 {
		report.VerificationCoverage = float64(runnable) / float64(len(results))
	}
	return report
}

func joinIDs(rs []CheckResult) string {
	ids := make([]string, len(rs))
	for i, r := range rs {
		ids[i] = r.CheckID
	}
	return strings.Join(ids, ", ")
}

func details(rs []CheckResult) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Details
	}
	return out
}
