package trinity

import (
	"fmt"

	"github.com/leobarcove/true-claim-insight/pkg/evidence"
)

const weatherConfidence = 0.6

func checkPolicyActive(bag *evidence.Bag, meta ClaimMeta) CheckResult {
	const id = CheckPolicyActive
	incidentRaw := incidentDate(bag, meta)
	if bag.Policy == nil || incidentRaw == "" {
		return skipped(id, "Police Report or Policy dates missing")
	}
	incident, err := ParseDate(incidentRaw)
	if err != nil {
		return failedToEvaluate(id, PriorityCritical, fmt.Sprintf("Invalid incident date: %v", err))
	}
	start, err := ParseDate(bag.Policy.EffectiveDate)
	if err != nil {
		return failedToEvaluate(id, PriorityCritical, fmt.Sprintf("Invalid policy effective date: %v", err))
	}
	end, err := ParseDate(bag.Policy.ExpiryDate)
	if err != nil {
		return failedToEvaluate(id, PriorityCritical, fmt.Sprintf("Invalid policy expiry date: %v", err))
	}

	inside := !incident.Before(start) && !incident.After(end)
	relation := "within"
	if !inside {
		relation = "outside"
	}
	return verdict(id, PriorityCritical, inside, 1.0,
		fmt.Sprintf("Incident (%s) %s Policy Period (%s - %s)", formatDate(incident), relation, formatDate(start), formatDate(end)))
}

func checkWeather(bag *evidence.Bag, _ ClaimMeta) CheckResult {
	const id = CheckWeatherConsistency
	if bag.PoliceReport == nil || bag.PoliceReport.Incident.Weather == "" {
		return skipped(id, "Police report weather missing")
	}
	reported := bag.PoliceReport.Incident.Weather

	var seen []string
	for _, photo := range bag.DamagePhotos {
		if photo.WeatherCondition != "" {
			seen = append(seen, photo.WeatherCondition)
		}
	}
	if len(seen) == 0 {
		return skipped(id, "No weather condition in photo metadata")
	}
	for _, w := range seen {
		if containsEither(reported, w) {
			return verdict(id, PriorityMedium, true, weatherConfidence,
				fmt.Sprintf("Reported weather %q consistent with photos (%q)", reported, w))
		}
	}
	return verdict(id, PriorityMedium, false, weatherConfidence,
		fmt.Sprintf("Reported weather %q not seen in photos %q", reported, seen))
}

// checkSignatures requires the complainant and receiving officer signatures.
// The interpreter block is only present for translated reports.
func checkSignatures(bag *evidence.Bag, _ ClaimMeta) CheckResult {
	const id = CheckPoliceSignatures
	if bag.PoliceReport == nil {
		return skipped(id, "Police Report missing")
	}
	sig := bag.PoliceReport.Signatures
	if sig == nil {
		return failedToEvaluate(id, PriorityMedium, "Signature block not extracted from police report")
	}
	var missing []string
	if !sig.Complainant {
		missing = append(missing, "complainant")
	}
	if !sig.ReceivingOfficer {
		missing = append(missing, "receiving officer")
	}
	if len(missing) > 0 {
		return verdict(id, PriorityMedium, false, 1.0, fmt.Sprintf("Police report missing signatures: %v", missing))
	}
	return verdict(id, PriorityMedium, true, 1.0, "Complainant and receiving officer signatures present")
}
