package trinity

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leobarcove/true-claim-insight/pkg/evidence"
)

const (
	visualOverlapThreshold = 0.3
	visualConfidence       = 0.6
	airbagConfidence       = 0.5
)

func checkRepairCost(bag *evidence.Bag, _ ClaimMeta) CheckResult {
	const id = CheckRepairWithinInsured
	if bag.RepairQuotation == nil || bag.Policy == nil {
		return skipped(id, "Quotation or Policy missing")
	}
	repair := bag.RepairQuotation.TotalAmount
	sum := bag.Policy.Coverage.SumInsured
	if sum <= 0 {
		return failedToEvaluate(id, PriorityHigh, "Sum insured missing from policy")
	}
	if repair <= 0 {
		return failedToEvaluate(id, PriorityHigh, "Total amount missing from quotation")
	}

	ratio := repair / sum * 100
	res := verdict(id, PriorityHigh, repair <= sum, 1.0,
		fmt.Sprintf("Repair Estimate RM%s is %.1f%% of Sum Insured RM%s.", money(repair), ratio, money(sum)))
	res.Variance = &ratio
	return res
}

// checkVisualDamage measures how many photographed damaged areas have a
// matching quoted part. Keyword overlap only, hence the capped confidence.
func checkVisualDamage(bag *evidence.Bag, _ ClaimMeta) CheckResult {
	const id = CheckVisualDamage
	if len(bag.DamagePhotos) == 0 || bag.RepairQuotation == nil {
		return skipped(id, "Photos or Quotation missing")
	}

	var areas []string
	seen := make(map[string]bool)
	for _, photo := range bag.DamagePhotos {
		for _, area := range photo.DamagedAreas {
			a := strings.ToLower(strings.TrimSpace(area))
			if a == "" || seen[a] {
				continue
			}
			seen[a] = true
			areas = append(areas, a)
		}
	}

	var quoted []string
	for _, item := range bag.RepairQuotation.Parts {
		if q := strings.ToLower(strings.TrimSpace(item.Description)); q != "" {
			quoted = append(quoted, q)
		}
	}

	overlap := 0
	for _, a := range areas {
		for _, q := range quoted {
			if strings.Contains(q, a) || strings.Contains(a, q) {
				overlap++
				break
			}
		}
	}

	ratio := 1.0
	if len(areas) > 0 {
		ratio = float64(overlap) / float64(len(areas))
	}
	return verdict(id, PriorityMedium, ratio > visualOverlapThreshold, visualConfidence,
		fmt.Sprintf("Visual AI detected: [%s]. Quote overlaps: %d items. Consistency Score: %.2f",
			strings.Join(areas, ", "), overlap, ratio))
}

// checkAirbag flags photos showing a severe impact where the airbag did not
// deploy.
func checkAirbag(bag *evidence.Bag, _ ClaimMeta) CheckResult {
	const id = CheckAirbagAnomaly

	evaluated := 0
	var anomalies []string
	for i, photo := range bag.DamagePhotos {
		deployed, known := airbagState(photo.AirbagDeployed)
		if photo.ImpactSeverity == "" || !known {
			continue
		}
		evaluated++
		if severeImpact(photo.ImpactSeverity) && !deployed {
			anomalies = append(anomalies, fmt.Sprintf("photo %d: %s impact, airbag %s", i+1, photo.ImpactSeverity, photo.AirbagDeployed))
		}
	}
	if evaluated == 0 {
		return skipped(id, "Impact severity or airbag status missing")
	}
	if len(anomalies) > 0 {
		return verdict(id, PriorityMedium, false, airbagConfidence,
			"Severe impact without airbag deployment: "+strings.Join(anomalies, "; "))
	}
	return verdict(id, PriorityMedium, true, airbagConfidence, "Airbag status consistent with impact severity")
}

func severeImpact(s string) bool {
	c := canonicalText(s)
	return strings.Contains(c, "severe") || c == "high" || c == "major" || c == "heavy"
}

func airbagState(s string) (deployed, known bool) {
	switch canonicalText(s) {
	case "yes", "y", "true", "deployed", "1":
		return true, true
	case "no", "n", "false", "notdeployed", "none", "0":
		return false, true
	default:
		return false, false
	}
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
