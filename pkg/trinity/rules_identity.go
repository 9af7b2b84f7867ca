package trinity

import (
	"fmt"
	"math"

	"github.com/leobarcove/true-claim-insight/pkg/evidence"
)

const (
	policyNameThreshold     = 0.7
	ownerNameThreshold      = 0.75
	authorizedNameThreshold = 0.8 // inclusive; a containment match scores exactly this
)

func checkIdentityPolicy(bag *evidence.Bag, _ ClaimMeta) CheckResult {
	const id = CheckIdentityPolicyMatch
	if bag.NRIC == nil || bag.Policy == nil {
		return skipped(id, "NRIC or Policy Document missing")
	}
	nric, holder := bag.NRIC, bag.Policy.Policyholder
	if nric.ICNumber == "" || holder.ICNumber == "" {
		return failedToEvaluate(id, PriorityCritical, "Identity number missing on NRIC or policy")
	}

	nameScore := FuzzyMatch(nric.FullName, holder.Name)
	idMatch := CanonicalID(nric.ICNumber) == CanonicalID(holder.ICNumber)

	confidence := nameScore
	if idMatch {
		confidence = 1.0
	}
	return verdict(id, PriorityCritical, idMatch && nameScore > policyNameThreshold, confidence,
		fmt.Sprintf("Name Match: %d%%. ID Match: %t. (%s vs %s)",
			int(math.Round(nameScore*100)), idMatch, nric.FullName, holder.Name))
}

func checkIdentityOwner(bag *evidence.Bag, _ ClaimMeta) CheckResult {
	const id = CheckIdentityOwnerMatch
	if bag.NRIC == nil || bag.RegistrationCard == nil {
		return skipped(id, "NRIC or Registration Card missing")
	}
	a, b := bag.NRIC.FullName, bag.RegistrationCard.OwnerName
	if a == "" || b == "" {
		return failedToEvaluate(id, PriorityCritical, "Name missing on NRIC or registration card")
	}
	score := FuzzyMatch(a, b)
	return verdict(id, PriorityCritical, score > ownerNameThreshold, score,
		fmt.Sprintf("Name Similarity: %d%%. (%s vs %s)", int(math.Round(score*100)), a, b))
}

// checkNRICBirthDate compares the YYMMDD prefix of the identity number with
// the printed date of birth.
func checkNRICBirthDate(bag *evidence.Bag, _ ClaimMeta) CheckResult {
	const id = CheckNRICDOBConsistency
	if bag.NRIC == nil || bag.NRIC.ICNumber == "" || bag.NRIC.DateOfBirth == "" {
		return skipped(id, "NRIC number or date of birth missing")
	}

	ic := CanonicalID(bag.NRIC.ICNumber)
	if len(ic) < 6 || !allDigits(ic[:6]) {
		return failedToEvaluate(id, PriorityHigh, fmt.Sprintf("NRIC number %q has no date prefix", bag.NRIC.ICNumber))
	}
	dob, err := ParseDate(bag.NRIC.DateOfBirth)
	if err != nil {
		return failedToEvaluate(id, PriorityHigh, fmt.Sprintf("Invalid date of birth: %v", err))
	}

	want := dob.Format("060102")
	ok := ic[:6] == want
	return verdict(id, PriorityHigh, ok, 1.0,
		fmt.Sprintf("NRIC prefix %s vs date of birth %s (%s)", ic[:6], formatDate(dob), want))
}

// checkAuthorizedDriver accepts a complainant who is either the policyholder
// or the named insured person.
func checkAuthorizedDriver(bag *evidence.Bag, _ ClaimMeta) CheckResult {
	const id = CheckAuthorizedDriver
	if bag.PoliceReport == nil || bag.Policy == nil {
		return skipped(id, "Police Report or Policy missing")
	}
	complainant := bag.PoliceReport.Complainant.Name
	if complainant == "" {
		return skipped(id, "Complainant name missing from police report")
	}
	holder := bag.Policy.Policyholder.Name
	if holder == "" {
		return failedToEvaluate(id, PriorityHigh, "Policyholder name missing")
	}

	holderScore := FuzzyMatch(complainant, holder)
	if holderScore >= authorizedNameThreshold {
		return verdict(id, PriorityHigh, true, holderScore,
			fmt.Sprintf("Complainant %s is the policyholder (%d%%)", complainant, int(math.Round(holderScore*100))))
	}

	insured := bag.Policy.InsuredPerson.Name
	if insured == "" {
		return verdict(id, PriorityHigh, false, 1-holderScore,
			fmt.Sprintf("Complainant %s is not the policyholder %s and the policy names no other insured person", complainant, holder))
	}
	insuredScore := FuzzyMatch(complainant, insured)
	ok := insuredScore >= authorizedNameThreshold
	confidence := insuredScore
	if !ok {
		confidence = 1 - math.Max(holderScore, insuredScore)
	}
	return verdict(id, PriorityHigh, ok, confidence,
		fmt.Sprintf("Complainant %s vs policyholder %s (%d%%) and insured person %s (%d%%)",
			complainant, holder, int(math.Round(holderScore*100)), insured, int(math.Round(insuredScore*100))))
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
