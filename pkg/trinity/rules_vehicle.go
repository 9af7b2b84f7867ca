package trinity

import (
	"fmt"
	"strings"

	"github.com/leobarcove/true-claim-insight/pkg/evidence"
)

const makeModelConfidence = 0.7

func checkVehicleDetails(bag *evidence.Bag, _ ClaimMeta) CheckResult {
	const id = CheckVehicleDetailsMatch
	if bag.Policy == nil || bag.RegistrationCard == nil {
		return skipped(id, "Policy or Reg Card missing")
	}
	pA := CanonicalPlate(bag.Policy.Vehicle.RegistrationNumber)
	pB := CanonicalPlate(bag.RegistrationCard.RegistrationNumber)
	if pA == "" || pB == "" {
		return failedToEvaluate(id, PriorityCritical, "Registration number missing on policy or registration card")
	}
	cA := CanonicalPlate(bag.Policy.Vehicle.ChassisNumber)
	cB := CanonicalPlate(bag.RegistrationCard.ChassisNumber)

	plateMatch := pA == pB
	chassisMatch := cA == cB

	ok := plateMatch
	if cA != "" && cB != "" {
		ok = ok && chassisMatch
	}
	return verdict(id, PriorityCritical, ok, 1.0,
		fmt.Sprintf("Plate Match: %t (%s). Chassis Match: %t (%s).", plateMatch, pA, chassisMatch, cA))
}

func checkRoadTax(bag *evidence.Bag, meta ClaimMeta) CheckResult {
	const id = CheckRoadTaxValid
	if bag.RegistrationCard == nil || bag.RegistrationCard.RoadTaxExpiry == "" {
		return skipped(id, "Road tax expiry missing")
	}
	incidentRaw := incidentDate(bag, meta)
	if incidentRaw == "" {
		return skipped(id, "Incident date missing")
	}
	expiry, err := ParseDate(bag.RegistrationCard.RoadTaxExpiry)
	if err != nil {
		return failedToEvaluate(id, PriorityHigh, fmt.Sprintf("Invalid road tax expiry: %v", err))
	}
	incident, err := ParseDate(incidentRaw)
	if err != nil {
		return failedToEvaluate(id, PriorityHigh, fmt.Sprintf("Invalid incident date: %v", err))
	}
	return verdict(id, PriorityHigh, !expiry.Before(incident), 1.0,
		fmt.Sprintf("Road tax expiry %s vs incident %s", formatDate(expiry), formatDate(incident)))
}

// checkVisualMakeModel compares the make and model the vision analysis read
// off each photo with the documented vehicle.
func checkVisualMakeModel(bag *evidence.Bag, _ ClaimMeta) CheckResult {
	const id = CheckVisualMakeModelMatch

	var docMake, docModel string
	if bag.RegistrationCard != nil {
		docMake, docModel = bag.RegistrationCard.Make, bag.RegistrationCard.Model
	}
	if bag.Policy != nil {
		if docMake == "" {
			docMake = bag.Policy.Vehicle.Make
		}
		if docModel == "" {
			docModel = bag.Policy.Vehicle.Model
		}
	}
	if docMake == "" && docModel == "" {
		return skipped(id, "Documented vehicle make/model missing")
	}

	compared := 0
	var mismatches []string
	for _, photo := range bag.DamagePhotos {
		seenMake, seenModel := photo.Vehicle.Make, photo.Vehicle.Model
		comparedHere := false
		if seenMake != "" && docMake != "" {
			comparedHere = true
			if !containsEither(seenMake, docMake) {
				mismatches = append(mismatches, fmt.Sprintf("make %s vs %s", seenMake, docMake))
			}
		}
		if seenModel != "" && docModel != "" {
			comparedHere = true
			if !containsEither(seenModel, docModel) {
				mismatches = append(mismatches, fmt.Sprintf("model %s vs %s", seenModel, docModel))
			}
		}
		if comparedHere {
			compared++
		}
	}
	if compared == 0 {
		return skipped(id, "No make/model identified in damage photos")
	}
	if len(mismatches) > 0 {
		return verdict(id, PriorityMedium, false, makeModelConfidence,
			"Photo vehicle differs from documents: "+strings.Join(mismatches, "; "))
	}
	return verdict(id, PriorityMedium, true, makeModelConfidence,
		fmt.Sprintf("Photo vehicle consistent with documented %s %s across %d photo(s)", docMake, docModel, compared))
}

func checkIncidentVehicle(bag *evidence.Bag, _ ClaimMeta) CheckResult {
	const id = CheckIncidentVehicleMatch
	if bag.PoliceReport == nil || bag.Policy == nil {
		return skipped(id, "Police Report or Policy missing")
	}
	desc := bag.PoliceReport.Incident.Description
	if desc == "" {
		return skipped(id, "Incident description missing")
	}
	policyPlate := CanonicalPlate(bag.Policy.Vehicle.RegistrationNumber)
	if policyPlate == "" {
		return failedToEvaluate(id, PriorityCritical, "Registration number missing on policy")
	}
	plate, ok := ExtractPlate(desc)
	if !ok {
		return failedToEvaluate(id, PriorityCritical, "No vehicle number found in incident description")
	}
	return verdict(id, PriorityCritical, plate == policyPlate, 1.0,
		fmt.Sprintf("Vehicle Number Match: %s vs %s", plate, policyPlate))
}

// incidentDate prefers the declared claim date over the police report.
func incidentDate(bag *evidence.Bag, meta ClaimMeta) string {
	if meta.IncidentDate != "" {
		return meta.IncidentDate
	}
	if bag.PoliceReport != nil {
		return bag.PoliceReport.Incident.Date
	}
	return ""
}
