package trinity

func boolPtr(b bool) *bool { return &b }

func verdict(id string, p Priority, ok bool, confidence float64, details string) CheckResult {
	return CheckResult{
		CheckID:    id,
		IsPass:     boolPtr(ok),
		Confidence: confidence,
		Priority:   p,
		Details:    details,
		Status:     CheckRun,
	}
}

// skipped records a check whose prerequisite documents are missing.
func skipped(id, reason string) CheckResult {
	return CheckResult{
		CheckID:  id,
		Priority: PriorityLow,
		Details:  reason,
		Status:   CheckSkipped,
	}
}

// failedToEvaluate records a check whose documents are present but whose
// fields cannot be compared.
func failedToEvaluate(id string, p Priority, details string) CheckResult {
	return CheckResult{
		CheckID:  id,
		Priority: p,
		Details:  details,
		Status:   CheckError,
	}
}
