package trinity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// Digest hashes the verdict-bearing fields of a report in RFC 8785 canonical
// form. Identity, timestamps and reasoning annotations are excluded so that
// re-auditing identical evidence yields the same digest.
func Digest(r Report) (string, error) {
	body := struct {
		ClaimID              string                 `json:"claimId"`
		Status               Status                 `json:"status"`
		TotalScore           int                    `json:"totalScore"`
		Checks               map[string]CheckResult `json:"checks"`
		Summary              string                 `json:"summary"`
		RiskFactors          []string               `json:"riskFactors"`
		VerificationCoverage float64                `json:"verificationCoverage"`
	}{r.ClaimID, r.Status, r.TotalScore, r.Checks, r.Summary, r.RiskFactors, r.VerificationCoverage}

	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("digest: marshal: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("digest: canonicalize: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return "sha256:" + hex.EncodeToString(sum[:]), nil
}
