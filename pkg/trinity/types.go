// Package trinity cross-checks the documents of one claim against each other
// and folds the per-rule results into an audit report.
package trinity

import "time"

// Priority decides how much a failed check weighs on the report status.
type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
)

// CheckStatus tells whether a check ran.
type CheckStatus string

const (
	CheckRun     CheckStatus = "RUN"
	CheckSkipped CheckStatus = "SKIPPED"
	CheckError   CheckStatus = "ERROR"
)

// Status is the audit verdict.
type Status string

const (
	StatusVerified   Status = "VERIFIED"
	StatusFlagged    Status = "FLAGGED"
	StatusRejected   Status = "REJECTED"
	StatusIncomplete Status = "INCOMPLETE"
)

// Check identifiers. They are persisted and must not change.
const (
	CheckIdentityPolicyMatch  = "C1_IDENTITY_POLICY_MATCH"
	CheckIdentityOwnerMatch   = "C1_IDENTITY_OWNER_MATCH"
	CheckNRICDOBConsistency   = "C1_NRIC_DOB_CONSISTENCY"
	CheckAuthorizedDriver     = "C1_AUTHORIZED_DRIVER"
	CheckVehicleDetailsMatch  = "C2_VEHICLE_DETAILS_MATCH"
	CheckRoadTaxValid         = "C2_ROAD_TAX_VALID"
	CheckVisualMakeModelMatch = "C2_VISUAL_MAKE_MODEL_MATCH"
	CheckIncidentVehicleMatch = "C2_INCIDENT_VEHICLE_MATCH"
	CheckPolicyActive         = "C3_POLICY_ACTIVE_AT_INCIDENT"
	CheckWeatherConsistency   = "C3_WEATHER_CONSISTENCY"
	CheckPoliceSignatures     = "C3_POLICE_REPORT_SIGNATURES"
	CheckRepairWithinInsured  = "C4_REPAIR_WITHIN_INSURED_SUM"
	CheckVisualDamage         = "C4_VISUAL_DAMAGE_CONSISTENCY"
	CheckAirbagAnomaly        = "C4_AIRBAG_DEPLOYMENT_ANOMALY"
)

// CheckResult is one evaluated rule. IsPass is nil unless the check ran to a
// verdict.
type CheckResult struct {
	CheckID    string      `json:"checkId"`
	IsPass     *bool       `json:"isPass"`
	Confidence float64     `json:"confidence"`
	Variance   *float64    `json:"variance,omitempty"`
	Priority   Priority    `json:"priority"`
	Details    string      `json:"details"`
	Status     CheckStatus `json:"status"`
}

// Passed reports an explicit pass.
func (r CheckResult) Passed() bool { return r.IsPass != nil && *r.IsPass }

// Failed reports an explicit fail. Skipped and errored checks never fail.
func (r CheckResult) Failed() bool { return r.IsPass != nil && !*r.IsPass }

// ReasoningInsights is the optional narrative attached by the reasoning
// collaborator after the audit. Model is internal and stripped on read.
type ReasoningInsights struct {
	Model          string   `json:"model,omitempty"`
	Flags          []string `json:"flags,omitempty"`
	Insights       []string `json:"insights,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`
	Confidence     float64  `json:"confidence,omitempty"`
}

// Report is the audit of one claim. ID, ClaimID, Digest and CreatedAt are
// stamped by the caller that persists it.
type Report struct {
	ID                   string                 `json:"id,omitempty"`
	ClaimID              string                 `json:"claimId,omitempty"`
	Status               Status                 `json:"status"`
	TotalScore           int                    `json:"totalScore"`
	Checks               map[string]CheckResult `json:"checks"`
	Summary              string                 `json:"summary"`
	RiskFactors          []string               `json:"riskFactors"`
	VerificationCoverage float64                `json:"verificationCoverage"`
	Digest               string                 `json:"digest,omitempty"`
	ReasoningInsights    *ReasoningInsights     `json:"reasoningInsights,omitempty"`
	CreatedAt            time.Time              `json:"createdAt,omitzero"`
}

// ClaimMeta is the declared claim context. IncidentDate, when set, overrides
// the date read from the police report.
type ClaimMeta struct {
	ClaimID      string `json:"claimId"`
	IncidentDate string `json:"incidentDate,omitempty"`
}
