// Package store persists claims, extracted documents, audit reports,
// recordings and their score timelines.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/leobarcove/true-claim-insight/pkg/evidence"
	"github.com/leobarcove/true-claim-insight/pkg/scoring"
	"github.com/leobarcove/true-claim-insight/pkg/trinity"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("not found")

// Claim is the claim metadata the audit reads.
type Claim struct {
	ID           string    `json:"id"`
	ClaimNumber  string    `json:"claimNumber,omitempty"`
	IncidentDate string    `json:"incidentDate,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// DocumentStatus tracks field extraction of an uploaded document.
type DocumentStatus string

const (
	DocumentQueued     DocumentStatus = "QUEUED"
	DocumentProcessing DocumentStatus = "PROCESSING"
	DocumentCompleted  DocumentStatus = "COMPLETED"
	DocumentFailed     DocumentStatus = "FAILED"
)

// Unfinished reports whether extraction is still pending.
func (s DocumentStatus) Unfinished() bool {
	return s == DocumentQueued || s == DocumentProcessing
}

// Document is an uploaded claim document and its extracted fields.
type Document struct {
	ID        string                `json:"id"`
	ClaimID   string                `json:"claimId"`
	Type      evidence.DocumentType `json:"type"`
	Status    DocumentStatus        `json:"status"`
	Fields    json.RawMessage       `json:"fields,omitempty"`
	CreatedAt time.Time             `json:"createdAt"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

// AssetStatus tracks interview analysis of a recording.
type AssetStatus string

const (
	AssetPending    AssetStatus = "PENDING"
	AssetProcessing AssetStatus = "PROCESSING"
	AssetCompleted  AssetStatus = "COMPLETED"
	AssetFailed     AssetStatus = "FAILED"
)

// Asset is a recorded interview.
type Asset struct {
	ID             string      `json:"id"`
	ClaimID        string      `json:"claimId"`
	SessionID      string      `json:"sessionId,omitempty"`
	Key            string      `json:"key"`
	Duration       float64     `json:"duration"`
	Status         AssetStatus `json:"status"`
	ProcessedUntil float64     `json:"processedUntil"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// SegmentScore is one scored window of an asset. Rows are append-only.
type SegmentScore struct {
	ID             string            `json:"id"`
	AssetID        string            `json:"assetId"`
	Start          float64           `json:"start"`
	End            float64           `json:"end"`
	DeceptionScore float64           `json:"deceptionScore"`
	Breakdown      scoring.Breakdown `json:"breakdown"`
	RiskLevel      scoring.RiskLevel `json:"riskLevel"`
	Details        json.RawMessage   `json:"details,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
}

// Store is the persistence port. Implementations are safe for concurrent use.
type Store interface {
	SaveClaim(ctx context.Context, c *Claim) error
	GetClaim(ctx context.Context, id string) (*Claim, error)

	SaveDocument(ctx context.Context, d *Document) error
	GetDocument(ctx context.Context, id string) (*Document, error)
	// ListDocuments returns a claim's documents oldest first.
	ListDocuments(ctx context.Context, claimID string) ([]*Document, error)

	// SaveReport appends a report; the newest one per claim wins.
	SaveReport(ctx context.Context, r *trinity.Report) error
	LatestReport(ctx context.Context, claimID string) (*trinity.Report, error)

	SaveAsset(ctx context.Context, a *Asset) error
	GetAsset(ctx context.Context, id string) (*Asset, error)
	// BeginProcessing moves an asset to PROCESSING. It returns false when
	// the asset already was.
	BeginProcessing(ctx context.Context, id string) (bool, error)
	SetAssetStatus(ctx context.Context, id string, status AssetStatus) error
	SetAssetDuration(ctx context.Context, id string, seconds float64) error
	// AdvanceWatermark raises processedUntil to until if it is higher and
	// returns the resulting value. It never lowers the watermark.
	AdvanceWatermark(ctx context.Context, id string, until float64) (float64, error)

	AppendSegment(ctx context.Context, s *SegmentScore) error
	// Timeline returns an asset's scores ordered by window start.
	Timeline(ctx context.Context, assetID string) ([]*SegmentScore, error)

	Close() error
}
