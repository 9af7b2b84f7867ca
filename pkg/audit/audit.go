// Package audit runs the trinity engine over the extracted documents of a
// stored claim and persists the resulting report.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/leobarcove/true-claim-insight/pkg/evidence"
	"github.com/leobarcove/true-claim-insight/pkg/logging"
	"github.com/leobarcove/true-claim-insight/pkg/observability"
	"github.com/leobarcove/true-claim-insight/pkg/store"
	"github.com/leobarcove/true-claim-insight/pkg/trinity"
)

// Service audits claims. It is safe for concurrent use.
type Service struct {
	store     store.Store
	validator *evidence.Validator
	engine    *trinity.Engine
	obs       *observability.Provider
	log       *slog.Logger
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithEngine replaces the default rule set.
func WithEngine(e *trinity.Engine) Option {
	return func(s *Service) { s.engine = e }
}

// WithObservability records audits as tracked operations.
func WithObservability(p *observability.Provider) Option {
	return func(s *Service) {
		if p != nil {
			s.obs = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// New returns a Service. A nil validator skips record validation.
func New(st store.Store, v *evidence.Validator, opts ...Option) *Service {
	s := &Service{
		store:     st,
		validator: v,
		engine:    trinity.NewEngine(),
		obs:       observability.Nop(),
		log:       logging.New("audit"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AuditClaim builds the evidence bag from the claim's extracted documents,
// audits it and saves the report, superseding earlier ones. It returns
// store.ErrNotFound when the claim does not exist.
func (s *Service) AuditClaim(ctx context.Context, claimID string) (report *trinity.Report, err error) {
	ctx, done := s.obs.TrackOperation(ctx, "trinity.audit", attribute.String("claim_id", claimID))
	defer func() { done(err) }()

	claim, err := s.store.GetClaim(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("audit %s: %w", claimID, err)
	}
	docs, err := s.store.ListDocuments(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("audit %s: list documents: %w", claimID, err)
	}

	bag := s.bag(ctx, claimID, docs)
	r := s.engine.Audit(&bag, trinity.ClaimMeta{ClaimID: claim.ID, IncidentDate: claim.IncidentDate})
	r.ID = uuid.NewString()
	r.ClaimID = claim.ID
	r.CreatedAt = s.now().UTC()
	if r.Digest, err = trinity.Digest(r); err != nil {
		return nil, fmt.Errorf("audit %s: %w", claimID, err)
	}
	if err := s.store.SaveReport(ctx, &r); err != nil {
		return nil, fmt.Errorf("audit %s: save report: %w", claimID, err)
	}

	s.log.InfoContext(ctx, "claim audited",
		"claim_id", claimID,
		"status", r.Status,
		"total_score", r.TotalScore,
		"coverage", r.VerificationCoverage,
		"documents", len(docs),
	)
	return &r, nil
}

// Audit runs the engine over a bag without touching the store.
func (s *Service) Audit(bag *evidence.Bag, meta trinity.ClaimMeta) trinity.Report {
	return s.engine.Audit(bag, meta)
}

// Latest returns the most recent report of a claim.
func (s *Service) Latest(ctx context.Context, claimID string) (*trinity.Report, error) {
	return s.store.LatestReport(ctx, claimID)
}

func (s *Service) bag(ctx context.Context, claimID string, docs []*store.Document) evidence.Bag {
	in := make([]evidence.Document, 0, len(docs))
	for _, d := range docs {
		if d.Status != store.DocumentCompleted {
			continue
		}
		in = append(in, evidence.Document{ID: d.ID, Type: d.Type, Fields: d.Fields})
	}
	bag, errs := evidence.Build(s.validator, in)
	for _, e := range errs {
		s.log.WarnContext(ctx, "document ignored", "claim_id", claimID, "error", e)
	}
	return bag
}
