package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leobarcove/true-claim-insight/pkg/evidence"
	"github.com/leobarcove/true-claim-insight/pkg/store"
	"github.com/leobarcove/true-claim-insight/pkg/trinity"
)

var t0 = time.Date(2024, 6, 11, 9, 0, 0, 0, time.UTC)

func seed(t *testing.T, st store.Store, incident string, docs ...*store.Document) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.SaveClaim(ctx, &store.Claim{ID: "clm-1", ClaimNumber: "CLM-0001", IncidentDate: incident}))
	for i, d := range docs {
		d.ClaimID = "clm-1"
		d.CreatedAt = t0.Add(time.Duration(i) * time.Minute)
		require.NoError(t, st.SaveDocument(ctx, d))
	}
}

func completed(id string, typ evidence.DocumentType, fields string) *store.Document {
	return &store.Document{ID: id, Type: typ, Status: store.DocumentCompleted, Fields: json.RawMessage(fields)}
}

const (
	nricFields   = `{"full_name":"TAN AH KOW","ic_number":"880101121234","date_of_birth":"1988-01-01"}`
	policyFields = `{"effective_date":"2024-01-01","expiry_date":"2024-12-31",
		"policyholder":{"name":"Tan Ah Kow","ic_number":"880101-12-1234"},
		"vehicle":{"registration_number":"WA 1234 F"}}`
)

func newService(t *testing.T, st store.Store) *Service {
	t.Helper()
	v, err := evidence.NewValidator()
	require.NoError(t, err)
	s := New(st, v)
	s.now = func() time.Time { return t0 }
	return s
}

func TestAuditClaim_PersistsReport(t *testing.T) {
	st := store.NewMemoryStore()
	seed(t, st, "2024-06-10",
		completed("d1", evidence.DocNRIC, nricFields),
		completed("d2", evidence.DocPolicy, policyFields),
	)
	s := newService(t, st)

	report, err := s.AuditClaim(context.Background(), "clm-1")
	require.NoError(t, err)

	assert.Equal(t, trinity.StatusVerified, report.Status)
	assert.Equal(t, 100, report.TotalScore)
	assert.InDelta(t, 3.0/14.0, report.VerificationCoverage, 1e-9)
	assert.Equal(t, trinity.CheckRun, report.Checks[trinity.CheckPolicyActive].Status)
	assert.Equal(t, "clm-1", report.ClaimID)
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, t0, report.CreatedAt)
	assert.Regexp(t, `^sha256:[0-9a-f]{64}$`, report.Digest)

	latest, err := s.Latest(context.Background(), "clm-1")
	require.NoError(t, err)
	assert.Equal(t, report.ID, latest.ID)
}

func TestAuditClaim_UsesDeclaredIncidentDate(t *testing.T) {
	st := store.NewMemoryStore()
	seed(t, st, "2025-02-01",
		completed("d1", evidence.DocNRIC, nricFields),
		completed("d2", evidence.DocPolicy, policyFields),
	)

	report, err := newService(t, st).AuditClaim(context.Background(), "clm-1")
	require.NoError(t, err)

	assert.Equal(t, trinity.StatusRejected, report.Status)
	assert.Contains(t, report.Summary, trinity.CheckPolicyActive)
	require.Len(t, report.RiskFactors, 1)
	assert.Contains(t, report.RiskFactors[0], "outside")
}

func TestAuditClaim_IgnoresUnfinishedAndBrokenDocuments(t *testing.T) {
	st := store.NewMemoryStore()
	queued := completed("d3", evidence.DocNRIC, `{"full_name":"SOMEONE ELSE","ic_number":"990101019999"}`)
	queued.Status = store.DocumentQueued
	failed := completed("d4", evidence.DocNRIC, `{"full_name":"SOMEONE ELSE","ic_number":"990101019999"}`)
	failed.Status = store.DocumentFailed
	seed(t, st, "2024-06-10",
		completed("d1", evidence.DocNRIC, nricFields),
		completed("d2", evidence.DocPolicy, policyFields),
		queued,
		failed,
		completed("d5", evidence.DocRepairQuotation, `{not json`),
	)

	report, err := newService(t, st).AuditClaim(context.Background(), "clm-1")
	require.NoError(t, err)

	assert.Equal(t, trinity.StatusVerified, report.Status)
	assert.Equal(t, trinity.CheckSkipped, report.Checks[trinity.CheckRepairWithinInsured].Status)
}

func TestAuditClaim_NoDocumentsIsIncomplete(t *testing.T) {
	st := store.NewMemoryStore()
	seed(t, st, "")

	report, err := newService(t, st).AuditClaim(context.Background(), "clm-1")
	require.NoError(t, err)

	assert.Equal(t, trinity.StatusIncomplete, report.Status)
	assert.Zero(t, report.TotalScore)
	assert.Zero(t, report.VerificationCoverage)
}

func TestAuditClaim_UnknownClaim(t *testing.T) {
	_, err := newService(t, store.NewMemoryStore()).AuditClaim(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAuditClaim_ReauditSupersedes(t *testing.T) {
	st := store.NewMemoryStore()
	seed(t, st, "2024-06-10", completed("d1", evidence.DocNRIC, nricFields))
	s := newService(t, st)
	ctx := context.Background()

	first, err := s.AuditClaim(ctx, "clm-1")
	require.NoError(t, err)
	second, err := s.AuditClaim(ctx, "clm-1")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.Digest, second.Digest, "same evidence, same digest")

	latest, err := st.LatestReport(ctx, "clm-1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
}

type failingStore struct {
	store.Store
	err error
}

func (f failingStore) ListDocuments(context.Context, string) ([]*store.Document, error) {
	return nil, f.err
}

func TestAuditClaim_StoreErrorPropagates(t *testing.T) {
	mem := store.NewMemoryStore()
	seed(t, mem, "")
	boom := errors.New("connection reset")

	_, err := newService(t, failingStore{Store: mem, err: boom}).AuditClaim(context.Background(), "clm-1")
	assert.ErrorIs(t, err, boom)

	_, err = mem.LatestReport(context.Background(), "clm-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
