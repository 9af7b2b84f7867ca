package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/leobarcove/true-claim-insight/pkg/analyzer"
	"github.com/leobarcove/true-claim-insight/pkg/assets"
	"github.com/leobarcove/true-claim-insight/pkg/queue"
	"github.com/leobarcove/true-claim-insight/pkg/scoring"
	"github.com/leobarcove/true-claim-insight/pkg/segment"
	"github.com/leobarcove/true-claim-insight/pkg/store"
	"github.com/leobarcove/true-claim-insight/pkg/trinity"
)

type mockAuditor struct{ mock.Mock }

func (m *mockAuditor) AuditClaim(ctx context.Context, id string) (*trinity.Report, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(*trinity.Report)
	return r, args.Error(1)
}

func (m *mockAuditor) Latest(ctx context.Context, id string) (*trinity.Report, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(*trinity.Report)
	return r, args.Error(1)
}

type mockQueue struct{ mock.Mock }

func (m *mockQueue) Enqueue(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockSegments struct{ mock.Mock }

func (m *mockSegments) ProcessWindow(ctx context.Context, id string, start, length float64) (*segment.Result, error) {
	args := m.Called(ctx, id, start, length)
	r, _ := args.Get(0).(*segment.Result)
	return r, args.Error(1)
}

func (m *mockSegments) RunBatch(ctx context.Context, id string) (*segment.BatchStatus, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(*segment.BatchStatus)
	return r, args.Error(1)
}

type fixture struct {
	auditor  *mockAuditor
	queue    *mockQueue
	segments *mockSegments
	store    *store.MemoryStore
	handler  http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		auditor:  &mockAuditor{},
		queue:    &mockQueue{},
		segments: &mockSegments{},
		store:    store.NewMemoryStore(),
	}
	srv := &Server{Audits: f.auditor, Documents: f.queue, Segments: f.segments, Assets: f.store, Version: "test"}
	f.handler = srv.Handler()
	t.Cleanup(func() {
		f.auditor.AssertExpectations(t)
		f.queue.AssertExpectations(t)
		f.segments.AssertExpectations(t)
	})
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestAudit_ReturnsSanitizedReport(t *testing.T) {
	f := newFixture(t)
	report := &trinity.Report{
		ID: "r1", ClaimID: "clm-1", Status: trinity.StatusFlagged, TotalScore: 80,
		ReasoningInsights: &trinity.ReasoningInsights{Model: "internal-llm", Recommendation: "review"},
	}
	f.auditor.On("AuditClaim", mock.Anything, "clm-1").Return(report, nil).Once()

	rec := f.do(http.MethodPost, "/v1/claims/clm-1/audit", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "internal-llm")

	var got trinity.Report
	decode(t, rec, &got)
	assert.Equal(t, trinity.StatusFlagged, got.Status)
	assert.Equal(t, "review", got.ReasoningInsights.Recommendation)
	assert.Equal(t, "internal-llm", report.ReasoningInsights.Model, "stored report is untouched")
}

func TestLatestReport_NotFound(t *testing.T) {
	f := newFixture(t)
	f.auditor.On("Latest", mock.Anything, "clm-9").Return(nil, store.ErrNotFound).Once()

	rec := f.do(http.MethodGet, "/v1/claims/clm-9/trinity", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var p ProblemDetail
	decode(t, rec, &p)
	assert.Equal(t, http.StatusNotFound, p.Status)
	assert.Equal(t, "/v1/claims/clm-9/trinity", p.Instance)
	assert.Equal(t, rec.Header().Get(requestIDHeader), p.TraceID)
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	f := newFixture(t)
	f.auditor.On("AuditClaim", mock.Anything, "clm-1").Return(nil, errors.New("pq: password authentication failed")).Once()

	rec := f.do(http.MethodPost, "/v1/claims/clm-1/audit", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestAnalyzeDocument(t *testing.T) {
	f := newFixture(t)
	f.queue.On("Enqueue", mock.Anything, "doc-1").Return(nil).Once()
	f.queue.On("Enqueue", mock.Anything, "doc-2").Return(queue.ErrNotRunning).Once()

	rec := f.do(http.MethodPost, "/v1/documents/doc-1/analyze", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"documentId":"doc-1","status":"QUEUED"}`, rec.Body.String())

	rec = f.do(http.MethodPost, "/v1/documents/doc-2/analyze", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSegment(t *testing.T) {
	f := newFixture(t)
	score := &store.SegmentScore{
		ID: "s1", AssetID: "a1", Start: 5, End: 8, DeceptionScore: 0.5, RiskLevel: scoring.RiskMedium,
		Details: json.RawMessage(`{"voice":{"provider":"Parselmouth","model":"praat-6"},"expression":{"modelUsed":"hume-v3","emotions":[{"name":"Anxiety","model":"x"}]}}`),
	}
	f.segments.On("ProcessWindow", mock.Anything, "a1", 5.0, 3.0).
		Return(&segment.Result{Window: segment.Window{AssetID: "a1", Start: 5, End: 8}, Score: score, ProcessedUntil: 8}, nil).Once()

	rec := f.do(http.MethodPost, "/v1/assets/a1/segments", `{"start":5,"end":8}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.NotContains(t, body, "praat-6")
	assert.NotContains(t, body, "hume-v3")
	assert.NotContains(t, body, `"model"`)
	assert.Contains(t, body, "Parselmouth")
	assert.Contains(t, body, "Anxiety")
	assert.Contains(t, string(score.Details), "praat-6", "caller's score is untouched")
}

func TestSegment_DefaultLengthAndValidation(t *testing.T) {
	f := newFixture(t)
	f.segments.On("ProcessWindow", mock.Anything, "a1", 10.0, 0.0).
		Return(&segment.Result{Skipped: true, ProcessedUntil: 10}, nil).Once()

	rec := f.do(http.MethodPost, "/v1/assets/a1/segments", `{"start":10}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	for _, body := range []string{`{"start":-1}`, `{"start":5,"end":5}`, `not json`} {
		rec = f.do(http.MethodPost, "/v1/assets/a1/segments", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestSegment_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"unknown asset", store.ErrNotFound, http.StatusNotFound},
		{"missing recording", fmt.Errorf("fetch recording: %w", assets.ErrNotFound), http.StatusNotFound},
		{"client cancelled", context.Canceled, StatusClientClosedRequest},
		{"claimed elsewhere", segment.ErrClaimedElsewhere, http.StatusConflict},
		{"analyzer", &analyzer.Error{Modality: analyzer.Voice, StatusCode: 503}, http.StatusBadGateway},
		{"breaker", analyzer.ErrCircuitOpen, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.segments.On("ProcessWindow", mock.Anything, "a1", 0.0, 0.0).Return(nil, tt.err).Once()
			rec := f.do(http.MethodPost, "/v1/assets/a1/segments", `{"start":0}`)
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestBatch(t *testing.T) {
	f := newFixture(t)
	f.segments.On("RunBatch", mock.Anything, "a1").
		Return(&segment.BatchStatus{AssetID: "a1", Status: store.AssetProcessing, AlreadyInProgress: true}, nil).Once()

	rec := f.do(http.MethodPost, "/v1/assets/a1/batch", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"assetId":"a1","status":"PROCESSING","alreadyInProgress":true}`, rec.Body.String())
}

func TestTimelineAndStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.SaveAsset(ctx, &store.Asset{ID: "a1", Key: "k", Duration: 20, Status: store.AssetProcessing}))
	for _, start := range []float64{10, 0, 5} {
		require.NoError(t, f.store.AppendSegment(ctx, &store.SegmentScore{
			ID: "s" + string(rune('0'+int(start))), AssetID: "a1", Start: start, End: start + 5,
			Details: json.RawMessage(`{"visual":{"model":"mediapipe"}}`),
		}))
	}
	_, err := f.store.AdvanceWatermark(ctx, "a1", 15)
	require.NoError(t, err)

	rec := f.do(http.MethodGet, "/v1/assets/a1/timeline", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var tl struct {
		AssetID  string                `json:"assetId"`
		Segments []*store.SegmentScore `json:"segments"`
	}
	decode(t, rec, &tl)
	require.Len(t, tl.Segments, 3)
	assert.Equal(t, []float64{0, 5, 10}, []float64{tl.Segments[0].Start, tl.Segments[1].Start, tl.Segments[2].Start})
	assert.JSONEq(t, `{"visual":{}}`, string(tl.Segments[0].Details))

	rec = f.do(http.MethodGet, "/v1/assets/a1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st AssetStatus
	decode(t, rec, &st)
	assert.Equal(t, store.AssetProcessing, st.Status)
	assert.InDelta(t, 0.75, st.Progress, 1e-9)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/v1/assets/nope/timeline", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/v1/assets/nope/status", "").Code)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	srv := &Server{Checks: map[string]HealthCheck{
		"analyzer": func(context.Context) error { return errors.New("connection refused") },
	}}
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","version":"","checks":{"analyzer":"down"}}`, rec.Body.String())
}

func TestMethodMismatch(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusMethodNotAllowed, f.do(http.MethodGet, "/v1/claims/clm-1/audit", "").Code)
}

func TestRequestIDIsPropagated(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get(requestIDHeader))
}
