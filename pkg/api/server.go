package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/leobarcove/true-claim-insight/pkg/analyzer"
	"github.com/leobarcove/true-claim-insight/pkg/assets"
	"github.com/leobarcove/true-claim-insight/pkg/logging"
	"github.com/leobarcove/true-claim-insight/pkg/queue"
	"github.com/leobarcove/true-claim-insight/pkg/segment"
	"github.com/leobarcove/true-claim-insight/pkg/store"
	"github.com/leobarcove/true-claim-insight/pkg/trinity"
)

const maxBodyBytes = 1 << 20

// Auditor runs and reads claim audits.
type Auditor interface {
	AuditClaim(ctx context.Context, claimID string) (*trinity.Report, error)
	Latest(ctx context.Context, claimID string) (*trinity.Report, error)
}

// DocumentQueue accepts document analysis jobs.
type DocumentQueue interface {
	Enqueue(ctx context.Context, documentID string) error
}

// Segments schedules interview window analysis.
type Segments interface {
	ProcessWindow(ctx context.Context, assetID string, start, length float64) (*segment.Result, error)
	RunBatch(ctx context.Context, assetID string) (*segment.BatchStatus, error)
}

// Assets reads recordings and their score timelines.
type Assets interface {
	GetAsset(ctx context.Context, id string) (*store.Asset, error)
	Timeline(ctx context.Context, assetID string) ([]*store.SegmentScore, error)
}

// HealthCheck checks one dependency.
type HealthCheck func(ctx context.Context) error

// Server holds the HTTP handlers.
type Server struct {
	Audits    Auditor
	Documents DocumentQueue
	Segments  Segments
	Assets    Assets
	// Checks are run by GET /health, keyed by dependency name.
	Checks  map[string]HealthCheck
	Version string
	Logger  *slog.Logger
}

// Handler returns the routed handler wrapped in the request-id middleware.
func (s *Server) Handler() http.Handler {
	if s.Logger == nil {
		s.Logger = logging.New("api")
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/claims/{id}/audit", s.handleAudit)
	mux.HandleFunc("GET /v1/claims/{id}/trinity", s.handleLatestReport)
	mux.HandleFunc("POST /v1/documents/{id}/analyze", s.handleAnalyzeDocument)
	mux.HandleFunc("POST /v1/assets/{id}/segments", s.handleSegment)
	mux.HandleFunc("POST /v1/assets/{id}/batch", s.handleBatch)
	mux.HandleFunc("GET /v1/assets/{id}/timeline", s.handleTimeline)
	mux.HandleFunc("GET /v1/assets/{id}/status", s.handleStatus)
	mux.HandleFunc("GET /health", s.handleHealth)
	return RequestID(mux)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	report, err := s.Audits.AuditClaim(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sanitizeReport(report))
}

func (s *Server) handleLatestReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.Audits.Latest(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sanitizeReport(report))
}

func (s *Server) handleAnalyzeDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.Documents.Enqueue(r.Context(), id); err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"documentId": id, "status": string(store.DocumentQueued)})
}

// SegmentRequest asks for one window. End defaults to Start plus the
// configured window length.
type SegmentRequest struct {
	Start float64  `json:"start"`
	End   *float64 `json:"end,omitempty"`
}

func (s *Server) handleSegment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req SegmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, r, "Invalid request body")
		return
	}
	if req.Start < 0 || math.IsNaN(req.Start) || math.IsInf(req.Start, 0) {
		WriteBadRequest(w, r, "start must be a non-negative number of seconds")
		return
	}
	var length float64
	if req.End != nil {
		if *req.End <= req.Start {
			WriteBadRequest(w, r, "end must be after start")
			return
		}
		length = *req.End - req.Start
	}

	res, err := s.Segments.ProcessWindow(r.Context(), r.PathValue("id"), req.Start, length)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	out := *res
	out.Score = sanitizeSegment(res.Score)
	writeJSON(w, http.StatusOK, &out)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	status, err := s.Segments.RunBatch(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, status)
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.Assets.GetAsset(r.Context(), id); err != nil {
		s.writeErr(w, r, err)
		return
	}
	timeline, err := s.Assets.Timeline(r.Context(), id)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	out := make([]*store.SegmentScore, len(timeline))
	for i, seg := range timeline {
		out[i] = sanitizeSegment(seg)
	}
	writeJSON(w, http.StatusOK, map[string]any{"assetId": id, "segments": out})
}

// AssetStatus reports analysis progress of a recording.
type AssetStatus struct {
	AssetID        string            `json:"assetId"`
	Status         store.AssetStatus `json:"status"`
	Duration       float64           `json:"duration"`
	ProcessedUntil float64           `json:"processedUntil"`
	Progress       float64           `json:"progress"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	a, err := s.Assets.GetAsset(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	st := AssetStatus{AssetID: a.ID, Status: a.Status, Duration: a.Duration, ProcessedUntil: a.ProcessedUntil}
	if a.Duration > 0 {
		st.Progress = math.Min(1, a.ProcessedUntil/a.Duration)
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	checks := make(map[string]string, len(s.Checks))
	for name, check := range s.Checks {
		if err := check(ctx); err != nil {
			s.Logger.WarnContext(ctx, "health check failed", "dependency", name, "error", err)
			checks[name] = "down"
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "up"
	}
	writeJSON(w, code, map[string]any{"status": status, "version": s.Version, "checks": checks})
}

func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	var aerr *analyzer.Error
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, assets.ErrNotFound):
		WriteNotFound(w, r, "Resource not found")
	case errors.Is(err, segment.ErrClaimedElsewhere):
		WriteConflict(w, r, "Window is being processed elsewhere")
	case errors.Is(err, queue.ErrNotRunning):
		WriteUnavailable(w, r, "Document queue is not accepting jobs")
	case errors.Is(err, context.Canceled):
		s.Logger.DebugContext(r.Context(), "request cancelled", "path", r.URL.Path)
		WriteClientClosed(w, r)
	case errors.As(err, &aerr), errors.Is(err, analyzer.ErrCircuitOpen):
		WriteBadGateway(w, r, err)
	default:
		WriteInternal(w, r, err)
	}
}
