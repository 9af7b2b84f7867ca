// Package segment runs interview recordings through the media analyzers,
// window by window, and keeps the per-asset score timeline and watermark.
package segment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/leobarcove/true-claim-insight/pkg/analyzer"
	"github.com/leobarcove/true-claim-insight/pkg/assets"
	"github.com/leobarcove/true-claim-insight/pkg/logging"
	"github.com/leobarcove/true-claim-insight/pkg/media"
	"github.com/leobarcove/true-claim-insight/pkg/normalize"
	"github.com/leobarcove/true-claim-insight/pkg/observability"
	"github.com/leobarcove/true-claim-insight/pkg/scoring"
	"github.com/leobarcove/true-claim-insight/pkg/store"
)

// DefaultPoolSize bounds concurrent windows per batch.
const DefaultPoolSize = 5

// ErrClaimedElsewhere is returned when another instance holds the window.
var ErrClaimedElsewhere = errors.New("window is being processed by another instance")

// Analyzer is the subset of the analyzer client the orchestrator uses.
type Analyzer interface {
	AnalyzeVoice(ctx context.Context, wav []byte) (*analyzer.Result, error)
	AnalyzeVisual(ctx context.Context, mp4 []byte) (*analyzer.Result, error)
	AnalyzeExpression(ctx context.Context, mp4 []byte, noAudio bool) (*analyzer.Result, error)
	GenerateConsent(ctx context.Context, in analyzer.ConsentRequest) (*analyzer.ConsentDocument, error)
}

// Cutter measures recordings and cuts windows out of them.
type Cutter interface {
	Duration(ctx context.Context, input string) (float64, error)
	Extract(ctx context.Context, input string, start, end float64) (*media.Clip, error)
}

// Options tunes an Orchestrator. Zero values take the defaults.
type Options struct {
	WindowSeconds float64
	PoolSize      int
	Coordinator   Coordinator
	LockTTL       time.Duration
	Observability *observability.Provider
	Logger        *slog.Logger
}

// Result is the outcome of one window request.
type Result struct {
	Window         Window              `json:"window"`
	Score          *store.SegmentScore `json:"score,omitempty"`
	ProcessedUntil float64             `json:"processedUntil"`
	// Skipped is set when no clip was cut for the window.
	Skipped bool `json:"skipped,omitempty"`
	// Shared is set when the caller joined an in-flight job.
	Shared bool `json:"shared,omitempty"`
}

// BatchStatus is returned by RunBatch.
type BatchStatus struct {
	AssetID           string            `json:"assetId"`
	Status            store.AssetStatus `json:"status"`
	AlreadyInProgress bool              `json:"alreadyInProgress,omitempty"`
}

// BatchSummary describes a finished batch.
type BatchSummary struct {
	AssetID        string            `json:"assetId"`
	Status         store.AssetStatus `json:"status"`
	Windows        int               `json:"windows"`
	Failed         int               `json:"failed"`
	ProcessedUntil float64           `json:"processedUntil"`
}

// Orchestrator schedules window analysis. It is safe for concurrent use.
type Orchestrator struct {
	store    store.Store
	assets   assets.Source
	cutter   Cutter
	analyzer Analyzer
	opts     Options
	obs      *observability.Provider
	log      *slog.Logger

	inflight singleflight.Group
	batches  sync.WaitGroup
}

// New returns an Orchestrator.
func New(st store.Store, src assets.Source, cutter Cutter, an Analyzer, opts Options) *Orchestrator {
	if opts.WindowSeconds <= 0 {
		opts.WindowSeconds = DefaultWindowSeconds
	}
	if opts.PoolSize < 1 {
		opts.PoolSize = DefaultPoolSize
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 5 * time.Minute
	}
	obs := opts.Observability
	if obs == nil {
		obs = observability.Nop()
	}
	log := opts.Logger
	if log == nil {
		log = logging.New("segment")
	}
	return &Orchestrator{store: st, assets: src, cutter: cutter, analyzer: an, opts: opts, obs: obs, log: log}
}

// ProcessWindow analyzes [start, start+length) of an asset; a non-positive
// length means the default window. The end is clamped to the recording's
// duration. A window starting at or past the end, or shorter than
// media.MinClipSeconds after clamping, does no work and reports the current
// watermark. Concurrent calls for the same window share one job.
func (o *Orchestrator) ProcessWindow(ctx context.Context, assetID string, start, length float64) (*Result, error) {
	if length <= 0 {
		length = o.opts.WindowSeconds
	}
	if start < 0 {
		start = 0
	}
	asset, err := o.store.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	input, err := o.assets.Locate(ctx, asset.Key)
	if err != nil {
		return nil, fmt.Errorf("locate asset %s: %w", assetID, err)
	}
	duration, err := o.duration(ctx, asset, input)
	if err != nil {
		return nil, err
	}

	w := Window{AssetID: assetID, Start: start, End: start + length}
	clamped := duration > 0 && w.End > duration
	if clamped {
		w.End = duration
	}
	if duration > 0 && w.Start >= duration {
		return &Result{Window: w, ProcessedUntil: asset.ProcessedUntil, Skipped: true}, nil
	}
	if w.Length() < media.MinClipSeconds {
		if !clamped {
			return &Result{Window: w, ProcessedUntil: asset.ProcessedUntil, Skipped: true}, nil
		}
		// the tail is too short to cut but still counts as covered
		wm, err := o.store.AdvanceWatermark(ctx, assetID, duration)
		if err != nil {
			return nil, fmt.Errorf("advance watermark for %s: %w", assetID, err)
		}
		return &Result{Window: w, ProcessedUntil: wm, Skipped: true}, nil
	}

	v, err, shared := o.inflight.Do(w.Key(), func() (any, error) {
		// a window is never cancelled midway
		return o.process(context.WithoutCancel(ctx), w, input)
	})
	if err != nil {
		return nil, err
	}
	res := *v.(*Result)
	res.Shared = shared
	return &res, nil
}

func (o *Orchestrator) duration(ctx context.Context, asset *store.Asset, input string) (float64, error) {
	if asset.Duration > 0 {
		return asset.Duration, nil
	}
	d, err := o.cutter.Duration(ctx, input)
	if err != nil {
		return 0, fmt.Errorf("measure asset %s: %w", asset.ID, err)
	}
	if err := o.store.SetAssetDuration(ctx, asset.ID, d); err != nil {
		o.log.WarnContext(ctx, "failed to persist duration", "asset_id", asset.ID, "error", err)
	}
	asset.Duration = d
	return d, nil
}

func (o *Orchestrator) process(ctx context.Context, w Window, input string) (res *Result, err error) {
	ctx, done := o.obs.TrackOperation(ctx, "segment.window",
		attribute.String("asset_id", w.AssetID),
		attribute.Float64("start", w.Start),
	)
	defer func() { done(err) }()

	if o.opts.Coordinator != nil {
		release, ok, lerr := o.opts.Coordinator.Acquire(ctx, w.Key(), o.opts.LockTTL)
		if lerr != nil {
			// local dedup still holds
			o.log.WarnContext(ctx, "window claim failed", "key", w.Key(), "error", lerr)
		} else if !ok {
			return nil, fmt.Errorf("%s: %w", w.Key(), ErrClaimedElsewhere)
		} else {
			defer release()
		}
	}

	clip, err := o.cutter.Extract(ctx, input, w.Start, w.End)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", w.Key(), err)
	}

	voice, visual, expr, err := o.analyze(ctx, clip)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", w.Key(), err)
	}

	score, err := scoreWindow(w, voice, visual, expr)
	if err != nil {
		return nil, fmt.Errorf("score %s: %w", w.Key(), err)
	}
	if err := o.store.AppendSegment(ctx, score); err != nil {
		return nil, fmt.Errorf("persist %s: %w", w.Key(), err)
	}
	wm, err := o.store.AdvanceWatermark(ctx, w.AssetID, w.End)
	if err != nil {
		return nil, fmt.Errorf("advance watermark %s: %w", w.Key(), err)
	}

	o.log.InfoContext(ctx, "window scored",
		"asset_id", w.AssetID,
		"start", w.Start,
		"end", w.End,
		"deception_score", score.DeceptionScore,
		"risk_level", score.RiskLevel,
		"processed_until", wm,
	)
	return &Result{Window: w, Score: score, ProcessedUntil: wm}, nil
}

// analyze calls the three analyzers concurrently. The voice analyzer is
// skipped for clips without audio.
func (o *Orchestrator) analyze(ctx context.Context, clip *media.Clip) (voice, visual, expr *analyzer.Result, err error) {
	noAudio := clip.NoAudio || len(clip.Audio) == 0
	g, gctx := errgroup.WithContext(ctx)
	if !noAudio {
		g.Go(func() error {
			r, err := o.analyzer.AnalyzeVoice(gctx, clip.Audio)
			voice = r
			return err
		})
	}
	g.Go(func() error {
		r, err := o.analyzer.AnalyzeVisual(gctx, clip.Video)
		visual = r
		return err
	})
	g.Go(func() error {
		r, err := o.analyzer.AnalyzeExpression(gctx, clip.Video, noAudio)
		expr = r
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}
	return voice, visual, expr, nil
}

func scoreWindow(w Window, voice, visual, expr *analyzer.Result) (*store.SegmentScore, error) {
	var voiceMetrics *normalize.VoiceMetrics
	if voice != nil {
		m, err := normalize.ParseVoiceMetrics(voice.Metrics)
		if err != nil {
			return nil, err
		}
		voiceMetrics = m
	}
	visualMetrics, err := normalize.ParseVisualMetrics(visual.Metrics)
	if err != nil {
		return nil, err
	}

	c := scoring.Combine(
		normalize.VoiceStress(voiceMetrics),
		normalize.VisualBehavior(visualMetrics),
		normalize.ExpressionScore(expr.Raw),
	)

	details := map[string]any{
		"visual":     visual.Details(),
		"expression": expr.Details(),
	}
	if voice != nil {
		details["voice"] = voice.Details()
	} else {
		details["voice"] = map[string]any{"provider": analyzer.Voice.Provider(), "metrics": nil}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("encode details: %w", err)
	}

	return &store.SegmentScore{
		ID:             uuid.NewString(),
		AssetID:        w.AssetID,
		Start:          w.Start,
		End:            w.End,
		DeceptionScore: c.DeceptionScore,
		Breakdown:      c.Breakdown,
		RiskLevel:      c.RiskLevel,
		Details:        raw,
	}, nil
}

// RunBatch starts analysis of a whole asset in the background and returns
// at once. An asset already being processed is left alone.
func (o *Orchestrator) RunBatch(ctx context.Context, assetID string) (*BatchStatus, error) {
	started, err := o.store.BeginProcessing(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if !started {
		return &BatchStatus{AssetID: assetID, Status: store.AssetProcessing, AlreadyInProgress: true}, nil
	}

	o.batches.Add(1)
	go func() {
		defer o.batches.Done()
		bctx := context.WithoutCancel(ctx)
		if _, err := o.Run(bctx, assetID); err != nil {
			o.log.ErrorContext(bctx, "batch failed", "asset_id", assetID, "error", err)
		}
	}()
	return &BatchStatus{AssetID: assetID, Status: store.AssetProcessing}, nil
}

// Wait blocks until background batches finish.
func (o *Orchestrator) Wait() { o.batches.Wait() }

// Run analyzes every window of an asset with at most PoolSize windows in
// flight, then records the final status. A failed window is logged and
// counted; the batch continues. The asset is FAILED only if it could not be
// measured or every window failed.
func (o *Orchestrator) Run(ctx context.Context, assetID string) (summary *BatchSummary, err error) {
	ctx, done := o.obs.TrackOperation(ctx, "segment.batch", attribute.String("asset_id", assetID))
	defer func() { done(err) }()

	asset, err := o.store.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	input, err := o.assets.Locate(ctx, asset.Key)
	if err == nil {
		_, err = o.duration(ctx, asset, input)
	}
	if err != nil {
		o.setStatus(ctx, assetID, store.AssetFailed)
		return nil, err
	}

	windows := Windows(assetID, asset.Duration, o.opts.WindowSeconds)
	var failed atomic.Int32
	g := new(errgroup.Group)
	g.SetLimit(o.opts.PoolSize)
	for _, w := range windows {
		g.Go(func() error {
			if _, err := o.ProcessWindow(ctx, assetID, w.Start, w.Length()); err != nil {
				failed.Add(1)
				o.log.WarnContext(ctx, "window failed",
					"asset_id", assetID,
					"start", w.Start,
					"end", w.End,
					"error", err,
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	summary = &BatchSummary{AssetID: assetID, Windows: len(windows), Failed: int(failed.Load())}
	if summary.Windows > 0 && summary.Failed == summary.Windows {
		summary.Status = store.AssetFailed
	} else {
		summary.Status = store.AssetCompleted
	}
	o.setStatus(ctx, assetID, summary.Status)
	if a, err := o.store.GetAsset(ctx, assetID); err == nil {
		summary.ProcessedUntil = a.ProcessedUntil
	}

	o.log.InfoContext(ctx, "batch finished",
		"asset_id", assetID,
		"status", summary.Status,
		"windows", summary.Windows,
		"failed", summary.Failed,
		"processed_until", summary.ProcessedUntil,
	)
	if summary.Status == store.AssetCompleted {
		o.generateConsent(ctx, asset)
	}
	return summary, nil
}

func (o *Orchestrator) setStatus(ctx context.Context, assetID string, status store.AssetStatus) {
	if err := o.store.SetAssetStatus(ctx, assetID, status); err != nil {
		o.log.ErrorContext(ctx, "failed to set asset status", "asset_id", assetID, "status", status, "error", err)
	}
}

// generateConsent renders the consent form from the most recently scored
// window. Failures are logged only.
func (o *Orchestrator) generateConsent(ctx context.Context, asset *store.Asset) {
	timeline, err := o.store.Timeline(ctx, asset.ID)
	if err != nil {
		o.log.WarnContext(ctx, "consent skipped: timeline unavailable", "asset_id", asset.ID, "error", err)
		return
	}
	var latest *store.SegmentScore
	for _, s := range timeline {
		if latest == nil || !s.CreatedAt.Before(latest.CreatedAt) {
			latest = s
		}
	}

	req := analyzer.ConsentRequest{
		SessionID: asset.SessionID,
		ClaimID:   asset.ClaimID,
		Analysis:  analyzer.ConsentAnalysis{RiskScore: scoring.RiskLow},
	}
	if req.SessionID == "" {
		req.SessionID = "upload-" + asset.ID
	}
	if latest != nil {
		req.Analysis = analyzer.ConsentAnalysis{
			RiskScore:      scoring.Level(latest.DeceptionScore),
			DeceptionScore: latest.DeceptionScore,
			Breakdown:      latest.Breakdown,
		}
	}
	if _, err := o.analyzer.GenerateConsent(ctx, req); err != nil {
		o.log.WarnContext(ctx, "consent generation failed", "asset_id", asset.ID, "error", err)
	}
}
