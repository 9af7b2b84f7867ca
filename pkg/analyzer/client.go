// Package analyzer is the HTTP client for the external media analyzers.
//
// Each modality is a single multipart POST carrying the segment file under
// the "file" field. Calls are rate limited, guarded by a per-modality
// circuit breaker, and retried with backoff when the failure is transient
// (5xx, 429, transport errors). 4xx responses are permanent.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/time/rate"

	"github.com/leobarcove/true-claim-insight/pkg/config"
	"github.com/leobarcove/true-claim-insight/pkg/logging"
	"github.com/leobarcove/true-claim-insight/pkg/retry"
	"github.com/leobarcove/true-claim-insight/pkg/scoring"
)

// Modality identifies one analyzer.
type Modality string

const (
	Voice      Modality = "voice"
	Visual     Modality = "visual"
	Expression Modality = "expression"
)

// Provider names the measurement backend recorded with each score.
func (m Modality) Provider() string {
	switch m {
	case Voice:
		return "Parselmouth"
	case Visual:
		return "MediaPipe"
	case Expression:
		return "Hume"
	default:
		return "unknown"
	}
}

const (
	pathAudio      = "/analyze-audio"
	pathVideo      = "/analyze-video"
	pathExpression = "/analyze-expression"
	pathConsent    = "/generate-consent-pdf"
	pathHealth     = "/health"

	maxResponseBytes = 8 << 20
	maxErrorBody     = 512
)

// Result is one analyzer response.
type Result struct {
	Modality   Modality        `json:"modality"`
	RiskScore  string          `json:"risk_score,omitempty"`
	Confidence *float64        `json:"confidence,omitempty"`
	Metrics    json.RawMessage `json:"metrics,omitempty"`
	Raw        json.RawMessage `json:"-"`
}

// Details returns the response fields with the metrics object merged in at
// the top level. Metric keys win on collision.
func (r *Result) Details() map[string]any {
	out := map[string]any{}
	if r == nil {
		return out
	}
	_ = json.Unmarshal(r.Raw, &out)
	var metrics map[string]any
	if err := json.Unmarshal(r.Metrics, &metrics); err == nil {
		for k, v := range metrics {
			out[k] = v
		}
	}
	out["provider"] = r.Modality.Provider()
	return out
}

// Options configures a Client.
type Options struct {
	BaseURL           string
	HTTPClient        *http.Client
	Timeout           time.Duration
	Retry             retry.Policy
	RequestsPerSecond float64
	Burst             int
	BreakerThreshold  int
	BreakerReset      time.Duration
	Logger            *slog.Logger
}

// OptionsFromProfile builds client options from the runtime profile.
func OptionsFromProfile(baseURL string, p *config.Profile) Options {
	return Options{
		BaseURL: baseURL,
		Timeout: p.Analyzer.Timeout,
		Retry: retry.Policy{
			Name:        "analyzer",
			BaseMs:      p.Retry.BaseMs,
			MaxMs:       p.Retry.MaxMs,
			MaxJitterMs: p.Retry.MaxJitterMs,
			MaxAttempts: p.Retry.MaxAttempts,
		},
		RequestsPerSecond: p.Analyzer.RequestsPerSecond,
		Burst:             p.Analyzer.Burst,
	}
}

// Client calls the analyzer service.
type Client struct {
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter
	retrier  *retry.Retrier
	breakers map[Modality]*Breaker
	schema   *jsonschema.Schema
	log      *slog.Logger
}

// New returns a Client. Zero-valued options fall back to the defaults.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("analyzer: base URL is required")
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("analyzer: bad base URL: %w", err)
	}
	schema, err := compileResponseSchema()
	if err != nil {
		return nil, err
	}

	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.DefaultPolicy()
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	if opts.Burst < 1 {
		opts.Burst = 1
	}
	if opts.BreakerThreshold < 1 {
		opts.BreakerThreshold = 5
	}
	if opts.BreakerReset <= 0 {
		opts.BreakerReset = 10 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = logging.New("analyzer")
	}

	c := &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    hc,
		limiter: rate.NewLimiter(limit, opts.Burst),
		breakers: map[Modality]*Breaker{
			Voice:      NewBreaker(string(Voice), opts.BreakerThreshold, opts.BreakerReset),
			Visual:     NewBreaker(string(Visual), opts.BreakerThreshold, opts.BreakerReset),
			Expression: NewBreaker(string(Expression), opts.BreakerThreshold, opts.BreakerReset),
		},
		schema: schema,
		log:    log,
	}
	c.retrier = retry.New(opts.Retry, IsTransient)
	c.retrier.OnRetry = func(key retry.Key, err error, wait time.Duration) {
		c.log.Warn("analyzer call failed, retrying",
			"operation", key.Operation,
			"attempt", key.Attempt,
			"wait", wait,
			"error", err,
		)
	}
	return c, nil
}

// AnalyzeVoice scores a mono WAV segment.
func (c *Client) AnalyzeVoice(ctx context.Context, wav []byte) (*Result, error) {
	return c.analyze(ctx, Voice, pathAudio, "segment.wav", "audio/wav", wav)
}

// AnalyzeVisual scores an MP4 segment for behavioral cues.
func (c *Client) AnalyzeVisual(ctx context.Context, mp4 []byte) (*Result, error) {
	return c.analyze(ctx, Visual, pathVideo, "segment.mp4", "video/mp4", mp4)
}

// AnalyzeExpression scores facial expression in an MP4 segment. noAudio
// tells the analyzer not to look for a vocal track.
func (c *Client) AnalyzeExpression(ctx context.Context, mp4 []byte, noAudio bool) (*Result, error) {
	path := pathExpression + "?" + url.Values{"noAudio": {strconv.FormatBool(noAudio)}}.Encode()
	return c.analyze(ctx, Expression, path, "segment.mp4", "video/mp4", mp4)
}

// BreakerOpen reports whether calls for m are currently short-circuited.
func (c *Client) BreakerOpen(m Modality) bool {
	if b, ok := c.breakers[m]; ok {
		return b.Open()
	}
	return false
}

func (c *Client) analyze(ctx context.Context, m Modality, path, filename, contentType string, payload []byte) (*Result, error) {
	var res *Result
	err := c.retrier.Do(ctx, "analyze-"+string(m), path, func(ctx context.Context) error {
		r, err := c.call(ctx, m, path, filename, contentType, payload)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) call(ctx context.Context, m Modality, path, filename, contentType string, payload []byte) (*Result, error) {
	body, ct, err := multipartFile(filename, contentType, payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s analyzer: build request: %w", m, err)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s analyzer: rate limit wait: %w", m, err)
	}

	b := c.breakers[m]
	if !b.Allow() {
		return nil, &Error{Modality: m, Endpoint: path, Err: ErrCircuitOpen}
	}
	// every path below must settle the breaker
	if err := ctx.Err(); err != nil {
		b.Release()
		return nil, &Error{Modality: m, Endpoint: path, Err: err}
	}
	req.Header.Set("Content-Type", ct)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		b.Failure()
		return nil, &Error{Modality: m, Endpoint: path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		b.Failure()
		return nil, &Error{Modality: m, Endpoint: path, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		ae := &Error{Modality: m, Endpoint: path, StatusCode: resp.StatusCode, Body: truncate(data)}
		if ae.Transient() {
			b.Failure()
		} else {
			b.Success()
		}
		return nil, ae
	}
	b.Success()

	res, err := c.decode(m, data)
	if err != nil {
		return nil, &Error{Modality: m, Endpoint: path, StatusCode: 0, Err: err}
	}
	return res, nil
}

func (c *Client) decode(m Modality, data []byte) (*Result, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if err := c.schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}

	var wire struct {
		RiskScore  *string         `json:"risk_score"`
		Confidence *float64        `json:"confidence"`
		Metrics    json.RawMessage `json:"metrics"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	res := &Result{
		Modality:   m,
		Confidence: wire.Confidence,
		Metrics:    wire.Metrics,
		Raw:        json.RawMessage(data),
	}
	if wire.RiskScore != nil {
		res.RiskScore = *wire.RiskScore
	}
	return res, nil
}

// ConsentRequest asks the analyzer to render the assessment consent PDF.
type ConsentRequest struct {
	SessionID string          `json:"sessionId"`
	ClaimID   string          `json:"claimId"`
	Analysis  ConsentAnalysis `json:"analysis"`
}

// ConsentAnalysis is the score summary printed on the consent form.
type ConsentAnalysis struct {
	RiskScore      scoring.RiskLevel `json:"riskScore"`
	DeceptionScore float64           `json:"deceptionScore"`
	Breakdown      scoring.Breakdown `json:"breakdown"`
}

// ConsentDocument is the rendered form.
type ConsentDocument struct {
	SignedURL string `json:"signed_url"`
	FileSize  int64  `json:"file_size"`
}

// GenerateConsent renders the consent PDF. It is not retried.
func (c *Client) GenerateConsent(ctx context.Context, in ConsentRequest) (*ConsentDocument, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode consent request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pathConsent, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("consent generation: %w", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("consent generation: status %d: %s", resp.StatusCode, truncate(data))
	}
	var doc ConsentDocument
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("consent generation: %w: %v", errMalformed, err)
		}
	}
	return &doc, nil
}

// Health pings the analyzer.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathHealth, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("analyzer health: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("analyzer health: status %d", resp.StatusCode)
	}
	return nil
}

func multipartFile(filename, contentType string, payload []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("multipart: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return nil, "", fmt.Errorf("multipart: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func truncate(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
