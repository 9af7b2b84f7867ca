// Package queue processes uploaded claim documents one at a time and
// re-audits a claim once none of its documents is still pending.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/leobarcove/true-claim-insight/pkg/logging"
	"github.com/leobarcove/true-claim-insight/pkg/observability"
	"github.com/leobarcove/true-claim-insight/pkg/store"
	"github.com/leobarcove/true-claim-insight/pkg/trinity"
)

// DefaultCapacity is the job buffer size.
const DefaultCapacity = 100

var (
	// ErrNotRunning is returned by Enqueue before Start or after Stop.
	ErrNotRunning = errors.New("document queue is not running")
	// ErrAlreadyRunning is returned by a second Start.
	ErrAlreadyRunning = errors.New("document queue already running")
)

// Job asks for one document to be processed.
type Job struct {
	DocumentID string `json:"documentId"`
}

// Extractor produces the field record of a document. Returning the
// document's current fields is valid when extraction happened upstream.
type Extractor interface {
	Extract(ctx context.Context, doc *store.Document) (json.RawMessage, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, doc *store.Document) (json.RawMessage, error)

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, doc *store.Document) (json.RawMessage, error) {
	return f(ctx, doc)
}

// StoredFields is the Extractor for documents whose fields were written by
// an upstream extraction service. A document with no fields fails.
var StoredFields = ExtractorFunc(func(_ context.Context, doc *store.Document) (json.RawMessage, error) {
	if len(doc.Fields) == 0 {
		return nil, fmt.Errorf("document %s has no extracted fields", doc.ID)
	}
	return doc.Fields, nil
})

// Auditor re-audits a claim.
type Auditor interface {
	AuditClaim(ctx context.Context, claimID string) (*trinity.Report, error)
}

// Options tunes a Queue. Zero values take the defaults.
type Options struct {
	Capacity      int
	Extractor     Extractor
	Observability *observability.Provider
	Logger        *slog.Logger
}

// Queue is a bounded single-consumer document queue. Jobs are handled in
// enqueue order. Stop lets the in-flight job finish; jobs still buffered
// stay QUEUED in the store.
type Queue struct {
	store   store.Store
	auditor Auditor
	extract Extractor
	obs     *observability.Provider
	log     *slog.Logger

	jobs    chan Job
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

// New returns a stopped Queue.
func New(st store.Store, auditor Auditor, opts Options) *Queue {
	if opts.Capacity < 1 {
		opts.Capacity = DefaultCapacity
	}
	if opts.Extractor == nil {
		opts.Extractor = StoredFields
	}
	if opts.Observability == nil {
		opts.Observability = observability.Nop()
	}
	if opts.Logger == nil {
		opts.Logger = logging.New("queue")
	}
	return &Queue{
		store:   st,
		auditor: auditor,
		extract: opts.Extractor,
		obs:     opts.Observability,
		log:     opts.Logger,
		jobs:    make(chan Job, opts.Capacity),
	}
}

// Start launches the consumer. It stops when ctx is done or Stop is called.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return ErrAlreadyRunning
	}
	q.running = true
	q.stopCh = make(chan struct{})
	q.done = make(chan struct{})
	go q.loop(ctx, q.stopCh, q.done)
	return nil
}

// Stop halts the consumer and waits for the in-flight job.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	close(q.stopCh)
	done := q.done
	q.mu.Unlock()
	<-done
}

// Enqueue marks the document QUEUED and hands it to the consumer. It blocks
// while the buffer is full, until ctx is done.
func (q *Queue) Enqueue(ctx context.Context, documentID string) error {
	q.mu.Lock()
	running, stopCh := q.running, q.stopCh
	q.mu.Unlock()
	if !running {
		return ErrNotRunning
	}

	doc, err := q.store.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}
	doc.Status = store.DocumentQueued
	if err := q.store.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("queue document %s: %w", documentID, err)
	}

	select {
	case q.jobs <- Job{DocumentID: documentID}:
		q.log.DebugContext(ctx, "document queued", "document_id", documentID, "depth", len(q.jobs))
		return nil
	case <-stopCh:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Depth is the number of buffered jobs.
func (q *Queue) Depth() int { return len(q.jobs) }

func (q *Queue) loop(ctx context.Context, stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case job := <-q.jobs:
			if err := q.process(ctx, job); err != nil {
				q.log.ErrorContext(ctx, "document job failed", "document_id", job.DocumentID, "error", err)
			}
		}
	}
}

func (q *Queue) process(ctx context.Context, job Job) (err error) {
	ctx, finish := q.obs.TrackOperation(ctx, "queue.document", attribute.String("document_id", job.DocumentID))
	defer func() { finish(err) }()

	doc, err := q.store.GetDocument(ctx, job.DocumentID)
	if err != nil {
		return err
	}
	doc.Status = store.DocumentProcessing
	if err := q.store.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	fields, xerr := q.extract.Extract(ctx, doc)
	if xerr != nil {
		doc.Status = store.DocumentFailed
		q.log.WarnContext(ctx, "document extraction failed", "document_id", doc.ID, "claim_id", doc.ClaimID, "error", xerr)
	} else {
		doc.Status = store.DocumentCompleted
		doc.Fields = fields
	}
	if err := q.store.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("mark %s: %w", doc.Status, err)
	}

	pending, err := q.pending(ctx, doc.ClaimID)
	if err != nil {
		return err
	}
	if pending > 0 {
		q.log.DebugContext(ctx, "claim still has pending documents", "claim_id", doc.ClaimID, "pending", pending)
		return nil
	}
	if _, err := q.auditor.AuditClaim(ctx, doc.ClaimID); err != nil {
		return fmt.Errorf("re-audit claim %s: %w", doc.ClaimID, err)
	}
	return nil
}

func (q *Queue) pending(ctx context.Context, claimID string) (int, error) {
	docs, err := q.store.ListDocuments(ctx, claimID)
	if err != nil {
		return 0, fmt.Errorf("list documents: %w", err)
	}
	n := 0
	for _, d := range docs {
		if d.Status.Unfinished() {
			n++
		}
	}
	return n, nil
}
