package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/leobarcove/true-claim-insight/pkg/trinity"
)

// MemoryStore keeps everything in process memory. Records are copied on the
// way in and out.
type MemoryStore struct {
	mu        sync.RWMutex
	claims    map[string]Claim
	documents map[string]Document
	reports   map[string][]trinity.Report
	assets    map[string]Asset
	segments  map[string][]SegmentScore
	now       func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		claims:    map[string]Claim{},
		documents: map[string]Document{},
		reports:   map[string][]trinity.Report{},
		assets:    map[string]Asset{},
		segments:  map[string][]SegmentScore{},
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) SaveClaim(_ context.Context, c *Claim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = m.now()
	}
	m.claims[c.ID] = cp
	return nil
}

func (m *MemoryStore) GetClaim(_ context.Context, id string) (*Claim, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.claims[id]
	if !ok {
		return nil, fmt.Errorf("claim %s: %w", id, ErrNotFound)
	}
	return &c, nil
}

func (m *MemoryStore) SaveDocument(_ context.Context, d *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	cp.Fields = append([]byte(nil), d.Fields...)
	now := m.now()
	if prev, ok := m.documents[d.ID]; ok {
		cp.CreatedAt = prev.CreatedAt
	} else if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	m.documents[d.ID] = cp
	return nil
}

func (m *MemoryStore) GetDocument(_ context.Context, id string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.documents[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return &d, nil
}

func (m *MemoryStore) ListDocuments(_ context.Context, claimID string) ([]*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Document
	for _, d := range m.documents {
		if d.ClaimID == claimID {
			d := d
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) SaveReport(_ context.Context, r *trinity.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[r.ClaimID] = append(m.reports[r.ClaimID], *r)
	return nil
}

func (m *MemoryStore) LatestReport(_ context.Context, claimID string) (*trinity.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rs := m.reports[claimID]
	if len(rs) == 0 {
		return nil, fmt.Errorf("report for claim %s: %w", claimID, ErrNotFound)
	}
	r := rs[len(rs)-1]
	return &r, nil
}

func (m *MemoryStore) SaveAsset(_ context.Context, a *Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	now := m.now()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	if cp.Status == "" {
		cp.Status = AssetPending
	}
	cp.UpdatedAt = now
	m.assets[a.ID] = cp
	return nil
}

func (m *MemoryStore) GetAsset(_ context.Context, id string) (*Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assets[id]
	if !ok {
		return nil, fmt.Errorf("asset %s: %w", id, ErrNotFound)
	}
	return &a, nil
}

func (m *MemoryStore) update(id string, fn func(*Asset)) error {
	a, ok := m.assets[id]
	if !ok {
		return fmt.Errorf("asset %s: %w", id, ErrNotFound)
	}
	fn(&a)
	a.UpdatedAt = m.now()
	m.assets[id] = a
	return nil
}

func (m *MemoryStore) BeginProcessing(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	started := false
	err := m.update(id, func(a *Asset) {
		if a.Status != AssetProcessing {
			a.Status = AssetProcessing
			started = true
		}
	})
	return started, err
}

func (m *MemoryStore) SetAssetStatus(_ context.Context, id string, status AssetStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.update(id, func(a *Asset) { a.Status = status })
}

func (m *MemoryStore) SetAssetDuration(_ context.Context, id string, seconds float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.update(id, func(a *Asset) { a.Duration = seconds })
}

func (m *MemoryStore) AdvanceWatermark(_ context.Context, id string, until float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var wm float64
	err := m.update(id, func(a *Asset) {
		if until > a.ProcessedUntil {
			a.ProcessedUntil = until
		}
		wm = a.ProcessedUntil
	})
	return wm, err
}

func (m *MemoryStore) AppendSegment(_ context.Context, s *SegmentScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	cp.Details = append([]byte(nil), s.Details...)
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = m.now()
	}
	m.segments[s.AssetID] = append(m.segments[s.AssetID], cp)
	return nil
}

func (m *MemoryStore) Timeline(_ context.Context, assetID string) ([]*SegmentScore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.segments[assetID]
	out := make([]*SegmentScore, 0, len(src))
	for i := range src {
		s := src[i]
		out = append(out, &s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
