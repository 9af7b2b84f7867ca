package api

import (
	"bytes"
	"encoding/json"

	"github.com/leobarcove/true-claim-insight/pkg/store"
	"github.com/leobarcove/true-claim-insight/pkg/trinity"
)

// internalKeys never leave the service.
var internalKeys = map[string]bool{"model": true, "modelUsed": true}

// sanitizeReport returns a copy of r without the reasoning model name. r is
// not modified; stores may share it.
func sanitizeReport(r *trinity.Report) *trinity.Report {
	out := *r
	if r.ReasoningInsights != nil {
		ri := *r.ReasoningInsights
		ri.Model = ""
		out.ReasoningInsights = &ri
	}
	return &out
}

// sanitizeSegment returns a copy of s with internal keys stripped from its
// detail payload at any depth.
func sanitizeSegment(s *store.SegmentScore) *store.SegmentScore {
	if s == nil {
		return nil
	}
	out := *s
	out.Details = sanitizeDetails(s.Details)
	return &out
}

func sanitizeDetails(raw json.RawMessage) json.RawMessage {
	if len(bytes.TrimSpace(raw)) == 0 {
		return raw
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	clean, err := json.Marshal(stripKeys(v))
	if err != nil {
		return nil
	}
	return clean
}

func stripKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			if internalKeys[k] {
				delete(t, k)
				continue
			}
			t[k] = stripKeys(child)
		}
		return t
	case []any:
		for i, child := range t {
			t[i] = stripKeys(child)
		}
		return t
	default:
		return v
	}
}
