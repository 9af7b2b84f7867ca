package segment

import (
	"fmt"
	"math"
)

// DefaultWindowSeconds is the analysis window length.
const DefaultWindowSeconds = 5.0

// Window is the half-open interval [Start, End) of one asset, in seconds.
type Window struct {
	AssetID string  `json:"assetId"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// Key identifies a window for deduplication. Bounds are compared at
// centisecond precision, the precision the cutter works at.
func (w Window) Key() string {
	return fmt.Sprintf("%s:%.2f:%.2f", w.AssetID, w.Start, w.End)
}

// Length is End minus Start.
func (w Window) Length() float64 { return w.End - w.Start }

// Windows partitions [0, duration) into consecutive windows of size
// seconds. The last one may be shorter.
func Windows(assetID string, duration, size float64) []Window {
	if size <= 0 {
		size = DefaultWindowSeconds
	}
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return nil
	}
	out := make([]Window, 0, int(math.Ceil(duration/size)))
	for i := 0; ; i++ {
		start := float64(i) * size
		if start >= duration {
			break
		}
		out = append(out, Window{AssetID: assetID, Start: start, End: math.Min(float64(i+1)*size, duration)})
	}
	return out
}
