package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindows(t *testing.T) {
	tests := []struct {
		name     string
		duration float64
		size     float64
		want     []Window
	}{
		{"exact multiple", 10, 5, []Window{{"a", 0, 5}, {"a", 5, 10}}},
		{"short tail", 12, 5, []Window{{"a", 0, 5}, {"a", 5, 10}, {"a", 10, 12}}},
		{"shorter than one window", 3, 5, []Window{{"a", 0, 3}}},
		{"default size", 7, 0, []Window{{"a", 0, 5}, {"a", 5, 7}}},
		{"empty", 0, 5, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Windows("a", tt.duration, tt.size))
		})
	}
}

func TestWindowKey(t *testing.T) {
	w := Window{AssetID: "asset-1", Start: 5, End: 9.996}
	assert.Equal(t, "asset-1:5.00:10.00", w.Key())
	assert.InDelta(t, 4.996, w.Length(), 1e-9)
}
