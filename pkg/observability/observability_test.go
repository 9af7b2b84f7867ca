package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)

	_, done := p.TrackOperation(context.Background(), "audit")
	done(nil)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestTrackOperation_RecordsRED(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	p := Nop()
	require.NoError(t, p.UseMeterProvider(mp))

	_, done := p.TrackOperation(context.Background(), "segment.window")
	done(nil)
	_, done = p.TrackOperation(context.Background(), "segment.window")
	done(errors.New("analyzer down"))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if s, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range s.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(2), sums["claimrisk.operations.total"])
	assert.Equal(t, int64(1), sums["claimrisk.errors.total"])
	assert.Equal(t, int64(0), sums["claimrisk.operations.active"])
}
