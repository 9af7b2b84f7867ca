//go:build gcp

package assets

import (
	"context"
	"time"

	"github.com/leobarcove/true-claim-insight/pkg/config"
)

func newGCSSource(ctx context.Context, cfg *config.Config, signTTL time.Duration) (Source, error) {
	return NewGCSSource(ctx, GCSSourceConfig{
		Bucket:  cfg.AssetGCSBucket,
		Prefix:  cfg.AssetGCSPrefix,
		SignTTL: signTTL,
	})
}
