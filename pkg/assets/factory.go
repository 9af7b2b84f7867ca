package assets

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/leobarcove/true-claim-insight/pkg/config"
)

// StorageType names a Source backend.
type StorageType string

const (
	StorageFS  StorageType = "fs"
	StorageS3  StorageType = "s3"
	StorageGCS StorageType = "gcs"
)

// NewSourceFromConfig builds the configured backend. signTTL is the
// lifetime of signed URLs for object storage backends.
func NewSourceFromConfig(ctx context.Context, cfg *config.Config, signTTL time.Duration) (Source, error) {
	switch StorageType(cfg.AssetStorageType) {
	case StorageFS, "":
		return NewFileSource(filepath.Join(cfg.DataDir, "assets"))
	case StorageS3:
		if cfg.AssetS3Bucket == "" {
			return nil, fmt.Errorf("ASSET_S3_BUCKET is required for S3 storage")
		}
		return NewS3Source(ctx, S3SourceConfig{
			Bucket:   cfg.AssetS3Bucket,
			Region:   cfg.AssetS3Region,
			Endpoint: cfg.AssetS3Endpoint,
			Prefix:   cfg.AssetS3Prefix,
			SignTTL:  signTTL,
		})
	case StorageGCS:
		if cfg.AssetGCSBucket == "" {
			return nil, fmt.Errorf("ASSET_GCS_BUCKET is required for GCS storage")
		}
		return newGCSSource(ctx, cfg, signTTL)
	default:
		return nil, fmt.Errorf("unsupported asset storage type: %s", cfg.AssetStorageType)
	}
}
