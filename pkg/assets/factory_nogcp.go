//go:build !gcp

package assets

import (
	"context"
	"fmt"
	"time"

	"github.com/leobarcove/true-claim-insight/pkg/config"
)

func newGCSSource(ctx context.Context, cfg *config.Config, signTTL time.Duration) (Source, error) {
	return nil, fmt.Errorf("GCS storage is not enabled in this build (use -tags gcp)")
}
