package config_test

import (
	"testing"

	"github.com/leobarcove/true-claim-insight/pkg/config"
	"github.com/stretchr/testify/assert"
)

// TestLoad_Defaults verifies that Load() returns sensible defaults
// when no environment variables are set.
func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("ANALYZER_URL", "")
	t.Setenv("ASSET_STORAGE_TYPE", "")
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("API_RATE_LIMIT", "")
	t.Setenv("API_RATE_BURST", "")

	cfg := config.Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Empty(t, cfg.DatabaseURL) // lite mode
	assert.Equal(t, "http://localhost:8000", cfg.AnalyzerURL)
	assert.Equal(t, "fs", cfg.AssetStorageType)
	assert.False(t, cfg.OTelEnabled)
	assert.Equal(t, 20.0, cfg.APIRatePerSecond)
	assert.Equal(t, 40, cfg.APIRateBurst)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("DATABASE_URL", "postgres://production:5432/claims")
	t.Setenv("ANALYZER_URL", "http://risk-analyzer:8000")
	t.Setenv("ASSET_STORAGE_TYPE", "s3")
	t.Setenv("ASSET_S3_BUCKET", "interviews")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("ASSET_S3_REGION", "")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("API_RATE_LIMIT", "not-a-number")
	t.Setenv("API_RATE_BURST", "5")

	cfg := config.Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "postgres://production:5432/claims", cfg.DatabaseURL)
	assert.Equal(t, "http://risk-analyzer:8000", cfg.AnalyzerURL)
	assert.Equal(t, "s3", cfg.AssetStorageType)
	assert.Equal(t, "interviews", cfg.AssetS3Bucket)
	assert.Equal(t, "eu-west-1", cfg.AssetS3Region)
	assert.True(t, cfg.OTelEnabled)
	assert.Equal(t, 20.0, cfg.APIRatePerSecond)
	assert.Equal(t, 5, cfg.APIRateBurst)
}
