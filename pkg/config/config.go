package config

import (
	"os"
	"strconv"
)

// Config holds server configuration.
type Config struct {
	Port        string
	LogLevel    string
	LogFormat   string
	DatabaseURL string
	DataDir     string
	ProfilePath string

	AnalyzerURL string
	RedisAddr   string

	// Per-client API limit; zero disables it.
	APIRatePerSecond float64
	APIRateBurst     int

	AssetStorageType string
	AssetS3Bucket    string
	AssetS3Region    string
	AssetS3Endpoint  string
	AssetS3Prefix    string
	AssetGCSBucket   string
	AssetGCSPrefix   string

	OTelEnabled  bool
	OTelEndpoint string
	Environment  string
}

// Load loads configuration from environment variables.
// An empty DatabaseURL selects the embedded SQLite store.
func Load() *Config {
	region := os.Getenv("ASSET_S3_REGION")
	if region == "" {
		region = envOr("AWS_REGION", "ap-southeast-1")
	}

	otelEnabled, _ := strconv.ParseBool(os.Getenv("OTEL_ENABLED"))
	apiRate, err := strconv.ParseFloat(envOr("API_RATE_LIMIT", "20"), 64)
	if err != nil || apiRate < 0 {
		apiRate = 20
	}
	apiBurst, err := strconv.Atoi(envOr("API_RATE_BURST", "40"))
	if err != nil || apiBurst < 1 {
		apiBurst = 40
	}

	return &Config{
		Port:        envOr("PORT", "8080"),
		LogLevel:    envOr("LOG_LEVEL", "INFO"),
		LogFormat:   envOr("LOG_FORMAT", "text"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DataDir:     envOr("DATA_DIR", "data"),
		ProfilePath: os.Getenv("RISK_PROFILE"),

		// Default to the analyzer sidecar
		AnalyzerURL: envOr("ANALYZER_URL", "http://localhost:8000"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),

		APIRatePerSecond: apiRate,
		APIRateBurst:     apiBurst,

		AssetStorageType: envOr("ASSET_STORAGE_TYPE", "fs"),
		AssetS3Bucket:    os.Getenv("ASSET_S3_BUCKET"),
		AssetS3Region:    region,
		AssetS3Endpoint:  os.Getenv("ASSET_S3_ENDPOINT"),
		AssetS3Prefix:    os.Getenv("ASSET_S3_PREFIX"),
		AssetGCSBucket:   os.Getenv("ASSET_GCS_BUCKET"),
		AssetGCSPrefix:   os.Getenv("ASSET_GCS_PREFIX"),

		OTelEnabled:  otelEnabled,
		OTelEndpoint: envOr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		Environment:  envOr("ENVIRONMENT", "development"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
