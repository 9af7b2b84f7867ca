package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Profile tunes the interview pipeline. Rule thresholds are not tunable.
type Profile struct {
	Name     string         `yaml:"name" json:"name"`
	Segments SegmentProfile `yaml:"segments" json:"segments"`
	Retry    RetryProfile   `yaml:"retry" json:"retry"`
	Analyzer AnalyzerLimits `yaml:"analyzer" json:"analyzer"`
	URLCache URLCacheConfig `yaml:"url_cache" json:"url_cache"`
}

// SegmentProfile controls window size and the worker pool.
type SegmentProfile struct {
	WindowSeconds float64 `yaml:"window_seconds" json:"window_seconds"`
	PoolSize      int     `yaml:"pool_size" json:"pool_size"`
}

// RetryProfile controls analyzer retries.
type RetryProfile struct {
	MaxAttempts int   `yaml:"max_attempts" json:"max_attempts"`
	BaseMs      int64 `yaml:"base_ms" json:"base_ms"`
	MaxMs       int64 `yaml:"max_ms" json:"max_ms"`
	MaxJitterMs int64 `yaml:"max_jitter_ms" json:"max_jitter_ms"`
}

// AnalyzerLimits throttles outbound analyzer traffic.
type AnalyzerLimits struct {
	RequestsPerSecond float64       `yaml:"requests_per_second" json:"requests_per_second"`
	Burst             int           `yaml:"burst" json:"burst"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
}

// URLCacheConfig controls signed-URL lifetimes.
type URLCacheConfig struct {
	SignTTL  time.Duration `yaml:"sign_ttl" json:"sign_ttl"`
	CacheTTL time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
}

// DefaultProfile returns the production defaults.
func DefaultProfile() *Profile {
	return &Profile{
		Name: "default",
		Segments: SegmentProfile{
			WindowSeconds: 5,
			PoolSize:      5,
		},
		Retry: RetryProfile{
			MaxAttempts: 3,
			BaseMs:      500,
			MaxMs:       8000,
			MaxJitterMs: 250,
		},
		Analyzer: AnalyzerLimits{
			RequestsPerSecond: 15,
			Burst:             15,
			Timeout:           60 * time.Second,
		},
		URLCache: URLCacheConfig{
			SignTTL:  60 * time.Minute,
			CacheTTL: 50 * time.Minute,
		},
	}
}

// LoadProfile reads a YAML profile. Unset fields keep their defaults.
// An empty path returns DefaultProfile.
func LoadProfile(path string) (*Profile, error) {
	profile := DefaultProfile()
	if path == "" {
		return profile, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, profile); err != nil {
		return nil, fmt.Errorf("parse profile %q: %w", path, err)
	}
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("profile %q: %w", path, err)
	}
	return profile, nil
}

// Validate rejects values the pipeline cannot run with.
func (p *Profile) Validate() error {
	var errs []error
	if p.Segments.WindowSeconds <= 0 {
		errs = append(errs, errors.New("segments.window_seconds must be positive"))
	}
	if p.Segments.PoolSize < 1 {
		errs = append(errs, errors.New("segments.pool_size must be at least 1"))
	}
	if p.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry.max_attempts must be at least 1"))
	}
	if p.Retry.BaseMs < 0 || p.Retry.MaxMs < p.Retry.BaseMs {
		errs = append(errs, errors.New("retry.max_ms must be >= retry.base_ms >= 0"))
	}
	if p.Analyzer.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("analyzer.requests_per_second must not be negative"))
	}
	if p.URLCache.CacheTTL > p.URLCache.SignTTL {
		errs = append(errs, errors.New("url_cache.cache_ttl must not exceed url_cache.sign_ttl"))
	}
	return errors.Join(errs...)
}
