//go:build gcp

package assets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
)

// GCSSource keeps recordings in a GCS bucket and signs V4 URLs for readers.
type GCSSource struct {
	client  *storage.Client
	bucket  string
	prefix  string
	signTTL time.Duration
}

// GCSSourceConfig holds configuration for GCSSource.
type GCSSourceConfig struct {
	Bucket  string
	Prefix  string
	SignTTL time.Duration
}

// NewGCSSource uses application default credentials.
func NewGCSSource(ctx context.Context, cfg GCSSourceConfig) (*GCSSource, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	if cfg.SignTTL <= 0 {
		cfg.SignTTL = time.Hour
	}
	return &GCSSource{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, signTTL: cfg.SignTTL}, nil
}

func (s *GCSSource) object(key string) (*storage.ObjectHandle, string, error) {
	if err := validKey(key); err != nil {
		return nil, "", err
	}
	name := s.prefix + key
	return s.client.Bucket(s.bucket).Object(name), name, nil
}

func (s *GCSSource) Locate(ctx context.Context, key string) (string, error) {
	_, name, err := s.object(key)
	if err != nil {
		return "", err
	}
	u, err := s.client.Bucket(s.bucket).SignedURL(name, &storage.SignedURLOptions{
		Method:  "GET",
		Expires: time.Now().Add(s.signTTL),
		Scheme:  storage.SigningSchemeV4,
	})
	if err != nil {
		return "", fmt.Errorf("gcs sign failed for %s: %w", key, err)
	}
	return u, nil
}

func (s *GCSSource) Put(ctx context.Context, key string, data []byte, contentType string) error {
	obj, _, err := s.object(key)
	if err != nil {
		return err
	}
	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs close failed: %w", err)
	}
	return nil
}

func (s *GCSSource) Exists(ctx context.Context, key string) (bool, error) {
	obj, _, err := s.object(key)
	if err != nil {
		return false, err
	}
	if _, err := obj.Attrs(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("gcs attrs error: %w", err)
	}
	return true, nil
}

func (s *GCSSource) Delete(ctx context.Context, key string) error {
	obj, _, err := s.object(key)
	if err != nil {
		return err
	}
	if err := obj.Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("gcs delete failed for %s: %w", key, err)
	}
	return nil
}

// Close closes the GCS client.
func (s *GCSSource) Close() error {
	return s.client.Close()
}
