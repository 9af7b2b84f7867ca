// Package assets stores interview recordings and hands out locations the
// media tools can read: local paths for the filesystem backend, short-lived
// signed URLs for object storage.
package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when no object exists for a key.
var ErrNotFound = errors.New("asset not found")

// Source is a recording store.
type Source interface {
	// Locate returns a path or URL ffmpeg can open for key.
	Locate(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
	// Delete is idempotent.
	Delete(ctx context.Context, key string) error
}

// FileSource keeps recordings under a local directory.
type FileSource struct {
	baseDir string
}

// NewFileSource creates baseDir if needed.
func NewFileSource(baseDir string) (*FileSource, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to ensure asset dir: %w", err)
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve asset dir: %w", err)
	}
	return &FileSource{baseDir: abs}, nil
}

func (s *FileSource) path(key string) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(key)), nil
}

func (s *FileSource) Locate(ctx context.Context, key string) (string, error) {
	p, err := s.path(key)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(p); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return "", fmt.Errorf("stat asset %s: %w", key, err)
	}
	return p, nil
}

// Put writes through a temp file and renames, so readers never see a
// partial recording.
func (s *FileSource) Put(ctx context.Context, key string, data []byte, contentType string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return fmt.Errorf("failed to ensure asset dir: %w", err)
	}
	tmp := p + ".partial"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write asset: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to commit asset: %w", err)
	}
	return nil
}

func (s *FileSource) Exists(ctx context.Context, key string) (bool, error) {
	p, err := s.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (s *FileSource) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	return nil
}

// validKey rejects keys that would escape the store root.
func validKey(key string) error {
	if key == "" {
		return errors.New("empty asset key")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("invalid asset key %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." || part == "" {
			return fmt.Errorf("invalid asset key %q", key)
		}
	}
	return nil
}
