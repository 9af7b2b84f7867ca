package assets

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leobarcove/true-claim-insight/pkg/config"
)

func TestFileSource_Lifecycle(t *testing.T) {
	ctx := context.Background()
	src, err := NewFileSource(t.TempDir())
	require.NoError(t, err)

	_, err = src.Locate(ctx, "claims/c1/interview.mp4")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, src.Put(ctx, "claims/c1/interview.mp4", []byte("video"), "video/mp4"))
	ok, err := src.Exists(ctx, "claims/c1/interview.mp4")
	require.NoError(t, err)
	assert.True(t, ok)

	loc, err := src.Locate(ctx, "claims/c1/interview.mp4")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(loc))

	require.NoError(t, src.Delete(ctx, "claims/c1/interview.mp4"))
	require.NoError(t, src.Delete(ctx, "claims/c1/interview.mp4"), "delete is idempotent")
	ok, _ = src.Exists(ctx, "claims/c1/interview.mp4")
	assert.False(t, ok)
}

func TestFileSource_RejectsEscapingKeys(t *testing.T) {
	src, err := NewFileSource(t.TempDir())
	require.NoError(t, err)
	for _, key := range []string{"", "../etc/passwd", "/abs", "a//b", `a\b`, "a/./b"} {
		err := src.Put(context.Background(), key, nil, "")
		assert.Error(t, err, key)
	}
}

type countingSource struct {
	Source
	calls atomic.Int32
	err   error
}

func (s *countingSource) Locate(ctx context.Context, key string) (string, error) {
	s.calls.Add(1)
	time.Sleep(5 * time.Millisecond)
	if s.err != nil {
		return "", s.err
	}
	return "https://signed/" + key, nil
}

func (s *countingSource) Delete(ctx context.Context, key string) error { return nil }

func TestCachingSource_ReusesURLUntilExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(0, 0)
	cache := NewMemoryURLCache()
	cache.now = func() time.Time { return now }
	inner := &countingSource{}
	src := NewCachingSource(inner, cache, 50*time.Minute)

	u1, err := src.Locate(ctx, "a.mp4")
	require.NoError(t, err)
	u2, err := src.Locate(ctx, "a.mp4")
	require.NoError(t, err)
	assert.Equal(t, u1, u2)
	assert.Equal(t, int32(1), inner.calls.Load())

	now = now.Add(50 * time.Minute)
	_, err = src.Locate(ctx, "a.mp4")
	require.NoError(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestCachingSource_CollapsesConcurrentLookups(t *testing.T) {
	inner := &countingSource{}
	src := NewCachingSource(inner, NewMemoryURLCache(), time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = src.Locate(context.Background(), "a.mp4")
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, inner.calls.Load(), int32(2))
}

func TestCachingSource_ErrorsAreNotCached(t *testing.T) {
	inner := &countingSource{err: errors.New("denied")}
	src := NewCachingSource(inner, NewMemoryURLCache(), time.Minute)

	_, err := src.Locate(context.Background(), "a.mp4")
	require.Error(t, err)
	_, err = src.Locate(context.Background(), "a.mp4")
	require.Error(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestCachingSource_DeleteForgetsURL(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryURLCache()
	src := NewCachingSource(&countingSource{}, cache, time.Minute)
	_, err := src.Locate(ctx, "a.mp4")
	require.NoError(t, err)

	require.NoError(t, src.Delete(ctx, "a.mp4"))
	_, ok := cache.Get(ctx, "a.mp4")
	assert.False(t, ok)
}

func TestNewSourceFromConfig(t *testing.T) {
	ctx := context.Background()

	src, err := NewSourceFromConfig(ctx, &config.Config{AssetStorageType: "fs", DataDir: t.TempDir()}, time.Hour)
	require.NoError(t, err)
	assert.IsType(t, &FileSource{}, src)

	_, err = NewSourceFromConfig(ctx, &config.Config{AssetStorageType: "s3"}, time.Hour)
	assert.ErrorContains(t, err, "ASSET_S3_BUCKET")

	_, err = NewSourceFromConfig(ctx, &config.Config{AssetStorageType: "gcs"}, time.Hour)
	assert.ErrorContains(t, err, "ASSET_GCS_BUCKET")

	_, err = NewSourceFromConfig(ctx, &config.Config{AssetStorageType: "ftp"}, time.Hour)
	assert.ErrorContains(t, err, "unsupported")
}

// Requires a running Redis; skipped otherwise.
func TestRedisURLCache_Integration(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Skipping Redis integration test: redis not available")
	}
	t.Cleanup(func() { _ = client.Close() })

	cache := NewRedisURLCache(client)
	cache.Set(ctx, "it.mp4", "https://signed/it.mp4", time.Minute)
	v, ok := cache.Get(ctx, "it.mp4")
	assert.True(t, ok)
	assert.Equal(t, "https://signed/it.mp4", v)

	cache.Forget(ctx, "it.mp4")
	_, ok = cache.Get(ctx, "it.mp4")
	assert.False(t, ok)
}
