package segment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Coordinator claims a window across service instances. The in-process
// dedup map covers a single instance; a Coordinator extends it.
type Coordinator interface {
	// Acquire returns false when another holder owns key.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// releaseScript deletes the lock only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisCoordinator holds window claims as SET NX keys with a TTL.
type RedisCoordinator struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisCoordinator wraps an existing client.
func NewRedisCoordinator(client redis.UniversalClient) *RedisCoordinator {
	return &RedisCoordinator{client: client, prefix: "segment-lock:"}
}

func (c *RedisCoordinator) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()
	k := c.prefix + key
	ok, err := c.client.SetNX(ctx, k, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		// released even after ctx is done
		_ = releaseScript.Run(context.WithoutCancel(ctx), c.client, []string{k}, token).Err()
	}
	return release, true, nil
}
