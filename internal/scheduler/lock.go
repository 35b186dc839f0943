package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker guards a job so only one replica runs it per tick. Release must be
// called when Acquire reports true.
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name string) error
}

// releaseScript deletes the key only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisLocker struct {
	client *redis.Client
	prefix string
	owner  string
}

func NewRedisLocker(client *redis.Client, prefix string) Locker {
	return &redisLocker{client: client, prefix: prefix, owner: uuid.NewString()}
}

// NewRedisClient parses a redis:// URL and verifies the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (l *redisLocker) key(name string) string {
	return l.prefix + ":lock:" + name
}

func (l *redisLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key(name), l.owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	return ok, nil
}

func (l *redisLocker) Release(ctx context.Context, name string) error {
	err := releaseScript.Run(ctx, l.client, []string{l.key(name)}, l.owner).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to release lock %s: %w", name, err)
	}
	return nil
}

// localLocker is used when no redis is configured; a single replica owns
// every job.
type localLocker struct{}

func NewLocalLocker() Locker { return localLocker{} }

func (localLocker) Acquire(context.Context, string, time.Duration) (bool, error) { return true, nil }

func (localLocker) Release(context.Context, string) error { return nil }
