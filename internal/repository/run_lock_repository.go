package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RunLockRepository provides a named mutual-exclusion lease, used so two
// triggers of the daily ROI run cannot process the same day at once.
type RunLockRepository interface {
	// Acquire takes the lease for ttl. It returns a release func when the
	// lease was taken and (nil, nil) when someone else holds it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, error)
}

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisRunLockRepository struct {
	client *redis.Client
}

// NewRedisRunLockRepository creates a lease store shared by every process
// pointing at the same Redis.
func NewRedisRunLockRepository(client *redis.Client) RunLockRepository {
	return &redisRunLockRepository{client: client}
}

func (r *redisRunLockRepository) Acquire(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, error) {
	key := fmt.Sprintf("lock:%s", name)
	token := uuid.New().String()

	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, nil
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, r.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
			return fmt.Errorf("failed to release lock %s: %w", name, err)
		}
		return nil
	}, nil
}

type localRunLockRepository struct {
	mu    sync.Mutex
	held  map[string]time.Time
	clock func() time.Time
}

// NewLocalRunLockRepository is the in-process fallback when Redis is not
// configured.
func NewLocalRunLockRepository() RunLockRepository {
	return &localRunLockRepository{held: make(map[string]time.Time), clock: time.Now}
}

func (r *localRunLockRepository) Acquire(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock()
	if expires, ok := r.held[name]; ok && now.Before(expires) {
		return nil, nil
	}
	expires := now.Add(ttl)
	r.held[name] = expires

	return func(context.Context) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.held[name].Equal(expires) {
			delete(r.held, name)
		}
		return nil
	}, nil
}
