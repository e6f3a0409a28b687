// Package runlock guards the one-active-run-per-session rule.
package runlock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrHeld is returned when another holder owns the lock.
var ErrHeld = errors.New("run lock held")

// Release gives the lock back. It is safe to call more than once.
type Release func(ctx context.Context) error

// Guard hands out a single exclusive run slot per key.
type Guard interface {
	TryAcquire(ctx context.Context, key string) (Release, error)
}

// Local is an in-process guard.
type Local struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocal() *Local {
	return &Local{held: make(map[string]struct{})}
}

// TryAcquire never blocks; it fails with ErrHeld when key is taken.
func (l *Local) TryAcquire(_ context.Context, key string) (Release, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		return nil, fmt.Errorf("%w: %s", ErrHeld, key)
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
		return nil
	}, nil
}

// releaseScript deletes the key only if we still own it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a guard shared by every simulator instance pointing at the same
// Redis. The TTL bounds how long a crashed holder can block others.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if prefix == "" {
		prefix = "breachsim:runlock:"
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) TryAcquire(ctx context.Context, key string) (Release, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	full := r.prefix + key

	ok, err := r.client.SetNX(ctx, full, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHeld, key)
	}

	var once sync.Once
	return func(ctx context.Context) error {
		var relErr error
		once.Do(func() {
			if err := releaseScript.Run(ctx, r.client, []string{full}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
				relErr = fmt.Errorf("failed to release run lock: %w", err)
			}
		})
		return relErr
	}, nil
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

var (
	_ Guard = (*Local)(nil)
	_ Guard = (*Redis)(nil)
)
