// Package redislock implements lock.Locker on Redis with SET NX leases and a
// token-checked release, for deployments whose datastore has no advisory locks.
package redislock

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/phrazzld/boardnotify/internal/lock"
	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces lock keys.
const keyPrefix = "boardnotify:lock:"

// releaseScript deletes the key only when it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker implements lock.Locker on a Redis client. Leases expire after ttl,
// which bounds how long a crashed holder blocks other instances.
type Locker struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

// New creates a Locker on an existing client.
func New(client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *Locker {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Locker{
		client: client,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "redis_locker")),
	}
}

// NewClient parses a redis:// or rediss:// URL and verifies connectivity.
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 2 * time.Second
	opts.WriteTimeout = 2 * time.Second
	opts.MaxRetries = 3

	if opts.TLSConfig == nil && strings.HasPrefix(redisURL, "rediss://") {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Ensure Locker implements lock.Locker interface
var _ lock.Locker = (*Locker)(nil)

// TryAcquire implements lock.Locker.TryAcquire
func (l *Locker) TryAcquire(ctx context.Context, name string) (lock.Lease, bool, error) {
	token, err := gonanoid.New()
	if err != nil {
		return nil, false, fmt.Errorf("generate lock token: %w", err)
	}

	ok, err := l.client.SetNX(ctx, keyPrefix+name, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis set nx %q: %w", name, err)
	}
	if !ok {
		l.logger.Debug("redis lock held elsewhere", slog.String("lock", name))
		return nil, false, nil
	}

	return &lease{locker: l, name: name, token: token}, true, nil
}

type lease struct {
	locker *Locker
	name   string
	token  string

	mu       sync.Mutex
	released bool
}

func (le *lease) Name() string { return le.name }

func (le *lease) Release(ctx context.Context) error {
	le.mu.Lock()
	defer le.mu.Unlock()

	if le.released {
		return lock.ErrNotHeld
	}
	le.released = true

	n, err := releaseScript.Run(ctx, le.locker.client, []string{keyPrefix + le.name}, le.token).Int()
	if err != nil {
		return fmt.Errorf("redis release %q: %w", le.name, err)
	}
	if n == 0 {
		// The lease expired and may now belong to another holder.
		le.locker.logger.Warn("redis lock expired before release", slog.String("lock", le.name))
		return lock.ErrNotHeld
	}
	return nil
}
