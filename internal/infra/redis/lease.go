package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLeaseHeld is returned when another instance owns the writer lease.
var ErrLeaseHeld = errors.New("writer lease held by another instance")

// ErrLeaseLost is returned by Keep when the lease expired or was taken over.
var ErrLeaseLost = errors.New("writer lease lost")

// Token-checked refresh and release, so a lease that expired and was
// re-acquired elsewhere is never touched by its previous holder.
var (
	refreshScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("pexpire", KEYS[1], ARGV[2])
		end
		return 0
	`)
	releaseScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		end
		return 0
	`)
)

func leaseKey(namespace string) string {
	return fmt.Sprintf("syncer:lease:%s", namespace)
}

// Lease is an exclusive writer lease for one storage namespace. The store's
// gapless and monotonic guarantees assume a single writer; the lease turns
// an accidental second instance into a startup failure instead of silent
// corruption.
type Lease struct {
	rdb   *redis.Client
	key   string
	token string
	ttl   time.Duration
	log   *slog.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

// AcquireLease claims the namespace for this instance, or fails with
// ErrLeaseHeld if another holder exists.
func (c *Client) AcquireLease(ctx context.Context, namespace string, ttl time.Duration) (*Lease, error) {
	key := leaseKey(namespace)
	token := uuid.New().String()

	ok, err := c.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lease %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLeaseHeld, key)
	}

	return &Lease{
		rdb:   c.rdb,
		key:   key,
		token: token,
		ttl:   ttl,
		log:   slog.With("component", "lease", "key", key),
		stop:  make(chan struct{}),
	}, nil
}

// Keep refreshes the lease every third of its TTL until the context ends or
// Release is called. Returns ErrLeaseLost if the refresh finds the lease
// gone; the caller should shut the writer down.
func (l *Lease) Keep(ctx context.Context) error {
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-l.stop:
			return nil
		case <-ticker.C:
			kept, err := refreshScript.Run(ctx, l.rdb,
				[]string{l.key}, l.token, l.ttl.Milliseconds()).Int()
			if err != nil {
				l.log.Error("lease refresh failed", "error", err)
				continue
			}
			if kept == 0 {
				return fmt.Errorf("%w: %s", ErrLeaseLost, l.key)
			}
		}
	}
}

// Release gives the lease up if this instance still holds it.
func (l *Lease) Release(ctx context.Context) error {
	l.stopOnce.Do(func() { close(l.stop) })
	if err := releaseScript.Run(ctx, l.rdb, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("release lease %s: %w", l.key, err)
	}
	return nil
}
