package blocklist

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/caasmo/gatekeeper/config"
)

// Outcome classifies a completed refresh attempt.
type Outcome string

const (
	OutcomeLoaded  Outcome = "ok"
	OutcomeMissing Outcome = "missing"
	OutcomeFailed  Outcome = "error"
	OutcomeTimeout Outcome = "timeout"
)

// snapshot is never mutated after it is published.
type snapshot struct {
	set         Set
	refreshedAt time.Time
	loaded      bool
}

// Cache holds the current banned IP set and the time it was last refreshed.
// Readers never block: they load the published snapshot. Refresh builds the
// replacement set before taking the swap lock.
type Cache struct {
	current atomic.Pointer[snapshot]

	// swapMu serializes publication so that the missing policy sees a
	// consistent previous snapshot.
	swapMu sync.Mutex

	missingPolicy string
	now           func() time.Time
	logger        *slog.Logger
}

type CacheOption func(*Cache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

// WithMissingPolicy sets config.MissingPolicyKeep or config.MissingPolicyEmpty.
func WithMissingPolicy(policy string) CacheOption {
	return func(c *Cache) {
		c.missingPolicy = policy
	}
}

func WithLogger(logger *slog.Logger) CacheOption {
	return func(c *Cache) {
		c.logger = logger
	}
}

// NewCache returns an empty cache that has never been refreshed, so it is
// stale for any positive TTL.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		missingPolicy: config.MissingPolicyKeep,
		now:           time.Now,
		logger:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.current.Store(&snapshot{})
	return c
}

func (c *Cache) Contains(ip string) bool {
	return c.current.Load().set.Contains(ip)
}

func (c *Cache) Len() int {
	return c.current.Load().set.Len()
}

// RefreshedAt is the zero time until the first refresh completes.
func (c *Cache) RefreshedAt() time.Time {
	return c.current.Load().refreshedAt
}

// Loaded reports whether a set was ever read successfully from a source.
func (c *Cache) Loaded() bool {
	return c.current.Load().loaded
}

// Snapshot returns the current set. The set is immutable and can be kept.
func (c *Cache) Snapshot() Set {
	return c.current.Load().set
}

// IsStale reports whether the last refresh is at least ttl old.
func (c *Cache) IsStale(ttl time.Duration) bool {
	return c.now().Sub(c.current.Load().refreshedAt) >= ttl
}

// Refresh reads src and replaces the set.
//
// A missing source is not an error: the refresh time advances and the set is
// kept or cleared according to the missing policy. Any other failure leaves
// both the set and the refresh time untouched, so the next request retries.
func (c *Cache) Refresh(ctx context.Context, src Source) (Outcome, error) {
	set, err := src.Load(ctx)

	switch {
	case err == nil:
		c.publish(func(prev *snapshot) *snapshot {
			return &snapshot{set: set, refreshedAt: c.now(), loaded: true}
		})
		return OutcomeLoaded, nil

	case errors.Is(err, ErrSourceMissing):
		c.publish(func(prev *snapshot) *snapshot {
			next := &snapshot{refreshedAt: c.now()}
			if c.missingPolicy != config.MissingPolicyEmpty {
				next.set = prev.set
				next.loaded = prev.loaded
			}
			return next
		})
		c.logger.Warn("banned IPs source not found",
			"source", src.String(),
			"policy", c.missingPolicy,
			"entries", c.Len())
		return OutcomeMissing, nil

	case errors.Is(err, ErrRefreshTimeout), errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout, err

	default:
		return OutcomeFailed, err
	}
}

func (c *Cache) publish(next func(prev *snapshot) *snapshot) {
	c.swapMu.Lock()
	defer c.swapMu.Unlock()
	c.current.Store(next(c.current.Load()))
}
