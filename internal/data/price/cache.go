package price

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/songzhibin97/prospector/internal/data"
)

const (
	DefaultTTL      = 300 * time.Second
	DefaultFallback = 2500.0
)

// SharedQuote is a price read from the shared tier together with how long it
// stays fresh.
type SharedQuote struct {
	Price     float64
	Remaining time.Duration
}

// SharedStore is an optional second cache tier shared between replicas.
type SharedStore interface {
	Get(ctx context.Context) (SharedQuote, bool, error)
	Set(ctx context.Context, price float64, ttl time.Duration) error
}

// Recorder receives cache outcomes: hit, shared_hit, refresh, fallback.
type Recorder interface {
	ObservePriceLookup(outcome string)
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithFallback(p float64) CacheOption {
	return func(c *Cache) {
		if p > 0 {
			c.fallback = p
		}
	}
}

func WithSharedStore(s SharedStore) CacheOption {
	return func(c *Cache) { c.shared = s }
}

func WithRecorder(r Recorder) CacheOption {
	return func(c *Cache) { c.recorder = r }
}

// Cache holds the last good price for ttl. A failed refresh returns the
// fallback price and leaves the cache untouched, so the next call retries.
type Cache struct {
	source   Source
	shared   SharedStore
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
	ttl      time.Duration
	fallback float64

	mu        sync.Mutex
	value     float64
	expiresAt time.Time
}

var _ data.PriceFeed = (*Cache)(nil)

func NewCache(source Source, logger *slog.Logger, opts ...CacheOption) *Cache {
	c := &Cache{
		source:   source,
		logger:   logger.With("component", "price_cache"),
		now:      time.Now,
		ttl:      DefaultTTL,
		fallback: DefaultFallback,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Price implements data.PriceFeed. The lock is held across the refresh so
// concurrent misses produce a single upstream call.
func (c *Cache) Price(ctx context.Context) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if !c.expiresAt.IsZero() && now.Before(c.expiresAt) {
		c.record("hit")
		return c.value
	}

	if c.shared != nil {
		q, ok, err := c.shared.Get(ctx)
		if err != nil {
			c.logger.Warn("shared price store read failed", "error", err)
		} else if ok && q.Price > 0 && q.Remaining > 0 {
			// 只保留共享层剩余的有效期, 价格年龄不超过 ttl
			c.value = q.Price
			c.expiresAt = now.Add(min(q.Remaining, c.ttl))
			c.record("shared_hit")
			return q.Price
		}
	}

	p, err := c.source.FetchPrice(ctx)
	if err != nil || p <= 0 {
		c.logger.Warn("using fallback eth price", "fallback", c.fallback, "error", err)
		c.record("fallback")
		return c.fallback
	}

	c.store(p, now)
	c.record("refresh")

	if c.shared != nil {
		if err := c.shared.Set(ctx, p, c.ttl); err != nil {
			c.logger.Warn("shared price store write failed", "error", err)
		}
	}

	return p
}

func (c *Cache) store(p float64, now time.Time) {
	c.value = p
	c.expiresAt = now.Add(c.ttl)
}

func (c *Cache) record(outcome string) {
	if c.recorder != nil {
		c.recorder.ObservePriceLookup(outcome)
	}
}
