package price

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeSource struct {
	price float64
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) FetchPrice(context.Context) (float64, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.price, f.err
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type outcomes struct {
	mu   sync.Mutex
	seen []string
}

func (o *outcomes) ObservePriceLookup(outcome string) {
	o.mu.Lock()
	o.seen = append(o.seen, outcome)
	o.mu.Unlock()
}

func TestCache_TTL(t *testing.T) {
	src := &fakeSource{price: 3000}
	clock := &fakeClock{now: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	rec := &outcomes{}
	c := NewCache(src, discard, WithClock(clock.Now), WithRecorder(rec))

	assert.Equal(t, 3000.0, c.Price(context.Background()))

	src.price = 3100
	clock.Advance(299 * time.Second)
	assert.Equal(t, 3000.0, c.Price(context.Background()), "served from cache inside ttl")

	clock.Advance(time.Second)
	assert.Equal(t, 3100.0, c.Price(context.Background()), "refreshed at ttl")

	assert.EqualValues(t, 2, src.calls.Load())
	assert.Equal(t, []string{"refresh", "hit", "refresh"}, rec.seen)
}

func TestCache_FallbackDoesNotUpdateCache(t *testing.T) {
	tests := []struct {
		name  string
		price float64
		err   error
	}{
		{"source error", 0, errors.New("503")},
		{"zero price", 0, nil},
		{"negative price", -1, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{price: tt.price, err: tt.err}
			clock := &fakeClock{now: time.Now()}
			c := NewCache(src, discard, WithClock(clock.Now))

			assert.Equal(t, DefaultFallback, c.Price(context.Background()))
			// 下一次调用必须重新请求, 而不是缓存 fallback
			assert.Equal(t, DefaultFallback, c.Price(context.Background()))
			assert.EqualValues(t, 2, src.calls.Load())

			src.price, src.err = 2900, nil
			assert.Equal(t, 2900.0, c.Price(context.Background()))
		})
	}
}

func TestCache_CustomFallbackAndTTL(t *testing.T) {
	src := &fakeSource{err: errors.New("down")}
	c := NewCache(src, discard, WithFallback(1800), WithTTL(time.Minute))
	assert.Equal(t, 1800.0, c.Price(context.Background()))
	assert.Equal(t, time.Minute, c.ttl)

	// 非法值保持默认
	d := NewCache(src, discard, WithFallback(0), WithTTL(-time.Second))
	assert.Equal(t, DefaultFallback, d.fallback)
	assert.Equal(t, DefaultTTL, d.ttl)
}

func TestCache_ConcurrentMissesFetchOnce(t *testing.T) {
	src := &fakeSource{price: 3000, delay: 20 * time.Millisecond}
	c := NewCache(src, discard)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, 3000.0, c.Price(context.Background()))
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, src.calls.Load())
}

// memStore expires its value on the given clock, like a Redis key with a TTL.
type memStore struct {
	mu        sync.Mutex
	now       func() time.Time
	price     float64
	expiresAt time.Time
	getErr    error
	sets      int
}

func newMemStore(now func() time.Time) *memStore {
	if now == nil {
		now = time.Now
	}
	return &memStore{now: now}
}

func (m *memStore) Get(context.Context) (SharedQuote, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return SharedQuote{}, false, m.getErr
	}
	remaining := m.expiresAt.Sub(m.now())
	if remaining <= 0 {
		return SharedQuote{}, false, nil
	}
	return SharedQuote{Price: m.price, Remaining: remaining}, true, nil
}

func (m *memStore) Set(_ context.Context, p float64, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.price = p
	m.expiresAt = m.now().Add(ttl)
	m.sets++
	return nil
}

func TestCache_SharedStore(t *testing.T) {
	t.Run("shared hit skips the source", func(t *testing.T) {
		src := &fakeSource{price: 3000}
		store := newMemStore(nil)
		require.NoError(t, store.Set(context.Background(), 3050, time.Minute))
		store.sets = 0
		rec := &outcomes{}
		c := NewCache(src, discard, WithSharedStore(store), WithRecorder(rec))

		assert.Equal(t, 3050.0, c.Price(context.Background()))
		assert.Equal(t, 3050.0, c.Price(context.Background()))
		assert.EqualValues(t, 0, src.calls.Load())
		assert.Equal(t, []string{"shared_hit", "hit"}, rec.seen)
	})

	t.Run("miss writes through", func(t *testing.T) {
		src := &fakeSource{price: 3000}
		store := newMemStore(nil)
		c := NewCache(src, discard, WithSharedStore(store))

		assert.Equal(t, 3000.0, c.Price(context.Background()))
		assert.Equal(t, 1, store.sets)
		assert.Equal(t, 3000.0, store.price)
	})

	t.Run("store error falls through to source", func(t *testing.T) {
		src := &fakeSource{price: 3000}
		store := newMemStore(nil)
		store.getErr = errors.New("connection refused")
		c := NewCache(src, discard, WithSharedStore(store))

		assert.Equal(t, 3000.0, c.Price(context.Background()))
		assert.EqualValues(t, 1, src.calls.Load())
	})

	t.Run("fallback is never shared", func(t *testing.T) {
		src := &fakeSource{err: errors.New("down")}
		store := newMemStore(nil)
		c := NewCache(src, discard, WithSharedStore(store))

		require.Equal(t, DefaultFallback, c.Price(context.Background()))
		assert.Equal(t, 0, store.sets)
	})
}

func TestCache_SharedHitKeepsPriceAge(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	store := newMemStore(clock.Now)

	srcA := &fakeSource{price: 3000}
	replicaA := NewCache(srcA, discard, WithClock(clock.Now), WithSharedStore(store))
	srcB := &fakeSource{price: 3500}
	replicaB := NewCache(srcB, discard, WithClock(clock.Now), WithSharedStore(store))

	assert.Equal(t, 3000.0, replicaA.Price(context.Background()))

	clock.Advance(299 * time.Second)
	assert.Equal(t, 3000.0, replicaB.Price(context.Background()), "shared hit inside ttl")
	assert.EqualValues(t, 0, srcB.calls.Load())

	// A 在 t=0 取到的价格到 t=300 过期, B 不能再用
	clock.Advance(time.Second)
	assert.Equal(t, 3500.0, replicaB.Price(context.Background()))
	assert.EqualValues(t, 1, srcB.calls.Load())
}
