package price

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKey = "price:eth_usd"

// RedisStore shares the last good price between replicas.
type RedisStore struct {
	client redis.Cmdable
	key    string
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{
		client: client,
		key:    defaultRedisKey,
	}
}

// DialRedis parses url and verifies the connection.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

// Get returns the shared price and the key's remaining TTL. A key without a
// positive TTL is treated as missing.
func (s *RedisStore) Get(ctx context.Context) (SharedQuote, bool, error) {
	raw, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return SharedQuote{}, false, nil
	}
	if err != nil {
		return SharedQuote{}, false, fmt.Errorf("redis GET failed: %w", err)
	}

	p, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return SharedQuote{}, false, fmt.Errorf("invalid cached price %q: %w", raw, err)
	}

	remaining, err := s.client.PTTL(ctx, s.key).Result()
	if err != nil {
		return SharedQuote{}, false, fmt.Errorf("redis PTTL failed: %w", err)
	}
	// -1 没有过期时间, -2 键已过期
	if remaining <= 0 {
		return SharedQuote{}, false, nil
	}

	return SharedQuote{Price: p, Remaining: remaining}, true, nil
}

func (s *RedisStore) Set(ctx context.Context, price float64, ttl time.Duration) error {
	v := strconv.FormatFloat(price, 'f', -1, 64)
	if err := s.client.Set(ctx, s.key, v, ttl).Err(); err != nil {
		return fmt.Errorf("redis SET failed: %w", err)
	}
	return nil
}
