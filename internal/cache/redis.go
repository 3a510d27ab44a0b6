package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gomodule/redigo/redis"

	"github.com/paperscope/paperscope/pkg/models"
)

const redisKeyPrefix = "paperscope:discovery:"

// RedisStore persists results in Redis. Expiry is delegated to the
// server via PX, so Prune has nothing to do.
type RedisStore struct {
	pool *redis.Pool
}

// RedisConfig holds Redis store configuration.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	MaxIdle  int
}

// NewRedisStore creates a pooled Redis client and verifies connectivity.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	maxIdle := cfg.MaxIdle
	if maxIdle <= 0 {
		maxIdle = 5
	}

	pool := &redis.Pool{
		MaxIdle:     maxIdle,
		IdleTimeout: 5 * time.Minute,
		Dial: func() (redis.Conn, error) {
			opts := []redis.DialOption{redis.DialDatabase(cfg.DB)}
			if cfg.Password != "" {
				opts = append(opts, redis.DialPassword(cfg.Password))
			}
			return redis.Dial("tcp", cfg.Address, opts...)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}

	conn := pool.Get()
	defer conn.Close()
	if _, err := conn.Do("PING"); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisStore{pool: pool}, nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) (*models.UnifiedDiscoveryResult, bool, error) {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("redis conn: %w", err)
	}
	defer conn.Close()

	payload, err := redis.Bytes(redis.DoContext(conn, ctx, "GET", redisKeyPrefix+key))
	if errors.Is(err, redis.ErrNil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	var result models.UnifiedDiscoveryResult
	if err := json.Unmarshal(payload, &result); err != nil {
		_, _ = redis.DoContext(conn, ctx, "DEL", redisKeyPrefix+key)
		return nil, false, nil
	}
	return &result, true, nil
}

// Put implements Store.
func (s *RedisStore) Put(ctx context.Context, key string, result *models.UnifiedDiscoveryResult, ttl time.Duration) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("redis conn: %w", err)
	}
	defer conn.Close()

	if _, err := redis.DoContext(conn, ctx, "SET", redisKeyPrefix+key, payload, "PX", ttl.Milliseconds()); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("redis conn: %w", err)
	}
	defer conn.Close()

	if _, err := redis.DoContext(conn, ctx, "DEL", redisKeyPrefix+key); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// Prune implements Store.
func (s *RedisStore) Prune(ctx context.Context) (int, error) {
	return 0, nil
}

// Close closes the connection pool.
func (s *RedisStore) Close() error {
	return s.pool.Close()
}
