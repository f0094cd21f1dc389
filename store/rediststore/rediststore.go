// Package rediststore provides a Redis-backed store.Backend using
// github.com/redis/go-redis/v9, grounded on the teacher's redis package
// (redis/redis.go). The teacher's redis.go itself imports the older
// gomodule/redigo client, but the teacher's own go.mod, its redis_test.go,
// and its examples/redis/main.go all depend on go-redis/v9 instead — this
// package follows go.mod and the majority usage.
package rediststore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds the configuration for creating a Redis-backed Backend,
// mirroring the teacher's redis.Config field-for-field.
type Config struct {
	Address  string
	Password string
	DB       int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	PoolSize int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		PoolSize:     10,
	}
}

// Backend is a store.Backend backed by a Redis server.
type Backend struct {
	client *redis.Client
	prefix string
}

// keyPrefix namespaces keys to avoid collision with unrelated data sharing
// the same Redis keyspace, mirroring the teacher's cacheKey helper.
const keyPrefix = "httpcache:"

func (b *Backend) key(key string) string {
	return b.prefix + key
}

// New establishes a connection pool to Redis and verifies it with a PING,
// mirroring the teacher's New(config).
func New(config Config) (*Backend, error) {
	if config.Address == "" {
		return nil, fmt.Errorf("rediststore: address is required")
	}
	def := DefaultConfig()
	if config.DialTimeout == 0 {
		config.DialTimeout = def.DialTimeout
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = def.ReadTimeout
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = def.WriteTimeout
	}
	if config.PoolSize == 0 {
		config.PoolSize = def.PoolSize
	}

	client := redis.NewClient(&redis.Options{
		Addr:         config.Address,
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		PoolSize:     config.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), config.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("rediststore: failed to connect to redis: %w", err)
	}

	return &Backend{client: client, prefix: keyPrefix}, nil
}

// NewWithClient wraps an already-constructed *redis.Client, for callers
// that manage their own connection lifecycle.
func NewWithClient(client *redis.Client) *Backend {
	return &Backend{client: client, prefix: keyPrefix}
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := b.client.Get(ctx, b.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("rediststore: get %q: %w", key, err)
	}
	return val, true, nil
}

func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	if err := b.client.Set(ctx, b.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("rediststore: set %q: %w", key, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, b.key(key)).Err(); err != nil {
		return fmt.Errorf("rediststore: delete %q: %w", key, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (b *Backend) Close() error {
	return b.client.Close()
}
