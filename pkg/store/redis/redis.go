package redis

import (
	"context"
	"fmt"
	"time"

	"solbank/pkg/store"

	"github.com/redis/rueidis"
)

// RedisStore is a Redis-backed implementation of store.Store for deployments
// where the local state must survive process restarts and be shared between
// replicas.
type RedisStore struct {
	client rueidis.Client
	config RedisStoreConfig
}

// RedisStoreConfig holds connection configuration for the Redis backend.
type RedisStoreConfig struct {
	// Addr is the Redis server address, e.g. "localhost:6379".
	Addr      string
	Username  string
	Password  string
	// DB is the Redis database number (0-15).
	DB        int
	KeyPrefix string
	// DialTimeout bounds the initial ping on construction.
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultRedisStoreConfig returns sensible defaults for a local Redis.
func DefaultRedisStoreConfig() RedisStoreConfig {
	return RedisStoreConfig{
		Addr:         "localhost:6379",
		KeyPrefix:    "solbank:",
		DialTimeout:  5 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(config RedisStoreConfig) (*RedisStore, error) {
	if config.Addr == "" {
		return nil, fmt.Errorf("redis: no address configured")
	}
	if config.DialTimeout == 0 {
		config.DialTimeout = 5 * time.Second
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:      []string{config.Addr},
		Username:         config.Username,
		Password:         config.Password,
		SelectDB:         config.DB,
		ConnWriteTimeout: config.WriteTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("redis: failed to create client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.DialTimeout)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: failed to ping server: %w", err)
	}

	return &RedisStore{client: client, config: config}, nil
}

// Get retrieves the raw value stored under key.
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := store.ValidateKey(key); err != nil {
		return nil, err
	}

	cmd := r.client.B().Get().Key(r.config.KeyPrefix + key).Build()
	resp := r.client.Do(ctx, cmd)

	if err := resp.Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, store.ErrKeyNotFound
		}
		return nil, store.WrapError(err, "redis", "get")
	}

	data, err := resp.AsBytes()
	if err != nil {
		return nil, store.WrapError(err, "redis", "get")
	}
	return data, nil
}

// Set stores the raw value under key.
func (r *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}

	cmd := r.client.B().Set().Key(r.config.KeyPrefix + key).Value(string(value)).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return store.WrapError(err, "redis", "set")
	}
	return nil
}

// Delete removes the key. Deleting a missing key is not an error.
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}

	cmd := r.client.B().Del().Key(r.config.KeyPrefix + key).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return store.WrapError(err, "redis", "delete")
	}
	return nil
}

// Keys lists all keys under the configured prefix.
func (r *RedisStore) Keys(ctx context.Context) ([]string, error) {
	cmd := r.client.B().Keys().Pattern(r.config.KeyPrefix + "*").Build()
	resp := r.client.Do(ctx, cmd)

	raw, err := resp.AsStrSlice()
	if err != nil {
		return nil, store.WrapError(err, "redis", "keys")
	}

	keys := make([]string, 0, len(raw))
	prefixLen := len(r.config.KeyPrefix)
	for _, k := range raw {
		if len(k) >= prefixLen {
			keys = append(keys, k[prefixLen:])
		}
	}
	return keys, nil
}

// Name returns the backend identifier.
func (r *RedisStore) Name() string {
	return "redis"
}

// Close releases the client connection.
func (r *RedisStore) Close() error {
	r.client.Close()
	return nil
}
