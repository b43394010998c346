// Package redisstore implements storage.Store on Redis, for deployments where
// the client state has to survive process moves (e.g. server-rendered
// dashboards keeping per-user session snapshots).
package redisstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/agiworkforce/go-auth-client/storage"
)

var _ storage.Store = (*RedisStore)(nil)

type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration // 0 means no expiry
}

// Option configures a RedisStore.
type Option func(*RedisStore)

// WithTTL expires stored blobs after d. Useful when blobs hold session tokens
// whose server-side lifetime is bounded anyway.
func WithTTL(d time.Duration) Option {
	return func(rs *RedisStore) { rs.ttl = d }
}

// WithPrefix namespaces all keys, e.g. per user or per tenant.
func WithPrefix(prefix string) Option {
	return func(rs *RedisStore) { rs.prefix = prefix }
}

// New creates a RedisStore over an existing client.
func New(client *redis.Client, options ...Option) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("[redisstore.New] client is required")
	}
	rs := &RedisStore{client: client}
	for _, opt := range options {
		opt(rs)
	}
	return rs, nil
}

func (rs *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	blob, err := rs.client.Get(ctx, rs.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[RedisStore.Get] Get")
	}
	return blob, nil
}

func (rs *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	if err := rs.client.Set(ctx, rs.prefix+key, value, rs.ttl).Err(); err != nil {
		return errors.Wrap(err, "[RedisStore.Put] Set")
	}
	return nil
}

func (rs *RedisStore) Delete(ctx context.Context, key string) error {
	if err := rs.client.Del(ctx, rs.prefix+key).Err(); err != nil {
		return errors.Wrap(err, "[RedisStore.Delete] Del")
	}
	return nil
}
