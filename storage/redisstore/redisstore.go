// Package redisstore is a storage backend over redis strings, for
// deployments whose ephemeral tier lives out of process.
package redisstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/merchantdash/go-session-client/storage"
)

var _ storage.Backend = (*Store)(nil)

// Store keeps entries as redis string values under a common key prefix.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Option modifies a Store.
type Option func(*Store)

// WithPrefix sets the key prefix (default "session:").
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithTTL applies an expiry to every written entry. Zero means no expiry.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// New creates a Store over an existing redis client.
func New(client *redis.Client, options ...Option) (*Store, error) {
	if client == nil {
		return nil, errors.New("[redisstore.New] client is required")
	}
	store := &Store{client: client, prefix: "session:"}
	for _, opt := range options {
		opt(store)
	}
	return store, nil
}

func (s *Store) key(key string) string {
	return s.prefix + key
}

func (s *Store) Get(key string) (string, error) {
	value, err := s.client.Get(context.Background(), s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", errors.Wrap(err, "[Store.Get] redis get")
	}
	return value, nil
}

func (s *Store) Set(key, value string) error {
	if err := s.client.Set(context.Background(), s.key(key), value, s.ttl).Err(); err != nil {
		return errors.Wrap(err, "[Store.Set] redis set")
	}
	return nil
}

func (s *Store) Delete(key string) error {
	if err := s.client.Del(context.Background(), s.key(key)).Err(); err != nil {
		return errors.Wrap(err, "[Store.Delete] redis del")
	}
	return nil
}
