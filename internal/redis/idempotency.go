package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyPrefix = "idempotency:"

	// IdempotencyTTL is how long a captured response is replayed.
	IdempotencyTTL = 24 * time.Hour

	// inFlightTTL bounds how long a crashed request can hold its key.
	inFlightTTL = 30 * time.Second
)

// IdempotencyStore keeps captured responses of mutating requests keyed by
// their Idempotency-Key header, and marks keys whose request is still running.
type IdempotencyStore struct {
	client *redis.Client
	locks  *LockStore
	ttl    time.Duration
}

// NewIdempotencyStore creates a new IdempotencyStore.
func NewIdempotencyStore(client *redis.Client, locks *LockStore) *IdempotencyStore {
	return &IdempotencyStore{client: client, locks: locks, ttl: IdempotencyTTL}
}

// Get returns the stored response, or nil when the key has not been seen.
func (s *IdempotencyStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, idempotencyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return data, err
}

// Set stores a response for the configured TTL.
func (s *IdempotencyStore) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, idempotencyPrefix+key, value, s.ttl).Err()
}

// Begin marks key as in flight. It returns false when another request holds it.
func (s *IdempotencyStore) Begin(ctx context.Context, key string) (bool, error) {
	return s.locks.Acquire(ctx, idempotencyPrefix+key, inFlightTTL)
}

// End clears the in-flight mark of key.
func (s *IdempotencyStore) End(ctx context.Context, key string) error {
	return s.locks.Release(ctx, idempotencyPrefix+key)
}
