package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"busticket/internal/domain"
)

// CacheStore caches bus and route reference data in Redis.
// Seat occupancy is never cached here.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// Cache TTL constants
const (
	BusCacheTTL   = 5 * time.Minute // status changes are explicitly invalidated
	RouteCacheTTL = 2 * time.Minute // includes assignments
)

// Key prefixes
const (
	busCachePrefix   = "cache:bus:"
	routeCachePrefix = "cache:route:"
)

// GetBus retrieves a bus from cache.
func (s *CacheStore) GetBus(ctx context.Context, id int64) (*domain.Bus, error) {
	var bus domain.Bus
	ok, err := s.get(ctx, busKey(id), &bus)
	if err != nil || !ok {
		return nil, err
	}
	return &bus, nil
}

// SetBus stores a bus in cache.
func (s *CacheStore) SetBus(ctx context.Context, bus *domain.Bus) error {
	return s.set(ctx, busKey(bus.ID), bus, BusCacheTTL)
}

// InvalidateBus removes a bus from cache.
func (s *CacheStore) InvalidateBus(ctx context.Context, id int64) error {
	return s.client.Del(ctx, busKey(id)).Err()
}

// GetRoute retrieves a route, with its assignments, from cache.
func (s *CacheStore) GetRoute(ctx context.Context, id int64) (*domain.Route, error) {
	var route domain.Route
	ok, err := s.get(ctx, routeKey(id), &route)
	if err != nil || !ok {
		return nil, err
	}
	return &route, nil
}

// SetRoute stores a route in cache.
func (s *CacheStore) SetRoute(ctx context.Context, route *domain.Route) error {
	return s.set(ctx, routeKey(route.ID), route, RouteCacheTTL)
}

// InvalidateRoute removes a route from cache.
func (s *CacheStore) InvalidateRoute(ctx context.Context, id int64) error {
	return s.client.Del(ctx, routeKey(id)).Err()
}

func (s *CacheStore) get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil // Cache miss
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (s *CacheStore) set(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func busKey(id int64) string   { return busCachePrefix + strconv.FormatInt(id, 10) }
func routeKey(id int64) string { return routeCachePrefix + strconv.FormatInt(id, 10) }
