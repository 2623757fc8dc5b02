package redis

import (
	"context"

	"busticket/internal/domain"
)

// ReferenceCache caches bus and route reads. A miss is reported as (nil, nil).
type ReferenceCache interface {
	GetBus(ctx context.Context, id int64) (*domain.Bus, error)
	SetBus(ctx context.Context, bus *domain.Bus) error
	InvalidateBus(ctx context.Context, id int64) error
	GetRoute(ctx context.Context, id int64) (*domain.Route, error)
	SetRoute(ctx context.Context, route *domain.Route) error
	InvalidateRoute(ctx context.Context, id int64) error
}

// IdempotencyStoreInterface defines the storage used by the idempotency middleware.
// Get returns (nil, nil) when the key is absent. Begin reports false while
// another request with the same key is still running.
type IdempotencyStoreInterface interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Begin(ctx context.Context, key string) (bool, error)
	End(ctx context.Context, key string) error
}

// NopCache is a ReferenceCache that never hits.
type NopCache struct{}

func (NopCache) GetBus(context.Context, int64) (*domain.Bus, error)     { return nil, nil }
func (NopCache) SetBus(context.Context, *domain.Bus) error              { return nil }
func (NopCache) InvalidateBus(context.Context, int64) error             { return nil }
func (NopCache) GetRoute(context.Context, int64) (*domain.Route, error) { return nil, nil }
func (NopCache) SetRoute(context.Context, *domain.Route) error          { return nil }
func (NopCache) InvalidateRoute(context.Context, int64) error           { return nil }

// Ensure concrete types implement interfaces.
var (
	_ ReferenceCache            = (*CacheStore)(nil)
	_ ReferenceCache            = NopCache{}
	_ IdempotencyStoreInterface = (*IdempotencyStore)(nil)
)
