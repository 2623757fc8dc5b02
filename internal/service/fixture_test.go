package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"busticket/internal/domain"
	"busticket/internal/repository/memory"
	"busticket/pkg/logger"
	"busticket/pkg/metrics"
)

type fixture struct {
	store    *memory.Store
	metrics  *metrics.Metrics
	cache    *fakeCache
	registry *RouteRegistry
	ledger   *BookingLedger
	buses    *BusService
	users    *UserService
	tickets  *TicketService
	notes    *NotificationService
	seq      int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	log := logger.NewNop()
	m := metrics.NewMetrics("test", prometheus.NewRegistry())
	cache := newFakeCache()

	registry := NewRouteRegistry(store, store.Routes(), store.Assignments(), store.Buses(), cache, log, m)
	f := &fixture{
		store:    store,
		metrics:  m,
		cache:    cache,
		registry: registry,
		ledger:   NewBookingLedger(store, store.Bookings(), store.Users(), registry, log, m),
		buses:    NewBusService(store.Buses(), store.Users(), cache, log),
		users:    NewUserService(store.Users(), log),
		tickets:  NewTicketService(store.Bookings(), store.Routes(), store.Buses(), log),
		notes:    NewNotificationService(log),
	}
	f.ledger.SetNotifier(f.notes)
	f.buses.SetNotifier(f.notes)
	return f
}

func (f *fixture) addUser(t *testing.T, userType domain.UserType) *domain.User {
	t.Helper()
	n := atomic.AddInt64(&f.seq, 1)
	u := &domain.User{
		FirstName: "User",
		LastName:  fmt.Sprint(n),
		Email:     fmt.Sprintf("user%d@example.com", n),
		Phone:     "0770000000",
		Type:      userType,
		Status:    domain.UserStatusActive,
	}
	switch userType {
	case domain.UserTypePassenger:
		u.IDNumber = fmt.Sprintf("NIC%d", n)
	case domain.UserTypeOwner:
		u.CompanyName = fmt.Sprintf("Company %d", n)
	}
	if err := f.store.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (f *fixture) addBus(t *testing.T, capacity int, status domain.BusStatus) *domain.Bus {
	t.Helper()
	owner := f.addUser(t, domain.UserTypeOwner)
	b := &domain.Bus{
		OwnerID:            owner.ID,
		Name:               "Express",
		RegistrationNumber: fmt.Sprintf("NB-%d", atomic.AddInt64(&f.seq, 1)),
		SeatingCapacity:    capacity,
		Status:             status,
	}
	if err := f.store.Buses().Create(context.Background(), b); err != nil {
		t.Fatalf("create bus: %v", err)
	}
	return b
}

func (f *fixture) addRoute(t *testing.T, price string) *domain.Route {
	t.Helper()
	p, err := domain.ParseMoney(price)
	if err != nil {
		t.Fatalf("parse price: %v", err)
	}
	r := &domain.Route{
		FromLocation:  "Colombo",
		ToLocation:    "Kandy",
		DepartureTime: "06:30",
		TicketPrice:   p,
		Status:        domain.RouteStatusActive,
	}
	if err := f.store.Routes().Create(context.Background(), r); err != nil {
		t.Fatalf("create route: %v", err)
	}
	return r
}

func reserveRequest(user *domain.User, bus *domain.Bus, route *domain.Route, seats int, selected string) ReserveRequest {
	return ReserveRequest{
		UserID:         user.ID,
		RouteID:        route.ID,
		BusID:          bus.ID,
		PassengerName:  "Nimal Perera",
		PassengerEmail: "nimal@example.com",
		PassengerPhone: "0771234567",
		NumberOfSeats:  seats,
		SelectedSeats:  selected,
	}
}

// fakeCache is an in-memory ReferenceCache with call counters.
type fakeCache struct {
	mu     sync.RWMutex
	buses  map[int64]domain.Bus
	routes map[int64]domain.Route

	BusHits            int32
	RouteHits          int32
	RouteInvalidations int32
	BusInvalidations   int32
}

func newFakeCache() *fakeCache {
	return &fakeCache{buses: make(map[int64]domain.Bus), routes: make(map[int64]domain.Route)}
}

func (c *fakeCache) GetBus(ctx context.Context, id int64) (*domain.Bus, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.buses[id]
	if !ok {
		return nil, nil
	}
	atomic.AddInt32(&c.BusHits, 1)
	return &b, nil
}

func (c *fakeCache) SetBus(ctx context.Context, bus *domain.Bus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buses[bus.ID] = *bus
	return nil
}

func (c *fakeCache) InvalidateBus(ctx context.Context, id int64) error {
	atomic.AddInt32(&c.BusInvalidations, 1)
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.buses, id)
	return nil
}

func (c *fakeCache) GetRoute(ctx context.Context, id int64) (*domain.Route, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.routes[id]
	if !ok {
		return nil, nil
	}
	atomic.AddInt32(&c.RouteHits, 1)
	return &r, nil
}

func (c *fakeCache) SetRoute(ctx context.Context, route *domain.Route) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.routes[route.ID] = *route
	return nil
}

func (c *fakeCache) InvalidateRoute(ctx context.Context, id int64) error {
	atomic.AddInt32(&c.RouteInvalidations, 1)
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.routes, id)
	return nil
}
