// Package memory provides in-process implementations of the repository
// interfaces. It backs the service and handler tests and can be selected with
// STORE_BACKEND=memory for local runs without PostgreSQL.
//
// Transactions are serialized by a single store-wide lock, and the data is
// snapshotted on entry so a failed transaction leaves no partial writes.
// Reads outside a transaction take the same lock, so they only see
// committed data.
package memory

import (
	"context"
	"sync"

	"busticket/internal/domain"
	"busticket/internal/repository"
)

type txKey struct{}

// Store holds all entities in memory.
type Store struct {
	txMu sync.Mutex   // held for the duration of a transaction or a standalone write
	mu   sync.RWMutex // guards the maps below

	users       map[int64]*domain.User
	buses       map[int64]*domain.Bus
	routes      map[int64]*domain.Route
	assignments map[int64]*domain.RouteAssignment
	bookings    map[int64]*domain.Booking
	nextID      int64

	statsMu sync.Mutex
	calls   map[string]int
	errs    map[string]error
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		users:       make(map[int64]*domain.User),
		buses:       make(map[int64]*domain.Bus),
		routes:      make(map[int64]*domain.Route),
		assignments: make(map[int64]*domain.RouteAssignment),
		bookings:    make(map[int64]*domain.Booking),
		calls:       make(map[string]int),
		errs:        make(map[string]error),
	}
}

var _ repository.Transactor = (*Store)(nil)

// WithinTx runs fn with exclusive write access. Changes are discarded when fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// Users returns a UserRepository backed by the store.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Buses returns a BusRepository backed by the store.
func (s *Store) Buses() *BusRepository { return &BusRepository{s: s} }

// Routes returns a RouteRepository backed by the store.
func (s *Store) Routes() *RouteRepository { return &RouteRepository{s: s} }

// Assignments returns an AssignmentRepository backed by the store.
func (s *Store) Assignments() *AssignmentRepository { return &AssignmentRepository{s: s} }

// Bookings returns a BookingRepository backed by the store.
func (s *Store) Bookings() *BookingRepository { return &BookingRepository{s: s} }

// SetError makes every subsequent call of op (e.g. "bookings.Create") fail
// with err. A nil err clears the injection.
func (s *Store) SetError(op string, err error) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	if err == nil {
		delete(s.errs, op)
		return
	}
	s.errs[op] = err
}

// Calls returns how many times op has been invoked.
func (s *Store) Calls(op string) int {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.calls[op]
}

func (s *Store) record(op string) error {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	s.calls[op]++
	return s.errs[op]
}

// write runs fn under the data lock. Outside a transaction it also takes the
// transaction lock so it cannot interleave with a running transaction.
func (s *Store) write(ctx context.Context, fn func() error) error {
	if !inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

// read runs fn under the data read lock. Outside a transaction it waits for
// any running transaction so it never observes writes that may be rolled back.
func (s *Store) read(ctx context.Context, fn func()) {
	if !inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn()
}

// id must be called with mu held for writing.
func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

type snapshot struct {
	users       map[int64]*domain.User
	buses       map[int64]*domain.Bus
	routes      map[int64]*domain.Route
	assignments map[int64]*domain.RouteAssignment
	bookings    map[int64]*domain.Booking
	nextID      int64
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot{
		users:       cloneMap(s.users, cloneUser),
		buses:       cloneMap(s.buses, cloneBus),
		routes:      cloneMap(s.routes, cloneRoute),
		assignments: cloneMap(s.assignments, cloneAssignment),
		bookings:    cloneMap(s.bookings, cloneBooking),
		nextID:      s.nextID,
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.buses = snap.buses
	s.routes = snap.routes
	s.assignments = snap.assignments
	s.bookings = snap.bookings
	s.nextID = snap.nextID
}

func cloneMap[T any](m map[int64]*T, clone func(*T) *T) map[int64]*T {
	out := make(map[int64]*T, len(m))
	for k, v := range m {
		out[k] = clone(v)
	}
	return out
}

func cloneUser(u *domain.User) *domain.User { c := *u; return &c }

func cloneBus(b *domain.Bus) *domain.Bus { c := *b; return &c }

func cloneRoute(r *domain.Route) *domain.Route {
	c := *r
	c.Assignments = nil
	return &c
}

func cloneAssignment(a *domain.RouteAssignment) *domain.RouteAssignment { c := *a; return &c }

func cloneBooking(b *domain.Booking) *domain.Booking {
	c := *b
	c.SelectedSeats = append([]string(nil), b.SelectedSeats...)
	if b.TravelDate != nil {
		t := *b.TravelDate
		c.TravelDate = &t
	}
	return &c
}
