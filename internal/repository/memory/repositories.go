package memory

import (
	"context"
	"sort"
	"strings"

	"busticket/internal/domain"
	"busticket/internal/repository"
)

// Ensure interfaces are satisfied.
var (
	_ repository.UserRepository       = (*UserRepository)(nil)
	_ repository.BusRepository        = (*BusRepository)(nil)
	_ repository.RouteRepository      = (*RouteRepository)(nil)
	_ repository.AssignmentRepository = (*AssignmentRepository)(nil)
	_ repository.BookingRepository    = (*BookingRepository)(nil)
)

// UserRepository is an in-memory repository.UserRepository.
type UserRepository struct{ s *Store }

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := r.s.record("users.Create"); err != nil {
		return err
	}
	return r.s.write(ctx, func() error {
		for _, u := range r.s.users {
			if strings.EqualFold(u.Email, user.Email) ||
				(user.IDNumber != "" && u.IDNumber == user.IDNumber) ||
				(user.CompanyName != "" && u.CompanyName == user.CompanyName) {
				return repository.ErrDuplicate
			}
		}
		user.ID = r.s.id()
		r.s.users[user.ID] = cloneUser(user)
		return nil
	})
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if err := r.s.record("users.GetByID"); err != nil {
		return nil, err
	}
	var out *domain.User
	r.s.read(ctx, func() {
		if u, ok := r.s.users[id]; ok {
			out = cloneUser(u)
		}
	})
	if out == nil {
		return nil, repository.ErrNotFound
	}
	return out, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var out *domain.User
	r.s.read(ctx, func() {
		for _, u := range r.s.users {
			if strings.EqualFold(u.Email, email) {
				out = cloneUser(u)
				return
			}
		}
	})
	if out == nil {
		return nil, repository.ErrNotFound
	}
	return out, nil
}

func (r *UserRepository) GetAll(ctx context.Context) ([]*domain.User, error) {
	var out []*domain.User
	r.s.read(ctx, func() {
		for _, u := range r.s.users {
			out = append(out, cloneUser(u))
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// BusRepository is an in-memory repository.BusRepository.
type BusRepository struct{ s *Store }

func (r *BusRepository) Create(ctx context.Context, bus *domain.Bus) error {
	if err := r.s.record("buses.Create"); err != nil {
		return err
	}
	return r.s.write(ctx, func() error {
		if _, ok := r.s.users[bus.OwnerID]; !ok {
			return repository.ErrNotFound
		}
		for _, b := range r.s.buses {
			if b.RegistrationNumber == bus.RegistrationNumber {
				return repository.ErrDuplicate
			}
		}
		bus.ID = r.s.id()
		r.s.buses[bus.ID] = cloneBus(bus)
		return nil
	})
}

func (r *BusRepository) GetByID(ctx context.Context, id int64) (*domain.Bus, error) {
	if err := r.s.record("buses.GetByID"); err != nil {
		return nil, err
	}
	return r.get(ctx, id)
}

// GetByIDForUpdate is GetByID; the store lock already serializes transactions.
func (r *BusRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Bus, error) {
	if err := r.s.record("buses.GetByIDForUpdate"); err != nil {
		return nil, err
	}
	return r.get(ctx, id)
}

func (r *BusRepository) get(ctx context.Context, id int64) (*domain.Bus, error) {
	var out *domain.Bus
	r.s.read(ctx, func() {
		if b, ok := r.s.buses[id]; ok {
			out = cloneBus(b)
		}
	})
	if out == nil {
		return nil, repository.ErrNotFound
	}
	return out, nil
}

func (r *BusRepository) GetAll(ctx context.Context) ([]*domain.Bus, error) {
	return r.filter(ctx, func(*domain.Bus) bool { return true }), nil
}

func (r *BusRepository) GetByStatus(ctx context.Context, status domain.BusStatus) ([]*domain.Bus, error) {
	return r.filter(ctx, func(b *domain.Bus) bool { return b.Status == status }), nil
}

func (r *BusRepository) GetByOwner(ctx context.Context, ownerID int64) ([]*domain.Bus, error) {
	return r.filter(ctx, func(b *domain.Bus) bool { return b.OwnerID == ownerID }), nil
}

func (r *BusRepository) ExistsByRegistration(ctx context.Context, registrationNumber string) (bool, error) {
	return len(r.filter(ctx, func(b *domain.Bus) bool { return b.RegistrationNumber == registrationNumber })) > 0, nil
}

func (r *BusRepository) UpdateStatus(ctx context.Context, id int64, status domain.BusStatus, reason string) error {
	if err := r.s.record("buses.UpdateStatus"); err != nil {
		return err
	}
	return r.s.write(ctx, func() error {
		b, ok := r.s.buses[id]
		if !ok {
			return repository.ErrNotFound
		}
		b.Status = status
		b.RejectionReason = reason
		return nil
	})
}

func (r *BusRepository) Delete(ctx context.Context, id int64) error {
	return r.s.write(ctx, func() error {
		if _, ok := r.s.buses[id]; !ok {
			return repository.ErrNotFound
		}
		for _, bk := range r.s.bookings {
			if bk.BusID == id {
				return repository.ErrInUse
			}
		}
		for _, a := range r.s.assignments {
			if a.BusID == id {
				return repository.ErrInUse
			}
		}
		delete(r.s.buses, id)
		return nil
	})
}

func (r *BusRepository) filter(ctx context.Context, keep func(*domain.Bus) bool) []*domain.Bus {
	var out []*domain.Bus
	r.s.read(ctx, func() {
		for _, b := range r.s.buses {
			if keep(b) {
				out = append(out, cloneBus(b))
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RouteRepository is an in-memory repository.RouteRepository.
type RouteRepository struct{ s *Store }

func (r *RouteRepository) Create(ctx context.Context, route *domain.Route) error {
	if err := r.s.record("routes.Create"); err != nil {
		return err
	}
	return r.s.write(ctx, func() error {
		route.ID = r.s.id()
		r.s.routes[route.ID] = cloneRoute(route)
		return nil
	})
}

func (r *RouteRepository) GetByID(ctx context.Context, id int64) (*domain.Route, error) {
	if err := r.s.record("routes.GetByID"); err != nil {
		return nil, err
	}
	var out *domain.Route
	r.s.read(ctx, func() {
		if rt, ok := r.s.routes[id]; ok {
			out = cloneRoute(rt)
		}
	})
	if out == nil {
		return nil, repository.ErrNotFound
	}
	return out, nil
}

func (r *RouteRepository) GetAll(ctx context.Context) ([]*domain.Route, error) {
	return r.filter(ctx, func(*domain.Route) bool { return true }), nil
}

func (r *RouteRepository) GetByStatus(ctx context.Context, status domain.RouteStatus) ([]*domain.Route, error) {
	return r.filter(ctx, func(rt *domain.Route) bool { return rt.Status == status }), nil
}

func (r *RouteRepository) Search(ctx context.Context, query string) ([]*domain.Route, error) {
	return r.filter(ctx, func(rt *domain.Route) bool {
		return containsFold(rt.FromLocation, query) ||
			containsFold(rt.ToLocation, query) ||
			containsFold(rt.Description, query)
	}), nil
}

func (r *RouteRepository) SearchActive(ctx context.Context, from, to string) ([]*domain.Route, error) {
	return r.filter(ctx, func(rt *domain.Route) bool {
		return rt.Status == domain.RouteStatusActive &&
			(from == "" || containsFold(rt.FromLocation, from)) &&
			(to == "" || containsFold(rt.ToLocation, to))
	}), nil
}

func (r *RouteRepository) Update(ctx context.Context, route *domain.Route) error {
	return r.s.write(ctx, func() error {
		if _, ok := r.s.routes[route.ID]; !ok {
			return repository.ErrNotFound
		}
		r.s.routes[route.ID] = cloneRoute(route)
		return nil
	})
}

func (r *RouteRepository) Delete(ctx context.Context, id int64) error {
	return r.s.write(ctx, func() error {
		if _, ok := r.s.routes[id]; !ok {
			return repository.ErrNotFound
		}
		for _, bk := range r.s.bookings {
			if bk.RouteID == id {
				return repository.ErrInUse
			}
		}
		for _, a := range r.s.assignments {
			if a.RouteID == id {
				return repository.ErrInUse
			}
		}
		delete(r.s.routes, id)
		return nil
	})
}

func (r *RouteRepository) CountByStatus(ctx context.Context) (map[domain.RouteStatus]int, error) {
	counts := make(map[domain.RouteStatus]int)
	r.s.read(ctx, func() {
		for _, rt := range r.s.routes {
			counts[rt.Status]++
		}
	})
	return counts, nil
}

func (r *RouteRepository) filter(ctx context.Context, keep func(*domain.Route) bool) []*domain.Route {
	var out []*domain.Route
	r.s.read(ctx, func() {
		for _, rt := range r.s.routes {
			if keep(rt) {
				out = append(out, cloneRoute(rt))
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// AssignmentRepository is an in-memory repository.AssignmentRepository.
type AssignmentRepository struct{ s *Store }

func (r *AssignmentRepository) Create(ctx context.Context, a *domain.RouteAssignment) error {
	if err := r.s.record("assignments.Create"); err != nil {
		return err
	}
	return r.s.write(ctx, func() error {
		if _, ok := r.s.routes[a.RouteID]; !ok {
			return repository.ErrNotFound
		}
		if _, ok := r.s.buses[a.BusID]; !ok {
			return repository.ErrNotFound
		}
		for _, other := range r.s.assignments {
			if sameSlot(other, a.BusID, a.DepartureDate.Format(domain.DateLayout), a.DepartureTime) {
				return repository.ErrDuplicate
			}
		}
		a.ID = r.s.id()
		r.s.assignments[a.ID] = cloneAssignment(a)
		return nil
	})
}

func (r *AssignmentRepository) GetByID(ctx context.Context, id int64) (*domain.RouteAssignment, error) {
	var out *domain.RouteAssignment
	r.s.read(ctx, func() {
		if a, ok := r.s.assignments[id]; ok {
			out = cloneAssignment(a)
		}
	})
	if out == nil {
		return nil, repository.ErrNotFound
	}
	return out, nil
}

func (r *AssignmentRepository) ListByRoutes(ctx context.Context, routeIDs []int64) ([]*domain.RouteAssignment, error) {
	want := make(map[int64]bool, len(routeIDs))
	for _, id := range routeIDs {
		want[id] = true
	}
	var out []*domain.RouteAssignment
	r.s.read(ctx, func() {
		for _, a := range r.s.assignments {
			if want[a.RouteID] {
				out = append(out, cloneAssignment(a))
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DepartureDate.Equal(out[j].DepartureDate) {
			return out[i].DepartureDate.Before(out[j].DepartureDate)
		}
		if out[i].DepartureTime != out[j].DepartureTime {
			return out[i].DepartureTime < out[j].DepartureTime
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *AssignmentRepository) ExistsForBusAt(ctx context.Context, busID int64, date, timeOfDay string) (bool, error) {
	if err := r.s.record("assignments.ExistsForBusAt"); err != nil {
		return false, err
	}
	var exists bool
	r.s.read(ctx, func() {
		for _, a := range r.s.assignments {
			if sameSlot(a, busID, date, timeOfDay) {
				exists = true
				return
			}
		}
	})
	return exists, nil
}

func (r *AssignmentRepository) Delete(ctx context.Context, id int64) error {
	return r.s.write(ctx, func() error {
		if _, ok := r.s.assignments[id]; !ok {
			return repository.ErrNotFound
		}
		delete(r.s.assignments, id)
		return nil
	})
}

func (r *AssignmentRepository) DeleteByRoute(ctx context.Context, routeID int64) error {
	return r.s.write(ctx, func() error {
		for id, a := range r.s.assignments {
			if a.RouteID == routeID {
				delete(r.s.assignments, id)
			}
		}
		return nil
	})
}

func (r *AssignmentRepository) Count(ctx context.Context) (int, error) {
	var n int
	r.s.read(ctx, func() { n = len(r.s.assignments) })
	return n, nil
}

func sameSlot(a *domain.RouteAssignment, busID int64, date, timeOfDay string) bool {
	return a.BusID == busID &&
		a.DepartureDate.Format(domain.DateLayout) == date &&
		a.DepartureTime == timeOfDay
}

// BookingRepository is an in-memory repository.BookingRepository.
type BookingRepository struct{ s *Store }

func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	if err := r.s.record("bookings.Create"); err != nil {
		return err
	}
	return r.s.write(ctx, func() error {
		if _, ok := r.s.users[b.UserID]; !ok {
			return repository.ErrNotFound
		}
		b.ID = r.s.id()
		r.s.bookings[b.ID] = cloneBooking(b)
		return nil
	})
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	if err := r.s.record("bookings.GetByID"); err != nil {
		return nil, err
	}
	return r.get(ctx, id)
}

// GetByIDForUpdate is GetByID; the store lock already serializes transactions.
func (r *BookingRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Booking, error) {
	if err := r.s.record("bookings.GetByIDForUpdate"); err != nil {
		return nil, err
	}
	return r.get(ctx, id)
}

func (r *BookingRepository) get(ctx context.Context, id int64) (*domain.Booking, error) {
	var out *domain.Booking
	r.s.read(ctx, func() {
		if b, ok := r.s.bookings[id]; ok {
			out = cloneBooking(b)
		}
	})
	if out == nil {
		return nil, repository.ErrNotFound
	}
	return out, nil
}

func (r *BookingRepository) ListByBusAndRoute(ctx context.Context, busID, routeID int64, status domain.BookingStatus) ([]*domain.Booking, error) {
	if err := r.s.record("bookings.ListByBusAndRoute"); err != nil {
		return nil, err
	}
	out := r.filter(ctx, func(b *domain.Booking) bool {
		return b.BusID == busID && b.RouteID == routeID && b.Status == status
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *BookingRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.Booking, error) {
	return newestFirst(r.filter(ctx, func(b *domain.Booking) bool { return b.UserID == userID })), nil
}

func (r *BookingRepository) ListByRoute(ctx context.Context, routeID int64) ([]*domain.Booking, error) {
	return newestFirst(r.filter(ctx, func(b *domain.Booking) bool { return b.RouteID == routeID })), nil
}

func (r *BookingRepository) ListByBus(ctx context.Context, busID int64) ([]*domain.Booking, error) {
	return newestFirst(r.filter(ctx, func(b *domain.Booking) bool { return b.BusID == busID })), nil
}

func (r *BookingRepository) ListRecent(ctx context.Context, limit int) ([]*domain.Booking, error) {
	out := newestFirst(r.filter(ctx, func(*domain.Booking) bool { return true }))
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *BookingRepository) UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus) error {
	if err := r.s.record("bookings.UpdateStatus"); err != nil {
		return err
	}
	return r.s.write(ctx, func() error {
		b, ok := r.s.bookings[id]
		if !ok {
			return repository.ErrNotFound
		}
		b.Status = status
		return nil
	})
}

func (r *BookingRepository) Delete(ctx context.Context, id int64) error {
	return r.s.write(ctx, func() error {
		if _, ok := r.s.bookings[id]; !ok {
			return repository.ErrNotFound
		}
		delete(r.s.bookings, id)
		return nil
	})
}

func (r *BookingRepository) filter(ctx context.Context, keep func(*domain.Booking) bool) []*domain.Booking {
	var out []*domain.Booking
	r.s.read(ctx, func() {
		for _, b := range r.s.bookings {
			if keep(b) {
				out = append(out, cloneBooking(b))
			}
		}
	})
	return out
}

func newestFirst(bookings []*domain.Booking) []*domain.Booking {
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].ID > bookings[j].ID })
	return bookings
}
