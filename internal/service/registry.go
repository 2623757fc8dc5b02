package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"busticket/internal/domain"
	internalRedis "busticket/internal/redis"
	"busticket/internal/repository"
	"busticket/pkg/logger"
	"busticket/pkg/metrics"
)

// RouteRegistry manages route templates and dated bus assignments, and
// resolves the capacity and unit price the booking ledger works with.
type RouteRegistry struct {
	tx          repository.Transactor
	routes      repository.RouteRepository
	assignments repository.AssignmentRepository
	buses       repository.BusRepository
	cache       internalRedis.ReferenceCache
	log         logger.Logger
	rec         recorder
	now         func() time.Time
}

// NewRouteRegistry creates a new RouteRegistry. cache may be nil.
func NewRouteRegistry(
	tx repository.Transactor,
	routes repository.RouteRepository,
	assignments repository.AssignmentRepository,
	buses repository.BusRepository,
	cache internalRedis.ReferenceCache,
	log logger.Logger,
	m *metrics.Metrics,
) *RouteRegistry {
	if cache == nil {
		cache = internalRedis.NopCache{}
	}
	return &RouteRegistry{
		tx:          tx,
		routes:      routes,
		assignments: assignments,
		buses:       buses,
		cache:       cache,
		log:         log,
		rec:         recorder{m: m},
		now:         time.Now,
	}
}

// RouteInput contains the editable fields of a route.
type RouteInput struct {
	FromLocation  string
	ToLocation    string
	DepartureTime string // HH:MM, optional
	ArrivalTime   string // HH:MM, optional
	TicketPrice   domain.Money
	Status        domain.RouteStatus // defaults to ACTIVE
	Description   string
}

func (in *RouteInput) normalize() error {
	in.FromLocation = strings.TrimSpace(in.FromLocation)
	in.ToLocation = strings.TrimSpace(in.ToLocation)
	in.Description = strings.TrimSpace(in.Description)

	switch {
	case in.FromLocation == "":
		return invalid("from_location", "is required")
	case len(in.FromLocation) > 100:
		return invalid("from_location", "must be at most 100 characters")
	case in.ToLocation == "":
		return invalid("to_location", "is required")
	case len(in.ToLocation) > 100:
		return invalid("to_location", "must be at most 100 characters")
	case in.TicketPrice <= 0:
		return invalid("ticket_price", "must be positive")
	}
	if err := checkTimeOfDay("departure_time", in.DepartureTime, false); err != nil {
		return err
	}
	if err := checkTimeOfDay("arrival_time", in.ArrivalTime, false); err != nil {
		return err
	}
	if in.Status == "" {
		in.Status = domain.RouteStatusActive
	}
	if !in.Status.Valid() {
		return invalid("status", fmt.Sprintf("unknown route status %q", in.Status))
	}
	return nil
}

func checkTimeOfDay(field, value string, required bool) error {
	if value == "" {
		if required {
			return invalid(field, "is required")
		}
		return nil
	}
	if _, err := time.Parse(domain.TimeOfDayLayout, value); err != nil {
		return invalid(field, "must be HH:MM")
	}
	return nil
}

// CreateRoute registers a new route.
func (s *RouteRegistry) CreateRoute(ctx context.Context, in RouteInput) (*domain.Route, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	now := s.now()
	route := &domain.Route{
		FromLocation:  in.FromLocation,
		ToLocation:    in.ToLocation,
		DepartureTime: in.DepartureTime,
		ArrivalTime:   in.ArrivalTime,
		TicketPrice:   in.TicketPrice,
		Status:        in.Status,
		Description:   in.Description,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.routes.Create(ctx, route); err != nil {
		return nil, s.storageFailure("create route", err)
	}

	s.log.Info("route created", "route_id", route.ID, "from", route.FromLocation, "to", route.ToLocation)
	return route, nil
}

// UpdateRoute replaces the editable fields of a route.
func (s *RouteRegistry) UpdateRoute(ctx context.Context, id int64, in RouteInput) (*domain.Route, error) {
	if id <= 0 {
		return nil, invalid("route_id", "must be positive")
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	route, err := s.routes.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr("get route", "route", id, err)
	}
	route.FromLocation = in.FromLocation
	route.ToLocation = in.ToLocation
	route.DepartureTime = in.DepartureTime
	route.ArrivalTime = in.ArrivalTime
	route.TicketPrice = in.TicketPrice
	route.Status = in.Status
	route.Description = in.Description
	route.UpdatedAt = s.now()

	if err := s.routes.Update(ctx, route); err != nil {
		return nil, lookupErr("update route", "route", id, err)
	}
	s.invalidateRoute(ctx, id)
	return route, nil
}

// DeleteRoute removes a route together with its assignments. Routes that
// still have bookings cannot be deleted.
func (s *RouteRegistry) DeleteRoute(ctx context.Context, id int64) error {
	if id <= 0 {
		return invalid("route_id", "must be positive")
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.routes.GetByID(ctx, id); err != nil {
			return lookupErr("get route", "route", id, err)
		}
		if err := s.assignments.DeleteByRoute(ctx, id); err != nil {
			return s.storageFailure("delete route assignments", err)
		}
		if err := s.routes.Delete(ctx, id); err != nil {
			if errors.Is(err, repository.ErrInUse) {
				return fmt.Errorf("route %d has bookings: %w", id, ErrInUse)
			}
			return lookupErr("delete route", "route", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateRoute(ctx, id)
	s.log.Info("route deleted", "route_id", id)
	return nil
}

// GetRoute returns a route with its assignments.
func (s *RouteRegistry) GetRoute(ctx context.Context, id int64) (*domain.Route, error) {
	if id <= 0 {
		return nil, invalid("route_id", "must be positive")
	}

	if cached, err := s.cache.GetRoute(ctx, id); err == nil && cached != nil {
		return cached, nil
	}

	route, err := s.routes.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr("get route", "route", id, err)
	}
	if err := s.attachAssignments(ctx, []*domain.Route{route}); err != nil {
		return nil, err
	}

	if err := s.cache.SetRoute(ctx, route); err != nil {
		s.log.Warn("failed to cache route", "route_id", id, "error", err)
	}
	return route, nil
}

// ListRoutes returns all routes with their assignments.
func (s *RouteRegistry) ListRoutes(ctx context.Context) ([]*domain.Route, error) {
	routes, err := s.routes.GetAll(ctx)
	if err != nil {
		return nil, s.storageFailure("list routes", err)
	}
	return routes, s.attachAssignments(ctx, routes)
}

// ListRoutesByStatus returns the routes with the given status.
func (s *RouteRegistry) ListRoutesByStatus(ctx context.Context, status string) ([]*domain.Route, error) {
	st := domain.RouteStatus(strings.ToUpper(strings.TrimSpace(status)))
	if !st.Valid() {
		return nil, invalid("status", fmt.Sprintf("unknown route status %q", status))
	}
	routes, err := s.routes.GetByStatus(ctx, st)
	if err != nil {
		return nil, s.storageFailure("list routes by status", err)
	}
	return routes, s.attachAssignments(ctx, routes)
}

// SearchRoutes matches q against locations and description. A blank query lists everything.
func (s *RouteRegistry) SearchRoutes(ctx context.Context, q string) ([]*domain.Route, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return s.ListRoutes(ctx)
	}
	routes, err := s.routes.Search(ctx, q)
	if err != nil {
		return nil, s.storageFailure("search routes", err)
	}
	return routes, s.attachAssignments(ctx, routes)
}

// SearchForPassenger returns ACTIVE routes matching from and to.
func (s *RouteRegistry) SearchForPassenger(ctx context.Context, from, to string) ([]*domain.Route, error) {
	routes, err := s.routes.SearchActive(ctx, strings.TrimSpace(from), strings.TrimSpace(to))
	if err != nil {
		return nil, s.storageFailure("search active routes", err)
	}
	return routes, s.attachAssignments(ctx, routes)
}

func (s *RouteRegistry) attachAssignments(ctx context.Context, routes []*domain.Route) error {
	if len(routes) == 0 {
		return nil
	}
	ids := make([]int64, len(routes))
	byID := make(map[int64]*domain.Route, len(routes))
	for i, r := range routes {
		ids[i] = r.ID
		byID[r.ID] = r
		r.Assignments = nil
	}

	assignments, err := s.assignments.ListByRoutes(ctx, ids)
	if err != nil {
		return s.storageFailure("list assignments", err)
	}
	for _, a := range assignments {
		if r, ok := byID[a.RouteID]; ok {
			r.Assignments = append(r.Assignments, *a)
		}
	}
	return nil
}

// AssignRequest contains the parameters for assigning a bus to a route.
type AssignRequest struct {
	RouteID       int64
	BusID         int64
	DepartureDate string // YYYY-MM-DD
	DepartureTime string // HH:MM
	AssignedSeats int
}

// Assign binds an APPROVED bus to a route on a date and time of day.
// The bus row is locked so concurrent assignments of one bus serialize.
func (s *RouteRegistry) Assign(ctx context.Context, req AssignRequest) (*domain.RouteAssignment, error) {
	if req.RouteID <= 0 {
		return nil, invalid("route_id", "must be positive")
	}
	if req.BusID <= 0 {
		return nil, invalid("bus_id", "must be positive")
	}
	date, err := time.Parse(domain.DateLayout, strings.TrimSpace(req.DepartureDate))
	if err != nil {
		return nil, invalid("departure_date", "must be YYYY-MM-DD")
	}
	req.DepartureTime = strings.TrimSpace(req.DepartureTime)
	if err := checkTimeOfDay("departure_time", req.DepartureTime, true); err != nil {
		return nil, err
	}
	if req.AssignedSeats < 1 {
		return nil, invalid("assigned_seats", "must be at least 1")
	}

	var assignment *domain.RouteAssignment
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.routes.GetByID(ctx, req.RouteID); err != nil {
			return lookupErr("get route", "route", req.RouteID, err)
		}

		bus, err := s.buses.GetByIDForUpdate(ctx, req.BusID)
		if err != nil {
			return lookupErr("lock bus", "bus", req.BusID, err)
		}
		if bus.Status != domain.BusStatusApproved {
			return fmt.Errorf("bus %d is %s: %w", bus.ID, bus.Status, ErrBusNotApproved)
		}

		taken, err := s.assignments.ExistsForBusAt(ctx, bus.ID, date.Format(domain.DateLayout), req.DepartureTime)
		if err != nil {
			return s.storageFailure("check assignment slot", err)
		}
		if taken {
			return fmt.Errorf("bus %d on %s at %s: %w", bus.ID, req.DepartureDate, req.DepartureTime, ErrDuplicateAssignment)
		}

		if req.AssignedSeats > bus.SeatingCapacity {
			return invalid("assigned_seats", fmt.Sprintf("cannot exceed bus capacity of %d", bus.SeatingCapacity))
		}

		now := s.now()
		a := &domain.RouteAssignment{
			RouteID:       req.RouteID,
			BusID:         bus.ID,
			DepartureDate: date,
			DepartureTime: req.DepartureTime,
			AssignedSeats: req.AssignedSeats,
			Status:        domain.AssignmentStatusAssigned,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.assignments.Create(ctx, a); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return fmt.Errorf("bus %d on %s at %s: %w", bus.ID, req.DepartureDate, req.DepartureTime, ErrDuplicateAssignment)
			}
			return s.storageFailure("create assignment", err)
		}
		assignment = a
		return nil
	})
	if err != nil {
		s.log.Info("assignment rejected", "route_id", req.RouteID, "bus_id", req.BusID, "error", err)
		return nil, err
	}

	s.invalidateRoute(ctx, req.RouteID)
	s.rec.assignmentCreated()
	s.log.Info("bus assigned to route",
		"assignment_id", assignment.ID,
		"route_id", assignment.RouteID,
		"bus_id", assignment.BusID,
		"departure_date", req.DepartureDate,
		"departure_time", assignment.DepartureTime,
	)
	return assignment, nil
}

// RemoveAssignment deletes an assignment.
func (s *RouteRegistry) RemoveAssignment(ctx context.Context, id int64) error {
	if id <= 0 {
		return invalid("assignment_id", "must be positive")
	}
	a, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		return lookupErr("get assignment", "assignment", id, err)
	}
	if err := s.assignments.Delete(ctx, id); err != nil {
		return lookupErr("delete assignment", "assignment", id, err)
	}
	s.invalidateRoute(ctx, a.RouteID)
	return nil
}

// Statistics counts routes per status and all assignments.
func (s *RouteRegistry) Statistics(ctx context.Context) (*domain.RouteStatistics, error) {
	counts, err := s.routes.CountByStatus(ctx)
	if err != nil {
		return nil, s.storageFailure("count routes", err)
	}
	total, err := s.assignments.Count(ctx)
	if err != nil {
		return nil, s.storageFailure("count assignments", err)
	}

	stats := &domain.RouteStatistics{
		ActiveRoutes:      counts[domain.RouteStatusActive],
		InactiveRoutes:    counts[domain.RouteStatusInactive],
		MaintenanceRoutes: counts[domain.RouteStatusMaintenance],
		TotalAssignments:  total,
	}
	for _, n := range counts {
		stats.TotalRoutes += n
	}
	return stats, nil
}

// ResolveCapacityAndPrice returns the seating capacity of the bus and the
// ticket price of the route. Either entity missing yields NotFound.
func (s *RouteRegistry) ResolveCapacityAndPrice(ctx context.Context, busID, routeID int64) (int, domain.Money, error) {
	return s.resolve(ctx, busID, routeID, false)
}

// LockCapacity is ResolveCapacityAndPrice with the bus row locked until the
// enclosing transaction ends. Reservations on one bus serialize on it.
func (s *RouteRegistry) LockCapacity(ctx context.Context, busID, routeID int64) (int, domain.Money, error) {
	return s.resolve(ctx, busID, routeID, true)
}

func (s *RouteRegistry) resolve(ctx context.Context, busID, routeID int64, lock bool) (int, domain.Money, error) {
	route, err := s.routes.GetByID(ctx, routeID)
	if err != nil {
		return 0, 0, lookupErr("get route", "route", routeID, err)
	}

	var bus *domain.Bus
	if lock {
		bus, err = s.buses.GetByIDForUpdate(ctx, busID)
	} else {
		bus, err = s.buses.GetByID(ctx, busID)
	}
	if err != nil {
		return 0, 0, lookupErr("get bus", "bus", busID, err)
	}
	return bus.SeatingCapacity, route.TicketPrice, nil
}

func (s *RouteRegistry) invalidateRoute(ctx context.Context, id int64) {
	if err := s.cache.InvalidateRoute(ctx, id); err != nil {
		s.log.Warn("failed to invalidate route cache", "route_id", id, "error", err)
	}
}

func (s *RouteRegistry) storageFailure(op string, err error) error {
	wrapped := storageErr(op, err)
	if errors.Is(wrapped, ErrStorage) {
		s.rec.storageFailure(op)
		s.log.Error("storage failure", "op", op, "error", err)
	}
	return wrapped
}
