package repository

import (
	"context"

	"busticket/internal/domain"
)

// RouteRepository defines the persistence operations for routes.
type RouteRepository interface {
	// Create persists a new route and sets its ID.
	Create(ctx context.Context, route *domain.Route) error

	// GetByID retrieves a route by ID, without assignments.
	GetByID(ctx context.Context, id int64) (*domain.Route, error)

	// GetAll retrieves all routes.
	GetAll(ctx context.Context) ([]*domain.Route, error)

	// GetByStatus retrieves routes with the given status.
	GetByStatus(ctx context.Context, status domain.RouteStatus) ([]*domain.Route, error)

	// Search matches the query against from/to locations and description.
	Search(ctx context.Context, query string) ([]*domain.Route, error)

	// SearchActive matches ACTIVE routes by from and to location.
	// An empty argument matches any location.
	SearchActive(ctx context.Context, from, to string) ([]*domain.Route, error)

	// Update updates an existing route.
	Update(ctx context.Context, route *domain.Route) error

	// Delete removes a route.
	Delete(ctx context.Context, id int64) error

	// CountByStatus counts routes per status.
	CountByStatus(ctx context.Context) (map[domain.RouteStatus]int, error)
}

// AssignmentRepository defines the persistence operations for route assignments.
type AssignmentRepository interface {
	// Create persists a new assignment and sets its ID. Returns ErrDuplicate
	// when the bus already has an assignment at the same date and time.
	Create(ctx context.Context, a *domain.RouteAssignment) error

	// GetByID retrieves an assignment by ID.
	GetByID(ctx context.Context, id int64) (*domain.RouteAssignment, error)

	// ListByRoutes retrieves the assignments of the given routes.
	ListByRoutes(ctx context.Context, routeIDs []int64) ([]*domain.RouteAssignment, error)

	// ExistsForBusAt reports whether the bus already has an assignment at date and time.
	ExistsForBusAt(ctx context.Context, busID int64, date string, timeOfDay string) (bool, error)

	// Delete removes an assignment.
	Delete(ctx context.Context, id int64) error

	// DeleteByRoute removes every assignment of a route.
	DeleteByRoute(ctx context.Context, routeID int64) error

	// Count returns the total number of assignments.
	Count(ctx context.Context) (int, error)
}
