package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"busticket/internal/domain"
	"busticket/internal/repository"
)

// RouteRepository implements repository.RouteRepository using PostgreSQL.
type RouteRepository struct {
	db *sql.DB
}

// NewRouteRepository creates a new RouteRepository.
func NewRouteRepository(db *sql.DB) *RouteRepository {
	return &RouteRepository{db: db}
}

const routeColumns = `id, from_location, to_location,
	COALESCE(to_char(departure_time, 'HH24:MI'), ''),
	COALESCE(to_char(arrival_time, 'HH24:MI'), ''),
	ticket_price_cents, status, COALESCE(description, ''), created_at, updated_at`

// Create persists a new route.
func (r *RouteRepository) Create(ctx context.Context, route *domain.Route) error {
	query := `
		INSERT INTO routes (from_location, to_location, departure_time, arrival_time, ticket_price_cents, status, description, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, '')::time, NULLIF($4, '')::time, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err := querier(ctx, r.db).QueryRowContext(ctx, query,
		route.FromLocation,
		route.ToLocation,
		route.DepartureTime,
		route.ArrivalTime,
		int64(route.TicketPrice),
		route.Status,
		nullString(route.Description),
		route.CreatedAt,
		route.UpdatedAt,
	).Scan(&route.ID)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

// GetByID retrieves a route by ID.
func (r *RouteRepository) GetByID(ctx context.Context, id int64) (*domain.Route, error) {
	query := `SELECT ` + routeColumns + ` FROM routes WHERE id = $1`
	return scanRoute(querier(ctx, r.db).QueryRowContext(ctx, query, id))
}

// GetAll retrieves all routes.
func (r *RouteRepository) GetAll(ctx context.Context) ([]*domain.Route, error) {
	return r.list(ctx, `SELECT `+routeColumns+` FROM routes ORDER BY id`)
}

// GetByStatus retrieves routes with the given status.
func (r *RouteRepository) GetByStatus(ctx context.Context, status domain.RouteStatus) ([]*domain.Route, error) {
	return r.list(ctx, `SELECT `+routeColumns+` FROM routes WHERE status = $1 ORDER BY id`, status)
}

// Search matches the query against locations and description, case-insensitively.
func (r *RouteRepository) Search(ctx context.Context, q string) ([]*domain.Route, error) {
	query := `SELECT ` + routeColumns + ` FROM routes
		WHERE from_location ILIKE '%' || $1 || '%'
		   OR to_location ILIKE '%' || $1 || '%'
		   OR description ILIKE '%' || $1 || '%'
		ORDER BY id`
	return r.list(ctx, query, q)
}

// SearchActive matches ACTIVE routes by from and to location.
func (r *RouteRepository) SearchActive(ctx context.Context, from, to string) ([]*domain.Route, error) {
	query := `SELECT ` + routeColumns + ` FROM routes
		WHERE status = $1
		  AND ($2 = '' OR from_location ILIKE '%' || $2 || '%')
		  AND ($3 = '' OR to_location ILIKE '%' || $3 || '%')
		ORDER BY departure_time NULLS LAST, id`
	return r.list(ctx, query, domain.RouteStatusActive, from, to)
}

// Update updates an existing route.
func (r *RouteRepository) Update(ctx context.Context, route *domain.Route) error {
	query := `
		UPDATE routes
		SET from_location = $1, to_location = $2,
		    departure_time = NULLIF($3, '')::time, arrival_time = NULLIF($4, '')::time,
		    ticket_price_cents = $5, status = $6, description = $7, updated_at = $8
		WHERE id = $9
	`
	res, err := querier(ctx, r.db).ExecContext(ctx, query,
		route.FromLocation,
		route.ToLocation,
		route.DepartureTime,
		route.ArrivalTime,
		int64(route.TicketPrice),
		route.Status,
		nullString(route.Description),
		route.UpdatedAt,
		route.ID,
	)
	if err != nil {
		return mapWriteError(err)
	}
	return expectAffected(res)
}

// Delete removes a route.
func (r *RouteRepository) Delete(ctx context.Context, id int64) error {
	res, err := querier(ctx, r.db).ExecContext(ctx, `DELETE FROM routes WHERE id = $1`, id)
	if err != nil {
		return mapDeleteError(err)
	}
	return expectAffected(res)
}

// CountByStatus counts routes per status.
func (r *RouteRepository) CountByStatus(ctx context.Context) (map[domain.RouteStatus]int, error) {
	rows, err := querier(ctx, r.db).QueryContext(ctx, `SELECT status, count(*) FROM routes GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.RouteStatus]int)
	for rows.Next() {
		var status domain.RouteStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *RouteRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Route, error) {
	rows, err := querier(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routes []*domain.Route
	for rows.Next() {
		route, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		routes = append(routes, route)
	}
	return routes, rows.Err()
}

func scanRoute(row rowScanner) (*domain.Route, error) {
	var route domain.Route
	var cents int64
	err := row.Scan(
		&route.ID,
		&route.FromLocation,
		&route.ToLocation,
		&route.DepartureTime,
		&route.ArrivalTime,
		&cents,
		&route.Status,
		&route.Description,
		&route.CreatedAt,
		&route.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	route.TicketPrice = domain.Money(cents)
	return &route, nil
}

// AssignmentRepository implements repository.AssignmentRepository using PostgreSQL.
type AssignmentRepository struct {
	db *sql.DB
}

// NewAssignmentRepository creates a new AssignmentRepository.
func NewAssignmentRepository(db *sql.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

const assignmentColumns = `id, route_id, bus_id, departure_date, to_char(departure_time, 'HH24:MI'), assigned_seats, status, created_at, updated_at`

// Create persists a new assignment. The unique slot constraint surfaces as ErrDuplicate.
func (r *AssignmentRepository) Create(ctx context.Context, a *domain.RouteAssignment) error {
	query := `
		INSERT INTO route_assignments (route_id, bus_id, departure_date, departure_time, assigned_seats, status, created_at, updated_at)
		VALUES ($1, $2, $3::date, $4::time, $5, $6, $7, $8)
		RETURNING id
	`
	err := querier(ctx, r.db).QueryRowContext(ctx, query,
		a.RouteID,
		a.BusID,
		a.DepartureDate.Format(domain.DateLayout),
		a.DepartureTime,
		a.AssignedSeats,
		a.Status,
		a.CreatedAt,
		a.UpdatedAt,
	).Scan(&a.ID)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

// GetByID retrieves an assignment by ID.
func (r *AssignmentRepository) GetByID(ctx context.Context, id int64) (*domain.RouteAssignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM route_assignments WHERE id = $1`
	return scanAssignment(querier(ctx, r.db).QueryRowContext(ctx, query, id))
}

// ListByRoutes retrieves the assignments of the given routes.
func (r *AssignmentRepository) ListByRoutes(ctx context.Context, routeIDs []int64) ([]*domain.RouteAssignment, error) {
	if len(routeIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + assignmentColumns + ` FROM route_assignments
		WHERE route_id = ANY($1)
		ORDER BY departure_date, departure_time, id`
	rows, err := querier(ctx, r.db).QueryContext(ctx, query, pq.Array(routeIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.RouteAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ExistsForBusAt reports whether the bus already has an assignment at date and time.
func (r *AssignmentRepository) ExistsForBusAt(ctx context.Context, busID int64, date, timeOfDay string) (bool, error) {
	var exists bool
	err := querier(ctx, r.db).QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM route_assignments
			WHERE bus_id = $1 AND departure_date = $2::date AND departure_time = $3::time
		)`, busID, date, timeOfDay,
	).Scan(&exists)
	return exists, err
}

// Delete removes an assignment.
func (r *AssignmentRepository) Delete(ctx context.Context, id int64) error {
	res, err := querier(ctx, r.db).ExecContext(ctx, `DELETE FROM route_assignments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// DeleteByRoute removes every assignment of a route.
func (r *AssignmentRepository) DeleteByRoute(ctx context.Context, routeID int64) error {
	_, err := querier(ctx, r.db).ExecContext(ctx, `DELETE FROM route_assignments WHERE route_id = $1`, routeID)
	return err
}

// Count returns the total number of assignments.
func (r *AssignmentRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := querier(ctx, r.db).QueryRowContext(ctx, `SELECT count(*) FROM route_assignments`).Scan(&n)
	return n, err
}

func scanAssignment(row rowScanner) (*domain.RouteAssignment, error) {
	var a domain.RouteAssignment
	err := row.Scan(
		&a.ID,
		&a.RouteID,
		&a.BusID,
		&a.DepartureDate,
		&a.DepartureTime,
		&a.AssignedSeats,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}
