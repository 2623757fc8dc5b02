package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"busticket/internal/domain"
	"busticket/internal/repository"
	"busticket/internal/seat"
)

// BookingRepository implements repository.BookingRepository using PostgreSQL.
// Seat selections are stored in their encoded "[a,b]" text form.
type BookingRepository struct {
	db *sql.DB
}

// NewBookingRepository creates a new BookingRepository.
func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `id, user_id, route_id, bus_id, passenger_name, passenger_email, passenger_phone,
	COALESCE(passenger_nic, ''), number_of_seats, selected_seats, total_price_cents,
	booking_status, booking_kind, booking_date, travel_date, created_at, updated_at`

// Create persists a new booking.
func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	query := `
		INSERT INTO bookings (user_id, route_id, bus_id, passenger_name, passenger_email, passenger_phone, passenger_nic,
			number_of_seats, selected_seats, total_price_cents, booking_status, booking_kind, booking_date, travel_date,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id
	`

	var travelDate sql.NullTime
	if b.TravelDate != nil {
		travelDate = sql.NullTime{Time: *b.TravelDate, Valid: true}
	}

	err := querier(ctx, r.db).QueryRowContext(ctx, query,
		b.UserID,
		b.RouteID,
		b.BusID,
		b.PassengerName,
		b.PassengerEmail,
		b.PassengerPhone,
		nullString(b.PassengerNIC),
		b.NumberOfSeats,
		seat.Encode(b.SelectedSeats),
		int64(b.TotalPrice),
		b.Status,
		b.Kind,
		b.BookingDate,
		travelDate,
		b.CreatedAt,
		b.UpdatedAt,
	).Scan(&b.ID)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

// GetByID retrieves a booking by ID.
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	return scanBooking(querier(ctx, r.db).QueryRowContext(ctx, query, id))
}

// GetByIDForUpdate retrieves a booking and locks its row. Only meaningful inside a transaction.
func (r *BookingRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`
	return scanBooking(querier(ctx, r.db).QueryRowContext(ctx, query, id))
}

// ListByBusAndRoute retrieves bookings of a (bus, route) pair with the given status.
func (r *BookingRepository) ListByBusAndRoute(ctx context.Context, busID, routeID int64, status domain.BookingStatus) ([]*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE bus_id = $1 AND route_id = $2 AND booking_status = $3
		ORDER BY id`
	return r.list(ctx, query, busID, routeID, status)
}

// ListByUser retrieves bookings made by a user.
func (r *BookingRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
}

// ListByRoute retrieves bookings on a route.
func (r *BookingRepository) ListByRoute(ctx context.Context, routeID int64) ([]*domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE route_id = $1 ORDER BY created_at DESC, id DESC`, routeID)
}

// ListByBus retrieves bookings on a bus.
func (r *BookingRepository) ListByBus(ctx context.Context, busID int64) ([]*domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE bus_id = $1 ORDER BY created_at DESC, id DESC`, busID)
}

// ListRecent retrieves the most recently created bookings.
func (r *BookingRepository) ListRecent(ctx context.Context, limit int) ([]*domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
}

// UpdateStatus sets the status of a booking.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus) error {
	res, err := querier(ctx, r.db).ExecContext(ctx,
		`UPDATE bookings SET booking_status = $1, updated_at = now() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// Delete removes a booking.
func (r *BookingRepository) Delete(ctx context.Context, id int64) error {
	res, err := querier(ctx, r.db).ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (r *BookingRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Booking, error) {
	rows, err := querier(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var b domain.Booking
	var selected string
	var cents int64
	var travelDate sql.NullTime
	err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.RouteID,
		&b.BusID,
		&b.PassengerName,
		&b.PassengerEmail,
		&b.PassengerPhone,
		&b.PassengerNIC,
		&b.NumberOfSeats,
		&selected,
		&cents,
		&b.Status,
		&b.Kind,
		&b.BookingDate,
		&travelDate,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	b.SelectedSeats = seat.Decode(selected)
	b.TotalPrice = domain.Money(cents)
	if travelDate.Valid {
		t := travelDate.Time
		b.TravelDate = &t
	}
	return &b, nil
}
