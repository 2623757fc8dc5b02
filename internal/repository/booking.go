package repository

import (
	"context"

	"busticket/internal/domain"
)

// BookingRepository defines the persistence operations for bookings.
type BookingRepository interface {
	// Create persists a new booking and sets its ID.
	Create(ctx context.Context, booking *domain.Booking) error

	// GetByID retrieves a booking by ID.
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)

	// GetByIDForUpdate retrieves a booking and locks its row until the
	// enclosing transaction ends.
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Booking, error)

	// ListByBusAndRoute retrieves bookings of a (bus, route) pair with the
	// given status, ordered by ID.
	ListByBusAndRoute(ctx context.Context, busID, routeID int64, status domain.BookingStatus) ([]*domain.Booking, error)

	// ListByUser retrieves bookings made by a user, newest first.
	ListByUser(ctx context.Context, userID int64) ([]*domain.Booking, error)

	// ListByRoute retrieves bookings on a route, newest first.
	ListByRoute(ctx context.Context, routeID int64) ([]*domain.Booking, error)

	// ListByBus retrieves bookings on a bus, newest first.
	ListByBus(ctx context.Context, busID int64) ([]*domain.Booking, error)

	// ListRecent retrieves the most recently created bookings.
	ListRecent(ctx context.Context, limit int) ([]*domain.Booking, error)

	// UpdateStatus sets the status of a booking.
	UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus) error

	// Delete removes a booking.
	Delete(ctx context.Context, id int64) error
}
