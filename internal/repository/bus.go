package repository

import (
	"context"

	"busticket/internal/domain"
)

// BusRepository defines the persistence operations for buses.
type BusRepository interface {
	// Create persists a new bus and sets its ID.
	Create(ctx context.Context, bus *domain.Bus) error

	// GetByID retrieves a bus by ID.
	GetByID(ctx context.Context, id int64) (*domain.Bus, error)

	// GetByIDForUpdate retrieves a bus and locks its row until the enclosing
	// transaction ends.
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Bus, error)

	// GetAll retrieves all buses.
	GetAll(ctx context.Context) ([]*domain.Bus, error)

	// GetByStatus retrieves buses with the given status.
	GetByStatus(ctx context.Context, status domain.BusStatus) ([]*domain.Bus, error)

	// GetByOwner retrieves buses registered by an owner.
	GetByOwner(ctx context.Context, ownerID int64) ([]*domain.Bus, error)

	// ExistsByRegistration reports whether a registration number is taken.
	ExistsByRegistration(ctx context.Context, registrationNumber string) (bool, error)

	// UpdateStatus sets the status and rejection reason of a bus.
	UpdateStatus(ctx context.Context, id int64, status domain.BusStatus, reason string) error

	// Delete removes a bus.
	Delete(ctx context.Context, id int64) error
}
