package postgres

import (
	"context"
	"database/sql"
	"errors"

	"busticket/internal/domain"
	"busticket/internal/repository"
)

// BusRepository implements repository.BusRepository using PostgreSQL.
type BusRepository struct {
	db *sql.DB
}

// NewBusRepository creates a new BusRepository.
func NewBusRepository(db *sql.DB) *BusRepository {
	return &BusRepository{db: db}
}

const busColumns = `id, owner_id, bus_name, registration_number, seating_capacity, bus_book_copy_url, owner_id_copy_url, status, rejection_reason, created_at, updated_at`

// Create persists a new bus.
func (r *BusRepository) Create(ctx context.Context, bus *domain.Bus) error {
	query := `
		INSERT INTO buses (owner_id, bus_name, registration_number, seating_capacity, bus_book_copy_url, owner_id_copy_url, status, rejection_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	err := querier(ctx, r.db).QueryRowContext(ctx, query,
		bus.OwnerID,
		bus.Name,
		bus.RegistrationNumber,
		bus.SeatingCapacity,
		nullString(bus.BusBookCopyURL),
		nullString(bus.OwnerIDCopyURL),
		bus.Status,
		nullString(bus.RejectionReason),
		bus.CreatedAt,
		bus.UpdatedAt,
	).Scan(&bus.ID)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

// GetByID retrieves a bus by ID.
func (r *BusRepository) GetByID(ctx context.Context, id int64) (*domain.Bus, error) {
	query := `SELECT ` + busColumns + ` FROM buses WHERE id = $1`
	return scanBus(querier(ctx, r.db).QueryRowContext(ctx, query, id))
}

// GetByIDForUpdate retrieves a bus and locks its row. Only meaningful inside a transaction.
func (r *BusRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Bus, error) {
	query := `SELECT ` + busColumns + ` FROM buses WHERE id = $1 FOR UPDATE`
	return scanBus(querier(ctx, r.db).QueryRowContext(ctx, query, id))
}

// GetAll retrieves all buses.
func (r *BusRepository) GetAll(ctx context.Context) ([]*domain.Bus, error) {
	return r.list(ctx, `SELECT `+busColumns+` FROM buses ORDER BY id`)
}

// GetByStatus retrieves buses with the given status.
func (r *BusRepository) GetByStatus(ctx context.Context, status domain.BusStatus) ([]*domain.Bus, error) {
	return r.list(ctx, `SELECT `+busColumns+` FROM buses WHERE status = $1 ORDER BY id`, status)
}

// GetByOwner retrieves buses registered by an owner.
func (r *BusRepository) GetByOwner(ctx context.Context, ownerID int64) ([]*domain.Bus, error) {
	return r.list(ctx, `SELECT `+busColumns+` FROM buses WHERE owner_id = $1 ORDER BY id`, ownerID)
}

// ExistsByRegistration reports whether a registration number is taken.
func (r *BusRepository) ExistsByRegistration(ctx context.Context, registrationNumber string) (bool, error) {
	var exists bool
	err := querier(ctx, r.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM buses WHERE registration_number = $1)`, registrationNumber,
	).Scan(&exists)
	return exists, err
}

// UpdateStatus sets the status and rejection reason of a bus.
func (r *BusRepository) UpdateStatus(ctx context.Context, id int64, status domain.BusStatus, reason string) error {
	res, err := querier(ctx, r.db).ExecContext(ctx,
		`UPDATE buses SET status = $1, rejection_reason = $2, updated_at = now() WHERE id = $3`,
		status, nullString(reason), id,
	)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// Delete removes a bus.
func (r *BusRepository) Delete(ctx context.Context, id int64) error {
	res, err := querier(ctx, r.db).ExecContext(ctx, `DELETE FROM buses WHERE id = $1`, id)
	if err != nil {
		return mapDeleteError(err)
	}
	return expectAffected(res)
}

func (r *BusRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Bus, error) {
	rows, err := querier(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buses []*domain.Bus
	for rows.Next() {
		b, err := scanBus(rows)
		if err != nil {
			return nil, err
		}
		buses = append(buses, b)
	}
	return buses, rows.Err()
}

func scanBus(row rowScanner) (*domain.Bus, error) {
	var b domain.Bus
	var bookCopy, idCopy, reason sql.NullString
	err := row.Scan(
		&b.ID,
		&b.OwnerID,
		&b.Name,
		&b.RegistrationNumber,
		&b.SeatingCapacity,
		&bookCopy,
		&idCopy,
		&b.Status,
		&reason,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	b.BusBookCopyURL = bookCopy.String
	b.OwnerIDCopyURL = idCopy.String
	b.RejectionReason = reason.String
	return &b, nil
}
