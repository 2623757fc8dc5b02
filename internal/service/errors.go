package service

import (
	"errors"
	"fmt"
	"strings"

	"busticket/internal/repository"
)

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientSeats is matched by every *InsufficientSeatsError.
	ErrInsufficientSeats = errors.New("not enough seats available")

	// ErrSeatConflict is matched by every *SeatConflictError.
	ErrSeatConflict = errors.New("seats already occupied")

	// ErrDuplicateAssignment is returned when a bus already runs at the requested date and time.
	ErrDuplicateAssignment = errors.New("bus is already assigned at this date and time")

	// ErrBusNotApproved is returned when assigning a bus that is not APPROVED.
	ErrBusNotApproved = errors.New("bus is not approved")

	// ErrConflict is returned for uniqueness clashes on registration.
	ErrConflict = errors.New("conflict")

	// ErrEmailTaken is returned when the email is already registered.
	ErrEmailTaken = fmt.Errorf("%w: email already registered", ErrConflict)

	// ErrRegistrationTaken is returned when the bus registration number is already registered.
	ErrRegistrationTaken = fmt.Errorf("%w: registration number already exists", ErrConflict)

	// ErrUserExists is returned when the ID number or company name is already registered.
	ErrUserExists = fmt.Errorf("%w: user already registered", ErrConflict)

	// ErrInUse is returned when deleting an entity that bookings or assignments still reference.
	ErrInUse = errors.New("entity is still referenced")

	// ErrBookingCancelled is returned when issuing a ticket for a cancelled booking.
	ErrBookingCancelled = errors.New("booking is cancelled")

	// ErrForbidden is returned when the actor may not perform the operation.
	ErrForbidden = errors.New("operation not permitted for this user")

	// ErrStorage is matched by every *StorageError.
	ErrStorage = errors.New("storage failure")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Is makes errors.Is(err, ErrValidation) succeed.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// InsufficientSeatsError reports a reservation larger than the remaining capacity.
type InsufficientSeatsError struct {
	Available int
	Requested int
}

func (e *InsufficientSeatsError) Error() string {
	return fmt.Sprintf("Not enough seats available. Available: %d, Requested: %d", e.Available, e.Requested)
}

func (e *InsufficientSeatsError) Is(target error) bool { return target == ErrInsufficientSeats }

// SeatConflictError reports requested seats that are already occupied.
type SeatConflictError struct {
	Seats []string
}

func (e *SeatConflictError) Error() string {
	return "seats already occupied: " + strings.Join(e.Seats, ", ")
}

func (e *SeatConflictError) Is(target error) bool { return target == ErrSeatConflict }

// StorageError wraps an unexpected failure of the underlying store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// notFound annotates repository.ErrNotFound with the missing entity.
func notFound(entity string, id int64) error {
	return fmt.Errorf("%s %d: %w", entity, id, repository.ErrNotFound)
}

// lookupErr converts a repository read error into a service error: a missing
// row becomes a NotFound for entity/id, anything else a StorageError.
func lookupErr(op, entity string, id int64, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(entity, id)
	}
	return storageErr(op, err)
}

// storageErr wraps err as a StorageError unless it already carries a
// service-level meaning.
func storageErr(op string, err error) error {
	if err == nil || isDomainError(err) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func isDomainError(err error) bool {
	for _, target := range []error{
		repository.ErrNotFound,
		ErrValidation,
		ErrInsufficientSeats,
		ErrSeatConflict,
		ErrDuplicateAssignment,
		ErrBusNotApproved,
		ErrConflict,
		ErrInUse,
		ErrBookingCancelled,
		ErrForbidden,
		ErrStorage,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
