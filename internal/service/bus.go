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
)

// BusService handles bus registration and the approval workflow.
type BusService struct {
	buses repository.BusRepository
	users repository.UserRepository
	cache internalRedis.ReferenceCache
	log   logger.Logger
	notes *NotificationService
	now   func() time.Time
}

// NewBusService creates a new BusService. cache may be nil.
func NewBusService(buses repository.BusRepository, users repository.UserRepository, cache internalRedis.ReferenceCache, log logger.Logger) *BusService {
	if cache == nil {
		cache = internalRedis.NopCache{}
	}
	return &BusService{
		buses: buses,
		users: users,
		cache: cache,
		log:   log,
		now:   time.Now,
	}
}

// SetNotifier enables owner notifications for bus reviews.
func (s *BusService) SetNotifier(n *NotificationService) {
	s.notes = n
}

// RegisterBusRequest contains the parameters for registering a bus.
// Document copies are referenced by URL.
type RegisterBusRequest struct {
	OwnerID            int64
	Name               string
	RegistrationNumber string
	SeatingCapacity    int
	BusBookCopyURL     string
	OwnerIDCopyURL     string
}

// Register records a new bus in PENDING status.
func (s *BusService) Register(ctx context.Context, req RegisterBusRequest) (*domain.Bus, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.RegistrationNumber = strings.ToUpper(strings.TrimSpace(req.RegistrationNumber))

	switch {
	case req.OwnerID <= 0:
		return nil, invalid("owner_id", "must be positive")
	case req.Name == "":
		return nil, invalid("bus_name", "is required")
	case len(req.Name) > 100:
		return nil, invalid("bus_name", "must be at most 100 characters")
	case req.RegistrationNumber == "":
		return nil, invalid("registration_number", "is required")
	case len(req.RegistrationNumber) > 50:
		return nil, invalid("registration_number", "must be at most 50 characters")
	case req.SeatingCapacity < domain.MinBusCapacity || req.SeatingCapacity > domain.MaxBusCapacity:
		return nil, invalid("seating_capacity", fmt.Sprintf("must be between %d and %d", domain.MinBusCapacity, domain.MaxBusCapacity))
	}

	if _, err := s.users.GetByID(ctx, req.OwnerID); err != nil {
		return nil, lookupErr("get owner", "user", req.OwnerID, err)
	}

	taken, err := s.buses.ExistsByRegistration(ctx, req.RegistrationNumber)
	if err != nil {
		return nil, storageErr("check registration", err)
	}
	if taken {
		return nil, ErrRegistrationTaken
	}

	now := s.now()
	bus := &domain.Bus{
		OwnerID:            req.OwnerID,
		Name:               req.Name,
		RegistrationNumber: req.RegistrationNumber,
		SeatingCapacity:    req.SeatingCapacity,
		BusBookCopyURL:     strings.TrimSpace(req.BusBookCopyURL),
		OwnerIDCopyURL:     strings.TrimSpace(req.OwnerIDCopyURL),
		Status:             domain.BusStatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.buses.Create(ctx, bus); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrRegistrationTaken
		}
		return nil, storageErr("create bus", err)
	}

	s.log.Info("bus registered", "bus_id", bus.ID, "owner_id", bus.OwnerID, "registration_number", bus.RegistrationNumber)
	return bus, nil
}

// Get returns a bus, served from cache when possible.
func (s *BusService) Get(ctx context.Context, id int64) (*domain.Bus, error) {
	if id <= 0 {
		return nil, invalid("bus_id", "must be positive")
	}
	if cached, err := s.cache.GetBus(ctx, id); err == nil && cached != nil {
		return cached, nil
	}

	bus, err := s.buses.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr("get bus", "bus", id, err)
	}
	if err := s.cache.SetBus(ctx, bus); err != nil {
		s.log.Warn("failed to cache bus", "bus_id", id, "error", err)
	}
	return bus, nil
}

// List returns all buses.
func (s *BusService) List(ctx context.Context) ([]*domain.Bus, error) {
	buses, err := s.buses.GetAll(ctx)
	if err != nil {
		return nil, storageErr("list buses", err)
	}
	return buses, nil
}

// ListByStatus returns the buses with the given status.
func (s *BusService) ListByStatus(ctx context.Context, status string) ([]*domain.Bus, error) {
	st := domain.BusStatus(strings.ToUpper(strings.TrimSpace(status)))
	if !st.Valid() {
		return nil, invalid("status", fmt.Sprintf("unknown bus status %q", status))
	}
	buses, err := s.buses.GetByStatus(ctx, st)
	if err != nil {
		return nil, storageErr("list buses by status", err)
	}
	return buses, nil
}

// ListByOwner returns the buses of an owner.
func (s *BusService) ListByOwner(ctx context.Context, ownerID int64) ([]*domain.Bus, error) {
	if ownerID <= 0 {
		return nil, invalid("owner_id", "must be positive")
	}
	buses, err := s.buses.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, storageErr("list buses by owner", err)
	}
	return buses, nil
}

// Approve marks a bus APPROVED, clearing any rejection reason.
func (s *BusService) Approve(ctx context.Context, id int64) (*domain.Bus, error) {
	bus, err := s.setStatus(ctx, id, domain.BusStatusApproved, "")
	if err == nil && s.notes != nil {
		s.notes.NotifyBusReviewed(ctx, bus)
	}
	return bus, err
}

// Reject marks a bus REJECTED with a reason.
func (s *BusService) Reject(ctx context.Context, id int64, reason string) (*domain.Bus, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, invalid("rejection_reason", "is required")
	}
	bus, err := s.setStatus(ctx, id, domain.BusStatusRejected, reason)
	if err == nil && s.notes != nil {
		s.notes.NotifyBusReviewed(ctx, bus)
	}
	return bus, err
}

// UpdateStatus sets any known status on a bus.
func (s *BusService) UpdateStatus(ctx context.Context, id int64, status string) (*domain.Bus, error) {
	st := domain.BusStatus(strings.ToUpper(strings.TrimSpace(status)))
	if !st.Valid() {
		return nil, invalid("status", fmt.Sprintf("unknown bus status %q", status))
	}
	return s.setStatus(ctx, id, st, "")
}

func (s *BusService) setStatus(ctx context.Context, id int64, status domain.BusStatus, reason string) (*domain.Bus, error) {
	if id <= 0 {
		return nil, invalid("bus_id", "must be positive")
	}
	if err := s.buses.UpdateStatus(ctx, id, status, reason); err != nil {
		return nil, lookupErr("update bus status", "bus", id, err)
	}
	s.invalidate(ctx, id)

	bus, err := s.buses.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr("get bus", "bus", id, err)
	}
	s.log.Info("bus status changed", "bus_id", id, "status", status)
	return bus, nil
}

// Delete removes a bus that has no bookings or assignments.
func (s *BusService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return invalid("bus_id", "must be positive")
	}
	if err := s.buses.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrInUse) {
			return fmt.Errorf("bus %d has bookings or assignments: %w", id, ErrInUse)
		}
		return lookupErr("delete bus", "bus", id, err)
	}
	s.invalidate(ctx, id)
	s.log.Info("bus deleted", "bus_id", id)
	return nil
}

// RegistrationExists reports whether a registration number is already registered.
func (s *BusService) RegistrationExists(ctx context.Context, registrationNumber string) (bool, error) {
	reg := strings.ToUpper(strings.TrimSpace(registrationNumber))
	if reg == "" {
		return false, invalid("registration_number", "is required")
	}
	exists, err := s.buses.ExistsByRegistration(ctx, reg)
	if err != nil {
		return false, storageErr("check registration", err)
	}
	return exists, nil
}

func (s *BusService) invalidate(ctx context.Context, id int64) {
	if err := s.cache.InvalidateBus(ctx, id); err != nil {
		s.log.Warn("failed to invalidate bus cache", "bus_id", id, "error", err)
	}
}
