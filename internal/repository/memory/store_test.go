package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"busticket/internal/domain"
	"busticket/internal/repository"
)

func TestStore_RollsBackFailedTransaction(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewStore()

	user := &domain.User{FirstName: "Kamal", Email: "kamal@example.com", Type: domain.UserTypePassenger}
	if err := s.Users().Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.Bookings().Create(ctx, &domain.Booking{UserID: user.ID, NumberOfSeats: 1}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	all, _ := s.Bookings().ListRecent(ctx, 0)
	if len(all) != 0 {
		t.Fatalf("expected rollback to discard booking, found %d", len(all))
	}
}

func TestStore_ReadsOutsideTxSeeOnlyCommittedData(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewStore()

	user := &domain.User{FirstName: "Kamal", Email: "kamal@example.com", Type: domain.UserTypePassenger}
	if err := s.Users().Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	inTx := make(chan struct{})
	finish := make(chan struct{})
	txDone := make(chan error, 1)
	boom := errors.New("boom")
	go func() {
		txDone <- s.WithinTx(ctx, func(ctx context.Context) error {
			err := s.Bookings().Create(ctx, &domain.Booking{UserID: user.ID, BusID: 1, RouteID: 1, NumberOfSeats: 2, Status: domain.BookingStatusConfirmed})
			close(inTx)
			if err != nil {
				return err
			}
			<-finish
			return boom
		})
	}()
	<-inTx

	seen := make(chan int, 1)
	go func() {
		all, _ := s.Bookings().ListByBusAndRoute(ctx, 1, 1, domain.BookingStatusConfirmed)
		seen <- len(all)
	}()

	select {
	case n := <-seen:
		t.Fatalf("read returned %d bookings while the transaction was still open", n)
	case <-time.After(20 * time.Millisecond):
	}

	close(finish)
	if err := <-txDone; !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if n := <-seen; n != 0 {
		t.Errorf("expected the rolled back booking to stay invisible, saw %d", n)
	}
}

func TestStore_ErrorInjectionAndCalls(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewStore()

	injected := errors.New("disk full")
	s.SetError("routes.Create", injected)

	err := s.Routes().Create(ctx, &domain.Route{FromLocation: "A", ToLocation: "B"})
	if !errors.Is(err, injected) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if s.Calls("routes.Create") != 1 {
		t.Errorf("expected 1 call, got %d", s.Calls("routes.Create"))
	}

	s.SetError("routes.Create", nil)
	if err := s.Routes().Create(ctx, &domain.Route{FromLocation: "A", ToLocation: "B"}); err != nil {
		t.Fatalf("unexpected error after clearing injection: %v", err)
	}
}

func TestAssignmentRepository_RejectsDuplicateSlot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewStore()

	owner := &domain.User{Email: "owner@example.com", Type: domain.UserTypeOwner, CompanyName: "Lanka Lines"}
	_ = s.Users().Create(ctx, owner)
	bus := &domain.Bus{OwnerID: owner.ID, RegistrationNumber: "NC-1", SeatingCapacity: 40}
	_ = s.Buses().Create(ctx, bus)
	route := &domain.Route{FromLocation: "Colombo", ToLocation: "Galle"}
	_ = s.Routes().Create(ctx, route)

	date := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	first := &domain.RouteAssignment{RouteID: route.ID, BusID: bus.ID, DepartureDate: date, DepartureTime: "07:00", AssignedSeats: 40}
	if err := s.Assignments().Create(ctx, first); err != nil {
		t.Fatalf("first assignment: %v", err)
	}
	second := &domain.RouteAssignment{RouteID: route.ID, BusID: bus.ID, DepartureDate: date, DepartureTime: "07:00", AssignedSeats: 10}
	if err := s.Assignments().Create(ctx, second); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}
