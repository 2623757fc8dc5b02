package service

import (
	"context"
	"strings"
	"testing"

	"busticket/internal/domain"
	"busticket/pkg/logger"
)

func TestNotifications_BookingLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	bus := f.addBus(t, 10, domain.BusStatusApproved)
	route := f.addRoute(t, "250")
	passenger := f.addUser(t, domain.UserTypePassenger)
	admin := f.addUser(t, domain.UserTypeAdmin)

	b := mustReserve(t, f, reserveRequest(passenger, bus, route, 2, "[3,4]"))
	if _, err := f.ledger.BlockSeats(ctx, BlockSeatsRequest{ActorID: admin.ID, BusID: bus.ID, RouteID: route.ID, Seats: "[9]"}); err != nil {
		t.Fatalf("block seats: %v", err)
	}
	if _, err := f.ledger.Cancel(ctx, b.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := f.ledger.Cancel(ctx, b.ID); err != nil {
		t.Fatalf("second cancel: %v", err)
	}

	got := f.notes.Recent()
	if len(got) != 2 {
		t.Fatalf("expected 2 notifications, got %d: %+v", len(got), got)
	}
	if got[0].Type != NotificationBookingConfirmed || got[0].RecipientID != passenger.ID || got[0].Email != "nimal@example.com" {
		t.Errorf("unexpected confirmation %+v", got[0])
	}
	if !strings.Contains(got[0].Message, "500.00") {
		t.Errorf("confirmation should carry the total, got %q", got[0].Message)
	}
	if got[1].Type != NotificationBookingCancelled {
		t.Errorf("expected cancellation, got %s", got[1].Type)
	}
}

func TestNotifications_BusReview(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	approved := f.addBus(t, 30, domain.BusStatusPending)
	rejected := f.addBus(t, 30, domain.BusStatusPending)

	if _, err := f.buses.Approve(ctx, approved.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := f.buses.Reject(ctx, rejected.ID, "documents unreadable"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := f.buses.Reject(ctx, rejected.ID, " "); err == nil {
		t.Fatal("expected validation error for empty reason")
	}

	got := f.notes.Recent()
	if len(got) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(got))
	}
	if got[0].Type != NotificationBusApproved || got[0].RecipientID != approved.OwnerID {
		t.Errorf("unexpected approval %+v", got[0])
	}
	if got[1].Type != NotificationBusRejected || !strings.Contains(got[1].Message, "documents unreadable") {
		t.Errorf("unexpected rejection %+v", got[1])
	}
}

func TestNotifications_RecentIsBounded(t *testing.T) {
	t.Parallel()
	n := NewNotificationService(logger.NewNop())
	for i := 0; i < recentNotifications+5; i++ {
		n.NotifyBookingCancelled(context.Background(), &domain.Booking{ID: int64(i + 1)})
	}
	got := n.Recent()
	if len(got) != recentNotifications {
		t.Fatalf("expected %d, got %d", recentNotifications, len(got))
	}
	if !strings.Contains(got[0].Message, "#6 ") {
		t.Errorf("oldest kept should be booking 6, got %q", got[0].Message)
	}
}
