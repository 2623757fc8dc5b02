package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"busticket/internal/domain"
	"busticket/pkg/logger"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationBookingConfirmed NotificationType = "BOOKING_CONFIRMED"
	NotificationBookingCancelled NotificationType = "BOOKING_CANCELLED"
	NotificationBusApproved      NotificationType = "BUS_APPROVED"
	NotificationBusRejected      NotificationType = "BUS_REJECTED"
)

// Notification represents a notification to be sent.
type Notification struct {
	Type        NotificationType
	RecipientID int64
	Email       string
	Title       string
	Message     string
	Data        map[string]interface{}
	CreatedAt   time.Time
}

// NotificationService delivers passenger and owner notifications. Delivery
// is a structured log entry; the last notifications are kept for inspection.
type NotificationService struct {
	log logger.Logger

	mu     sync.Mutex
	recent []Notification
}

const recentNotifications = 100

// NewNotificationService creates a new NotificationService.
func NewNotificationService(log logger.Logger) *NotificationService {
	return &NotificationService{log: log}
}

// NotifyBookingConfirmed tells the passenger their seats are reserved.
func (s *NotificationService) NotifyBookingConfirmed(ctx context.Context, b *domain.Booking) {
	msg := fmt.Sprintf("Booking #%d confirmed: %d seat(s), total %s", b.ID, b.NumberOfSeats, b.TotalPrice)
	if len(b.SelectedSeats) > 0 {
		msg += fmt.Sprintf(", seats %v", b.SelectedSeats)
	}
	s.send(ctx, Notification{
		Type:        NotificationBookingConfirmed,
		RecipientID: b.UserID,
		Email:       b.PassengerEmail,
		Title:       "Booking Confirmed",
		Message:     msg,
		Data: map[string]interface{}{
			"booking_id": b.ID,
			"bus_id":     b.BusID,
			"route_id":   b.RouteID,
		},
	})
}

// NotifyBookingCancelled tells the passenger their booking was cancelled.
func (s *NotificationService) NotifyBookingCancelled(ctx context.Context, b *domain.Booking) {
	s.send(ctx, Notification{
		Type:        NotificationBookingCancelled,
		RecipientID: b.UserID,
		Email:       b.PassengerEmail,
		Title:       "Booking Cancelled",
		Message:     fmt.Sprintf("Booking #%d has been cancelled and its %d seat(s) released", b.ID, b.NumberOfSeats),
		Data:        map[string]interface{}{"booking_id": b.ID},
	})
}

// NotifyBusReviewed tells the owner the outcome of a bus review.
func (s *NotificationService) NotifyBusReviewed(ctx context.Context, bus *domain.Bus) {
	n := Notification{
		RecipientID: bus.OwnerID,
		Data:        map[string]interface{}{"bus_id": bus.ID, "registration_number": bus.RegistrationNumber},
	}
	switch bus.Status {
	case domain.BusStatusApproved:
		n.Type = NotificationBusApproved
		n.Title = "Bus Approved"
		n.Message = fmt.Sprintf("Bus %s has been approved and can now be assigned to routes", bus.RegistrationNumber)
	case domain.BusStatusRejected:
		n.Type = NotificationBusRejected
		n.Title = "Bus Rejected"
		n.Message = fmt.Sprintf("Bus %s was rejected: %s", bus.RegistrationNumber, bus.RejectionReason)
	default:
		return
	}
	s.send(ctx, n)
}

// Recent returns the notifications sent so far, oldest first.
func (s *NotificationService) Recent() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Notification(nil), s.recent...)
}

func (s *NotificationService) send(ctx context.Context, n Notification) {
	n.CreatedAt = time.Now()

	s.mu.Lock()
	s.recent = append(s.recent, n)
	if len(s.recent) > recentNotifications {
		s.recent = s.recent[len(s.recent)-recentNotifications:]
	}
	s.mu.Unlock()

	s.log.Info("notification",
		"type", n.Type,
		"recipient_id", n.RecipientID,
		"email", n.Email,
		"title", n.Title,
		"message", n.Message,
	)
}
