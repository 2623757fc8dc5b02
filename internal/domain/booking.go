package domain

import "time"

// BookingStatus represents the status of a booking.
type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// BookingKind distinguishes passenger reservations from administrative seat blocks.
type BookingKind string

const (
	BookingKindStandard  BookingKind = "STANDARD"
	BookingKindSeatBlock BookingKind = "SEAT_BLOCK"
)

// Booking is one reservation of seats on a (bus, route) pair.
type Booking struct {
	ID             int64
	UserID         int64
	RouteID        int64
	BusID          int64
	PassengerName  string
	PassengerEmail string
	PassengerPhone string
	PassengerNIC   string
	NumberOfSeats  int
	SelectedSeats  []string
	TotalPrice     Money
	Status         BookingStatus
	Kind           BookingKind
	BookingDate    time.Time
	TravelDate     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsConfirmed reports whether the booking still holds its seats.
func (b *Booking) IsConfirmed() bool {
	return b.Status == BookingStatusConfirmed
}

// SeatStatus is the per-seat view of a (bus, route) pair.
type SeatStatus struct {
	BusID          int64
	RouteID        int64
	Capacity       int
	AllSeats       []string
	OccupiedSeats  []string
	AvailableSeats []string
}
