package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"busticket/internal/domain"
	"busticket/internal/repository"
	"busticket/internal/seat"
	"busticket/pkg/logger"
	"busticket/pkg/metrics"
)

// recentBookingsLimit is the size of the ListRecent window.
const recentBookingsLimit = 10

// CapacityResolver supplies the seating capacity of a bus and the ticket
// price of a route. LockCapacity additionally locks the bus until the
// enclosing transaction ends.
type CapacityResolver interface {
	ResolveCapacityAndPrice(ctx context.Context, busID, routeID int64) (int, domain.Money, error)
	LockCapacity(ctx context.Context, busID, routeID int64) (int, domain.Money, error)
}

var _ CapacityResolver = (*RouteRegistry)(nil)

// BookingLedger is the authoritative record of seat reservations per
// (bus, route) pair. Availability is always recomputed from CONFIRMED
// bookings in the store.
type BookingLedger struct {
	tx       repository.Transactor
	bookings repository.BookingRepository
	users    repository.UserRepository
	registry CapacityResolver
	log      logger.Logger
	rec      recorder
	notifier *NotificationService
	now      func() time.Time
}

// NewBookingLedger creates a new BookingLedger.
func NewBookingLedger(
	tx repository.Transactor,
	bookings repository.BookingRepository,
	users repository.UserRepository,
	registry CapacityResolver,
	log logger.Logger,
	m *metrics.Metrics,
) *BookingLedger {
	return &BookingLedger{
		tx:       tx,
		bookings: bookings,
		users:    users,
		registry: registry,
		log:      log,
		rec:      recorder{m: m},
		now:      time.Now,
	}
}

// SetNotifier enables passenger notifications for reservations and
// cancellations.
func (l *BookingLedger) SetNotifier(n *NotificationService) {
	l.notifier = n
}

// ReserveRequest contains the parameters for reserving seats.
type ReserveRequest struct {
	UserID         int64
	RouteID        int64
	BusID          int64
	PassengerName  string
	PassengerEmail string
	PassengerPhone string
	PassengerNIC   string
	NumberOfSeats  int
	SelectedSeats  string // stored seat-list text, e.g. "[10,14]"; may be empty
	TravelDate     string // YYYY-MM-DD, optional
}

// AvailableSeats returns capacity minus the seats held by CONFIRMED bookings
// of the pair. The result may be negative if data was edited out of band;
// callers treat anything <= 0 as sold out.
func (l *BookingLedger) AvailableSeats(ctx context.Context, busID, routeID int64) (int, error) {
	if err := checkPair(busID, routeID); err != nil {
		return 0, err
	}
	capacity, _, err := l.registry.ResolveCapacityAndPrice(ctx, busID, routeID)
	if err != nil {
		return 0, err
	}
	confirmed, err := l.confirmed(ctx, busID, routeID)
	if err != nil {
		return 0, err
	}
	return capacity - seatsHeld(confirmed), nil
}

// OccupiedSeats returns the seat tokens of every CONFIRMED booking of the
// pair, in booking order. Tokens are compared as opaque strings.
func (l *BookingLedger) OccupiedSeats(ctx context.Context, busID, routeID int64) ([]string, error) {
	if err := checkPair(busID, routeID); err != nil {
		return nil, err
	}
	if _, _, err := l.registry.ResolveCapacityAndPrice(ctx, busID, routeID); err != nil {
		return nil, err
	}
	confirmed, err := l.confirmed(ctx, busID, routeID)
	if err != nil {
		return nil, err
	}
	return occupiedTokens(confirmed), nil
}

// SeatStatus returns the per-seat view of the pair. Seats are numbered
// "1".."capacity".
func (l *BookingLedger) SeatStatus(ctx context.Context, busID, routeID int64) (*domain.SeatStatus, error) {
	if err := checkPair(busID, routeID); err != nil {
		return nil, err
	}
	capacity, _, err := l.registry.ResolveCapacityAndPrice(ctx, busID, routeID)
	if err != nil {
		return nil, err
	}
	confirmed, err := l.confirmed(ctx, busID, routeID)
	if err != nil {
		return nil, err
	}

	occupied := occupiedTokens(confirmed)
	taken := make(map[string]struct{}, len(occupied))
	for _, t := range occupied {
		taken[t] = struct{}{}
	}

	all := make([]string, 0, capacity)
	available := make([]string, 0, capacity)
	for i := 1; i <= capacity; i++ {
		n := strconv.Itoa(i)
		all = append(all, n)
		if _, ok := taken[n]; !ok {
			available = append(available, n)
		}
	}

	return &domain.SeatStatus{
		BusID:          busID,
		RouteID:        routeID,
		Capacity:       capacity,
		AllSeats:       all,
		OccupiedSeats:  occupied,
		AvailableSeats: available,
	}, nil
}

// Reserve creates a CONFIRMED booking if the pair has room for it and none of
// the requested seat tokens is occupied. The check and the insert run in one
// transaction holding the bus row lock.
func (l *BookingLedger) Reserve(ctx context.Context, req ReserveRequest) (*domain.Booking, error) {
	tokens := seat.Decode(req.SelectedSeats)
	travelDate, err := validateReserve(&req, tokens)
	if err != nil {
		l.rec.reservationRejected("validation_error")
		return nil, err
	}

	draft := &domain.Booking{
		UserID:         req.UserID,
		RouteID:        req.RouteID,
		BusID:          req.BusID,
		PassengerName:  req.PassengerName,
		PassengerEmail: req.PassengerEmail,
		PassengerPhone: req.PassengerPhone,
		PassengerNIC:   req.PassengerNIC,
		NumberOfSeats:  req.NumberOfSeats,
		SelectedSeats:  tokens,
		Kind:           domain.BookingKindStandard,
		TravelDate:     travelDate,
	}
	return l.place(ctx, draft, true)
}

// place runs the capacity and seat checks and inserts the booking. Seat
// blocks are not charged.
func (l *BookingLedger) place(ctx context.Context, draft *domain.Booking, charge bool) (*domain.Booking, error) {
	err := l.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := l.users.GetByID(ctx, draft.UserID); err != nil {
			return lookupErr("get user", "user", draft.UserID, err)
		}

		capacity, price, err := l.registry.LockCapacity(ctx, draft.BusID, draft.RouteID)
		if err != nil {
			return err
		}

		confirmed, err := l.confirmed(ctx, draft.BusID, draft.RouteID)
		if err != nil {
			return err
		}

		available := capacity - seatsHeld(confirmed)
		if draft.NumberOfSeats > available {
			return &InsufficientSeatsError{Available: available, Requested: draft.NumberOfSeats}
		}

		if len(draft.SelectedSeats) > 0 {
			if taken := seat.Intersect(draft.SelectedSeats, occupiedTokens(confirmed)); len(taken) > 0 {
				return &SeatConflictError{Seats: taken}
			}
		}

		now := l.now()
		if charge {
			total, err := price.Times(draft.NumberOfSeats)
			if err != nil {
				return invalid("number_of_seats", fmt.Sprintf("total price out of range for %d seat(s) at %s", draft.NumberOfSeats, price))
			}
			draft.TotalPrice = total
		}
		draft.Status = domain.BookingStatusConfirmed
		draft.BookingDate = now
		draft.CreatedAt = now
		draft.UpdatedAt = now

		if err := l.bookings.Create(ctx, draft); err != nil {
			return l.storageFailure("create booking", err)
		}
		return nil
	})
	if err != nil {
		l.reservationRejected(draft, err)
		return nil, err
	}

	l.rec.bookingCreated(draft.NumberOfSeats)
	l.log.Info("booking confirmed",
		"booking_id", draft.ID,
		"bus_id", draft.BusID,
		"route_id", draft.RouteID,
		"seats", draft.NumberOfSeats,
		"kind", draft.Kind,
		"total_price", draft.TotalPrice.String(),
	)
	if l.notifier != nil && draft.Kind != domain.BookingKindSeatBlock {
		l.notifier.NotifyBookingConfirmed(ctx, draft)
	}
	return draft, nil
}

// Cancel moves a booking from CONFIRMED to CANCELLED, releasing its seats.
// Cancelling an already cancelled booking returns it unchanged.
func (l *BookingLedger) Cancel(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	if bookingID <= 0 {
		return nil, invalid("booking_id", "must be positive")
	}

	var booking *domain.Booking
	var changed bool
	err := l.tx.WithinTx(ctx, func(ctx context.Context) error {
		b, err := l.bookings.GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			return lookupErr("lock booking", "booking", bookingID, err)
		}
		booking = b
		if b.Status == domain.BookingStatusCancelled {
			return nil
		}

		if err := l.bookings.UpdateStatus(ctx, bookingID, domain.BookingStatusCancelled); err != nil {
			return l.storageFailure("cancel booking", err)
		}
		b.Status = domain.BookingStatusCancelled
		b.UpdatedAt = l.now()
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		l.rec.bookingCancelled()
		l.log.Info("booking cancelled",
			"booking_id", booking.ID,
			"bus_id", booking.BusID,
			"route_id", booking.RouteID,
			"seats", booking.NumberOfSeats,
		)
		if l.notifier != nil && booking.Kind != domain.BookingKindSeatBlock {
			l.notifier.NotifyBookingCancelled(ctx, booking)
		}
	}
	return booking, nil
}

// BlockSeatsRequest names the seats an operator takes off sale.
type BlockSeatsRequest struct {
	ActorID int64
	BusID   int64
	RouteID int64
	Seats   string // stored seat-list text
}

// BlockSeats takes seats off sale on behalf of an owner or administrator by
// recording a zero-price CONFIRMED booking owned by the actor. It goes
// through the same checks as Reserve.
func (l *BookingLedger) BlockSeats(ctx context.Context, req BlockSeatsRequest) (*domain.Booking, error) {
	if req.ActorID <= 0 {
		return nil, invalid("actor_id", "must be positive")
	}
	if err := checkPair(req.BusID, req.RouteID); err != nil {
		return nil, err
	}
	tokens := seat.Decode(req.Seats)
	if len(tokens) == 0 {
		return nil, invalid("seats", "at least one seat is required")
	}
	if dups := seat.Duplicates(tokens); len(dups) > 0 {
		return nil, invalid("seats", "duplicate seats: "+strings.Join(dups, ", "))
	}

	actor, err := l.users.GetByID(ctx, req.ActorID)
	if err != nil {
		return nil, lookupErr("get user", "user", req.ActorID, err)
	}
	if actor.Type != domain.UserTypeAdmin && actor.Type != domain.UserTypeOwner {
		return nil, fmt.Errorf("user %d (%s) cannot block seats: %w", actor.ID, actor.Type, ErrForbidden)
	}

	draft := &domain.Booking{
		UserID:         actor.ID,
		RouteID:        req.RouteID,
		BusID:          req.BusID,
		PassengerName:  "Blocked by " + actor.FullName(),
		PassengerEmail: actor.Email,
		PassengerPhone: actor.Phone,
		NumberOfSeats:  len(tokens),
		SelectedSeats:  tokens,
		Kind:           domain.BookingKindSeatBlock,
	}
	return l.place(ctx, draft, false)
}

// ReleaseBlockedSeats cancels the seat blocks the actor holds on the pair and
// returns how many were released.
func (l *BookingLedger) ReleaseBlockedSeats(ctx context.Context, actorID, busID, routeID int64) (int, error) {
	if actorID <= 0 {
		return 0, invalid("actor_id", "must be positive")
	}
	if err := checkPair(busID, routeID); err != nil {
		return 0, err
	}

	released := 0
	err := l.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, _, err := l.registry.LockCapacity(ctx, busID, routeID); err != nil {
			return err
		}
		confirmed, err := l.confirmed(ctx, busID, routeID)
		if err != nil {
			return err
		}
		for _, b := range confirmed {
			if b.Kind != domain.BookingKindSeatBlock || b.UserID != actorID {
				continue
			}
			if err := l.bookings.UpdateStatus(ctx, b.ID, domain.BookingStatusCancelled); err != nil {
				return l.storageFailure("release seat block", err)
			}
			released++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if released > 0 {
		l.log.Info("seat blocks released", "actor_id", actorID, "bus_id", busID, "route_id", routeID, "count", released)
	}
	return released, nil
}

// Get returns a booking by ID.
func (l *BookingLedger) Get(ctx context.Context, id int64) (*domain.Booking, error) {
	if id <= 0 {
		return nil, invalid("booking_id", "must be positive")
	}
	b, err := l.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr("get booking", "booking", id, err)
	}
	return b, nil
}

// ListByUser returns the bookings of a user, newest first.
func (l *BookingLedger) ListByUser(ctx context.Context, userID int64) ([]*domain.Booking, error) {
	if userID <= 0 {
		return nil, invalid("user_id", "must be positive")
	}
	bookings, err := l.bookings.ListByUser(ctx, userID)
	if err != nil {
		return nil, l.storageFailure("list bookings by user", err)
	}
	return bookings, nil
}

// ListByRoute returns the bookings on a route, newest first.
func (l *BookingLedger) ListByRoute(ctx context.Context, routeID int64) ([]*domain.Booking, error) {
	if routeID <= 0 {
		return nil, invalid("route_id", "must be positive")
	}
	bookings, err := l.bookings.ListByRoute(ctx, routeID)
	if err != nil {
		return nil, l.storageFailure("list bookings by route", err)
	}
	return bookings, nil
}

// ListByBus returns the bookings on a bus, newest first.
func (l *BookingLedger) ListByBus(ctx context.Context, busID int64) ([]*domain.Booking, error) {
	if busID <= 0 {
		return nil, invalid("bus_id", "must be positive")
	}
	bookings, err := l.bookings.ListByBus(ctx, busID)
	if err != nil {
		return nil, l.storageFailure("list bookings by bus", err)
	}
	return bookings, nil
}

// ListRecent returns the ten most recent bookings.
func (l *BookingLedger) ListRecent(ctx context.Context) ([]*domain.Booking, error) {
	bookings, err := l.bookings.ListRecent(ctx, recentBookingsLimit)
	if err != nil {
		return nil, l.storageFailure("list recent bookings", err)
	}
	return bookings, nil
}

// Delete removes a booking record.
func (l *BookingLedger) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return invalid("booking_id", "must be positive")
	}
	if err := l.bookings.Delete(ctx, id); err != nil {
		return lookupErr("delete booking", "booking", id, err)
	}
	l.log.Info("booking deleted", "booking_id", id)
	return nil
}

func (l *BookingLedger) confirmed(ctx context.Context, busID, routeID int64) ([]*domain.Booking, error) {
	bookings, err := l.bookings.ListByBusAndRoute(ctx, busID, routeID, domain.BookingStatusConfirmed)
	if err != nil {
		return nil, l.storageFailure("list confirmed bookings", err)
	}
	return bookings, nil
}

func (l *BookingLedger) reservationRejected(b *domain.Booking, err error) {
	var insufficient *InsufficientSeatsError
	var conflict *SeatConflictError
	switch {
	case errors.As(err, &insufficient):
		l.rec.reservationRejected("insufficient_seats")
		l.log.Info("reservation rejected: insufficient seats",
			"bus_id", b.BusID, "route_id", b.RouteID,
			"available", insufficient.Available, "requested", insufficient.Requested)
	case errors.As(err, &conflict):
		l.rec.reservationRejected("seat_conflict")
		l.log.Info("reservation rejected: seat conflict",
			"bus_id", b.BusID, "route_id", b.RouteID, "seats", conflict.Seats)
	case errors.Is(err, repository.ErrNotFound):
		l.rec.reservationRejected("not_found")
		l.log.Info("reservation rejected", "bus_id", b.BusID, "route_id", b.RouteID, "error", err)
	case errors.Is(err, ErrStorage):
		l.rec.reservationRejected("storage_error")
	default:
		l.rec.reservationRejected("other")
		l.log.Warn("reservation failed", "bus_id", b.BusID, "route_id", b.RouteID, "error", err)
	}
}

func (l *BookingLedger) storageFailure(op string, err error) error {
	wrapped := storageErr(op, err)
	if errors.Is(wrapped, ErrStorage) {
		l.rec.storageFailure(op)
		l.log.Error("storage failure", "op", op, "error", err)
	}
	return wrapped
}

func validateReserve(req *ReserveRequest, tokens []string) (*time.Time, error) {
	req.PassengerName = strings.TrimSpace(req.PassengerName)
	req.PassengerEmail = strings.TrimSpace(req.PassengerEmail)
	req.PassengerPhone = strings.TrimSpace(req.PassengerPhone)
	req.PassengerNIC = strings.TrimSpace(req.PassengerNIC)

	switch {
	case req.UserID <= 0:
		return nil, invalid("user_id", "must be positive")
	case req.RouteID <= 0:
		return nil, invalid("route_id", "must be positive")
	case req.BusID <= 0:
		return nil, invalid("bus_id", "must be positive")
	case req.PassengerName == "":
		return nil, invalid("passenger_name", "is required")
	case req.PassengerEmail == "":
		return nil, invalid("passenger_email", "is required")
	case req.PassengerPhone == "":
		return nil, invalid("passenger_phone", "is required")
	case req.NumberOfSeats <= 0:
		return nil, invalid("number_of_seats", "must be at least 1")
	}
	if _, err := mail.ParseAddress(req.PassengerEmail); err != nil {
		return nil, invalid("passenger_email", "is not a valid email address")
	}
	if dups := seat.Duplicates(tokens); len(dups) > 0 {
		return nil, invalid("selected_seats", "duplicate seats: "+strings.Join(dups, ", "))
	}
	if len(tokens) > 0 && len(tokens) != req.NumberOfSeats {
		return nil, invalid("selected_seats", fmt.Sprintf("%d seats selected but number_of_seats is %d", len(tokens), req.NumberOfSeats))
	}

	if req.TravelDate == "" {
		return nil, nil
	}
	d, err := time.Parse(domain.DateLayout, strings.TrimSpace(req.TravelDate))
	if err != nil {
		return nil, invalid("travel_date", "must be YYYY-MM-DD")
	}
	return &d, nil
}

func checkPair(busID, routeID int64) error {
	if busID <= 0 {
		return invalid("bus_id", "must be positive")
	}
	if routeID <= 0 {
		return invalid("route_id", "must be positive")
	}
	return nil
}

func seatsHeld(bookings []*domain.Booking) int {
	total := 0
	for _, b := range bookings {
		total += b.NumberOfSeats
	}
	return total
}

func occupiedTokens(bookings []*domain.Booking) []string {
	out := make([]string, 0)
	for _, b := range bookings {
		out = append(out, b.SelectedSeats...)
	}
	return out
}
