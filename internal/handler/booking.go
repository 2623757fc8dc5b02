package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"busticket/internal/domain"
	"busticket/internal/seat"
	"busticket/internal/service"
)

// BookingHandler handles HTTP requests for bookings, seat views and tickets.
type BookingHandler struct {
	ledger  *service.BookingLedger
	tickets *service.TicketService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(ledger *service.BookingLedger, tickets *service.TicketService) *BookingHandler {
	return &BookingHandler{ledger: ledger, tickets: tickets}
}

// SeatList is the selected_seats field. Clients send the stored text form
// ("[1,2]") but a JSON array of strings or numbers is accepted too.
type SeatList string

// UnmarshalJSON implements json.Unmarshaler.
func (s *SeatList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*s = SeatList(raw)
		return nil
	case len(data) > 0 && data[0] == '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		tokens := make([]string, 0, len(items))
		for _, item := range items {
			var str string
			if err := json.Unmarshal(item, &str); err == nil {
				tokens = append(tokens, str)
				continue
			}
			var num json.Number
			if err := json.Unmarshal(item, &num); err != nil {
				return &fieldError{Field: "selected_seats", Message: "selected_seats entries must be strings or numbers"}
			}
			tokens = append(tokens, num.String())
		}
		*s = SeatList(seat.Encode(tokens))
		return nil
	default:
		return &fieldError{Field: "selected_seats", Message: "selected_seats must be a string or an array"}
	}
}

// CreateBookingRequest is the HTTP request body for creating a booking.
type CreateBookingRequest struct {
	UserID         int64    `json:"user_id"`
	RouteID        int64    `json:"route_id"`
	BusID          int64    `json:"bus_id"`
	PassengerName  string   `json:"passenger_name"`
	PassengerEmail string   `json:"passenger_email"`
	PassengerPhone string   `json:"passenger_phone"`
	PassengerNIC   string   `json:"passenger_nic,omitempty"`
	NumberOfSeats  int      `json:"number_of_seats"`
	SelectedSeats  SeatList `json:"selected_seats"`
	TravelDate     string   `json:"travel_date,omitempty"`
}

// BlockSeatsRequest is the HTTP request body for taking seats off sale.
type BlockSeatsRequest struct {
	ActorID int64    `json:"actor_id"`
	BusID   int64    `json:"bus_id"`
	RouteID int64    `json:"route_id"`
	Seats   SeatList `json:"seats"`
}

// BookingResponse is the HTTP response for a booking.
type BookingResponse struct {
	ID             int64        `json:"id"`
	UserID         int64        `json:"user_id"`
	RouteID        int64        `json:"route_id"`
	BusID          int64        `json:"bus_id"`
	PassengerName  string       `json:"passenger_name"`
	PassengerEmail string       `json:"passenger_email"`
	PassengerPhone string       `json:"passenger_phone"`
	PassengerNIC   string       `json:"passenger_nic,omitempty"`
	NumberOfSeats  int          `json:"number_of_seats"`
	SelectedSeats  []string     `json:"selected_seats"`
	TotalPrice     domain.Money `json:"total_price"`
	Status         string       `json:"booking_status"`
	Kind           string       `json:"booking_kind"`
	BookingDate    time.Time    `json:"booking_date"`
	TravelDate     string       `json:"travel_date,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// SeatStatusResponse is the HTTP response for the per-seat view of a pair.
type SeatStatusResponse struct {
	BusID          int64    `json:"bus_id"`
	RouteID        int64    `json:"route_id"`
	TotalSeats     int      `json:"total_seats"`
	AllSeats       []string `json:"all_seats"`
	OccupiedSeats  []string `json:"occupied_seats"`
	AvailableSeats []string `json:"available_seats"`
	OccupiedCount  int      `json:"occupied_count"`
	AvailableCount int      `json:"available_count"`
}

func toBookingResponse(b *domain.Booking) BookingResponse {
	resp := BookingResponse{
		ID:             b.ID,
		UserID:         b.UserID,
		RouteID:        b.RouteID,
		BusID:          b.BusID,
		PassengerName:  b.PassengerName,
		PassengerEmail: b.PassengerEmail,
		PassengerPhone: b.PassengerPhone,
		PassengerNIC:   b.PassengerNIC,
		NumberOfSeats:  b.NumberOfSeats,
		SelectedSeats:  b.SelectedSeats,
		TotalPrice:     b.TotalPrice,
		Status:         string(b.Status),
		Kind:           string(b.Kind),
		BookingDate:    b.BookingDate,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
	if resp.SelectedSeats == nil {
		resp.SelectedSeats = []string{}
	}
	if b.TravelDate != nil {
		resp.TravelDate = b.TravelDate.Format(domain.DateLayout)
	}
	return resp
}

// CreateBooking handles POST /v1/bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	booking, err := h.ledger.Reserve(c.Request.Context(), service.ReserveRequest{
		UserID:         req.UserID,
		RouteID:        req.RouteID,
		BusID:          req.BusID,
		PassengerName:  req.PassengerName,
		PassengerEmail: req.PassengerEmail,
		PassengerPhone: req.PassengerPhone,
		PassengerNIC:   req.PassengerNIC,
		NumberOfSeats:  req.NumberOfSeats,
		SelectedSeats:  string(req.SelectedSeats),
		TravelDate:     req.TravelDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toBookingResponse(booking))
}

// GetBooking handles GET /v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	booking, err := h.ledger.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// CancelBooking handles PUT /v1/bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	booking, err := h.ledger.Cancel(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// DeleteBooking handles DELETE /v1/bookings/:id
func (h *BookingHandler) DeleteBooking(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.ledger.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// AvailableSeats handles GET /v1/bookings/available-seats?bus_id=&route_id=
func (h *BookingHandler) AvailableSeats(c *gin.Context) {
	busID, routeID, ok := pairQuery(c)
	if !ok {
		return
	}

	available, err := h.ledger.AvailableSeats(c.Request.Context(), busID, routeID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"bus_id": busID, "route_id": routeID, "available_seats": available})
}

// OccupiedSeats handles GET /v1/bookings/occupied-seats?bus_id=&route_id=
func (h *BookingHandler) OccupiedSeats(c *gin.Context) {
	busID, routeID, ok := pairQuery(c)
	if !ok {
		return
	}

	occupied, err := h.ledger.OccupiedSeats(c.Request.Context(), busID, routeID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"bus_id": busID, "route_id": routeID, "occupied_seats": occupied})
}

// SeatStatus handles GET /v1/bookings/seat-status?bus_id=&route_id=
func (h *BookingHandler) SeatStatus(c *gin.Context) {
	busID, routeID, ok := pairQuery(c)
	if !ok {
		return
	}

	status, err := h.ledger.SeatStatus(c.Request.Context(), busID, routeID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, SeatStatusResponse{
		BusID:          status.BusID,
		RouteID:        status.RouteID,
		TotalSeats:     status.Capacity,
		AllSeats:       status.AllSeats,
		OccupiedSeats:  status.OccupiedSeats,
		AvailableSeats: status.AvailableSeats,
		OccupiedCount:  len(status.OccupiedSeats),
		AvailableCount: len(status.AvailableSeats),
	})
}

// GetByUser handles GET /v1/bookings/user/:userId
func (h *BookingHandler) GetByUser(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	bookings, err := h.ledger.ListByUser(c.Request.Context(), userID)
	respondBookings(c, bookings, err)
}

// GetByRoute handles GET /v1/bookings/route/:routeId
func (h *BookingHandler) GetByRoute(c *gin.Context) {
	routeID, ok := pathID(c, "routeId")
	if !ok {
		return
	}
	bookings, err := h.ledger.ListByRoute(c.Request.Context(), routeID)
	respondBookings(c, bookings, err)
}

// GetByBus handles GET /v1/bookings/bus/:busId
func (h *BookingHandler) GetByBus(c *gin.Context) {
	busID, ok := pathID(c, "busId")
	if !ok {
		return
	}
	bookings, err := h.ledger.ListByBus(c.Request.Context(), busID)
	respondBookings(c, bookings, err)
}

// GetRecent handles GET /v1/bookings/recent
func (h *BookingHandler) GetRecent(c *gin.Context) {
	bookings, err := h.ledger.ListRecent(c.Request.Context())
	respondBookings(c, bookings, err)
}

// DownloadTicket handles GET /v1/bookings/:id/ticket
func (h *BookingHandler) DownloadTicket(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	pdf, filename, err := h.tickets.GenerateTicket(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// BlockSeats handles POST /v1/bookings/seat-blocks
func (h *BookingHandler) BlockSeats(c *gin.Context) {
	var req BlockSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	booking, err := h.ledger.BlockSeats(c.Request.Context(), service.BlockSeatsRequest{
		ActorID: req.ActorID,
		BusID:   req.BusID,
		RouteID: req.RouteID,
		Seats:   string(req.Seats),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toBookingResponse(booking))
}

// ReleaseSeats handles DELETE /v1/bookings/seat-blocks?actor_id=&bus_id=&route_id=
func (h *BookingHandler) ReleaseSeats(c *gin.Context) {
	actorID, ok := queryID(c, "actor_id")
	if !ok {
		return
	}
	busID, routeID, ok := pairQuery(c)
	if !ok {
		return
	}

	released, err := h.ledger.ReleaseBlockedSeats(c.Request.Context(), actorID, busID, routeID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"released": released})
}

func pairQuery(c *gin.Context) (busID, routeID int64, ok bool) {
	if busID, ok = queryID(c, "bus_id"); !ok {
		return 0, 0, false
	}
	if routeID, ok = queryID(c, "route_id"); !ok {
		return 0, 0, false
	}
	return busID, routeID, true
}

func respondBookings(c *gin.Context, bookings []*domain.Booking, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	response := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		response = append(response, toBookingResponse(b))
	}
	c.Header("X-Total-Count", strconv.Itoa(len(response)))
	respondJSON(c, http.StatusOK, response)
}
