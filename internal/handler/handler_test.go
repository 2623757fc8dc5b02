package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"busticket/internal/domain"
	"busticket/internal/repository/memory"
	"busticket/internal/service"
	"busticket/pkg/logger"
	"busticket/pkg/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	store  *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.NewStore()
	log := logger.NewNop()
	m := metrics.NewMetrics("test", prometheus.NewRegistry())

	registry := service.NewRouteRegistry(store, store.Routes(), store.Assignments(), store.Buses(), nil, log, m)
	ledger := service.NewBookingLedger(store, store.Bookings(), store.Users(), registry, log, m)
	tickets := service.NewTicketService(store.Bookings(), store.Routes(), store.Buses(), log)

	users := NewUserHandler(service.NewUserService(store.Users(), log))
	buses := NewBusHandler(service.NewBusService(store.Buses(), store.Users(), nil, log))
	routes := NewRouteHandler(registry)
	bookings := NewBookingHandler(ledger, tickets)

	r := gin.New()
	v1 := r.Group("/v1")
	v1.POST("/users/register", users.Register)
	v1.GET("/users/:id", users.GetUser)
	v1.POST("/buses", buses.Register)
	v1.GET("/buses/:id", buses.GetBus)
	v1.PUT("/buses/:id/approve", buses.Approve)
	v1.PUT("/buses/:id/reject", buses.Reject)
	v1.POST("/routes", routes.CreateRoute)
	v1.GET("/routes/:id", routes.GetRoute)
	v1.POST("/routes/:id/assign", routes.AssignBus)
	v1.POST("/bookings", bookings.CreateBooking)
	v1.GET("/bookings/available-seats", bookings.AvailableSeats)
	v1.GET("/bookings/occupied-seats", bookings.OccupiedSeats)
	v1.GET("/bookings/seat-status", bookings.SeatStatus)
	v1.GET("/bookings/:id", bookings.GetBooking)
	v1.PUT("/bookings/:id/cancel", bookings.CancelBooking)
	v1.GET("/bookings/:id/ticket", bookings.DownloadTicket)
	v1.POST("/bookings/seat-blocks", bookings.BlockSeats)
	v1.DELETE("/bookings/seat-blocks", bookings.ReleaseSeats)

	return &testServer{router: r, store: store}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

// seed creates a passenger, an approved bus of the given capacity and an
// ACTIVE route priced at price.
func (s *testServer) seed(t *testing.T, capacity int, price string) (userID, busID, routeID int64) {
	t.Helper()
	ctx := context.Background()
	user := &domain.User{FirstName: "Nimal", Email: fmt.Sprintf("nimal%d@example.com", capacity), Phone: "077", Type: domain.UserTypePassenger, IDNumber: "NIC", Status: domain.UserStatusActive}
	if err := s.store.Users().Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	owner := &domain.User{FirstName: "Owner", Email: fmt.Sprintf("owner%d@example.com", capacity), Phone: "071", Type: domain.UserTypeOwner, CompanyName: "Fleet", Status: domain.UserStatusActive}
	if err := s.store.Users().Create(ctx, owner); err != nil {
		t.Fatalf("create owner: %v", err)
	}
	bus := &domain.Bus{OwnerID: owner.ID, Name: "Express", RegistrationNumber: fmt.Sprintf("NB-%d", capacity), SeatingCapacity: capacity, Status: domain.BusStatusApproved}
	if err := s.store.Buses().Create(ctx, bus); err != nil {
		t.Fatalf("create bus: %v", err)
	}
	p, err := domain.ParseMoney(price)
	if err != nil {
		t.Fatalf("parse price: %v", err)
	}
	route := &domain.Route{FromLocation: "Colombo", ToLocation: "Kandy", TicketPrice: p, Status: domain.RouteStatusActive}
	if err := s.store.Routes().Create(ctx, route); err != nil {
		t.Fatalf("create route: %v", err)
	}
	return user.ID, bus.ID, route.ID
}

func bookingBody(userID, busID, routeID int64, seats int, selected any) map[string]any {
	return map[string]any{
		"user_id":         userID,
		"bus_id":          busID,
		"route_id":        routeID,
		"passenger_name":  "Nimal Perera",
		"passenger_email": "nimal@example.com",
		"passenger_phone": "0771234567",
		"number_of_seats": seats,
		"selected_seats":  selected,
	}
}

func TestBookingHandler_CreateAndAvailability(t *testing.T) {
	s := newTestServer(t)
	userID, busID, routeID := s.seed(t, 40, "1800.00")

	w := s.do(t, http.MethodPost, "/v1/bookings", bookingBody(userID, busID, routeID, 3, "[1,2,3]"))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	booking := decode[map[string]any](t, w)
	if booking["total_price"] != 5400.0 {
		t.Errorf("expected total_price 5400, got %v", booking["total_price"])
	}
	if booking["booking_status"] != "CONFIRMED" {
		t.Errorf("expected CONFIRMED, got %v", booking["booking_status"])
	}

	w = s.do(t, http.MethodGet, fmt.Sprintf("/v1/bookings/available-seats?bus_id=%d&route_id=%d", busID, routeID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	avail := decode[map[string]any](t, w)
	if avail["available_seats"] != 37.0 {
		t.Errorf("expected 37 available, got %v", avail["available_seats"])
	}

	w = s.do(t, http.MethodGet, fmt.Sprintf("/v1/bookings/occupied-seats?bus_id=%d&route_id=%d", busID, routeID), nil)
	occ := decode[struct {
		OccupiedSeats []string `json:"occupied_seats"`
	}](t, w)
	if len(occ.OccupiedSeats) != 3 || occ.OccupiedSeats[0] != "1" {
		t.Errorf("unexpected occupied seats %v", occ.OccupiedSeats)
	}
}

func TestBookingHandler_SelectedSeatsAsArray(t *testing.T) {
	s := newTestServer(t)
	userID, busID, routeID := s.seed(t, 40, "100")

	w := s.do(t, http.MethodPost, "/v1/bookings", bookingBody(userID, busID, routeID, 2, []any{"A1", 7}))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode[BookingResponse](t, w)
	if len(resp.SelectedSeats) != 2 || resp.SelectedSeats[0] != "A1" || resp.SelectedSeats[1] != "7" {
		t.Errorf("unexpected seats %v", resp.SelectedSeats)
	}
}

func TestBookingHandler_MalformedBodyNamesField(t *testing.T) {
	s := newTestServer(t)
	userID, busID, routeID := s.seed(t, 40, "100")

	tests := []struct {
		name     string
		selected any
		wantMsg  string
	}{
		{name: "boolean entry", selected: []any{"1", true}, wantMsg: "selected_seats entries must be strings or numbers"},
		{name: "object", selected: map[string]any{"seat": 1}, wantMsg: "selected_seats must be a string or an array"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/v1/bookings", bookingBody(userID, busID, routeID, 2, tt.selected))
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			resp := decode[ErrorResponse](t, w)
			if resp.Code != "validation_error" || resp.Field != "selected_seats" || resp.Error != tt.wantMsg {
				t.Errorf("unexpected error response %+v", resp)
			}
		})
	}

	body := bookingBody(userID, busID, routeID, 2, "")
	body["number_of_seats"] = "two"
	w := s.do(t, http.MethodPost, "/v1/bookings", body)
	resp := decode[ErrorResponse](t, w)
	if w.Code != http.StatusBadRequest || resp.Field != "number_of_seats" {
		t.Errorf("expected number_of_seats field error, got %d %+v", w.Code, resp)
	}

	w = s.do(t, http.MethodPost, "/v1/routes", map[string]any{
		"from_location": "Colombo", "to_location": "Galle", "ticket_price": "184467440737095517.00",
	})
	resp = decode[ErrorResponse](t, w)
	if w.Code != http.StatusBadRequest || !strings.Contains(resp.Error, "out of range") {
		t.Errorf("expected out-of-range price rejection, got %d %+v", w.Code, resp)
	}
}

func TestBookingHandler_ErrorCodes(t *testing.T) {
	s := newTestServer(t)
	userID, busID, routeID := s.seed(t, 2, "100")

	if w := s.do(t, http.MethodPost, "/v1/bookings", bookingBody(userID, busID, routeID, 1, "[1]")); w.Code != http.StatusCreated {
		t.Fatalf("seed booking: %d %s", w.Code, w.Body.String())
	}

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{name: "insufficient seats", body: bookingBody(userID, busID, routeID, 2, ""), status: http.StatusConflict, code: codeInsufficientSeats},
		{name: "seat conflict", body: bookingBody(userID, busID, routeID, 1, "[1]"), status: http.StatusConflict, code: codeSeatConflict},
		{name: "missing bus", body: bookingBody(userID, 9999, routeID, 1, ""), status: http.StatusNotFound, code: codeNotFound},
		{name: "validation", body: bookingBody(userID, busID, routeID, 0, ""), status: http.StatusBadRequest, code: codeValidation},
		{name: "malformed json", body: `{"user_id":`, status: http.StatusBadRequest, code: codeValidation},
		{name: "bad seat type", body: bookingBody(userID, busID, routeID, 1, map[string]any{"a": 1}), status: http.StatusBadRequest, code: codeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/v1/bookings", tt.body)
			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			resp := decode[ErrorResponse](t, w)
			if resp.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, resp.Code)
			}
		})
	}

	w := s.do(t, http.MethodPost, "/v1/bookings", bookingBody(userID, busID, routeID, 2, ""))
	resp := decode[ErrorResponse](t, w)
	if resp.Available == nil || *resp.Available != 1 || resp.Requested == nil || *resp.Requested != 2 {
		t.Errorf("expected available=1 requested=2, got %+v", resp)
	}
	w = s.do(t, http.MethodPost, "/v1/bookings", bookingBody(userID, busID, routeID, 1, "[1]"))
	resp = decode[ErrorResponse](t, w)
	if len(resp.Seats) != 1 || resp.Seats[0] != "1" {
		t.Errorf("expected conflicting seat 1, got %+v", resp.Seats)
	}
}

func TestBookingHandler_CancelAndTicket(t *testing.T) {
	s := newTestServer(t)
	userID, busID, routeID := s.seed(t, 10, "250")

	w := s.do(t, http.MethodPost, "/v1/bookings", bookingBody(userID, busID, routeID, 1, "[5]"))
	created := decode[BookingResponse](t, w)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/v1/bookings/%d/ticket", created.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("expected application/pdf, got %s", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")) {
		t.Error("expected a PDF body")
	}

	for i := 0; i < 2; i++ {
		w = s.do(t, http.MethodPut, fmt.Sprintf("/v1/bookings/%d/cancel", created.ID), nil)
		if w.Code != http.StatusOK {
			t.Fatalf("cancel %d: expected 200, got %d", i, w.Code)
		}
		if got := decode[BookingResponse](t, w); got.Status != "CANCELLED" {
			t.Errorf("expected CANCELLED, got %s", got.Status)
		}
	}

	w = s.do(t, http.MethodGet, fmt.Sprintf("/v1/bookings/%d/ticket", created.ID), nil)
	if w.Code != http.StatusConflict || decode[ErrorResponse](t, w).Code != codeBookingCancelled {
		t.Errorf("expected booking_cancelled conflict, got %d %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodPut, "/v1/bookings/9999/cancel", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	w = s.do(t, http.MethodPut, "/v1/bookings/abc/cancel", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed id, got %d", w.Code)
	}
}

func TestBookingHandler_SeatStatusAndBlocks(t *testing.T) {
	s := newTestServer(t)
	userID, busID, routeID := s.seed(t, 4, "100")

	admin := &domain.User{FirstName: "Admin", Email: "admin@example.com", Phone: "070", Type: domain.UserTypeAdmin, Status: domain.UserStatusActive}
	if err := s.store.Users().Create(context.Background(), admin); err != nil {
		t.Fatalf("create admin: %v", err)
	}

	w := s.do(t, http.MethodPost, "/v1/bookings/seat-blocks", map[string]any{
		"actor_id": admin.ID, "bus_id": busID, "route_id": routeID, "seats": []string{"3", "4"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodPost, "/v1/bookings/seat-blocks", map[string]any{
		"actor_id": userID, "bus_id": busID, "route_id": routeID, "seats": "[1]",
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for passenger, got %d", w.Code)
	}

	w = s.do(t, http.MethodGet, fmt.Sprintf("/v1/bookings/seat-status?bus_id=%d&route_id=%d", busID, routeID), nil)
	status := decode[SeatStatusResponse](t, w)
	if status.TotalSeats != 4 || status.AvailableCount != 2 || status.OccupiedCount != 2 {
		t.Errorf("unexpected seat status %+v", status)
	}

	w = s.do(t, http.MethodDelete, fmt.Sprintf("/v1/bookings/seat-blocks?actor_id=%d&bus_id=%d&route_id=%d", admin.ID, busID, routeID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := decode[map[string]int](t, w)["released"]; got != 1 {
		t.Errorf("expected 1 released, got %d", got)
	}

	w = s.do(t, http.MethodGet, fmt.Sprintf("/v1/bookings/seat-status?bus_id=%d", busID), nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without route_id, got %d", w.Code)
	}
}

func TestRouteHandler_AssignBus(t *testing.T) {
	s := newTestServer(t)
	_, busID, routeID := s.seed(t, 40, "100")

	body := map[string]any{"bus_id": busID, "departure_date": "2026-12-01", "departure_time": "08:00", "assigned_seats": 40}
	w := s.do(t, http.MethodPost, fmt.Sprintf("/v1/routes/%d/assign", routeID), body)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	a := decode[AssignmentResponse](t, w)
	if a.DepartureDate != "2026-12-01" || a.Status != "ASSIGNED" {
		t.Errorf("unexpected assignment %+v", a)
	}

	w = s.do(t, http.MethodPost, fmt.Sprintf("/v1/routes/%d/assign", routeID), body)
	if w.Code != http.StatusConflict || decode[ErrorResponse](t, w).Code != codeDuplicateAssignment {
		t.Errorf("expected duplicate_assignment, got %d %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodGet, fmt.Sprintf("/v1/routes/%d", routeID), nil)
	route := decode[RouteResponse](t, w)
	if len(route.Assignments) != 1 || route.TicketPrice.String() != "100.00" {
		t.Errorf("unexpected route %+v", route)
	}
}

func TestRouteHandler_AssignRequiresApprovedBus(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/v1/users/register", map[string]any{
		"first_name": "Sunil", "email": "sunil@fleet.lk", "phone": "0770", "user_type": "OWNER", "company_name": "Fleet",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register owner: %d %s", w.Code, w.Body.String())
	}
	owner := decode[UserResponse](t, w)

	w = s.do(t, http.MethodPost, "/v1/buses", map[string]any{
		"owner_id": owner.ID, "bus_name": "Sunil Express", "registration_number": "nd-1000", "seating_capacity": 30,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register bus: %d %s", w.Code, w.Body.String())
	}
	bus := decode[domain.Bus](t, w)
	if bus.Status != domain.BusStatusPending || bus.RegistrationNumber != "ND-1000" {
		t.Errorf("unexpected bus %+v", bus)
	}

	w = s.do(t, http.MethodPost, "/v1/routes", map[string]any{"from_location": "Colombo", "to_location": "Jaffna", "ticket_price": "2500.00"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create route: %d %s", w.Code, w.Body.String())
	}
	route := decode[RouteResponse](t, w)

	assign := map[string]any{"bus_id": bus.ID, "departure_date": "2026-12-01", "departure_time": "20:30", "assigned_seats": 30}
	w = s.do(t, http.MethodPost, fmt.Sprintf("/v1/routes/%d/assign", route.ID), assign)
	if w.Code != http.StatusConflict || decode[ErrorResponse](t, w).Code != codeBusNotApproved {
		t.Fatalf("expected bus_not_approved, got %d %s", w.Code, w.Body.String())
	}

	if w = s.do(t, http.MethodPut, fmt.Sprintf("/v1/buses/%d/approve", bus.ID), nil); w.Code != http.StatusOK {
		t.Fatalf("approve: %d %s", w.Code, w.Body.String())
	}
	w = s.do(t, http.MethodPost, fmt.Sprintf("/v1/routes/%d/assign", route.ID), assign)
	if w.Code != http.StatusCreated {
		t.Errorf("expected 201 after approval, got %d %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodPost, "/v1/buses", map[string]any{
		"owner_id": owner.ID, "bus_name": "Copy", "registration_number": "ND-1000", "seating_capacity": 30,
	})
	if w.Code != http.StatusConflict || decode[ErrorResponse](t, w).Code != codeConflict {
		t.Errorf("expected registration conflict, got %d %s", w.Code, w.Body.String())
	}
}

func TestMapError_Storage(t *testing.T) {
	status, body := mapError(&service.StorageError{Op: "create booking", Err: fmt.Errorf("connection refused")})
	if status != http.StatusInternalServerError || body.Code != codeStorage {
		t.Errorf("expected 500 storage_error, got %d %s", status, body.Code)
	}
	if body.Error != "storage failure" {
		t.Errorf("expected the cause to stay internal, got %q", body.Error)
	}

	status, body = mapError(fmt.Errorf("boom"))
	if status != http.StatusInternalServerError || body.Code != codeInternal {
		t.Errorf("expected 500 internal_error, got %d %s", status, body.Code)
	}
}
