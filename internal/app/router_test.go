package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"busticket/internal/handler"
	"busticket/internal/repository/memory"
	"busticket/internal/service"
	"busticket/pkg/logger"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	log := logger.NewNop()
	m, reg := NewMetrics("test")

	registry := service.NewRouteRegistry(store, store.Routes(), store.Assignments(), store.Buses(), nil, log, m)
	ledger := service.NewBookingLedger(store, store.Bookings(), store.Users(), registry, log, m)

	return NewRouter(RouterDeps{
		UserHandler:    handler.NewUserHandler(service.NewUserService(store.Users(), log)),
		BusHandler:     handler.NewBusHandler(service.NewBusService(store.Buses(), store.Users(), nil, log)),
		RouteHandler:   handler.NewRouteHandler(registry),
		BookingHandler: handler.NewBookingHandler(ledger, service.NewTicketService(store.Bookings(), store.Routes(), store.Buses(), log)),
		Metrics:        m,
		Gatherer:       reg,
		AllowedOrigins: []string{"*"},
		Logger:         log,
	})
}

func call(t *testing.T, r http.Handler, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	out := map[string]any{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") && w.Body.Len() > 0 && w.Body.Bytes()[0] == '{' {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode %s: %v", w.Body.String(), err)
		}
	}
	return w.Code, out
}

func id(v any) int64 {
	f, _ := v.(float64)
	return int64(f)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	r := newTestRouter(t)

	code, body := call(t, r, http.MethodGet, "/health", nil)
	if code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("unexpected health response %d %v", code, body)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "test_http_request_duration_seconds") {
		t.Error("expected request histogram in /metrics output")
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id header")
	}
}

func TestRouter_BookingFlow(t *testing.T) {
	r := newTestRouter(t)

	code, owner := call(t, r, http.MethodPost, "/v1/users/register", map[string]any{
		"first_name": "Sunil", "email": "sunil@fleet.lk", "phone": "0770", "user_type": "OWNER", "company_name": "Fleet",
	})
	if code != http.StatusCreated {
		t.Fatalf("register owner: %d %v", code, owner)
	}
	_, passenger := call(t, r, http.MethodPost, "/v1/users/register", map[string]any{
		"first_name": "Nimal", "email": "nimal@example.com", "phone": "0771", "user_type": "PASSENGER", "id_number": "901234567V",
	})

	code, bus := call(t, r, http.MethodPost, "/v1/buses", map[string]any{
		"owner_id": id(owner["id"]), "bus_name": "Express", "registration_number": "NB-1234", "seating_capacity": 40,
	})
	if code != http.StatusCreated {
		t.Fatalf("register bus: %d %v", code, bus)
	}
	busID := id(bus["id"])
	if code, _ := call(t, r, http.MethodPut, fmt.Sprintf("/v1/buses/%d/approve", busID), nil); code != http.StatusOK {
		t.Fatalf("approve: %d", code)
	}

	code, route := call(t, r, http.MethodPost, "/v1/routes", map[string]any{
		"from_location": "Colombo", "to_location": "Kandy", "departure_time": "06:30", "ticket_price": 1800,
	})
	if code != http.StatusCreated {
		t.Fatalf("create route: %d %v", code, route)
	}
	routeID := id(route["id"])

	code, _ = call(t, r, http.MethodPost, fmt.Sprintf("/v1/routes/%d/assign", routeID), map[string]any{
		"bus_id": busID, "departure_date": "2026-12-01", "departure_time": "06:30", "assigned_seats": 40,
	})
	if code != http.StatusCreated {
		t.Fatalf("assign: %d", code)
	}

	code, booking := call(t, r, http.MethodPost, "/v1/bookings", map[string]any{
		"user_id": id(passenger["id"]), "bus_id": busID, "route_id": routeID,
		"passenger_name": "Nimal", "passenger_email": "nimal@example.com", "passenger_phone": "0771",
		"number_of_seats": 3, "selected_seats": "[1,2,3]",
	})
	if code != http.StatusCreated {
		t.Fatalf("book: %d %v", code, booking)
	}
	if booking["total_price"] != 5400.0 {
		t.Errorf("expected 5400, got %v", booking["total_price"])
	}

	_, avail := call(t, r, http.MethodGet, fmt.Sprintf("/v1/bookings/available-seats?bus_id=%d&route_id=%d", busID, routeID), nil)
	if avail["available_seats"] != 37.0 {
		t.Errorf("expected 37 available, got %v", avail["available_seats"])
	}

	code, stats := call(t, r, http.MethodGet, "/v1/routes/statistics", nil)
	if code != http.StatusOK || stats["total_assignments"] != 1.0 {
		t.Errorf("unexpected statistics %d %v", code, stats)
	}

	if code, _ := call(t, r, http.MethodDelete, fmt.Sprintf("/v1/buses/%d", busID), nil); code != http.StatusConflict {
		t.Errorf("expected bus in use, got %d", code)
	}
}
