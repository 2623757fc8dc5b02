package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"busticket/internal/domain"
	"busticket/internal/service"
)

// RouteHandler handles HTTP requests for routes and bus assignments.
type RouteHandler struct {
	registry *service.RouteRegistry
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(registry *service.RouteRegistry) *RouteHandler {
	return &RouteHandler{registry: registry}
}

// RouteRequest is the HTTP request body for creating or updating a route.
type RouteRequest struct {
	FromLocation  string       `json:"from_location"`
	ToLocation    string       `json:"to_location"`
	DepartureTime string       `json:"departure_time,omitempty"`
	ArrivalTime   string       `json:"arrival_time,omitempty"`
	TicketPrice   domain.Money `json:"ticket_price"`
	Status        string       `json:"status,omitempty"`
	Description   string       `json:"description,omitempty"`
}

// AssignBusRequest is the HTTP request body for assigning a bus to a route.
type AssignBusRequest struct {
	BusID         int64  `json:"bus_id"`
	DepartureDate string `json:"departure_date"`
	DepartureTime string `json:"departure_time"`
	AssignedSeats int    `json:"assigned_seats"`
}

// AssignmentResponse is the HTTP response for a route assignment.
type AssignmentResponse struct {
	ID            int64     `json:"id"`
	RouteID       int64     `json:"route_id"`
	BusID         int64     `json:"bus_id"`
	DepartureDate string    `json:"departure_date"`
	DepartureTime string    `json:"departure_time"`
	AssignedSeats int       `json:"assigned_seats"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// RouteResponse is the HTTP response for a route.
type RouteResponse struct {
	ID            int64                `json:"id"`
	FromLocation  string               `json:"from_location"`
	ToLocation    string               `json:"to_location"`
	DepartureTime string               `json:"departure_time,omitempty"`
	ArrivalTime   string               `json:"arrival_time,omitempty"`
	TicketPrice   domain.Money         `json:"ticket_price"`
	Status        string               `json:"status"`
	Description   string               `json:"description,omitempty"`
	Assignments   []AssignmentResponse `json:"assignments"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

func toAssignmentResponse(a *domain.RouteAssignment) AssignmentResponse {
	return AssignmentResponse{
		ID:            a.ID,
		RouteID:       a.RouteID,
		BusID:         a.BusID,
		DepartureDate: a.DepartureDate.Format(domain.DateLayout),
		DepartureTime: a.DepartureTime,
		AssignedSeats: a.AssignedSeats,
		Status:        string(a.Status),
		CreatedAt:     a.CreatedAt,
	}
}

func toRouteResponse(r *domain.Route) RouteResponse {
	assignments := make([]AssignmentResponse, 0, len(r.Assignments))
	for i := range r.Assignments {
		assignments = append(assignments, toAssignmentResponse(&r.Assignments[i]))
	}
	return RouteResponse{
		ID:            r.ID,
		FromLocation:  r.FromLocation,
		ToLocation:    r.ToLocation,
		DepartureTime: r.DepartureTime,
		ArrivalTime:   r.ArrivalTime,
		TicketPrice:   r.TicketPrice,
		Status:        string(r.Status),
		Description:   r.Description,
		Assignments:   assignments,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func (req RouteRequest) input() service.RouteInput {
	return service.RouteInput{
		FromLocation:  req.FromLocation,
		ToLocation:    req.ToLocation,
		DepartureTime: req.DepartureTime,
		ArrivalTime:   req.ArrivalTime,
		TicketPrice:   req.TicketPrice,
		Status:        domain.RouteStatus(req.Status),
		Description:   req.Description,
	}
}

// CreateRoute handles POST /v1/routes
func (h *RouteHandler) CreateRoute(c *gin.Context) {
	var req RouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	route, err := h.registry.CreateRoute(c.Request.Context(), req.input())
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toRouteResponse(route))
}

// UpdateRoute handles PUT /v1/routes/:id
func (h *RouteHandler) UpdateRoute(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req RouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	route, err := h.registry.UpdateRoute(c.Request.Context(), id, req.input())
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRouteResponse(route))
}

// DeleteRoute handles DELETE /v1/routes/:id
func (h *RouteHandler) DeleteRoute(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.registry.DeleteRoute(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetRoute handles GET /v1/routes/:id
func (h *RouteHandler) GetRoute(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	route, err := h.registry.GetRoute(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRouteResponse(route))
}

// GetAll handles GET /v1/routes
func (h *RouteHandler) GetAll(c *gin.Context) {
	routes, err := h.registry.ListRoutes(c.Request.Context())
	respondRoutes(c, routes, err)
}

// GetByStatus handles GET /v1/routes/status/:status
func (h *RouteHandler) GetByStatus(c *gin.Context) {
	routes, err := h.registry.ListRoutesByStatus(c.Request.Context(), c.Param("status"))
	respondRoutes(c, routes, err)
}

// Search handles GET /v1/routes/search?q=
func (h *RouteHandler) Search(c *gin.Context) {
	routes, err := h.registry.SearchRoutes(c.Request.Context(), c.Query("q"))
	respondRoutes(c, routes, err)
}

// SearchForPassenger handles GET /v1/routes/search/passenger?from=&to=
func (h *RouteHandler) SearchForPassenger(c *gin.Context) {
	routes, err := h.registry.SearchForPassenger(c.Request.Context(), c.Query("from"), c.Query("to"))
	respondRoutes(c, routes, err)
}

// AssignBus handles POST /v1/routes/:id/assign
func (h *RouteHandler) AssignBus(c *gin.Context) {
	routeID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req AssignBusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	assignment, err := h.registry.Assign(c.Request.Context(), service.AssignRequest{
		RouteID:       routeID,
		BusID:         req.BusID,
		DepartureDate: req.DepartureDate,
		DepartureTime: req.DepartureTime,
		AssignedSeats: req.AssignedSeats,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toAssignmentResponse(assignment))
}

// RemoveAssignment handles DELETE /v1/routes/assignments/:id
func (h *RouteHandler) RemoveAssignment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.registry.RemoveAssignment(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Statistics handles GET /v1/routes/statistics
func (h *RouteHandler) Statistics(c *gin.Context) {
	stats, err := h.registry.Statistics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, stats)
}

func respondRoutes(c *gin.Context, routes []*domain.Route, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	response := make([]RouteResponse, 0, len(routes))
	for _, r := range routes {
		response = append(response, toRouteResponse(r))
	}
	respondJSON(c, http.StatusOK, response)
}
