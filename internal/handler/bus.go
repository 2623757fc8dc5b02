package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"busticket/internal/domain"
	"busticket/internal/service"
)

// BusHandler handles HTTP requests for buses.
type BusHandler struct {
	busService *service.BusService
}

// NewBusHandler creates a new BusHandler.
func NewBusHandler(busService *service.BusService) *BusHandler {
	return &BusHandler{busService: busService}
}

// RegisterBusRequest is the HTTP request body for registering a bus.
type RegisterBusRequest struct {
	OwnerID            int64  `json:"owner_id"`
	BusName            string `json:"bus_name"`
	RegistrationNumber string `json:"registration_number"`
	SeatingCapacity    int    `json:"seating_capacity"`
	BusBookCopyURL     string `json:"bus_book_copy,omitempty"`
	OwnerIDCopyURL     string `json:"owner_id_copy,omitempty"`
}

// RejectBusRequest is the HTTP request body for rejecting a bus.
type RejectBusRequest struct {
	Reason string `json:"reason"`
}

// UpdateBusStatusRequest is the HTTP request body for setting a bus status.
type UpdateBusStatusRequest struct {
	Status string `json:"status"`
}

// Register handles POST /v1/buses
func (h *BusHandler) Register(c *gin.Context) {
	var req RegisterBusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	bus, err := h.busService.Register(c.Request.Context(), service.RegisterBusRequest{
		OwnerID:            req.OwnerID,
		Name:               req.BusName,
		RegistrationNumber: req.RegistrationNumber,
		SeatingCapacity:    req.SeatingCapacity,
		BusBookCopyURL:     req.BusBookCopyURL,
		OwnerIDCopyURL:     req.OwnerIDCopyURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, bus)
}

// GetBus handles GET /v1/buses/:id
func (h *BusHandler) GetBus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	bus, err := h.busService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, bus)
}

// GetAll handles GET /v1/buses
func (h *BusHandler) GetAll(c *gin.Context) {
	buses, err := h.busService.List(c.Request.Context())
	respondBuses(c, buses, err)
}

// GetPending handles GET /v1/buses/pending
func (h *BusHandler) GetPending(c *gin.Context) {
	buses, err := h.busService.ListByStatus(c.Request.Context(), string(domain.BusStatusPending))
	respondBuses(c, buses, err)
}

// GetByStatus handles GET /v1/buses/status/:status
func (h *BusHandler) GetByStatus(c *gin.Context) {
	buses, err := h.busService.ListByStatus(c.Request.Context(), c.Param("status"))
	respondBuses(c, buses, err)
}

// GetByOwner handles GET /v1/buses/owner/:ownerId
func (h *BusHandler) GetByOwner(c *gin.Context) {
	ownerID, ok := pathID(c, "ownerId")
	if !ok {
		return
	}
	buses, err := h.busService.ListByOwner(c.Request.Context(), ownerID)
	respondBuses(c, buses, err)
}

// Approve handles PUT /v1/buses/:id/approve
func (h *BusHandler) Approve(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	bus, err := h.busService.Approve(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, bus)
}

// Reject handles PUT /v1/buses/:id/reject
func (h *BusHandler) Reject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req RejectBusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	bus, err := h.busService.Reject(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, bus)
}

// UpdateStatus handles PUT /v1/buses/:id/status
func (h *BusHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateBusStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	bus, err := h.busService.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, bus)
}

// Delete handles DELETE /v1/buses/:id
func (h *BusHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.busService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// CheckRegistration handles GET /v1/buses/check-registration/:reg
func (h *BusHandler) CheckRegistration(c *gin.Context) {
	reg := c.Param("reg")
	exists, err := h.busService.RegistrationExists(c.Request.Context(), reg)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"registration_number": reg, "exists": exists})
}

func respondBuses(c *gin.Context, buses []*domain.Bus, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	if buses == nil {
		buses = []*domain.Bus{}
	}
	respondJSON(c, http.StatusOK, buses)
}
