package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"busticket/internal/repository"
	"busticket/internal/service"
)

// Stable error codes returned in ErrorResponse.Code.
const (
	codeValidation          = "validation_error"
	codeNotFound            = "not_found"
	codeInsufficientSeats   = "insufficient_seats"
	codeSeatConflict        = "seat_conflict"
	codeDuplicateAssignment = "duplicate_assignment"
	codeBusNotApproved      = "bus_not_approved"
	codeConflict            = "conflict"
	codeInUse               = "in_use"
	codeBookingCancelled    = "booking_cancelled"
	codeForbidden           = "forbidden"
	codeStorage             = "storage_error"
	codeInternal            = "internal_error"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error     string   `json:"error"`
	Code      string   `json:"code"`
	Field     string   `json:"field,omitempty"`
	Available *int     `json:"available,omitempty"`
	Requested *int     `json:"requested,omitempty"`
	Seats     []string `json:"seats,omitempty"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	status, body := mapError(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, body)
}

// fieldError is returned by custom JSON decoders to name the offending field.
type fieldError struct {
	Field   string
	Message string
}

func (e *fieldError) Error() string { return e.Message }

// respondBindError rejects a request body that failed to decode, keeping the
// decoder's message and, when known, the field it concerns.
func respondBindError(c *gin.Context, err error) {
	resp := ErrorResponse{Error: "invalid request body: " + err.Error(), Code: codeValidation}
	var fe *fieldError
	var te *json.UnmarshalTypeError
	switch {
	case errors.As(err, &fe):
		resp.Field = fe.Field
		resp.Error = fe.Message
	case errors.As(err, &te) && te.Field != "":
		resp.Field = te.Field
		resp.Error = fmt.Sprintf("%s must be a %s, got %s", te.Field, te.Type, te.Value)
	}
	c.JSON(http.StatusBadRequest, resp)
}

// respondBadRequest rejects a malformed request before it reaches a service.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Code: codeValidation})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapError maps service/repository errors to an HTTP status and body.
func mapError(err error) (int, ErrorResponse) {
	var (
		verr         *service.ValidationError
		insufficient *service.InsufficientSeatsError
		conflict     *service.SeatConflictError
	)

	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: codeValidation, Field: verr.Field}

	case errors.As(err, &insufficient):
		available, requested := insufficient.Available, insufficient.Requested
		return http.StatusConflict, ErrorResponse{
			Error:     err.Error(),
			Code:      codeInsufficientSeats,
			Available: &available,
			Requested: &requested,
		}

	case errors.As(err, &conflict):
		return http.StatusConflict, ErrorResponse{Error: err.Error(), Code: codeSeatConflict, Seats: conflict.Seats}

	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: codeNotFound}

	case errors.Is(err, service.ErrDuplicateAssignment):
		return http.StatusConflict, ErrorResponse{Error: err.Error(), Code: codeDuplicateAssignment}

	case errors.Is(err, service.ErrBusNotApproved):
		return http.StatusConflict, ErrorResponse{Error: err.Error(), Code: codeBusNotApproved}

	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, ErrorResponse{Error: err.Error(), Code: codeConflict}

	case errors.Is(err, service.ErrInUse):
		return http.StatusConflict, ErrorResponse{Error: err.Error(), Code: codeInUse}

	case errors.Is(err, service.ErrBookingCancelled):
		return http.StatusConflict, ErrorResponse{Error: err.Error(), Code: codeBookingCancelled}

	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, ErrorResponse{Error: err.Error(), Code: codeForbidden}

	case errors.Is(err, service.ErrStorage):
		return http.StatusInternalServerError, ErrorResponse{Error: "storage failure", Code: codeStorage}

	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: codeInternal}
	}
}

// pathID parses a positive integer path parameter. It writes a 400 and
// returns false when the parameter is malformed.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: name + " must be a positive integer", Code: codeValidation, Field: name})
		return 0, false
	}
	return id, true
}

// queryID parses a required positive integer query parameter.
func queryID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: name + " must be a positive integer", Code: codeValidation, Field: name})
		return 0, false
	}
	return id, true
}
