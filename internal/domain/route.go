package domain

import "time"

// RouteStatus represents the operational status of a route.
type RouteStatus string

const (
	RouteStatusActive      RouteStatus = "ACTIVE"
	RouteStatusInactive    RouteStatus = "INACTIVE"
	RouteStatusMaintenance RouteStatus = "MAINTENANCE"
)

// Valid reports whether s is a known route status.
func (s RouteStatus) Valid() bool {
	switch s {
	case RouteStatusActive, RouteStatusInactive, RouteStatusMaintenance:
		return true
	}
	return false
}

// AssignmentStatus represents the status of a bus assignment.
type AssignmentStatus string

const (
	AssignmentStatusAssigned  AssignmentStatus = "ASSIGNED"
	AssignmentStatusCancelled AssignmentStatus = "CANCELLED"
	AssignmentStatusCompleted AssignmentStatus = "COMPLETED"
)

// Layouts for dates and times of day exchanged with clients and the store.
const (
	DateLayout      = "2006-01-02"
	TimeOfDayLayout = "15:04"
)

// Route is a reusable template between two locations.
// DepartureTime and ArrivalTime are "HH:MM" or empty.
type Route struct {
	ID            int64             `json:"id"`
	FromLocation  string            `json:"from_location"`
	ToLocation    string            `json:"to_location"`
	DepartureTime string            `json:"departure_time,omitempty"`
	ArrivalTime   string            `json:"arrival_time,omitempty"`
	TicketPrice   Money             `json:"ticket_price"`
	Status        RouteStatus       `json:"status"`
	Description   string            `json:"description,omitempty"`
	Assignments   []RouteAssignment `json:"assignments,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// RouteAssignment binds a bus to a route on a date and time of day.
type RouteAssignment struct {
	ID            int64            `json:"id"`
	RouteID       int64            `json:"route_id"`
	BusID         int64            `json:"bus_id"`
	DepartureDate time.Time        `json:"departure_date"`
	DepartureTime string           `json:"departure_time"`
	AssignedSeats int              `json:"assigned_seats"`
	Status        AssignmentStatus `json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// RouteStatistics summarizes routes by status.
type RouteStatistics struct {
	TotalRoutes       int `json:"total_routes"`
	ActiveRoutes      int `json:"active_routes"`
	InactiveRoutes    int `json:"inactive_routes"`
	MaintenanceRoutes int `json:"maintenance_routes"`
	TotalAssignments  int `json:"total_assignments"`
}
