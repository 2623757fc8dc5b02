package domain

import "time"

// Seating capacity bounds for a bus.
const (
	MinBusCapacity = 1
	MaxBusCapacity = 100
)

// BusStatus represents the approval/operational status of a bus.
type BusStatus string

const (
	BusStatusPending  BusStatus = "PENDING"
	BusStatusApproved BusStatus = "APPROVED"
	BusStatusRejected BusStatus = "REJECTED"
	BusStatusActive   BusStatus = "ACTIVE"
	BusStatusInactive BusStatus = "INACTIVE"
)

// Valid reports whether s is a known bus status.
func (s BusStatus) Valid() bool {
	switch s {
	case BusStatusPending, BusStatusApproved, BusStatusRejected, BusStatusActive, BusStatusInactive:
		return true
	}
	return false
}

// Bus represents a registered vehicle.
type Bus struct {
	ID                 int64     `json:"id"`
	OwnerID            int64     `json:"owner_id"`
	Name               string    `json:"name"`
	RegistrationNumber string    `json:"registration_number"`
	SeatingCapacity    int       `json:"seating_capacity"`
	BusBookCopyURL     string    `json:"bus_book_copy_url,omitempty"`
	OwnerIDCopyURL     string    `json:"owner_id_copy_url,omitempty"`
	Status             BusStatus `json:"status"`
	RejectionReason    string    `json:"rejection_reason,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
