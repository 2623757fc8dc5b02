package domain

import "time"

// UserType represents the role of a user.
type UserType string

const (
	UserTypePassenger UserType = "PASSENGER"
	UserTypeOwner     UserType = "OWNER"
	UserTypeAdmin     UserType = "ADMIN"
)

// Valid reports whether t is a known user type.
func (t UserType) Valid() bool {
	switch t {
	case UserTypePassenger, UserTypeOwner, UserTypeAdmin:
		return true
	}
	return false
}

// UserStatus represents the account status of a user.
type UserStatus string

const (
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusInactive UserStatus = "INACTIVE"
	UserStatusPending  UserStatus = "PENDING"
)

// User represents a registered passenger, bus owner or administrator.
type User struct {
	ID          int64
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	Type        UserType
	IDNumber    string // passengers only
	CompanyName string // owners only
	Status      UserStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FullName returns first and last name joined by a space.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
