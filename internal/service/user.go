package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"busticket/internal/domain"
	"busticket/internal/repository"
	"busticket/pkg/logger"
)

// UserService handles user registration.
type UserService struct {
	users repository.UserRepository
	log   logger.Logger
	now   func() time.Time
}

// NewUserService creates a new UserService.
func NewUserService(users repository.UserRepository, log logger.Logger) *UserService {
	return &UserService{users: users, log: log, now: time.Now}
}

// RegisterUserRequest contains the parameters for registering a user.
type RegisterUserRequest struct {
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	Type        string
	IDNumber    string
	CompanyName string
}

// Register creates an ACTIVE user. Passengers need an ID number and owners a
// company name.
func (s *UserService) Register(ctx context.Context, req RegisterUserRequest) (*domain.User, error) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)
	req.IDNumber = strings.TrimSpace(req.IDNumber)
	req.CompanyName = strings.TrimSpace(req.CompanyName)
	userType := domain.UserType(strings.ToUpper(strings.TrimSpace(req.Type)))

	switch {
	case req.FirstName == "":
		return nil, invalid("first_name", "is required")
	case req.Email == "":
		return nil, invalid("email", "is required")
	case req.Phone == "":
		return nil, invalid("phone", "is required")
	case !userType.Valid():
		return nil, invalid("user_type", fmt.Sprintf("unknown user type %q", req.Type))
	case userType == domain.UserTypePassenger && req.IDNumber == "":
		return nil, invalid("id_number", "is required for passengers")
	case userType == domain.UserTypeOwner && req.CompanyName == "":
		return nil, invalid("company_name", "is required for bus owners")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, invalid("email", "is not a valid email address")
	}

	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, storageErr("get user by email", err)
	}

	now := s.now()
	user := &domain.User{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Type:      userType,
		Status:    domain.UserStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	switch userType {
	case domain.UserTypePassenger:
		user.IDNumber = req.IDNumber
	case domain.UserTypeOwner:
		user.CompanyName = req.CompanyName
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, storageErr("create user", err)
	}

	s.log.Info("user registered", "user_id", user.ID, "user_type", user.Type)
	return user, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	if id <= 0 {
		return nil, invalid("user_id", "must be positive")
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr("get user", "user", id, err)
	}
	return u, nil
}

// List returns all users.
func (s *UserService) List(ctx context.Context) ([]*domain.User, error) {
	users, err := s.users.GetAll(ctx)
	if err != nil {
		return nil, storageErr("list users", err)
	}
	return users, nil
}
