package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when a write violates a uniqueness constraint.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInUse is returned when an entity cannot be deleted because other records reference it.
	ErrInUse = errors.New("entity is referenced by other records")
)
