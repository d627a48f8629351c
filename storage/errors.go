package storage

import "errors"

// Common storage errors.
var (
	// ErrNotFound is returned when a project is not found.
	ErrNotFound = errors.New("project not found")

	// ErrConflict is returned when a create collides with an existing key.
	ErrConflict = errors.New("key already exists")
)
