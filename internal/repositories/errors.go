package repositories

import "errors"

var (
	// ErrNotFound is returned when no document matches.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique field is already taken.
	ErrDuplicate = errors.New("duplicate key")
)
