package database

import "errors"

var (
	// ErrNotFound is returned when a member, event, session or attendance row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write would violate a uniqueness rule.
	ErrConflict = errors.New("conflict")
)
