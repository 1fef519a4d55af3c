package errors

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")

	// ErrVersionConflict means the session changed since it was read.
	ErrVersionConflict = errors.New("session version conflict")
)
