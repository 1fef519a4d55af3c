package errors

import "errors"

var (
	ErrAlreadyLocked = errors.New("resource is leased by another session")

	ErrNotOwner = errors.New("lease is held by another session")

	ErrInvalidTTL = errors.New("lease ttl must be positive")
)
