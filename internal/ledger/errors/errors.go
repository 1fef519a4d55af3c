package errors

import "errors"

var (
	ErrNotFound = errors.New("transaction not found")

	ErrAccountNotFound = errors.New("account not found")

	// ErrStatusConflict means the transaction was not in any of the expected statuses.
	ErrStatusConflict = errors.New("transaction status changed concurrently")

	ErrInsufficientFunds = errors.New("insufficient funds")

	ErrConfirmationNotFound = errors.New("confirmation not found")
)
