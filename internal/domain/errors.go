package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrUnauthenticated   = errors.New("authentication required")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNoTableAvailable  = errors.New("no table available")
	ErrConflict          = errors.New("conflict")
	ErrStorageTimeout    = errors.New("storage timeout")
	ErrNotification      = errors.New("notification failed")
)

// Storage-level conflicts. All of them match ErrConflict under errors.Is.
var (
	ErrTableTaken        = fmt.Errorf("%w: table already reserved for slot", ErrConflict)
	ErrReservationExists = fmt.Errorf("%w: order already has a reservation", ErrConflict)
	ErrDuplicateToken    = fmt.Errorf("%w: token number already in use", ErrConflict)
	ErrTokenExhausted    = fmt.Errorf("%w: could not allocate a unique token", ErrConflict)
)

// Invalid builds a validation error carrying a caller-facing message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// WrapStorage annotates a store error with the operation name and maps
// deadline expiry to ErrStorageTimeout.
func WrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, ErrStorageTimeout)
	}
	return fmt.Errorf("%s: %w", op, err)
}
