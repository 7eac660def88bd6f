// Package common defines shared constants and sentinel errors used across
// the gateway and the capture loop. Callers should use errors.Is to match
// these values; the specific errors wrap their class so that both
// errors.Is(err, ErrInvalidToken) and errors.Is(err, ErrAuthentication) hold.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Error classes.
	ErrValidation       = errors.New("validation error")
	ErrAuthentication   = errors.New("authentication error")
	ErrForbidden        = errors.New("forbidden")
	ErrConflict         = errors.New("conflict")
	ErrCapacity         = errors.New("capacity exceeded")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrDevice           = errors.New("device error")

	// Validation errors.
	ErrInvalidName     = fmt.Errorf("%w: name must be 5-20 alphanumeric characters", ErrValidation)
	ErrInvalidPassword = fmt.Errorf("%w: password must be 8-64 characters without whitespace", ErrValidation)
	ErrInvalidRole     = fmt.Errorf("%w: invalid role", ErrValidation)
	ErrInvalidFilename = fmt.Errorf("%w: invalid filename", ErrValidation)
	ErrInvalidPage     = fmt.Errorf("%w: invalid page", ErrValidation)
	ErrInvalidBody     = fmt.Errorf("%w: invalid request body", ErrValidation)

	// Auth errors.
	ErrMissingToken       = fmt.Errorf("%w: missing token", ErrAuthentication)
	ErrInvalidToken       = fmt.Errorf("%w: invalid token", ErrAuthentication)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrAuthentication)

	// Authorization errors.
	ErrInsufficientRole = fmt.Errorf("%w: role too low", ErrForbidden)
	ErrProtectedUser    = fmt.Errorf("%w: target user is protected", ErrForbidden)

	// Conflict / capacity errors.
	ErrUserExists     = fmt.Errorf("%w: user already exists", ErrConflict)
	ErrUserLimit      = fmt.Errorf("%w: user limit reached", ErrCapacity)
	ErrPageOutOfRange = fmt.Errorf("%w: page out of range", ErrCapacity)

	// Capture loop termination.
	ErrCaptureFatal = errors.New("capture loop stopped")
)
