package errors

import "errors"

// Application-wide sentinel errors. Services wrap these with context via
// fmt.Errorf("%w: ..."); handlers map them to HTTP status codes.
var (
	// ErrNotFound is returned when a record or resource does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized is returned for failed authentication (missing or invalid token).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the caller lacks permission for the action.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation is returned for invalid input.
	ErrValidation = errors.New("validation failed")

	// ErrExpired is returned when a link request is past its deadline.
	ErrExpired = errors.New("expired")

	// ErrConflict is returned when a racing write lost a conditional update,
	// e.g. a verification code already consumed by a concurrent call.
	ErrConflict = errors.New("resource state conflict")

	// ErrIntegrity is returned when a storage invariant that should be
	// unreachable through the API is observed broken. Requires manual
	// repair, never an automatic retry.
	ErrIntegrity = errors.New("integrity violation")
)
