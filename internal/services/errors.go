// Package services contains the business logic for trip booking, group
// optimization, join requests, and admin access. Services return sentinel
// errors which the API layer maps onto HTTP status codes.
package services

import "errors"

var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrValidation indicates the request payload failed a business rule
	ErrValidation = errors.New("validation failed")

	// ErrConflict indicates the operation lost a race or hit a state conflict,
	// such as proposing a group over already claimed trips
	ErrConflict = errors.New("conflicting state")

	// ErrForbidden indicates the actor lacks permission for the resource
	ErrForbidden = errors.New("forbidden")
)

// validationError wraps ErrValidation with a human readable detail
func validationError(detail string) error {
	return &wrappedError{sentinel: ErrValidation, detail: detail}
}

// conflictError wraps ErrConflict with a human readable detail
func conflictError(detail string) error {
	return &wrappedError{sentinel: ErrConflict, detail: detail}
}

// forbiddenError wraps ErrForbidden with a human readable detail
func forbiddenError(detail string) error {
	return &wrappedError{sentinel: ErrForbidden, detail: detail}
}

type wrappedError struct {
	sentinel error
	detail   string
}

func (e *wrappedError) Error() string { return e.detail }
func (e *wrappedError) Unwrap() error { return e.sentinel }
