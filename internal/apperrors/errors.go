package apperrors

import "errors"

// Sentinels for the common authentication outcomes. Handlers map these to
// HTTP statuses; anything else is treated as an infrastructure failure and
// collapsed to a generic 500.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
)

// ValidationError reports bad input shape, detected before any mutation.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func NewValidationError(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}

// ConflictError reports a duplicate email or username.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string { return e.Field + " already exists" }

func NewConflictError(field string) *ConflictError {
	return &ConflictError{Field: field}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
