package domain

import "errors"

var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("resource conflict")
)

// ValidationError represents a request payload validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// AuthzError is a denial of an inbox operation for an actor whose role is
// insufficient and who is not the record's creator. It maps to a 400
// response, not 403, to keep wire compatibility with existing clients.
type AuthzError struct {
	Message string
}

func (e *AuthzError) Error() string {
	return e.Message
}

// PreconditionError is a failed operation precondition: deleting the default
// inbox, or hitting a public board that has no inbox enabled.
type PreconditionError struct {
	Message string
}

func (e *PreconditionError) Error() string {
	return e.Message
}
