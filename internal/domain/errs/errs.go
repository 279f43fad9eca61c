// Package errs holds the error taxonomy shared by every component. Component
// errors wrap one of the sentinels so the transport edge can classify them with
// errors.Is.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	ErrInternal     = errors.New("internal error")
)

// FieldError is an ErrInvalidInput that names the offending field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidInput, e.Field, e.Message)
}

func (e *FieldError) Unwrap() error { return ErrInvalidInput }

// Invalid builds a FieldError.
func Invalid(field, msg string) error {
	return &FieldError{Field: field, Message: msg}
}

type internalError struct{ cause error }

func (e *internalError) Error() string { return ErrInternal.Error() }
func (e *internalError) Unwrap() error { return ErrInternal }

// Internal hides a storage or infrastructure failure behind ErrInternal.
// Errors that already belong to the taxonomy pass through unchanged.
func Internal(err error) error {
	if err == nil || Classified(err) {
		return err
	}
	return &internalError{cause: err}
}

// Cause returns the error hidden by Internal, or err itself.
func Cause(err error) error {
	var ie *internalError
	if errors.As(err, &ie) {
		return ie.cause
	}
	return err
}

// Classified reports whether err already wraps one of the sentinels.
func Classified(err error) bool {
	for _, s := range []error{ErrUnauthorized, ErrNotFound, ErrInvalidInput, ErrConflict, ErrInternal} {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}
