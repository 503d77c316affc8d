// Package apperrors defines the coded error taxonomy shared by the
// repositories, services and HTTP handlers.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error class.
type Code string

const (
	ErrCodeNotFound     Code = "not_found"
	ErrCodeInvalidInput Code = "invalid_input"
	ErrCodeConflict     Code = "conflict"
	ErrCodeInternal     Code = "internal"
)

// Error carries a code alongside the message and an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// NotFound reports a missing entity.
func NotFound(resource, id string) *Error {
	return &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("%s not found: %s", resource, id)}
}

// InvalidInput reports a structurally invalid field.
func InvalidInput(field, message string) *Error {
	return &Error{Code: ErrCodeInvalidInput, Message: fmt.Sprintf("%s: %s", field, message)}
}

// InvalidTransition reports a state change not permitted from the entity's
// current status.
func InvalidTransition(entity, from, to string) *Error {
	return &Error{Code: ErrCodeConflict, Message: fmt.Sprintf("invalid %s status transition: %s -> %s", entity, from, to)}
}

// CodeOf returns the code of err, or ErrCodeInternal for uncoded errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// HTTPStatus maps an error's code to an HTTP status.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
