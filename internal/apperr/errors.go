// Package apperr defines the error taxonomy shared by services and handlers:
// every failure a service returns is classified as a validation, conflict,
// authentication, or storage error, and handlers map that class to an HTTP
// status at the request boundary.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind int

const (
	// KindValidation marks missing or malformed input.
	KindValidation Kind = iota
	// KindConflict marks a uniqueness conflict, e.g. a duplicate email.
	KindConflict
	// KindAuthentication marks bad credentials or a missing/expired token.
	KindAuthentication
	// KindStorage marks a database failure not otherwise classified.
	KindStorage
)

// Error is a classified application error. The message is safe to return to
// clients; the wrapped cause is not.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.cause }

// Validation creates a validation error with the given client-facing message.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// Conflict creates a conflict error with the given client-facing message.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// Authentication creates an authentication error with the given message.
func Authentication(message string) *Error {
	return &Error{Kind: KindAuthentication, Message: message}
}

// Storage wraps a database failure. The client-facing message stays generic.
func Storage(cause error) *Error {
	return &Error{Kind: KindStorage, Message: "storage failure", cause: cause}
}

// KindOf returns the Kind of err, or KindStorage if err is not an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindStorage
}

// HTTPStatus maps an error to the response status code for the request
// boundary: validation and conflict are client errors, authentication is 401,
// anything else is a server error.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing message for err. Storage errors and
// unclassified errors collapse to a generic message so internal details never
// leak into a response body.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindStorage {
		return appErr.Message
	}
	return "internal server error"
}
