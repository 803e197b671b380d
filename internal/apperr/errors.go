// Package apperr defines the stable error codes surfaced verbatim at both
// the HTTP and live-channel surfaces, replacing the free-text
// models.ErrorResponse the teacher used with a typed code the caller can
// branch on.
package apperr

import (
	"errors"
	"fmt"
)

// Code is one of the stable string error codes from the design's error
// handling section. Codes are never renamed or reused once shipped.
type Code string

const (
	// Validation
	InvalidQuery       Code = "INVALID_QUERY"
	InvalidQueryParams Code = "INVALID_QUERY_PARAMS"
	InvalidOperator    Code = "INVALID_OPERATOR"
	InvalidArgument    Code = "INVALID_ARGUMENT"
	InvalidEmail       Code = "INVALID_EMAIL"
	InvalidPassword    Code = "INVALID_PASSWORD"

	// Auth
	EmailExists    Code = "EMAIL_EXISTS"
	UserNotFound   Code = "USER_NOT_FOUND"
	UserDisabled   Code = "USER_DISABLED"
	AccountLocked  Code = "ACCOUNT_LOCKED"
	TokenExpired   Code = "TOKEN_EXPIRED"
	TokenRevoked   Code = "TOKEN_REVOKED"
	InvalidToken   Code = "INVALID_TOKEN"

	// Store
	StoreConnect      Code = "STORE_CONNECT"
	StoreWrite        Code = "STORE_WRITE"
	StoreNotConnected Code = "STORE_NOT_CONNECTED"
	QueryError        Code = "QUERY_ERROR"

	// Request surface
	DocumentNotFound Code = "DOCUMENT_NOT_FOUND"

	// Multiplexer
	Unauthorized       Code = "UNAUTHORIZED"
	MaxClientsReached  Code = "MAX_CLIENTS_REACHED"
	InvalidMessage     Code = "INVALID_MESSAGE"

	// Fallback
	Internal Code = "INTERNAL_SERVER_ERROR"
)

// Error is the application's single error type. It always carries a
// stable Code so callers (HTTP handlers, the live channel, tests) can
// branch on identity rather than message text.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds an *Error carrying an underlying cause, kept out of the
// message returned to callers (the design forbids leaking internals).
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf extracts the stable code from err, defaulting to Internal for
// any error that didn't originate from this package.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return Internal
}
