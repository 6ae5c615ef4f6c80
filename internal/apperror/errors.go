package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the transport layer
type Kind int

// Error kinds
const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
	KindRateLimit
	KindCrypto
)

// Wire codes
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeTokenInvalid       = "TOKEN_INVALID"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeTokenRevoked       = "TOKEN_REVOKED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	CodeHashing            = "HASHING_ERROR"
	CodeDecryption         = "DECRYPTION_ERROR"
	CodeInternal           = "INTERNAL_ERROR"
)

// Error is the application error type shared by every layer
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given kind
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap creates an error of the given kind around a cause
func Wrap(kind Kind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

// Validation creates a validation error carrying per-field details
func Validation(message string, details interface{}) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidation, Message: message, Details: details}
}

// NotFound creates a not-found error
func NotFound(message string) *Error {
	return New(KindNotFound, CodeNotFound, message)
}

// Authentication creates an authentication error with a specific code
func Authentication(code, message string) *Error {
	return New(KindAuthentication, code, message)
}

// Forbidden creates an authorization error
func Forbidden(message string) *Error {
	return New(KindAuthorization, CodeForbidden, message)
}

// Conflict creates a conflict error
func Conflict(message string) *Error {
	return New(KindConflict, CodeConflict, message)
}

// Hashing wraps a password hashing primitive failure
func Hashing(err error) *Error {
	return Wrap(KindCrypto, CodeHashing, "password hashing failed", err)
}

// Decryption wraps a decryption failure
func Decryption(err error) *Error {
	return Wrap(KindCrypto, CodeDecryption, "decryption failed", err)
}

// Internal wraps an unexpected failure
func Internal(message string, err error) *Error {
	return Wrap(KindInternal, CodeInternal, message, err)
}

// RateLimitError is returned when a client exhausted its request window
type RateLimitError struct {
	RetryAfter int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %d seconds", e.RetryAfter)
}

// KindOf returns the kind of err, KindInternal when err is not classified
func KindOf(err error) Kind {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return KindRateLimit
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is reports whether err is of the given kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// CodeOf returns the wire code of err
func CodeOf(err error) string {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return CodeRateLimitExceeded
	}
	var ae *Error
	if errors.As(err, &ae) && ae.Code != "" {
		return ae.Code
	}
	return CodeInternal
}
