// Package domainerrors provides coded errors for the auth service. Services
// return these; the message router and HTTP layer translate them into
// response envelopes exactly once, so the taxonomy stays explicit instead of
// leaking transport codes through business logic.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies the error category.
type Code string

const (
	// CodeBadRequest covers malformed input, including invalid or
	// unverifiable provider tokens.
	CodeBadRequest Code = "bad_request"
	// CodeUnauthorized covers missing or invalid credentials.
	CodeUnauthorized Code = "unauthorized"
	// CodeNotFound covers unmatched routes and absent entities.
	CodeNotFound Code = "not_found"
	// CodeTimeout covers correlated replies that never arrived.
	CodeTimeout Code = "timeout"
	// CodeRemote covers failures reported by a peer service.
	CodeRemote Code = "remote_error"
	// CodeFederation covers identity-provider calls that failed or returned
	// an unparsable body.
	CodeFederation Code = "federation_error"
	// CodeInvalidToken covers local token verification failures.
	CodeInvalidToken Code = "invalid_token"
	// CodeDuplicateCorrelation flags a caller bug: registering a correlation
	// id that is already pending.
	CodeDuplicateCorrelation Code = "duplicate_correlation"
	// CodeInternal is everything else.
	CodeInternal Code = "internal_error"
)

// Error is a coded domain error. Message is safe to surface to callers.
type Error struct {
	ErrCode Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.ErrCode, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.ErrCode, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error.
func New(code Code, message string) error {
	return &Error{ErrCode: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{ErrCode: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. If err is already
// coded, the new code wins; the original stays reachable via Unwrap.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{ErrCode: code, Message: message, cause: err}
}

// CodeOf extracts the code from an error chain, defaulting to CodeInternal
// for anything uncoded.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.ErrCode
	}
	return CodeInternal
}

// HasCode reports whether the error chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	return errors.As(err, &de) && de.ErrCode == code
}

// MessageOf returns the caller-safe message, falling back to the raw error
// text for uncoded errors.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}

// HTTPStatus maps a code onto the status used in response envelopes.
func HTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeInvalidToken:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeRemote, CodeFederation:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
