// Package apperr defines the error taxonomy for the milestone service.
// Errors carry a string code for natural JSON serialization; the HTTP
// layer maps codes to statuses and nothing is swallowed on the way up.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	// Validation errors (client fixable).
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeInvalidDateRange   Code = "INVALID_DATE_RANGE"
	CodeInvalidSearchInput Code = "INVALID_SEARCH_INPUT"

	// Conflict errors (state dependent).
	CodeDuplicateTitle    Code = "DUPLICATE_TITLE"
	CodeDuplicateTag      Code = "DUPLICATE_TAG"
	CodeAlreadyAssociated Code = "ALREADY_ASSOCIATED"
	CodeAlreadyClosed     Code = "ALREADY_CLOSED"

	// Missing resources.
	CodeMilestoneNotFound Code = "MILESTONE_NOT_FOUND"
	CodeReleaseNotFound   Code = "RELEASE_NOT_FOUND"

	// Permission.
	CodeForbidden Code = "FORBIDDEN"

	// CodeConcurrencyConflict is a store-level commit conflict. Safe to
	// retry with backoff; every other code needs client correction first.
	CodeConcurrencyConflict Code = "CONCURRENCY_CONFLICT"

	// Infrastructure.
	CodeDependencyFailure Code = "DEPENDENCY_FAILURE"
	CodeTimeout           Code = "TIMEOUT"
	CodeInternal          Code = "INTERNAL"
)

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the code from any error in the chain. Context
// deadline/cancellation map to TIMEOUT; everything unclassified is
// INTERNAL.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CodeTimeout
	}
	return CodeInternal
}

// MessageOf returns the user-facing message, falling back to a generic
// one so internal error text never leaks to clients.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// IsRetryable reports whether the caller may retry the same request
// unchanged. Only commit conflicts and timeouts qualify.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeConcurrencyConflict, CodeTimeout:
		return true
	}
	return false
}

// HTTPStatus maps a code to the status the REST boundary responds with.
func HTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeInvalidDateRange, CodeInvalidSearchInput:
		return http.StatusBadRequest
	case CodeDuplicateTitle, CodeDuplicateTag, CodeAlreadyAssociated, CodeAlreadyClosed, CodeConcurrencyConflict:
		return http.StatusConflict
	case CodeMilestoneNotFound, CodeReleaseNotFound:
		return http.StatusNotFound
	case CodeForbidden:
		return http.StatusForbidden
	case CodeDependencyFailure:
		return http.StatusServiceUnavailable
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
