// internal/pkg/apperror/errors.go
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers that need to decide how to report it
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidInput
	KindNotFound
	KindConflict
	KindBusinessRule
	KindUnauthorized
	KindForbidden
)

// Error is the error type returned by domain services
type Error struct {
	Kind    Kind   `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target carries the same code, so a specific error
// matches its sentinel with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Common errors
var (
	ErrInvalidInput      = &Error{Kind: KindInvalidInput, Code: "INVALID_INPUT", Message: "invalid input provided"}
	ErrNotFound          = &Error{Kind: KindNotFound, Code: "NOT_FOUND", Message: "resource not found"}
	ErrConflict          = &Error{Kind: KindConflict, Code: "ALREADY_EXISTS", Message: "resource already exists"}
	ErrEmptyCart         = &Error{Kind: KindBusinessRule, Code: "EMPTY_CART", Message: "cart is empty"}
	ErrInsufficientStock = &Error{Kind: KindBusinessRule, Code: "INSUFFICIENT_STOCK", Message: "insufficient stock available"}
	ErrInvalidTransition = &Error{Kind: KindBusinessRule, Code: "INVALID_TRANSITION", Message: "status transition not allowed"}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized, Code: "UNAUTHORIZED", Message: "authentication required"}
	ErrForbidden         = &Error{Kind: KindForbidden, Code: "FORBIDDEN", Message: "access denied"}
)

// InvalidInput returns an input error with a formatted message
func InvalidInput(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidInput, Code: ErrInvalidInput.Code, Message: fmt.Sprintf(format, args...)}
}

// NotFound returns a not-found error for the named resource
func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Code: ErrNotFound.Code, Message: resource + " not found"}
}

// Conflict returns a uniqueness violation error
func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Code: ErrConflict.Code, Message: fmt.Sprintf(format, args...)}
}

// InsufficientStock names the offending line and what is left
func InsufficientStock(item string, available int) *Error {
	return &Error{
		Kind:    KindBusinessRule,
		Code:    ErrInsufficientStock.Code,
		Message: fmt.Sprintf("not enough stock for %s, available: %d", item, available),
	}
}

// InvalidTransition reports a rejected order status change
func InvalidTransition(from, to string) *Error {
	return &Error{
		Kind:    KindBusinessRule,
		Code:    ErrInvalidTransition.Code,
		Message: fmt.Sprintf("invalid status transition from %s to %s", from, to),
	}
}

// Unauthorized returns an authentication error with the given message
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Code: ErrUnauthorized.Code, Message: message}
}

// KindOf returns the kind of err, KindInternal for anything not produced here
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// HTTPStatus maps an error to the status code the API responds with
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindBusinessRule:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Code returns the machine readable code of err
func Code(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "INTERNAL_ERROR"
}
