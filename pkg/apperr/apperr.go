// Package apperr is the error taxonomy shared by the domain packages. Domain
// code creates typed errors; handlers map them to HTTP at the boundary instead
// of matching on message strings.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport mapping and retry decisions.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindTransient
	KindAuth
)

// Error carries a kind, a stable machine readable code and a user facing
// message. Details enumerate offending items for conflict errors so the
// client can present actionable feedback.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Validation marks malformed input.
func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

// NotFound marks an absent product, cart line, order or promotion.
func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

// Conflict marks a business rule violation such as insufficient stock or an
// exhausted promotion.
func Conflict(code, message string, details ...string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message, Details: details}
}

// Transient wraps an infrastructure failure that is safe to retry.
func Transient(err error, message string) *Error {
	return &Error{Kind: KindTransient, Code: "TRANSIENT", Message: message, Err: err}
}

// Auth marks an authentication or authorization failure.
func Auth(code, message string) *Error {
	return &Error{Kind: KindAuth, Code: code, Message: message}
}

// As unwraps err into an *Error, or nil if err is not one.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// KindOf reports the kind of err, KindUnknown for untyped errors.
func KindOf(err error) Kind {
	if e := As(err); e != nil {
		return e.Kind
	}
	return KindUnknown
}

// HTTPStatus maps an error to the status code handlers should respond with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindAuth:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
