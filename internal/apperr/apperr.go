// Package apperr defines the error taxonomy shared by services and handlers.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindBadRequest   Kind = "bad_request"
	KindConflict     Kind = "conflict"
	KindValidation   Kind = "validation_error"
	KindRateLimited  Kind = "rate_limited"
	KindInternal     Kind = "internal_error"

	KindAIAuth    Kind = "ai_auth_error"
	KindAIQuota   Kind = "ai_quota_exceeded"
	KindAINetwork Kind = "ai_network_error"
	KindAITimeout Kind = "ai_timeout"
	KindAIGeneric Kind = "ai_error"
)

// Error carries a stable kind plus a user-facing message. Err holds the cause
// and is never rendered to clients.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Unauthorized(msg string) *Error { return New(KindUnauthorized, msg) }
func Forbidden(msg string) *Error    { return New(KindForbidden, msg) }
func NotFound(msg string) *Error     { return New(KindNotFound, msg) }
func BadRequest(msg string) *Error   { return New(KindBadRequest, msg) }
func Conflict(msg string) *Error     { return New(KindConflict, msg) }
func RateLimited(msg string) *Error  { return New(KindRateLimited, msg) }

// Validation builds a field-keyed validation error.
func Validation(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: "入力内容に誤りがあります", Fields: fields}
}

// FieldError is shorthand for a single-field validation error.
func FieldError(field, msg string) *Error {
	return Validation(map[string]string{field: msg})
}

func Internal(err error) *Error {
	return Wrap(KindInternal, "サーバーエラーが発生しました", err)
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
