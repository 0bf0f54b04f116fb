// Package apperr defines the structured error pairs (kind + human message)
// that service code returns across the module boundary. Handlers translate
// them to HTTP; nothing in this package knows about HTTP beyond the status
// mapping table.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	Validation            Kind = "validation_error"
	RequiredFieldMissing  Kind = "required_field_missing"
	NotFound              Kind = "not_found"
	AccessDenied          Kind = "access_denied"
	Forbidden             Kind = "forbidden"
	GatewayUnavailable    Kind = "gateway_unavailable"
	InvalidPromptTemplate Kind = "invalid_prompt_template"
	Conflict              Kind = "conflict"
	Internal              Kind = "internal"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf reports the kind of err, or Internal for plain errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// MessageOf returns the human message for err. Plain errors collapse to a
// generic message so transport/database details never leak to clients.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

func Status(err error) int {
	switch KindOf(err) {
	case Validation:
		return http.StatusUnprocessableEntity
	case RequiredFieldMissing:
		return http.StatusBadRequest
	case NotFound, InvalidPromptTemplate:
		return http.StatusNotFound
	case AccessDenied, Forbidden:
		return http.StatusForbidden
	case GatewayUnavailable:
		return http.StatusBadGateway
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
