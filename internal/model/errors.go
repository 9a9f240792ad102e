package model

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies failures across the sync path.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindUnauthorized
	KindNotFound
	KindMethodNotAllowed
	KindUpstream
	KindTimeout
	KindParse
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindMethodNotAllowed:
		return "method_not_allowed"
	case KindUpstream:
		return "upstream"
	case KindTimeout:
		return "timeout"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

// HTTPStatus is the status the edge service answers with for k. Upstream,
// timeout and parse failures happen behind the service and surface as 500.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure. Status carries the upstream HTTP status
// when there was one.
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind and Message so sentinel values compare by content.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

var (
	ErrBadJSON          = &Error{Kind: KindValidation, Message: "Bad JSON"}
	ErrInvalidPayload   = &Error{Kind: KindValidation, Message: "Invalid payload"}
	ErrUnauthorized     = &Error{Kind: KindUnauthorized, Message: "Unauthorized"}
	ErrNotFound         = &Error{Kind: KindNotFound, Message: "Not Found"}
	ErrMethodNotAllowed = &Error{Kind: KindMethodNotAllowed, Message: "Method Not Allowed"}
)

// Upstream builds an upstream failure carrying the remote status.
func Upstream(status int, format string, args ...any) *Error {
	return &Error{Kind: KindUpstream, Status: status, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// PublicMessage is the text shown to HTTP callers for err. Validation-type
// errors drop their wrapped cause so decoder internals do not leak.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Kind != KindUnknown && e.Kind.HTTPStatus() < http.StatusInternalServerError {
			return e.Message
		}
		return e.Error()
	}
	return err.Error()
}
