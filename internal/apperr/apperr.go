package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the closed set of failure categories surfaced by the rating engine.
// Every API boundary switches over all of them.
type Kind int

const (
	// KindInternal covers unexpected failures (storage outages, unanticipated
	// constraint violations). Never produced for expected business conditions.
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindBusinessLogic
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindBusinessLogic:
		return "business_logic"
	case KindForbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

// HTTPStatus maps a kind onto the response status used by the REST surface.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindBusinessLogic:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error carries one typed failure. Code is a stable machine-readable token
// (e.g. "prefix_exists"); Message is for humans.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Code, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on kind and code so sentinel-style comparisons work:
// errors.Is(err, apperr.NotFound("tariff_not_found", "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Code == "" || e.Code == t.Code)
}

func Validation(code, msg string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: msg}
}

func NotFound(code, msg string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: msg}
}

func BusinessLogic(code, msg string) *Error {
	return &Error{Kind: KindBusinessLogic, Code: code, Message: msg}
}

func Forbidden(code, msg string) *Error {
	return &Error{Kind: KindForbidden, Code: code, Message: msg}
}

// Internal wraps an unexpected failure. The wrapped error is kept for logs but
// never rendered to clients.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: "internal_error", Message: "internal error", Err: err}
}

// As extracts the typed error. Errors that are not *Error are reported as
// internal.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// KindOf returns the kind of err, KindInternal for untyped errors.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	return As(err).Kind
}

// HasCode reports whether err is a typed error with the given code.
func HasCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
