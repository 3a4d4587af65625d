package api

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an API failure.
type Kind int

const (
	KindUnauthorized Kind = iota + 1
	KindNotFound
	KindValidation
	KindServer
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server_error"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrServer       = errors.New("server error")
	ErrNetwork      = errors.New("network error")
)

// Error is a classified API failure.
type Error struct {
	Kind    Kind
	Status  int
	Code    string
	Message string
	Method  string
	Path    string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Method != "" {
		fmt.Fprintf(&b, "%s %s: ", e.Method, e.Path)
	}
	switch e.Kind {
	case KindNetwork:
		b.WriteString("network error")
	case KindValidation:
		fmt.Fprintf(&b, "http %d: %s", e.Status, e.Code)
	default:
		fmt.Fprintf(&b, "http %d: %s", e.Status, e.Kind)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's Kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Kind == KindUnauthorized
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrServer:
		return e.Kind == KindServer
	case ErrNetwork:
		return e.Kind == KindNetwork
	}
	return false
}

// HasCode reports whether err is a validation error carrying code.
func HasCode(err error, code string) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Kind == KindValidation && apiErr.Code == code
}

// Presenter shows classified API failures to the operator.
type Presenter interface {
	PresentError(err *Error)
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(err *Error)

func (f PresenterFunc) PresentError(err *Error) { f(err) }
