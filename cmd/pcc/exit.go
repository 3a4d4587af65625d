package main

import (
	"context"
	"errors"
	"strconv"

	"pcc/internal/api"
	"pcc/internal/deployconfig"
)

const (
	exitFailure       = 1
	exitConfigInvalid = 2
	exitUnauthorized  = 3
	exitTimedOut      = 4
	exitInterrupted   = 130
)

// exitError carries an explicit exit status. silent suppresses the final
// error line when the failure was already shown to the operator.
type exitError struct {
	code   int
	silent bool
	err    error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return "exit status " + strconv.Itoa(e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	switch {
	case errors.Is(err, deployconfig.ErrConfigInvalid):
		return exitConfigInvalid
	case errors.Is(err, api.ErrUnauthorized):
		return exitUnauthorized
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	default:
		return exitFailure
	}
}

// presented wraps an error that the console presenter already printed.
func presented(err error) error {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	code := exitFailure
	if apiErr.Kind == api.KindUnauthorized {
		code = exitUnauthorized
	}
	return &exitError{code: code, silent: true, err: err}
}
