package main

import (
	"errors"

	"github.com/kbforge/kbforge/internal/domain"
)

// exitError carries one of the documented process exit codes alongside
// the error that produced it.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func asExitError(err error, target **exitError) bool {
	return errors.As(err, target)
}

// classify maps an engine-layer error onto its documented exit code when
// the caller hasn't already wrapped it in an exitError.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return err
	}

	var cfgErr *domain.ConfigurationError
	if errors.As(err, &cfgErr) {
		return &exitError{code: 4, err: err}
	}
	var planErr *domain.PlanValidationError
	if errors.As(err, &planErr) {
		return &exitError{code: 1, err: err}
	}
	return &exitError{code: 1, err: err}
}
