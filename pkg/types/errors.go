// Package types defines the records and error kinds shared by the table
// reader, the expander and the serving layers.
package types

import (
	"errors"
	"fmt"
)

// ErrUnavailable marks a definition or table file that cannot be opened.
// It is a configuration problem, not a per-lookup failure.
var ErrUnavailable = errors.New("input unavailable")

// InputError reports a table file that could not be read.
type InputError struct {
	Path string
	Hint string // e.g., "Is eccodes installed?"
	Err  error
}

// Error implements the error interface.
func (e *InputError) Error() string {
	msg := fmt.Sprintf("required file not found: %s", e.Path)
	if e.Hint != "" {
		msg += ". " + e.Hint
	}
	if e.Err != nil {
		msg += fmt.Sprintf(" (%v)", e.Err)
	}
	return msg
}

// Unwrap returns the underlying I/O error.
func (e *InputError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrUnavailable) hold for every InputError.
func (e *InputError) Is(target error) bool {
	return target == ErrUnavailable
}

// NewInputError wraps an open/stat failure for path.
func NewInputError(path string, err error) *InputError {
	return &InputError{Path: path, Err: err}
}

// IsUnavailable reports whether err (or anything it wraps) is an input
// availability failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
