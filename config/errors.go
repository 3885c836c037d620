package config

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks a rejected update; the stored record is unchanged.
	ErrValidation = errors.New("config: validation failed")
	// ErrNotFound is returned by [Store.Lookup] for channels without a
	// stored record.
	ErrNotFound = errors.New("config: channel not found")
	// ErrTransientIO marks file read or watch failures the caller may
	// retry.
	ErrTransientIO = errors.New("config: transient I/O failure")
)

// ValidationError reports the first field of a record that failed
// validation.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s %s (got %v)", e.Field, e.Reason, e.Value)
}

// Unwrap makes errors.Is(err, ErrValidation) hold.
func (e *ValidationError) Unwrap() error { return ErrValidation }
