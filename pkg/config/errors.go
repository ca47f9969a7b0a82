package config

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigurationMissing is returned when a required config file does
	// not exist.
	ErrConfigurationMissing = errors.New("configuration missing")

	ErrInvalid = errors.New("invalid configuration")
)

// ValidationError names the offending field and why its value was rejected.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config: field %q with value %v: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}
