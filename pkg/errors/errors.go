package errors

import (
	"errors"
	"fmt"
)

// Error kinds returned by the lead intake core. Callers branch on them with
// errors.Is and errors.As instead of matching messages.

var (
	// ErrConfig indicates invalid or missing startup configuration
	ErrConfig = errors.New("invalid configuration")

	// ErrInvalidInput indicates a malformed lead submission
	ErrInvalidInput = errors.New("invalid input")

	// ErrPoolExhausted indicates every pooled connection stayed busy for the whole acquire window
	ErrPoolExhausted = errors.New("connection pool exhausted")

	// ErrConnectTimeout indicates the backend did not accept a new connection in time
	ErrConnectTimeout = errors.New("connect timeout")

	// ErrPersistence indicates the backend rejected or failed a write
	ErrPersistence = errors.New("persistence failure")

	// ErrUnreachable indicates the health probe could not reach the backend
	ErrUnreachable = errors.New("backend unreachable")
)

// ConfigError reports a configuration value that prevents the pool from starting.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// ValidationError reports the first submission field that failed validation.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// PersistenceError wraps a backend failure that happened after input was accepted.
// The write may or may not have committed when Cause is a timeout.
type PersistenceError struct {
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", ErrPersistence, e.Cause)
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

// UnreachableError is produced by health probes.
type UnreachableError struct {
	Detail string
	Cause  error
}

func (e *UnreachableError) Error() string {
	if e.Detail == "" {
		return ErrUnreachable.Error()
	}
	return fmt.Sprintf("%s: %s", ErrUnreachable, e.Detail)
}

func (e *UnreachableError) Is(target error) bool {
	return target == ErrUnreachable
}

func (e *UnreachableError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates a configuration error for the given field
func NewConfigError(field, reason string) error {
	return &ConfigError{Field: field, Reason: reason}
}

// InvalidInputError creates a validation error with context
func InvalidInputError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Persistence wraps cause as a PersistenceError. A nil cause stays nil.
func Persistence(cause error) error {
	if cause == nil {
		return nil
	}
	return &PersistenceError{Cause: cause}
}

// Unreachable wraps cause as an UnreachableError
func Unreachable(cause error) error {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	return &UnreachableError{Detail: detail, Cause: cause}
}

// IsTransient reports whether err is resource pressure a caller may retry with backoff
func IsTransient(err error) bool {
	return errors.Is(err, ErrPoolExhausted) || errors.Is(err, ErrConnectTimeout)
}

// Is checks if an error matches a target error (works with wrapped errors)
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
