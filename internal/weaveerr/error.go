package weaveerr

import (
	"fmt"
	"time"
)

type RetryableError struct {
	// Err is the wrapped original error
	Err error
	// After is the earliest point in time that the operation can be retried
	After time.Time
}

func NewRetryableError(originalErr error, retryAfter time.Time) *RetryableError {
	return &RetryableError{
		Err:   originalErr,
		After: retryAfter,
	}
}

func NewRetryableAnytimeError(originalErr error) *RetryableError {
	return &RetryableError{
		Err: originalErr,
	}
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

func (e *RetryableError) Error() string {
	if e.After.IsZero() {
		return fmt.Sprintf("retryable error: %s", e.Err)
	}

	return fmt.Sprintf("retryable error (after %s): %s", e.After, e.Err)
}

// ConfigError marks a failure caused by static misconfiguration.
// Jobs failing with a ConfigError are terminated immediately, retrying can
// not succeed until the configuration is changed.
type ConfigError struct {
	Err error
}

func NewConfigError(originalErr error) *ConfigError {
	return &ConfigError{Err: originalErr}
}

func ConfigErrorf(format string, a ...any) *ConfigError {
	return &ConfigError{Err: fmt.Errorf(format, a...)}
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Err)
}
