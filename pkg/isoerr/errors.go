// Package isoerr defines the error taxonomy of the isomorphic
// coordination core: data-fetch failures, first-emission timeouts, and
// configuration (programmer) errors.
package isoerr

import (
	"errors"
	"fmt"
)

// Category classifies an error.
type Category string

const (
	CategoryData      Category = "data"      // the data stream itself errored
	CategoryTimeout   Category = "timeout"   // timeoutMs elapsed before first emission
	CategoryConfig    Category = "config"    // programmer error, surfaced loudly
	CategoryHydration Category = "hydration" // hydration contract violations
)

// Error is a structured error carrying category, code, and the instance
// it belongs to. Identity for errors.Is is (category, code), so wrapped
// and annotated copies still match their sentinel.
type Error struct {
	Category Category
	Code     string
	Message  string

	// Instance is the descriptor name (and element id, when known) of
	// the isomorphic instance the error belongs to.
	Instance string

	// Wrapped is the underlying cause, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Instance != "" {
		msg = fmt.Sprintf("%s [instance %s]", msg, e.Instance)
	}
	if e.Wrapped != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Wrapped)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	return msg
}

// Unwrap returns the wrapped cause for errors.Is/As support.
func (e *Error) Unwrap() error { return e.Wrapped }

// Is matches on (category, code) so annotated copies compare equal to
// their sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithInstance returns a copy annotated with the owning instance.
func (e *Error) WithInstance(instance string) *Error {
	clone := *e
	clone.Instance = instance
	return &clone
}

// Wrap returns a copy wrapping the underlying cause.
func (e *Error) Wrap(err error) *Error {
	clone := *e
	clone.Wrapped = err
	return &clone
}

// ErrTimeout is the fixed-identity timeout error raised when an
// instance's timeout elapses before the data stream's first emission.
var ErrTimeout = &Error{
	Category: CategoryTimeout,
	Code:     "ISO201",
	Message:  "timed out waiting for first emission",
}

// Sentinels for the data and hydration paths.
var (
	ErrDataFetch        = &Error{Category: CategoryData, Code: "ISO101", Message: "data stream errored"}
	ErrMissingHydration = &Error{Category: CategoryData, Code: "ISO102", Message: "first server emission carried no hydration payload"}
	ErrAsyncHydration   = &Error{Category: CategoryHydration, Code: "ISO301", Message: "hydration data function did not emit synchronously"}
	ErrNoHydrationState = &Error{Category: CategoryHydration, Code: "ISO302", Message: "no hydration record found for instance"}
)

// DataFetch wraps a data stream error for the given instance.
func DataFetch(instance string, cause error) *Error {
	return ErrDataFetch.WithInstance(instance).Wrap(cause)
}

// Timeout annotates the timeout sentinel with the owning instance.
func Timeout(instance string) *Error {
	return ErrTimeout.WithInstance(instance)
}

// Config creates a configuration error. Configuration errors are
// programmer errors: they are panicked at mount/render time, not
// returned, and never retried.
func Config(format string, args ...any) *Error {
	return &Error{
		Category: CategoryConfig,
		Code:     "ISO401",
		Message:  fmt.Sprintf(format, args...),
	}
}

// IsTimeout reports whether err is (or wraps) the timeout sentinel.
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }

// IsConfig reports whether err is a configuration error.
func IsConfig(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Category == CategoryConfig
}
