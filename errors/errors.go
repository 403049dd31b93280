// Package errors provides error handling for Ctrl-Q.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - User-facing hints and details
//
// Usage:
//
//	// Wrap with context
//	if err := client.CreateReloadTask(ctx, spec); err != nil {
//	    return errors.Wrap(err, "failed to create reload task")
//	}
//
//	// Check error kind
//	if errors.Is(err, errors.ErrValidation) {
//	    // bad import source, abort before Phase A
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
	Join      = crdb.Join
)

// Sentinel errors for the failure kinds Ctrl-Q distinguishes.
// Use these with errors.Is() for type-safe error checking and wrap them
// with errors.Wrap() to add the offending entity (task counter, event
// counter, rule counter, app counter) while preserving the kind.
var (
	// ErrConfiguration indicates missing or invalid flags, unreadable
	// certificate files, or mutually exclusive options. Fatal before any
	// network I/O.
	ErrConfiguration = New("configuration error")

	// ErrValidation indicates a bad import source: type coercion failure,
	// unknown tag, unknown custom property or value, unresolved rule
	// reference, or a bad sheet name.
	ErrValidation = New("validation error")

	// ErrTransport indicates a connection-level failure that survived the
	// retry policy: connection refused, TLS handshake failure, or a
	// retriable status that exceeded its retry budget.
	ErrTransport = New("transport error")

	// ErrServer indicates a 4xx response from QSEoW on a create call.
	// Recorded against the offending work item; the run continues.
	ErrServer = New("server error")

	// ErrNotFound indicates the requested QSEoW resource does not exist.
	ErrNotFound = New("not found")
)

// IsValidationError checks if an error is or wraps ErrValidation.
func IsValidationError(err error) bool {
	return err != nil && Is(err, ErrValidation)
}

// IsTransportError checks if an error is or wraps ErrTransport.
func IsTransportError(err error) bool {
	return err != nil && Is(err, ErrTransport)
}

// IsNotFoundError checks if an error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// ValidationErrorf creates a validation error with a formatted message.
func ValidationErrorf(format string, args ...interface{}) error {
	return Wrap(ErrValidation, Newf(format, args...).Error())
}

// ConfigurationErrorf creates a configuration error with a formatted message.
func ConfigurationErrorf(format string, args ...interface{}) error {
	return Wrap(ErrConfiguration, Newf(format, args...).Error())
}

// ServerErrorf creates a server-semantic error carrying the HTTP status.
func ServerErrorf(status int, format string, args ...interface{}) error {
	return Wrapf(ErrServer, "HTTP %d: %s", status, Newf(format, args...).Error())
}
