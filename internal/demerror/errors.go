// Package demerror defines the error categories raised by the DEM toolkit.
//
// All categories are fatal to the current run except bounds-resolution
// degradation, which is reported through the logger and continued.
package demerror

import (
	"errors"
	"fmt"
)

// ArgumentError reports bad or missing command-line input.
type ArgumentError struct {
	Msg string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("argument error: %s", e.Msg)
}

// NewArgumentError creates an ArgumentError with a formatted message.
func NewArgumentError(format string, args ...interface{}) *ArgumentError {
	return &ArgumentError{Msg: fmt.Sprintf(format, args...)}
}

// ConversionError reports a failed file format conversion. File names the
// input that could not be converted.
type ConversionError struct {
	File string
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("conversion of %s failed: %v", e.File, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// BackendUnavailableError reports a missing or misconfigured external tool.
type BackendUnavailableError struct {
	Backend string
	Tool    string
	Err     error
}

func (e *BackendUnavailableError) Error() string {
	if e.Tool != "" {
		return fmt.Sprintf("backend %s unavailable: %s not found (%v)", e.Backend, e.Tool, e.Err)
	}
	return fmt.Sprintf("backend %s unavailable: %v", e.Backend, e.Err)
}

func (e *BackendUnavailableError) Unwrap() error { return e.Err }

// ProjectionMismatchError reports rasters with differing projections handed
// to an operation that requires a single projection.
type ProjectionMismatchError struct {
	Want string
	Got  string
	File string
}

func (e *ProjectionMismatchError) Error() string {
	return fmt.Sprintf("projection mismatch: %s is %s, expected %s", e.File, e.Got, e.Want)
}

// IsFatal reports whether err belongs to one of the fatal categories.
func IsFatal(err error) bool {
	var argErr *ArgumentError
	var convErr *ConversionError
	var backendErr *BackendUnavailableError
	var projErr *ProjectionMismatchError
	return errors.As(err, &argErr) ||
		errors.As(err, &convErr) ||
		errors.As(err, &backendErr) ||
		errors.As(err, &projErr)
}
