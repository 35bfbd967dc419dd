// Package errs defines the engine's error taxonomy. Callers branch on these
// with errors.Is and errors.As: malformed input fails a run permanently,
// transient store faults are retried, and the read path maps ErrNotFound and
// ErrInProgress to their own response shapes.
package errs

import (
	"errors"
	"fmt"
)

// ErrNotFound means no calculation exists for any date at or before the
// requested date. It is an expected condition, not a fault.
var ErrNotFound = errors.New("no calculation found")

// ErrInProgress means a read raced an active calculation. Callers should
// poll the status surface rather than retry blindly.
var ErrInProgress = errors.New("calculation in progress")

// DataError marks malformed or inconsistent match/record input. It is never
// retried: the run fails and the error is surfaced to the caller.
type DataError struct {
	Msg string
}

func (e *DataError) Error() string {
	return "data error: " + e.Msg
}

// NewDataError builds a DataError from a format string.
func NewDataError(format string, args ...any) *DataError {
	return &DataError{Msg: fmt.Sprintf(format, args...)}
}

// IsDataError reports whether err is or wraps a DataError.
func IsDataError(err error) bool {
	var de *DataError
	return errors.As(err, &de)
}

// TransientError marks an I/O failure against the match store or a cache
// backing store. The coordinator retries these with bounded backoff before
// giving up.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient store error during %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransient wraps err as a TransientError for the given operation.
func NewTransient(op string, err error) *TransientError {
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err is or wraps a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
