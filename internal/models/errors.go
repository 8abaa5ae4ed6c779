package models

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	ErrOperationNotFound = errors.New("operation not found")
	ErrAlreadyInFlight   = errors.New("operation already in flight")
	ErrSyncInProgress    = errors.New("sync already in progress")
	ErrEngineClosed      = errors.New("engine is shut down")
)

// TransientError marks a delivery failure that is expected to succeed on
// retry without semantic change (network unreachable, timeout, 5xx).
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError marks a delivery failure that retrying will not fix
// (rejected payload, conflict, 4xx).
type PermanentError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *PermanentError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("permanent: %s (status %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("permanent: %s: %v", e.Op, e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// ProbeError marks a failed background scheduler probe. It is never
// escalated; the liveness monitor folds it into BackgroundHealth.
type ProbeError struct {
	Err error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe: %v", e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError.
func Transient(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

// Permanent wraps err as a PermanentError.
func Permanent(op string, status int, err error) error {
	return &PermanentError{Op: op, StatusCode: status, Err: err}
}

// IsTransient reports whether err is classified as retryable. Errors with
// no classification are treated as transient so that an unknown failure is
// never silently dropped from the queue.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var perm *PermanentError
	return !errors.As(err, &perm)
}

// IsPermanent reports whether err is classified as non-retryable.
func IsPermanent(err error) bool {
	var perm *PermanentError
	return errors.As(err, &perm)
}
