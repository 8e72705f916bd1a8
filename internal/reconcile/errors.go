package reconcile

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned by New for unusable arguments.
var ErrInvalidConfig = errors.New("invalid reconcile configuration")

// ErrorCode categorizes reconciliation failures.
type ErrorCode string

const (
	// ErrCodeStoreRead indicates a fact store read failed.
	ErrCodeStoreRead ErrorCode = "STORE_READ"

	// ErrCodeStoreWrite indicates a fact store update failed.
	ErrCodeStoreWrite ErrorCode = "STORE_WRITE"
)

// Error is a failure while reconciling one reference.
//
// Missing prerequisites (post, area, person) are outcomes, not errors.
// An Error always means the attempt could not complete.
type Error struct {
	Code ErrorCode
	Ref  string
	Step string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (ref=%s): %v", e.Code, e.Step, e.Ref, e.Err)
}

// Unwrap returns the underlying store error.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsStoreError reports whether err is a reconcile store failure.
// Uses errors.As to handle wrapped errors.
func IsStoreError(err error) bool {
	var re *Error
	return errors.As(err, &re)
}

func readErr(ref, step string, err error) *Error {
	return &Error{Code: ErrCodeStoreRead, Ref: ref, Step: step, Err: err}
}

func writeErr(ref, step string, err error) *Error {
	return &Error{Code: ErrCodeStoreWrite, Ref: ref, Step: step, Err: err}
}
