package storage

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrClosed is returned when the store has already been closed
	ErrClosed = errors.New("store is closed")
)

// StoreError carries the engine's native result code and message for a failed operation
type StoreError struct {
	Op      string
	Code    int // SQLite result code, 0 when the driver did not supply one
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: sqlite error %d: %s", e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// wrapErr annotates a driver error with the operation that produced it.
// Sentinels and context errors pass through untouched.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrClosed) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	code, _ := driverErrorCode(err)
	return &StoreError{
		Op:      op,
		Code:    code,
		Message: err.Error(),
		Err:     err,
	}
}
