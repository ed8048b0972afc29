package ledger

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by store operations. All are recoverable and
// leave the store unchanged.
var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrAccountNotFound    = errors.New("account not found")
	ErrUsernameTaken      = errors.New("username already taken")
)

// ValidationError reports malformed or out-of-range input. It is returned
// before any storage access, so the caller can treat it as a pure input
// problem with no side effects.
type ValidationError struct {
	Field  string // Input field that failed validation
	Reason string // Human-readable reason
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validationf builds a ValidationError for field with a formatted reason.
func Validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// StorageError wraps an infrastructure failure from the durable store: the
// database could not be reached or a commit failed for reasons unrelated
// to the operation's inputs. The pre-operation state is guaranteed
// unchanged.
type StorageError struct {
	Op  string // Store operation that failed
	Err error  // Underlying cause
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("ledger storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
