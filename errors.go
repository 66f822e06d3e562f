package keyflight

import (
	"errors"
	"fmt"
)

// Error codes surfaced by the engine.
const (
	ErrCodeMissingKey  = "missing_key"
	ErrCodeKeyConflict = "key_conflict"
	ErrCodeWaitTimeout = "wait_timeout"
)

// ErrEmptyKey reports that Execute was called with an empty idempotency key.
// Key presence is a boundary concern; reaching the coordinator without one
// is a programming error, so the call fails fast before touching the store.
var ErrEmptyKey = errors.New(ErrCodeMissingKey + ": idempotency key must not be empty")

// ErrWaitTimeout reports that a duplicate caller gave up waiting for the
// owning execution to resolve. The owning execution and other waiters are
// unaffected.
var ErrWaitTimeout = errors.New(ErrCodeWaitTimeout + ": in-flight execution did not resolve in time")

// ConflictError reports that an idempotency key was reused with a different
// request fingerprint. The stored record is never mutated and the operation
// is never executed for a conflicting call.
type ConflictError struct {
	Key string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: idempotency key %q reused with different request parameters", ErrCodeKeyConflict, e.Key)
}
