package keyflight

import "time"

// Status is the lifecycle state of an idempotency record.
type Status int

const (
	// StatusProcessing means the owning execution is still in flight.
	StatusProcessing Status = iota
	// StatusCompleted means the execution finished and its result is stored.
	StatusCompleted
	// StatusFailed means the execution failed and its error is stored.
	StatusFailed
)

// String returns the wire-friendly name of the status.
func (s Status) String() string {
	switch s {
	case StatusProcessing:
		return "processing"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Record is an immutable snapshot of one idempotency record.
//
// A record is created in StatusProcessing when a key is first seen,
// transitions exactly once to StatusCompleted or StatusFailed, and is
// removed by the lazy reaper once its TTL has elapsed. Result is set iff the
// status is StatusCompleted; Failure is set iff the status is StatusFailed.
type Record struct {
	Key         string
	Fingerprint Fingerprint
	Status      Status
	Result      interface{}
	Failure     error
	CreatedAt   time.Time
	ExpiresAt   time.Time
}
