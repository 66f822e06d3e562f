package keyflight

// BeginStatus classifies a key at the start of the decision protocol.
type BeginStatus int

const (
	// BeginOwner means no live record existed. One was created in
	// StatusProcessing and the caller owns the single execution.
	BeginOwner BeginStatus = iota
	// BeginInFlight means a matching record is still processing. The caller
	// should wait on the done channel returned by Begin.
	BeginInFlight
	// BeginCompleted means a matching record holds a stored result.
	BeginCompleted
	// BeginFailed means a matching record holds a stored failure.
	BeginFailed
	// BeginConflict means a live record exists for the key with a different
	// fingerprint. The record is left untouched.
	BeginConflict
)

// RecordStore holds one record per active idempotency key.
// Implementations must be safe for concurrent use.
//
// The interface mirrors the decision protocol rather than bare CRUD so that
// the existence check, fingerprint comparison, and record creation form a
// single atomic step — a separate lookup-then-create sequence would race
// with concurrent callers of the same key.
type RecordStore interface {
	// Begin atomically classifies key and, when no live record exists,
	// inserts a StatusProcessing record owned by the caller.
	//
	// Returns:
	//   - BeginOwner + the new record + its done channel: run the operation,
	//     then call Complete or Fail exactly once
	//   - BeginInFlight + the record + its done channel: wait for the
	//     channel to close, then re-enter Begin to observe the outcome
	//   - BeginCompleted / BeginFailed + the resolved record + nil
	//   - BeginConflict + the conflicting record + nil
	//
	// An expired terminal record is treated as absent.
	Begin(key string, fingerprint Fingerprint) (BeginStatus, Record, <-chan struct{})

	// Complete transitions the key's record to StatusCompleted, stores the
	// result, and wakes all waiters. It is a silent no-op if the record was
	// removed concurrently or already resolved.
	Complete(key string, result interface{})

	// Fail transitions the key's record to StatusFailed, stores the failure,
	// and wakes all waiters. Same no-op semantics as Complete.
	Fail(key string, failure error)

	// Lookup returns a snapshot of the key's record. Expired records are
	// reaped first, so a caller never observes a logically-expired record.
	Lookup(key string) (Record, bool)
}
