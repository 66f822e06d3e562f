// Package keyflight provides single-process idempotency coordination for
// side-effecting operations.
//
// # Overview
//
// A client retrying the same logical operation — identified by a
// caller-supplied idempotency key — receives exactly the result of a single
// underlying execution, even when retries arrive concurrently or while the
// original execution is still in flight. The package tracks one record per
// key, runs the protected operation at most once per key within a TTL
// window, and replays the stored outcome (success or failure) to every
// duplicate caller until the record expires.
//
// # Usage
//
// Basic usage with the default in-memory store and 24-hour TTL:
//
//	coord := keyflight.New()
//
//	result, err := coord.Handle(ctx, idempotencyKey, paymentRequest,
//	    func(ctx context.Context) (interface{}, error) {
//	        return processor.Process(ctx, paymentRequest)
//	    })
//
// Custom TTL and logging:
//
//	coord := keyflight.New(
//	    keyflight.WithTTL(time.Hour),
//	    keyflight.WithLogger(logger),
//	)
//
// # Decision protocol
//
// On each call the coordinator atomically classifies the key:
//   - no live record: the caller becomes the owner, creates a Processing
//     record, and runs the operation
//   - live record with a different fingerprint: *ConflictError, nothing runs
//     and nothing is mutated
//   - Completed record with a matching fingerprint: the stored result is
//     returned without running the operation
//   - Failed record with a matching fingerprint: the stored error is
//     returned verbatim without running the operation
//   - Processing record: the caller blocks on the record's done channel
//     until the owner resolves it, then observes the same outcome
//
// Waiters are woken by a channel close, not by polling, and respect context
// cancellation plus an optional maximum wait duration.
//
// # Scope
//
// State lives in process memory. For deployments that need coordination
// across processes, implement RecordStore with a shared backend and pass it
// via WithStore.
package keyflight
