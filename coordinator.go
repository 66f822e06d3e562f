package keyflight

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Operation is the protected side-effecting call. The coordinator invokes it
// at most once per (key, fingerprint) pair within the TTL window. Its result
// and error are trusted verbatim: a returned error is stored and replayed to
// every duplicate caller until the record expires, never retried by the
// engine.
type Operation func(ctx context.Context) (interface{}, error)

// Coordinator implements the idempotency decision protocol on top of a
// RecordStore. Construct one per process and share it across request
// handlers; the zero value is not usable.
type Coordinator struct {
	store         RecordStore
	fingerprinter Fingerprinter
	waitTimeout   time.Duration
	logger        *zap.Logger
}

// New creates a Coordinator.
//
// Default configuration:
//   - InMemoryStore with a 24-hour TTL
//   - canonical-JSON SHA-256 fingerprinter
//   - waits bounded only by the caller's context
func New(opts ...Option) *Coordinator {
	cfg := &config{
		ttl:           DefaultTTL,
		fingerprinter: NewFingerprint,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	store := cfg.store
	if store == nil {
		store = NewInMemoryStore(cfg.ttl)
	}

	return &Coordinator{
		store:         store,
		fingerprinter: cfg.fingerprinter,
		waitTimeout:   cfg.waitTimeout,
		logger:        cfg.logger,
	}
}

// Handle fingerprints payload with the configured Fingerprinter and calls
// Execute. It is the convenience entry point for request handlers that hold
// the decoded payload rather than a precomputed fingerprint.
func (c *Coordinator) Handle(ctx context.Context, key string, payload interface{}, op Operation) (interface{}, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	fingerprint, err := c.fingerprinter(payload)
	if err != nil {
		return nil, err
	}
	return c.Execute(ctx, key, fingerprint, op)
}

// Execute runs op under idempotency protection for key.
//
// The first caller for a key owns the execution: it creates a Processing
// record, runs op outside the key's lock, and resolves the record exactly
// once. Duplicate callers with the same fingerprint either replay the stored
// outcome or block until the owner resolves it; callers with a different
// fingerprint receive *ConflictError without executing or mutating anything.
//
// An empty key fails fast with ErrEmptyKey.
func (c *Coordinator) Execute(ctx context.Context, key string, fingerprint Fingerprint, op Operation) (interface{}, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	for {
		status, rec, done := c.store.Begin(key, fingerprint)
		switch status {
		case BeginCompleted:
			c.logger.Debug("replaying stored result", zap.String("key", key))
			return rec.Result, nil

		case BeginFailed:
			c.logger.Debug("replaying stored failure", zap.String("key", key))
			return nil, rec.Failure

		case BeginConflict:
			c.logger.Warn("idempotency key conflict", zap.String("key", key))
			return nil, &ConflictError{Key: key}

		case BeginInFlight:
			if err := c.wait(ctx, done); err != nil {
				return nil, err
			}
			// The owning execution resolved. Re-enter the protocol to
			// observe the outcome; if the record already expired again this
			// becomes a fresh attempt.
			continue

		case BeginOwner:
		}

		c.logger.Debug("executing operation", zap.String("key", key))
		result, err := op(ctx)
		if err != nil {
			c.store.Fail(key, err)
			return nil, err
		}
		c.store.Complete(key, result)
		return result, nil
	}
}

// wait blocks until the owning execution closes done, the context is
// cancelled, or the configured wait timeout elapses.
func (c *Coordinator) wait(ctx context.Context, done <-chan struct{}) error {
	if c.waitTimeout <= 0 {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	timer := time.NewTimer(c.waitTimeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		return ErrWaitTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}
