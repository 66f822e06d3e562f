package keyflight

import (
	"time"

	"go.uber.org/zap"
)

// DefaultTTL is how long a record remains live after creation.
const DefaultTTL = 24 * time.Hour

// config holds the configuration for a Coordinator.
type config struct {
	ttl           time.Duration
	waitTimeout   time.Duration
	store         RecordStore
	fingerprinter Fingerprinter
	logger        *zap.Logger
}

// Option configures a Coordinator.
type Option func(*config)

// WithTTL sets how long records live after creation.
//
// Only applies when using the default InMemoryStore. If WithStore is also
// specified, this option is ignored (configure the TTL on your store
// instead).
//
// Default: 24 hours
func WithTTL(ttl time.Duration) Option {
	return func(c *config) {
		c.ttl = ttl
	}
}

// WithStore sets a custom RecordStore implementation.
//
// Use this to share idempotency state across processes with a distributed
// backend. When specified, WithTTL is ignored.
func WithStore(store RecordStore) Option {
	return func(c *config) {
		c.store = store
	}
}

// WithFingerprinter sets the Fingerprinter used by Handle.
//
// The default canonicalizes the payload as JSON and hashes it with SHA-256.
// Custom fingerprinters are useful when only a subset of the payload is
// semantically relevant, or when payloads are not JSON-marshalable.
func WithFingerprinter(fp Fingerprinter) Option {
	return func(c *config) {
		c.fingerprinter = fp
	}
}

// WithWaitTimeout bounds how long a duplicate caller waits for the owning
// execution to resolve before giving up with ErrWaitTimeout.
//
// Zero (the default) means the wait is bounded only by the caller's context.
// Abandoning the wait does not affect the owning execution or other waiters.
func WithWaitTimeout(d time.Duration) Option {
	return func(c *config) {
		c.waitTimeout = d
	}
}

// WithLogger sets the structured logger used by the coordinator.
// Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}
