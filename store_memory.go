package keyflight

import (
	"sync"
	"time"
)

// InMemoryStore is the single-process RecordStore.
//
// State is held in process memory and lost on restart; for distributed
// deployments implement RecordStore with a shared backend instead.
//
// Expiry is lazy and access-triggered: Begin and Lookup sweep every expired
// record before answering, computing the current time once per sweep. There
// is no background timer. Records still in StatusProcessing are never
// reaped — a waiter's record can therefore only disappear after it has
// resolved.
type InMemoryStore struct {
	mu      sync.Mutex // guards records; never held across a blocking step
	records map[string]*record
	locks   *keyedLocks
	ttl     time.Duration
}

// record is the mutable store-internal representation. All field mutation
// happens under the key's lock; the done channel is closed exactly once, on
// the Processing → terminal transition.
type record struct {
	key         string
	fingerprint Fingerprint
	status      Status
	result      interface{}
	failure     error
	createdAt   time.Time
	expiresAt   time.Time
	done        chan struct{}
}

func (r *record) expired(now time.Time) bool {
	return !now.Before(r.expiresAt)
}

func (r *record) snapshot() Record {
	return Record{
		Key:         r.key,
		Fingerprint: r.fingerprint,
		Status:      r.status,
		Result:      r.result,
		Failure:     r.failure,
		CreatedAt:   r.createdAt,
		ExpiresAt:   r.expiresAt,
	}
}

// NewInMemoryStore creates an in-memory record store. Records expire ttl
// after creation regardless of status, but are only removed once resolved.
func NewInMemoryStore(ttl time.Duration) *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string]*record),
		locks:   newKeyedLocks(),
		ttl:     ttl,
	}
}

// Begin atomically classifies key under the key's lock: the existence check,
// fingerprint comparison, and Processing insert form one critical section.
func (s *InMemoryStore) Begin(key string, fingerprint Fingerprint) (BeginStatus, Record, <-chan struct{}) {
	s.sweepExpired()

	release := s.locks.acquire(key)
	defer release()

	now := time.Now()

	s.mu.Lock()
	rec, ok := s.records[key]
	if ok && rec.status != StatusProcessing && rec.expired(now) {
		delete(s.records, key)
		ok = false
	}
	if !ok {
		rec = &record{
			key:         key,
			fingerprint: fingerprint,
			status:      StatusProcessing,
			createdAt:   now,
			expiresAt:   now.Add(s.ttl),
			done:        make(chan struct{}),
		}
		s.records[key] = rec
		s.mu.Unlock()
		return BeginOwner, rec.snapshot(), rec.done
	}
	s.mu.Unlock()

	if rec.fingerprint != fingerprint {
		return BeginConflict, rec.snapshot(), nil
	}

	switch rec.status {
	case StatusCompleted:
		return BeginCompleted, rec.snapshot(), nil
	case StatusFailed:
		return BeginFailed, rec.snapshot(), nil
	default:
		return BeginInFlight, rec.snapshot(), rec.done
	}
}

// Complete transitions the record to StatusCompleted and wakes all waiters.
// Silent no-op if the record is gone or already resolved.
func (s *InMemoryStore) Complete(key string, result interface{}) {
	s.resolve(key, func(rec *record) {
		rec.status = StatusCompleted
		rec.result = result
	})
}

// Fail transitions the record to StatusFailed and wakes all waiters.
// Silent no-op if the record is gone or already resolved.
func (s *InMemoryStore) Fail(key string, failure error) {
	s.resolve(key, func(rec *record) {
		rec.status = StatusFailed
		rec.failure = failure
	})
}

// resolve mutates under both the key lock and s.mu: the sweep's collection
// loop reads record statuses holding only s.mu, so the status write must be
// covered by it too.
func (s *InMemoryStore) resolve(key string, mutate func(*record)) {
	release := s.locks.acquire(key)
	defer release()

	s.mu.Lock()
	rec, ok := s.records[key]
	if !ok || rec.status != StatusProcessing {
		s.mu.Unlock()
		return
	}
	mutate(rec)
	s.mu.Unlock()

	close(rec.done)
}

// Lookup sweeps expired records, then returns a snapshot for key.
func (s *InMemoryStore) Lookup(key string) (Record, bool) {
	s.sweepExpired()

	release := s.locks.acquire(key)
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return Record{}, false
	}
	return rec.snapshot(), true
}

// sweepExpired removes every resolved record past its TTL and releases the
// matching lock-registry entries. Candidates are collected first so that at
// most one key lock is held at a time.
func (s *InMemoryStore) sweepExpired() {
	now := time.Now()

	s.mu.Lock()
	var stale []string
	for key, rec := range s.records {
		if rec.status != StatusProcessing && rec.expired(now) {
			stale = append(stale, key)
		}
	}
	s.mu.Unlock()

	for _, key := range stale {
		release := s.locks.acquire(key)
		s.mu.Lock()
		if rec, ok := s.records[key]; ok && rec.status != StatusProcessing && rec.expired(now) {
			delete(s.records, key)
		}
		s.mu.Unlock()
		release()
		s.locks.remove(key)
	}
}

func (s *InMemoryStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Ensure InMemoryStore implements RecordStore
var _ RecordStore = (*InMemoryStore)(nil)
