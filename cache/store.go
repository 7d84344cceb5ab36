package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Fetcher loads the authoritative value for a key from the marketplace API.
type Fetcher func(ctx context.Context) (interface{}, error)

// Snapshot is the opaque prior-value record returned by SpeculativeApply.
// Exactly one snapshot exists per in-flight mutation.
type Snapshot struct {
	key     string
	existed bool
	value   interface{}
	apply   uint64
}

type entry struct {
	value     interface{}
	stale     bool
	expiresAt time.Time
	applies   uint64 // count of speculative applies on this key
}

// Store maintains the client's view of remote entities addressed by
// hierarchical keys. It is the only shared mutable resource across logical
// tasks; all access goes through its methods.
type Store struct {
	mu       sync.Mutex
	entries  map[string]*entry
	fetchGen map[string]uint64 // bumped by CancelInFlight to void in-flight fetches
	ttl      time.Duration
	logger   *zap.Logger
}

// NewStore creates a store whose entries go stale after defaultTTL with no
// refetch. Lifecycle is owned by the composition root; there is no package
// level singleton.
func NewStore(logger *zap.Logger, defaultTTL time.Duration) *Store {
	return &Store{
		entries:  make(map[string]*entry),
		fetchGen: make(map[string]uint64),
		ttl:      defaultTTL,
		logger:   logger,
	}
}

// Read returns the cached value if present, fresh, and unexpired. It never
// triggers a fetch.
func (s *Store) Read(key Key) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked(key.String())
}

func (s *Store) readLocked(k string) (interface{}, bool) {
	e, ok := s.entries[k]
	if !ok || e.stale {
		return nil, false
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		// Staleness window elapsed; evict lazily.
		delete(s.entries, k)
		return nil, false
	}
	return e.value, true
}

// Write unconditionally overwrites the cached entry and marks it fresh.
func (s *Store) Write(key Key, value interface{}) {
	s.WriteTTL(key, value, s.ttl)
}

// WriteTTL overwrites the entry with an entry-specific staleness window.
func (s *Store) WriteTTL(key Key, value interface{}, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeLocked(key.String(), value, ttl)
}

func (s *Store) writeLocked(k string, value interface{}, ttl time.Duration) {
	e, ok := s.entries[k]
	if !ok {
		e = &entry{}
		s.entries[k] = e
	}
	e.value = value
	e.stale = false
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	} else {
		e.expiresAt = time.Time{}
	}
}

// maxVoidedRefetches bounds how often Get re-runs a fetch whose generation
// was voided while it was in flight.
const maxVoidedRefetches = 3

// Get is the read-through path: it returns the cached value when fresh,
// otherwise runs fetch, caches the result, and returns it. A fetch whose key
// was cancelled mid-flight (CancelInFlight, typically ahead of a speculative
// apply) discards its result instead of overwriting the newer value: if the
// apply left a value, that wins; otherwise the fetch is re-run against the
// new generation. After maxVoidedRefetches voidings the last result is
// returned uncached rather than looping forever.
func (s *Store) Get(ctx context.Context, key Key, fetch Fetcher) (interface{}, error) {
	k := key.String()

	for attempt := 0; ; attempt++ {
		s.mu.Lock()
		if v, ok := s.readLocked(k); ok {
			s.mu.Unlock()
			return v, nil
		}
		gen := s.fetchGen[k]
		s.mu.Unlock()

		fetched, err := fetch(ctx)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		if s.fetchGen[k] == gen {
			s.writeLocked(k, fetched, s.ttl)
			s.mu.Unlock()
			return fetched, nil
		}
		s.logger.Debug("discarding cancelled fetch result", zap.String("key", k))
		if v, ok := s.readLocked(k); ok {
			s.mu.Unlock()
			return v, nil
		}
		if attempt >= maxVoidedRefetches {
			s.mu.Unlock()
			return fetched, nil
		}
		s.mu.Unlock()
	}
}

// SpeculativeApply applies transform to the current value (or def when the
// key is absent) before the corresponding remote mutation resolves, and
// returns a snapshot of the prior value for rollback. When two mutations race
// on the same key, each snapshot captures the value immediately before its
// own apply; the last apply wins the speculative value.
func (s *Store) SpeculativeApply(key Key, def interface{}, transform func(interface{}) interface{}) Snapshot {
	k := key.String()
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[k]
	snap := Snapshot{key: k, existed: ok}
	cur := def
	if ok {
		snap.value = e.value
		cur = e.value
	} else {
		e = &entry{}
		s.entries[k] = e
	}
	e.applies++
	snap.apply = e.applies
	e.value = transform(cur)
	e.stale = false
	e.expiresAt = time.Now().Add(s.ttl)
	return snap
}

// Rollback restores the value captured by snap after the mutation that
// applied it fails. It is a no-op when the entry was evicted concurrently, or
// when a later speculative apply has superseded this one
// (last-dispatched-wins). It never fails.
func (s *Store) Rollback(key Key, snap Snapshot) {
	k := key.String()
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[k]
	if !ok {
		return
	}
	if e.applies != snap.apply {
		s.logger.Debug("rollback superseded by a later apply", zap.String("key", k))
		return
	}
	if !snap.existed {
		delete(s.entries, k)
		return
	}
	e.value = snap.value
}

// Invalidate marks every entry under prefix stale so the next read-through
// refetches. Called after every successful mutation with the mutation's
// declared dependent-prefix set.
func (s *Store) Invalidate(prefix Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := prefix.String()
	n := 0
	for k, e := range s.entries {
		if k == p || (len(k) > len(p) && k[:len(p)] == p && k[len(p)] == ':') {
			e.stale = true
			n++
		}
	}
	if n > 0 {
		s.logger.Debug("invalidated cache prefix", zap.String("prefix", p), zap.Int("entries", n))
	}
}

// InvalidateAll applies Invalidate over a dependent-prefix set.
func (s *Store) InvalidateAll(prefixes []Key) {
	for _, p := range prefixes {
		s.Invalidate(p)
	}
}

// CancelInFlight voids any in-progress fetch for key so a late result cannot
// overwrite a newer (typically speculative) value. Call it before
// SpeculativeApply on the same key.
func (s *Store) CancelInFlight(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchGen[key.String()]++
}
