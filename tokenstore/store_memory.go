package tokenstore

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a single-process Store for tests and local development.
type MemoryStore struct {
	mu        sync.Mutex
	keyPrefix string
	entries   map[string]memoryEntry
	now       func() time.Time
	writes    int
}

type memoryEntry struct {
	value    int64
	expireAt time.Time // zero means no expiry
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && !now.Before(e.expireAt)
}

type MemoryOption func(*MemoryStore)

// WithClock replaces time.Now, letting tests move time forward.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemoryStore(keyPrefix string, opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		keyPrefix: keyPrefix,
		entries:   make(map[string]memoryEntry),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) MarkConsumed(_ context.Context, jti string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.keyPrefix + revokedSegment + jti
	now := s.now()
	if _, ok := s.get(key, now); ok {
		return false, nil
	}
	s.set(key, memoryEntry{value: 1, expireAt: now.Add(markerTTL(ttl))})
	return true, nil
}

func (s *MemoryStore) IsConsumed(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.get(s.keyPrefix+revokedSegment+jti, s.now())
	return ok, nil
}

func (s *MemoryStore) BumpFamily(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.keyPrefix + familySegment + userID
	e, _ := s.get(key, s.now())
	e.value++
	s.set(key, e)
	return e.value, nil
}

func (s *MemoryStore) GetFamily(ctx context.Context, userID string) (int64, error) {
	v, _, err := s.LookupFamily(ctx, userID)
	return v, err
}

func (s *MemoryStore) LookupFamily(_ context.Context, userID string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.get(s.keyPrefix+familySegment+userID, s.now())
	return e.value, ok, nil
}

func (s *MemoryStore) SeedFamily(_ context.Context, userID string, floor int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.keyPrefix + familySegment + userID
	e, ok := s.get(key, s.now())
	if ok && e.value >= floor {
		return e.value, nil
	}
	s.set(key, memoryEntry{value: floor})
	return floor, nil
}

func (s *MemoryStore) IncrementWithExpiry(_ context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, _ := s.get(key, now)
	e.value++
	if e.expireAt.IsZero() {
		e.expireAt = now.Add(ttl)
	}
	s.set(key, e)
	return e.value, nil
}

// Len reports live entries. Used by tests.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep(s.now())
	return len(s.entries)
}

// get treats expired entries as absent. Caller holds mu.
func (s *MemoryStore) get(key string, now time.Time) (memoryEntry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if e.expired(now) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}

func (s *MemoryStore) set(key string, e memoryEntry) {
	s.entries[key] = e
	s.writes++
	if s.writes%1024 == 0 {
		s.sweep(s.now())
	}
}

func (s *MemoryStore) sweep(now time.Time) {
	for k, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, k)
		}
	}
}
