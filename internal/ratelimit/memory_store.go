package ratelimit

import (
	"sync"
	"time"
)

// MemoryStore keeps buckets in a mutex-guarded map. Expired buckets are
// dropped lazily on access and by Sweep.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]Bucket
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]Bucket)}
}

func (s *MemoryStore) Update(key string, now time.Time, fn UpdateFunc) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	var live *Bucket
	if b, ok := s.buckets[key]; ok {
		if now.Before(b.ExpiresAt) {
			live = &b
		} else {
			delete(s.buckets, key)
		}
	}

	next, d := fn(live)
	s.buckets[key] = next
	return d
}

// Len returns the number of stored buckets, stale ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// Sweep removes every bucket whose TTL has passed.
func (s *MemoryStore) Sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, b := range s.buckets {
		if !now.Before(b.ExpiresAt) {
			delete(s.buckets, key)
		}
	}
}
