package kv

import (
	"context"
	"sync"
	"time"
)

// sweepInterval bounds how often SetNX drops expired keys
const sweepInterval = time.Minute

// MemoryStore is an in-memory Store. Only keys written by SetNX with a ttl
// expire; Set and Delete clear any expiry.
type MemoryStore struct {
	mu        sync.RWMutex
	data      map[string][]byte
	expires   map[string]time.Time
	now       func() time.Time
	lastSweep time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:    make(map[string][]byte),
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok || s.expired(key, s.now()) {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = v
	delete(s.expires, key)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
		delete(s.expires, k)
	}
	return nil
}

func (s *MemoryStore) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	v := make([]byte, len(value))
	copy(v, value)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= sweepInterval {
		s.sweep(now)
	}
	if _, ok := s.data[key]; ok && !s.expired(key, now) {
		return false, nil
	}

	s.data[key] = v
	if ttl > 0 {
		s.expires[key] = now.Add(ttl)
	} else {
		delete(s.expires, key)
	}
	return true, nil
}

// Len returns the number of live keys
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	n := 0
	for k := range s.data {
		if !s.expired(k, now) {
			n++
		}
	}
	return n
}

// expired needs s.mu held
func (s *MemoryStore) expired(key string, now time.Time) bool {
	at, ok := s.expires[key]
	return ok && !now.Before(at)
}

// sweep needs s.mu held for writing
func (s *MemoryStore) sweep(now time.Time) {
	for k, at := range s.expires {
		if !now.Before(at) {
			delete(s.data, k)
			delete(s.expires, k)
		}
	}
	s.lastSweep = now
}
