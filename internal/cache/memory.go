package cache

import (
	"context"
	"sync"
	"time"
)

// memoryStore implements Store with a mutex-guarded map. Expiry is checked
// on every read, so correctness never depends on the Cleanup sweep.
type memoryStore struct {
	prefix string
	data   map[string]memoryEntry
	mu     sync.RWMutex
	closed bool
	hits   int64
	misses int64
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
	noExpire  bool
}

// expired treats an entry as dead once its full TTL has elapsed: a value
// stored at T with TTL d misses at exactly T+d.
func (e memoryEntry) expired(now time.Time) bool {
	return !e.noExpire && !now.Before(e.expiresAt)
}

func NewMemory(prefix string) *memoryStore {
	return &memoryStore{
		prefix: prefix,
		data:   make(map[string]memoryEntry),
	}
}

func (s *memoryStore) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func (s *memoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.data[s.key(key)]
	if !ok || entry.expired(time.Now()) {
		s.misses++
		return "", ErrNotFound
	}

	s.hits++
	return entry.value, nil
}

func (s *memoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	entry := memoryEntry{
		value:    value,
		noExpire: ttl == 0,
	}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	s.data[s.key(key)] = entry
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, s.key(key))
	return nil
}

func (s *memoryStore) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.data = make(map[string]memoryEntry)
	return nil
}

func (s *memoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.data[s.key(key)]
	if !ok || entry.expired(time.Now()) {
		return false, nil
	}
	return true, nil
}

func (s *memoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close drops all entries. Later writes return ErrClosed, later reads miss.
func (s *memoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.data = nil
	return nil
}

func (s *memoryStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	now := time.Now()
	for _, entry := range s.data {
		if !entry.expired(now) {
			count++
		}
	}

	return Stats{
		Driver: "memory",
		Keys:   count,
		Hits:   s.hits,
		Misses: s.misses,
	}, nil
}

// Cleanup drops expired entries to reclaim memory. Call periodically; reads
// stay correct without it.
func (s *memoryStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for k, entry := range s.data {
		if entry.expired(now) {
			delete(s.data, k)
		}
	}
}

// StartCleanup runs Cleanup on an interval until ctx is cancelled.
func (s *memoryStore) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup()
			}
		}
	}()
}
