package sessionstore

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const shardCount = 32

type memEntry struct {
	value   string
	created time.Time
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]memEntry
}

// MemoryStore is a concurrency-safe in-process store. Keys are spread over
// shards by hash so readers of different sessions rarely contend.
type MemoryStore struct {
	shards [shardCount]*shard
	ttl    time.Duration
	now    func() time.Time

	mu     sync.RWMutex
	closed bool
}

// NewMemoryStore returns an empty store. Entries older than ttl read as
// absent; ttl <= 0 keeps them forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{ttl: ttl, now: time.Now}
	for i := range s.shards {
		s.shards[i] = &shard{entries: make(map[string]memEntry)}
	}
	return s
}

func (s *MemoryStore) shardFor(key string) *shard {
	return s.shards[xxhash.Sum64String(key)%shardCount]
}

func (s *MemoryStore) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Put implements adinsert.SessionStore.
func (s *MemoryStore) Put(_ context.Context, key, value string) error {
	if s.isClosed() {
		return ErrClosed
	}
	sh := s.shardFor(key)
	sh.mu.Lock()
	sh.entries[key] = memEntry{value: value, created: s.now()}
	sh.mu.Unlock()
	return nil
}

// Get implements adinsert.SessionStore.
func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	if s.isClosed() {
		return "", false, ErrClosed
	}
	sh := s.shardFor(key)
	sh.mu.RLock()
	e, ok := sh.entries[key]
	sh.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if expired(e.created, s.now(), s.ttl) {
		sh.mu.Lock()
		if cur, ok := sh.entries[key]; ok && cur.created.Equal(e.created) {
			delete(sh.entries, key)
		}
		sh.mu.Unlock()
		return "", false, nil
	}
	return e.value, true, nil
}

// Count implements Counter.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.entries)
		sh.mu.RUnlock()
	}
	return n, nil
}

// Purge implements Purger.
func (s *MemoryStore) Purge(_ context.Context) (int, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	now := s.now()
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for k, e := range sh.entries {
			if expired(e.created, now, s.ttl) {
				delete(sh.entries, k)
				n++
			}
		}
		sh.mu.Unlock()
	}
	return n, nil
}

// Close marks the store closed; later calls fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
