package usage

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type bucketKey struct {
	kind     Kind
	tenantID uuid.UUID
	day      string
}

// MemStore is an in-memory Store for development and tests. Safe for
// concurrent use; provides the same lost-update-free semantics as the
// Postgres store.
type MemStore struct {
	mu      sync.Mutex
	buckets map[bucketKey]int64
}

// NewMemStore returns an empty in-memory Store.
func NewMemStore() *MemStore {
	return &MemStore{buckets: make(map[bucketKey]int64)}
}

// Get returns the counter for the given bucket, 0 if absent.
func (s *MemStore) Get(ctx context.Context, kind Kind, tenantID uuid.UUID, day string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buckets[bucketKey{kind, tenantID, day}], nil
}

// Increment creates-or-increments the bucket and returns the new value.
func (s *MemStore) Increment(ctx context.Context, kind Kind, tenantID uuid.UUID, day string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := bucketKey{kind, tenantID, day}
	s.buckets[key]++
	return s.buckets[key], nil
}
