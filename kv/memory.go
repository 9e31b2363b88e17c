package kv

import (
	"context"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// MemoryStore keeps everything in process memory. Used in tests and with KV_BACKEND=memory.
type MemoryStore struct {
	items cmap.ConcurrentMap[string, []byte]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: cmap.New[[]byte]()}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, ok := s.items.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	// Callers may mutate what they get back
	return append([]byte(nil), v...), nil
}

func (s *MemoryStore) Put(ctx context.Context, key string, value []byte) error {
	s.items.Set(key, append([]byte(nil), value...))
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.items.Remove(key)
	return nil
}

// Keys returns all stored keys, in no particular order.
func (s *MemoryStore) Keys() []string {
	return s.items.Keys()
}
