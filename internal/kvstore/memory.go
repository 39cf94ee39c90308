package kvstore

import (
	"context"
	"sync"
)

// MemoryStore keeps collections in process memory. Update holds the write
// lock for the whole callback, so updates are fully serialized.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) ReadCollection(_ context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneBytes(s.data[name]), nil
}

func (s *MemoryStore) WriteCollection(_ context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[name] = cloneBytes(data)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, collections []string, fn func(txn Txn) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	txn := newStagedTxn(collections, func(name string) ([]byte, error) {
		return cloneBytes(s.data[name]), nil
	})
	if err := fn(txn); err != nil {
		return err
	}
	for name, data := range txn.writes {
		s.data[name] = data
	}
	return nil
}

func (s *MemoryStore) View(ctx context.Context, collections []string, fn func(txn Txn) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(newViewTxn(collections, func(name string) ([]byte, error) {
		return cloneBytes(s.data[name]), nil
	}))
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
