package kv

import (
	"bytes"
	"context"
	"sync"

	"github.com/debemdeboas/inkwell/internal/cache"
)

// MemoryStore keeps values in process memory. Update commits all of its writes
// under a single lock, so it is atomic.
type MemoryStore struct {
	mu    sync.Mutex
	items *cache.Cache[string, []byte]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: cache.NewCache[string, []byte]()}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := s.items.Get(key)
	if !ok {
		return nil, ErrKeyNotFound
	}
	return bytes.Clone(v), nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	return s.Update(ctx, func(tx Tx) error { return tx.Set(ctx, key, value) })
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	return s.Update(ctx, func(tx Tx) error { return tx.Delete(ctx, key) })
}

func (s *MemoryStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := newStagedTx(s.Get)
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	sets := make(map[string][]byte)
	var deletes []string
	for _, w := range tx.writes {
		if w.deleted {
			deletes = append(deletes, w.key)
		} else {
			sets[w.key] = bytes.Clone(w.value)
		}
	}
	s.items.Apply(sets, deletes)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
