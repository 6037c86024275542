package kv

import (
	"context"
	"errors"
	"sync"
)

// backend is a store without native transactions.
type backend interface {
	get(ctx context.Context, key string) ([]byte, error)
	put(ctx context.Context, key string, value []byte) error
	remove(ctx context.Context, key string) error
}

type write struct {
	key     string
	value   []byte
	deleted bool
}

// stagedTx buffers writes in memory until commit.
type stagedTx struct {
	read   func(ctx context.Context, key string) ([]byte, error)
	writes []write
	index  map[string]int
}

func newStagedTx(read func(ctx context.Context, key string) ([]byte, error)) *stagedTx {
	return &stagedTx{read: read, index: make(map[string]int)}
}

func (t *stagedTx) Get(ctx context.Context, key string) ([]byte, error) {
	if i, ok := t.index[key]; ok {
		w := t.writes[i]
		if w.deleted {
			return nil, ErrKeyNotFound
		}
		return w.value, nil
	}
	return t.read(ctx, key)
}

func (t *stagedTx) Set(_ context.Context, key string, value []byte) error {
	t.stage(write{key: key, value: value})
	return nil
}

func (t *stagedTx) Delete(_ context.Context, key string) error {
	t.stage(write{key: key, deleted: true})
	return nil
}

func (t *stagedTx) stage(w write) {
	if i, ok := t.index[w.key]; ok {
		t.writes[i] = w
		return
	}
	t.index[w.key] = len(t.writes)
	t.writes = append(t.writes, w)
}

// compensated runs Update for a backend by staging writes and applying them in
// order. When a write fails the keys already written get their previous value
// back, in reverse order.
type compensated struct {
	mu sync.Mutex
	b  backend
}

type previous struct {
	key    string
	value  []byte
	absent bool
}

func (c *compensated) update(ctx context.Context, fn func(tx Tx) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx := newStagedTx(c.b.get)
	if err := fn(tx); err != nil {
		return err
	}

	applied := make([]previous, 0, len(tx.writes))
	for _, w := range tx.writes {
		prev, err := c.b.get(ctx, w.key)
		absent := errors.Is(err, ErrKeyNotFound)
		if err != nil && !absent {
			return c.restore(ctx, applied, err)
		}

		if w.deleted {
			err = c.b.remove(ctx, w.key)
		} else {
			err = c.b.put(ctx, w.key, w.value)
		}
		if err != nil {
			return c.restore(ctx, applied, err)
		}

		applied = append(applied, previous{key: w.key, value: prev, absent: absent})
	}

	return nil
}

func (c *compensated) restore(ctx context.Context, applied []previous, cause error) error {
	var failed []string
	var restoreErr error
	for i := len(applied) - 1; i >= 0; i-- {
		p := applied[i]

		var err error
		if p.absent {
			err = c.b.remove(ctx, p.key)
		} else {
			err = c.b.put(ctx, p.key, p.value)
		}
		if err != nil {
			failed = append(failed, p.key)
			restoreErr = errors.Join(restoreErr, err)
		}
	}

	if restoreErr != nil {
		kvLogger.Error().Err(cause).AnErr("restore_error", restoreErr).Strs("keys", failed).Msg("Failed to restore keys after write error")
		return &CompensationError{Keys: failed, Err: cause, Restore: restoreErr}
	}

	kvLogger.Warn().Err(cause).Int("restored", len(applied)).Msg("Write failed, previous values restored")
	return cause
}
