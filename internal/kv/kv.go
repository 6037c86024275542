// Package kv is the key-value backing store. Keys are strings, values are whole
// JSON documents that are read and overwritten in full.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

var (
	ErrKeyNotFound = errors.New("kv: key not found")

	// ErrInconsistent is returned when a failed Update could not restore the keys
	// it had already written.
	ErrInconsistent = errors.New("kv: compensation failed")
)

var kvLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	kvLogger = l
}

type Getter interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

type Setter interface {
	Set(ctx context.Context, key string, value []byte) error
}

// Tx is the view of the store inside an Update. Reads observe the writes staged
// earlier in the same Update.
type Tx interface {
	Getter
	Setter
	Delete(ctx context.Context, key string) error
}

type Store interface {
	Tx

	// Update runs fn as one unit of work. If fn returns an error nothing is
	// written. Stores without native transactions restore the previous values of
	// already written keys when a write fails.
	Update(ctx context.Context, fn func(tx Tx) error) error

	Close() error
}

// GetJSON decodes the value under key into v. It returns ErrKeyNotFound when the
// key is absent.
func GetJSON(ctx context.Context, g Getter, key string, v any) error {
	data, err := g.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func SetJSON(ctx context.Context, s Setter, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, data)
}

// CompensationError reports a write failure followed by a failed restore.
type CompensationError struct {
	Keys    []string
	Err     error
	Restore error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("kv: write failed (%v) and restoring %v failed (%v)", e.Err, e.Keys, e.Restore)
}

func (e *CompensationError) Is(target error) bool {
	return target == ErrInconsistent
}

func (e *CompensationError) Unwrap() error {
	return e.Err
}
