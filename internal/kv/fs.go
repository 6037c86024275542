package kv

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"github.com/debemdeboas/inkwell/internal/util/compression"
)

// FSStore keeps one file per key under a directory.
type FSStore struct {
	dir        string
	compressor compression.Compressor
	ext        string

	tx compensated
}

func NewFSStore(dir string, compressor compression.Compressor) (*FSStore, error) {
	if compressor == nil {
		compressor = compression.NoopCompressor{}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	s := &FSStore{dir: dir, compressor: compressor, ext: extension(compressor)}
	s.tx.b = s
	return s, nil
}

func extension(c compression.Compressor) string {
	switch c.(type) {
	case compression.GzipCompressor:
		return ".json.gz"
	case compression.ZstdCompressor:
		return ".json.zst"
	default:
		return ".json"
	}
}

func (s *FSStore) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+s.ext)
}

func (s *FSStore) Get(ctx context.Context, key string) ([]byte, error) {
	return s.get(ctx, key)
}

func (s *FSStore) Set(ctx context.Context, key string, value []byte) error {
	return s.Update(ctx, func(tx Tx) error { return tx.Set(ctx, key, value) })
}

func (s *FSStore) Delete(ctx context.Context, key string) error {
	return s.Update(ctx, func(tx Tx) error { return tx.Delete(ctx, key) })
}

func (s *FSStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	return s.tx.update(ctx, fn)
}

func (s *FSStore) Close() error {
	return nil
}

func (s *FSStore) get(_ context.Context, key string) ([]byte, error) {
	raw, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}

	value, err := s.compressor.Decompress(raw)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", key, err)
	}
	return value, nil
}

// put writes to a temporary file and renames it over the target.
func (s *FSStore) put(_ context.Context, key string, value []byte) error {
	raw, err := s.compressor.Compress(value)
	if err != nil {
		return fmt.Errorf("compress %s: %w", key, err)
	}

	f, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	tmp := f.Name()

	if _, err := f.Write(raw); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", key, err)
	}

	if err := os.Rename(tmp, s.path(key)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *FSStore) remove(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
