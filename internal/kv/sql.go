package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/debemdeboas/inkwell/internal/db"
	"github.com/debemdeboas/inkwell/internal/util/compression"
)

const (
	selectValue = `SELECT value FROM kv WHERE key = ?`
	upsertValue = `INSERT INTO kv (key, value, modified_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, modified_at = excluded.modified_at`
	deleteValue = `DELETE FROM kv WHERE key = ?`
)

// SQLStore keeps each key as a row of the kv table. Update runs inside a SQL
// transaction.
type SQLStore struct {
	db         db.DB
	compressor compression.Compressor
}

func NewSQLStore(database db.DB, compressor compression.Compressor) *SQLStore {
	if compressor == nil {
		compressor = compression.NoopCompressor{}
	}
	return &SQLStore{db: database, compressor: compressor}
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	return s.get(ctx, s.db.Get(), key)
}

func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	return s.set(ctx, s.db.Get(), key, value)
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	return s.delete(ctx, s.db.Get(), key)
}

func (s *SQLStore) Update(ctx context.Context, fn func(tx Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				kvLogger.Error().Err(rbErr).Msg("Failed to roll back transaction")
			}
		}
	}()

	if err = fn(&sqlTx{store: s, tx: tx}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) get(ctx context.Context, q queryer, key string) ([]byte, error) {
	var raw []byte
	err := q.QueryRowContext(ctx, selectValue, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
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

func (s *SQLStore) set(ctx context.Context, q queryer, key string, value []byte) error {
	raw, err := s.compressor.Compress(value)
	if err != nil {
		return fmt.Errorf("compress %s: %w", key, err)
	}
	if _, err := q.ExecContext(ctx, upsertValue, key, raw); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) delete(ctx context.Context, q queryer, key string) error {
	if _, err := q.ExecContext(ctx, deleteValue, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

type sqlTx struct {
	store *SQLStore
	tx    *sql.Tx
}

func (t *sqlTx) Get(ctx context.Context, key string) ([]byte, error) {
	return t.store.get(ctx, t.tx, key)
}

func (t *sqlTx) Set(ctx context.Context, key string, value []byte) error {
	return t.store.set(ctx, t.tx, key, value)
}

func (t *sqlTx) Delete(ctx context.Context, key string) error {
	return t.store.delete(ctx, t.tx, key)
}
