package db

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

const MemoryDSN = ":memory:"

type SQLite struct {
	dsn  string
	conn *sql.DB
}

func NewSQLite(dsn string) *SQLite {
	return &SQLite{
		dsn:  dsn,
		conn: nil,
	}
}

func (s *SQLite) InitDB() error {
	var err error
	s.conn, err = sql.Open("sqlite3", s.dsn)
	if err != nil {
		return err
	}

	// SQLite allows one writer at a time, and every connection to ":memory:" would
	// otherwise open its own empty database.
	s.conn.SetMaxOpenConns(1)

	// Each row holds one JSON collection of the key-value backing store.
	res, err := s.conn.Exec(`
PRAGMA journal_mode = WAL;

CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value BLOB NOT NULL,
    modified_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`)

	dbLogger.Info().Str("dsn", s.dsn).Any("db_result", res).Msg("Database initialized")
	return err
}

func (s *SQLite) Get() *sql.DB {
	return s.conn
}

func (s *SQLite) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *SQLite) Query(query string, args ...interface{}) (*sql.Rows, error) {
	dbLogger.Debug().Str("query", query).Msg("Query")
	return s.conn.Query(query, args...)
}

func (s *SQLite) QueryRow(query string, args ...interface{}) *sql.Row {
	dbLogger.Debug().Str("query", query).Msg("QueryRow")
	return s.conn.QueryRow(query, args...)
}

func (s *SQLite) Exec(query string, args ...interface{}) (sql.Result, error) {
	dbLogger.Debug().Str("query", query).Msg("Exec")
	return s.conn.Exec(query, args...)
}

func (s *SQLite) BeginTx(ctx context.Context) (*sql.Tx, error) {
	dbLogger.Debug().Msg("Begin transaction")
	return s.conn.BeginTx(ctx, nil)
}
