package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// postgres error classes that mean "no room for this write"
const (
	pgProgramLimitExceeded = "54000"
	pgDiskFull             = "53100"
	pgOutOfMemory          = "53200"
)

const kvSchema = `
CREATE TABLE IF NOT EXISTS kv_entries (
	key        TEXT PRIMARY KEY,
	value      BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type PostgresBackend struct {
	db       *sql.DB
	maxValue int
}

// OpenPostgres opens a pgx-backed pool and makes sure the table exists.
func OpenPostgres(ctx context.Context, dsn string, maxValueBytes int) (*PostgresBackend, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	b := NewPostgresBackend(db, maxValueBytes)
	if err := b.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := b.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

func NewPostgresBackend(db *sql.DB, maxValueBytes int) *PostgresBackend {
	return &PostgresBackend{db: db, maxValue: maxValueBytes}
}

func (b *PostgresBackend) EnsureSchema(ctx context.Context) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		if _, err := b.db.ExecContext(ctx, kvSchema); err != nil {
			return fmt.Errorf("create kv_entries: %w", err)
		}
		return nil
	})
}

func (b *PostgresBackend) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return b.db.PingContext(ctx)
	})
}

func (b *PostgresBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var v []byte
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return b.db.QueryRowContext(ctx, `
			SELECT value
			FROM kv_entries
			WHERE key = $1
		`, key).Scan(&v)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (b *PostgresBackend) Set(ctx context.Context, key string, value []byte) error {
	if err := checkValueSize(key, value, b.maxValue); err != nil {
		return err
	}

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := b.db.ExecContext(ctx, `
			INSERT INTO kv_entries (key, value, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (key) DO UPDATE
			SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
		`, key, value)
		return err
	})
	if isPgQuota(err) {
		return fmt.Errorf("postgres set %q: %v: %w", key, err, ErrQuotaExceeded)
	}
	return err
}

func (b *PostgresBackend) Delete(ctx context.Context, key string) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := b.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = $1`, key)
		return err
	})
}

func (b *PostgresBackend) Close() error {
	return b.db.Close()
}

func isPgQuota(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case pgProgramLimitExceeded, pgDiskFull, pgOutOfMemory:
		return true
	}
	return false
}
