package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Queryable is the subset of pgx used by PostgresBackend. Both *pgxpool.Pool
// and pgx.Tx satisfy it.
type Queryable interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresBackend keeps every table in the shared records table created by
// the database migrations, keyed by (table_name, record_key).
type PostgresBackend struct {
	q Queryable
}

// NewPostgresBackend creates a backend over an open pool or transaction.
func NewPostgresBackend(q Queryable) *PostgresBackend {
	return &PostgresBackend{q: q}
}

// Init is a no-op; the schema is owned by migrations.
func (b *PostgresBackend) Init(ctx context.Context, table string) error {
	return nil
}

// Load fetches a document.
func (b *PostgresBackend) Load(ctx context.Context, table, key string) ([]byte, error) {
	query := `
		SELECT document
		FROM records
		WHERE table_name = $1 AND record_key = $2
	`

	var data []byte
	err := b.q.QueryRow(ctx, query, table, key).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load %s/%s: %w", table, key, err)
	}
	return data, nil
}

// Save upserts a document.
func (b *PostgresBackend) Save(ctx context.Context, table, key string, data []byte) error {
	query := `
		INSERT INTO records (table_name, record_key, document, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (table_name, record_key)
		DO UPDATE SET document = EXCLUDED.document, updated_at = NOW()
	`

	if _, err := b.q.Exec(ctx, query, table, key, string(data)); err != nil {
		return fmt.Errorf("failed to save %s/%s: %w", table, key, err)
	}
	return nil
}

// Remove deletes a document if present.
func (b *PostgresBackend) Remove(ctx context.Context, table, key string) error {
	query := `DELETE FROM records WHERE table_name = $1 AND record_key = $2`

	if _, err := b.q.Exec(ctx, query, table, key); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", table, key, err)
	}
	return nil
}

// Keys lists record keys for a table.
func (b *PostgresBackend) Keys(ctx context.Context, table string) ([]string, error) {
	query := `
		SELECT record_key
		FROM records
		WHERE table_name = $1
		ORDER BY record_key
	`

	rows, err := b.q.Query(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list table %s: %w", table, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan key in table %s: %w", table, err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate table %s: %w", table, err)
	}
	return keys, nil
}
