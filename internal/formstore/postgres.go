package formstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PGX is the subset of pgxpool.Pool used by PostgresBackend.
type PGX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresBackend persists forms in the booking_forms table (see migrations).
type PostgresBackend struct {
	db PGX
}

// NewPostgresBackend creates a backend over a pgx pool or connection.
func NewPostgresBackend(db PGX) *PostgresBackend {
	if db == nil {
		panic("formstore: pgx pool required")
	}
	return &PostgresBackend{db: db}
}

func (p *PostgresBackend) Name() string { return "postgres" }

const (
	selectFormSQL = `SELECT form FROM booking_forms WHERE storage_key = $1`
	upsertFormSQL = `INSERT INTO booking_forms (storage_key, form, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (storage_key) DO UPDATE SET form = EXCLUDED.form, updated_at = now()`
	deleteFormSQL = `DELETE FROM booking_forms WHERE storage_key = $1`
)

func (p *PostgresBackend) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := p.db.QueryRow(ctx, selectFormSQL, key).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("formstore: postgres load: %w", err)
	}
	return data, true, nil
}

func (p *PostgresBackend) Save(ctx context.Context, key string, data []byte) error {
	if _, err := p.db.Exec(ctx, upsertFormSQL, key, data); err != nil {
		return fmt.Errorf("formstore: postgres save: %w", err)
	}
	return nil
}

func (p *PostgresBackend) Delete(ctx context.Context, key string) error {
	if _, err := p.db.Exec(ctx, deleteFormSQL, key); err != nil {
		return fmt.Errorf("formstore: postgres delete: %w", err)
	}
	return nil
}
