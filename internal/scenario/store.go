package scenario

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool the store needs; pgxmock satisfies
// it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore reads scenario definitions from Postgres.
type PostgresStore struct {
	pool PgxPool
}

// NewPostgresStore creates a Postgres-backed scenario store.
func NewPostgresStore(pool PgxPool) *PostgresStore {
	if pool == nil {
		panic("scenario: pool cannot be nil")
	}
	return &PostgresStore{pool: pool}
}

var _ Store = (*PostgresStore)(nil)

func (s *PostgresStore) GetByKey(ctx context.Context, key string) (Definition, error) {
	const q = `
		SELECT key, active, COALESCE(description, ''), ai_instructions, COALESCE(next_key, '')
		FROM chat_scenarios
		WHERE key = $1`

	var def Definition
	err := s.pool.QueryRow(ctx, q, key).Scan(&def.Key, &def.Active, &def.Description, &def.AIInstructions, &def.NextKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return Definition{}, ErrNotFound
	}
	if err != nil {
		return Definition{}, fmt.Errorf("scenario: query by key: %w", err)
	}
	return def, nil
}

// List returns every scenario ordered by key, for the admin surface.
func (s *PostgresStore) List(ctx context.Context) ([]Definition, error) {
	const q = `
		SELECT key, active, COALESCE(description, ''), ai_instructions, COALESCE(next_key, '')
		FROM chat_scenarios
		ORDER BY key`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("scenario: list: %w", err)
	}
	defer rows.Close()

	var defs []Definition
	for rows.Next() {
		var def Definition
		if err := rows.Scan(&def.Key, &def.Active, &def.Description, &def.AIInstructions, &def.NextKey); err != nil {
			return nil, fmt.Errorf("scenario: scan: %w", err)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scenario: rows: %w", err)
	}
	return defs, nil
}

// Upsert inserts or replaces a scenario definition.
func (s *PostgresStore) Upsert(ctx context.Context, def Definition) error {
	const q = `
		INSERT INTO chat_scenarios (key, active, description, ai_instructions, next_key)
		VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''))
		ON CONFLICT (key) DO UPDATE SET
			active = EXCLUDED.active,
			description = EXCLUDED.description,
			ai_instructions = EXCLUDED.ai_instructions,
			next_key = EXCLUDED.next_key,
			updated_at = now()`

	if _, err := s.pool.Exec(ctx, q, def.Key, def.Active, def.Description, def.AIInstructions, def.NextKey); err != nil {
		return fmt.Errorf("scenario: upsert: %w", err)
	}
	return nil
}
