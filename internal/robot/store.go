package robot

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of *pgxpool.Pool the store uses.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists the singleton robot configuration. The table holds a
// single row keyed id=1; GetOrCreate seeds it with defaults on first access.
type PostgresStore struct {
	db PgxPool
}

// NewPostgresStore creates a store backed by the given pool.
func NewPostgresStore(db PgxPool) *PostgresStore {
	if db == nil {
		panic("robot: db is required")
	}
	return &PostgresStore{db: db}
}

// GetOrCreate loads the stored configuration, inserting the defaults when no
// row exists yet.
func (s *PostgresStore) GetOrCreate(ctx context.Context) (Config, error) {
	cfg, err := s.get(ctx)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Config{}, fmt.Errorf("robot: load config: %w", err)
	}

	cfg = DefaultConfig()
	if err := s.Save(ctx, cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save upserts the singleton configuration row.
func (s *PostgresStore) Save(ctx context.Context, cfg Config) error {
	mode := ParseMode(string(cfg.Mode), ModeMisto)
	_, err := s.db.Exec(ctx, `
		INSERT INTO robot_config (id, robot_enabled, mode, business_hours_start, business_hours_end, timezone, fallback_to_human, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (id) DO UPDATE SET
			robot_enabled = EXCLUDED.robot_enabled,
			mode = EXCLUDED.mode,
			business_hours_start = EXCLUDED.business_hours_start,
			business_hours_end = EXCLUDED.business_hours_end,
			timezone = EXCLUDED.timezone,
			fallback_to_human = EXCLUDED.fallback_to_human,
			updated_at = NOW()`,
		cfg.RobotEnabled, string(mode), cfg.BusinessHoursStart, cfg.BusinessHoursEnd, cfg.Timezone, cfg.FallbackToHuman,
	)
	if err != nil {
		return fmt.Errorf("robot: save config: %w", err)
	}
	return nil
}

func (s *PostgresStore) get(ctx context.Context) (Config, error) {
	var cfg Config
	var mode string
	err := s.db.QueryRow(ctx, `
		SELECT robot_enabled, mode, business_hours_start, business_hours_end, timezone, fallback_to_human
		FROM robot_config
		WHERE id = 1`,
	).Scan(&cfg.RobotEnabled, &mode, &cfg.BusinessHoursStart, &cfg.BusinessHoursEnd, &cfg.Timezone, &cfg.FallbackToHuman)
	if err != nil {
		return Config{}, err
	}
	cfg.Mode = ParseMode(mode, ModeMisto)
	return cfg, nil
}
