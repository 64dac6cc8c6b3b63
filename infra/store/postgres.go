package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kilianp07/fleetmaint/core/model"
)

// PostgresConfig configures the PostgreSQL backend.
type PostgresConfig struct {
	// DSN is a postgres:// connection string; pool settings may be passed as
	// query parameters, e.g. pool_max_conns.
	DSN string `json:"dsn"`
}

// PostgresStore persists snapshots in PostgreSQL as JSONB.
type PostgresStore struct {
	pool *pgxpool.Pool
}

const postgresSchema = `CREATE TABLE IF NOT EXISTS vehicle_snapshots (
    vehicle_id   TEXT PRIMARY KEY,
    vehicle_type TEXT NOT NULL,
    manufacturer TEXT,
    status       TEXT,
    payload      JSONB NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// NewPostgresStore opens a pool, pings the server and ensures schema.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres dsn is required")
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create db pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (model.Snapshot, error) {
	var snap model.Snapshot
	err := s.pool.QueryRow(ctx, `SELECT payload FROM vehicle_snapshots WHERE vehicle_id = $1`, id).Scan(&snap)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("query snapshot %s: %w", id, err)
	}
	return snap, nil
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]model.Snapshot, error) {
	var args []any
	query := `SELECT payload FROM vehicle_snapshots WHERE true`
	if f.Type != nil {
		args = append(args, f.Type.String())
		query += fmt.Sprintf(` AND vehicle_type = $%d`, len(args))
	}
	if f.Manufacturer != "" {
		args = append(args, f.Manufacturer)
		query += fmt.Sprintf(` AND lower(manufacturer) = lower($%d)`, len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		query += fmt.Sprintf(` AND lower(status) = lower($%d)`, len(args))
	}
	query += ` ORDER BY vehicle_id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	res, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Snapshot, error) {
		var snap model.Snapshot
		err := row.Scan(&snap)
		return snap, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan snapshots: %w", err)
	}
	if res == nil {
		res = []model.Snapshot{}
	}
	return res, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, snap model.Snapshot) error {
	if snap.VehicleID == "" {
		return ErrMissingID
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO vehicle_snapshots
        (vehicle_id, vehicle_type, manufacturer, status, payload, updated_at)
        VALUES ($1, $2, $3, $4, $5, now())
        ON CONFLICT (vehicle_id) DO UPDATE SET
            vehicle_type = EXCLUDED.vehicle_type,
            manufacturer = EXCLUDED.manufacturer,
            status = EXCLUDED.status,
            payload = EXCLUDED.payload,
            updated_at = now()`,
		snap.VehicleID, snap.Type.String(), snap.Manufacturer, snap.Status, snap)
	if err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", snap.VehicleID, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
