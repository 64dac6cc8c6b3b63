package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/fleetmaint/core/model"
)

// SQLiteStore persists snapshots in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path and ensures schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS vehicle_snapshots (
        vehicle_id TEXT PRIMARY KEY,
        vehicle_type TEXT NOT NULL,
        manufacturer TEXT,
        status TEXT,
        payload TEXT NOT NULL,
        updated_at INTEGER NOT NULL
    );`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (model.Snapshot, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM vehicle_snapshots WHERE vehicle_id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return model.Snapshot{}, err
	}
	var snap model.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return model.Snapshot{}, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return snap, nil
}

func (s *SQLiteStore) List(ctx context.Context, f Filter) ([]model.Snapshot, error) {
	var args []any
	query := `SELECT payload FROM vehicle_snapshots WHERE 1=1`
	if f.Type != nil {
		query += ` AND vehicle_type = ?`
		args = append(args, f.Type.String())
	}
	if f.Manufacturer != "" {
		query += ` AND manufacturer = ? COLLATE NOCASE`
		args = append(args, f.Manufacturer)
	}
	if f.Status != "" {
		query += ` AND status = ? COLLATE NOCASE`
		args = append(args, f.Status)
	}
	query += ` ORDER BY vehicle_id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	res := []model.Snapshot{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var snap model.Snapshot
		if err := json.Unmarshal([]byte(payload), &snap); err != nil {
			return nil, err
		}
		res = append(res, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, snap model.Snapshot) error {
	if snap.VehicleID == "" {
		return ErrMissingID
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO vehicle_snapshots
        (vehicle_id, vehicle_type, manufacturer, status, payload, updated_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(vehicle_id) DO UPDATE SET
            vehicle_type = excluded.vehicle_type,
            manufacturer = excluded.manufacturer,
            status = excluded.status,
            payload = excluded.payload,
            updated_at = excluded.updated_at`,
		snap.VehicleID, snap.Type.String(), snap.Manufacturer, snap.Status, string(b), time.Now().UnixNano())
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
