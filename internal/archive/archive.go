// Package archive keeps a PostgreSQL history of written summaries.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ChicagoDave/daylight/pkg/summary"
)

// ErrNotFound is returned by Load for a run that was never archived.
var ErrNotFound = errors.New("run not archived")

const schema = `
CREATE TABLE IF NOT EXISTS daylight_runs (
    run_id          UUID PRIMARY KEY,
    generated_at    TIMESTAMPTZ NOT NULL,
    building_pass   BOOLEAN NOT NULL,
    worst_room      TEXT NOT NULL,
    rooms_analysed  INTEGER NOT NULL,
    occupied_hours  INTEGER NOT NULL,
    document        JSONB NOT NULL,
    archived_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS daylight_rooms (
    run_id             UUID NOT NULL REFERENCES daylight_runs(run_id) ON DELETE CASCADE,
    grid_id            TEXT NOT NULL,
    room_label         TEXT NOT NULL,
    matched            BOOLEAN NOT NULL,
    insufficient_data  BOOLEAN NOT NULL,
    min_pass           BOOLEAN NOT NULL,
    avg_pass           BOOLEAN NOT NULL,
    room_pass          BOOLEAN NOT NULL,
    min_area_pct       DOUBLE PRECISION NOT NULL,
    avg_area_pct       DOUBLE PRECISION NOT NULL,
    sda_pct            DOUBLE PRECISION NOT NULL,
    ase_pct            DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (run_id, grid_id)
);`

const insertRoom = `INSERT INTO daylight_rooms (run_id, grid_id, room_label, matched, insufficient_data,
    min_pass, avg_pass, room_pass, min_area_pct, avg_area_pct, sda_pct, ase_pct)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (run_id, grid_id) DO NOTHING`

// Store archives summaries in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to the database at dsn.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("archive: connecting: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("archive: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Migrate creates the archive tables when they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("archive: migrate: %w", err)
	}
	return nil
}

// Store writes a summary and its rooms in one transaction. A run that is
// already archived is left as it is.
func (s *Store) Store(ctx context.Context, sum *summary.Summary) error {
	doc, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("archive: encoding summary: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("archive: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, `INSERT INTO daylight_runs (run_id, generated_at, building_pass, worst_room, rooms_analysed, occupied_hours, document)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (run_id) DO NOTHING`,
		sum.RunID, sum.GeneratedAt, sum.BuildingPass, sum.WorstRoom, sum.RoomsAnalysed, sum.OccupiedHours, doc)
	if err != nil {
		return fmt.Errorf("archive: inserting run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tx.Commit(ctx)
	}

	if len(sum.Rooms) > 0 {
		batch := &pgx.Batch{}
		for _, r := range sum.Rooms {
			batch.Queue(insertRoom, sum.RunID, r.GridID, r.RoomLabel, r.Matched, r.InsufficientData,
				r.MinPass, r.AvgPass, r.RoomPass, r.MinAreaPct, r.AvgAreaPct, r.SDAPct, r.ASEPct)
		}
		res := tx.SendBatch(ctx, batch)
		for range sum.Rooms {
			if _, err := res.Exec(); err != nil {
				res.Close()
				return fmt.Errorf("archive: inserting rooms: %w", err)
			}
		}
		if err := res.Close(); err != nil {
			return fmt.Errorf("archive: inserting rooms: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("archive: commit: %w", err)
	}
	return nil
}

// Load returns the archived document of a run, or ErrNotFound.
func (s *Store) Load(ctx context.Context, runID string) (*summary.Summary, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT document FROM daylight_runs WHERE run_id = $1`, runID).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("archive: run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("archive: loading run %s: %w", runID, err)
	}
	return summary.Parse(doc)
}
