// Package simdb persists simulation runs and grid snapshots in a
// sqlite database. Schema changes are managed with embedded
// golang-migrate migrations.
package simdb

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/eulerlab/gridflow/internal/sim"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps the sqlite handle for run and snapshot persistence.
type DB struct {
	*sql.DB
	path string
}

// Open opens (or creates) the database at path and verifies the
// connection. Call MigrateUp before using the stores.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %q: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database %q: %w", path, err)
	}
	return &DB{DB: db, path: path}, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// MigrateUp applies all pending embedded migrations. Returns nil when
// the schema is already current.
func (db *DB) MigrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}

	drv, err := sqlitemigrate.WithInstance(db.DB, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("prepare migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", drv)
	if err != nil {
		return fmt.Errorf("prepare migrations: %w", err)
	}
	// Note: m is not closed here because that would close the
	// underlying DB connection.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// SimRun is one recorded simulation run.
type SimRun struct {
	RunID             string
	ParamsJSON        string
	StartedUnixNanos  int64
	FinishedUnixNanos *int64
	Steps             int
}

// InsertRun records the start of a run.
func (db *DB) InsertRun(run *SimRun) error {
	if run.StartedUnixNanos == 0 {
		run.StartedUnixNanos = time.Now().UnixNano()
	}
	_, err := db.Exec(`
		INSERT INTO runs (run_id, params_json, started_unix_nanos, steps)
		VALUES (?, ?, ?, ?)
	`, run.RunID, run.ParamsJSON, run.StartedUnixNanos, run.Steps)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.RunID, err)
	}
	return nil
}

// FinishRun marks a run as finished with its final step count.
func (db *DB) FinishRun(runID string, steps int) error {
	res, err := db.Exec(`
		UPDATE runs SET finished_unix_nanos = ?, steps = ? WHERE run_id = ?
	`, time.Now().UnixNano(), steps, runID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("finish run %s: no such run", runID)
	}
	return nil
}

// GetRun fetches one run record.
func (db *DB) GetRun(runID string) (*SimRun, error) {
	run := &SimRun{}
	err := db.QueryRow(`
		SELECT run_id, params_json, started_unix_nanos, finished_unix_nanos, steps
		FROM runs WHERE run_id = ?
	`, runID).Scan(&run.RunID, &run.ParamsJSON, &run.StartedUnixNanos,
		&run.FinishedUnixNanos, &run.Steps)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return run, nil
}

// InsertGridSnapshot stores one grid snapshot. Implements
// sim.SnapshotStore.
func (db *DB) InsertGridSnapshot(s *sim.GridSnapshot) (int64, error) {
	res, err := db.Exec(`
		INSERT INTO grid_snapshots
			(run_id, taken_unix_nanos, dim_x, dim_y, cell_width,
			 step_count, params_json, reason, grid_blob)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.RunID, s.TakenUnixNanos, s.DimX, s.DimY, s.CellWidth,
		s.StepCount, s.ParamsJSON, s.Reason, s.GridBlob)
	if err != nil {
		return 0, fmt.Errorf("insert grid snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get snapshot ID: %w", err)
	}
	s.ID = id
	return id, nil
}

var _ sim.SnapshotStore = (*DB)(nil)

const snapshotColumns = `id, run_id, taken_unix_nanos, dim_x, dim_y,
	cell_width, step_count, params_json, reason, grid_blob`

func scanSnapshot(row interface{ Scan(...any) error }) (*sim.GridSnapshot, error) {
	s := &sim.GridSnapshot{}
	err := row.Scan(&s.ID, &s.RunID, &s.TakenUnixNanos, &s.DimX, &s.DimY,
		&s.CellWidth, &s.StepCount, &s.ParamsJSON, &s.Reason, &s.GridBlob)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetLatestGridSnapshot returns the most recent snapshot for a run, or
// nil when none exist.
func (db *DB) GetLatestGridSnapshot(runID string) (*sim.GridSnapshot, error) {
	row := db.QueryRow(`
		SELECT `+snapshotColumns+`
		FROM grid_snapshots WHERE run_id = ?
		ORDER BY taken_unix_nanos DESC LIMIT 1
	`, runID)

	s, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest snapshot for %s: %w", runID, err)
	}
	return s, nil
}

// ListGridSnapshots returns snapshot metadata for a run, newest first.
// The blob column is included; callers only needing metadata should
// drop it before serialising.
func (db *DB) ListGridSnapshots(runID string, limit int) ([]*sim.GridSnapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT `+snapshotColumns+`
		FROM grid_snapshots WHERE run_id = ?
		ORDER BY taken_unix_nanos DESC LIMIT ?
	`, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots for %s: %w", runID, err)
	}
	defer rows.Close()

	var out []*sim.GridSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
