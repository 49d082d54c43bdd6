// Package db records honored zone generation results in DuckDB.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb"
)

// Config holds database configuration.
type Config struct {
	// DataDir holds duckdb/{DBName}.duckdb. Empty opens an in-memory database.
	DataDir string
	DBName  string
}

// Run is one honored zone fetch.
type Run struct {
	Session    string    `json:"session" doc:"Session that issued the request"`
	AreaID     string    `json:"areaId"`
	Resource   string    `json:"resource"`
	GridSize   int       `json:"gridSize" doc:"Grid cell size in km, 0 without grid"`
	Signature  string    `json:"signature" doc:"Canonical request key"`
	Status     string    `json:"status" enum:"fetched,error"`
	Features   int       `json:"features"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"durationMs"`
	At         time.Time `json:"at"`
}

// RunLog is an append-only table of zone runs.
type RunLog struct {
	db *sql.DB
}

var schema = []string{
	`CREATE SEQUENCE IF NOT EXISTS zone_runs_seq`,
	`CREATE TABLE IF NOT EXISTS zone_runs (
	id          BIGINT DEFAULT nextval('zone_runs_seq'),
	session     VARCHAR,
	area_id     VARCHAR,
	resource    VARCHAR,
	grid_size   INTEGER,
	signature   VARCHAR,
	status      VARCHAR,
	features    INTEGER,
	error       VARCHAR,
	duration_ms BIGINT,
	recorded_at TIMESTAMP
)`,
}

// Open opens the database and creates the table.
func Open(cfg Config) (*RunLog, error) {
	dsn := ""
	if cfg.DataDir != "" {
		duckdbDir := filepath.Join(cfg.DataDir, "duckdb")
		if err := os.MkdirAll(duckdbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create duckdb directory: %w", err)
		}
		name := cfg.DBName
		if name == "" {
			name = "explore"
		}
		dsn = filepath.Join(duckdbDir, name+".duckdb")
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening duckdb: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating zone_runs: %w", err)
		}
	}
	return &RunLog{db: db}, nil
}

// Record appends a run. A zero At is set to now.
func (l *RunLog) Record(ctx context.Context, r Run) error {
	if r.At.IsZero() {
		r.At = time.Now().UTC()
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO zone_runs (session, area_id, resource, grid_size, signature, status, features, error, duration_ms, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Session, r.AreaID, r.Resource, r.GridSize, r.Signature, r.Status, r.Features, r.Error, r.DurationMs, r.At)
	if err != nil {
		return fmt.Errorf("recording zone run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first. An empty session matches
// every session.
func (l *RunLog) Recent(ctx context.Context, session string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT session, area_id, resource, grid_size, signature, status, features, error, duration_ms, recorded_at
		FROM zone_runs
		WHERE ? = '' OR session = ?
		ORDER BY id DESC
		LIMIT ?`, session, session, limit)
	if err != nil {
		return nil, fmt.Errorf("querying zone runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.Session, &r.AreaID, &r.Resource, &r.GridSize, &r.Signature, &r.Status, &r.Features, &r.Error, &r.DurationMs, &r.At); err != nil {
			return nil, fmt.Errorf("scanning zone run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close closes the database.
func (l *RunLog) Close() error {
	return l.db.Close()
}
