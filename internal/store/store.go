// Package store persists accepted startup records to SQLite and serves the
// known-records snapshot used for dedup. The schema mirrors the upstream
// sheet layout: one startups row per (name, website), one funding row per
// (startup, investor, round date), one leadership row per (startup, name,
// role), plus a raw_data audit table holding each accepted payload verbatim.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"startupscout/internal/types"
)

// Store wraps the SQLite database.
type Store struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string
	log  *zap.Logger
}

// New opens (or creates) the database at path and initializes the schema.
func New(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		log.Debug("failed to set sqlite busy_timeout", zap.Error(err))
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		log.Debug("failed to set sqlite journal_mode=WAL", zap.Error(err))
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		log.Debug("failed to enable sqlite foreign_keys", zap.Error(err))
	}

	s := &Store{db: db, path: path, log: log}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	log.Debug("store initialized", zap.String("path", path))
	return s, nil
}

// A NULL website would make the (name, website) unique key inert in SQLite,
// so websites are stored as '' when unknown.
const schema = `
CREATE TABLE IF NOT EXISTS startups (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	website TEXT NOT NULL DEFAULT '',
	sector TEXT,
	country TEXT,
	founded_year INTEGER,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(name, website)
);

CREATE TABLE IF NOT EXISTS funding_rounds (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	startup_id INTEGER NOT NULL REFERENCES startups(id),
	investor_name TEXT NOT NULL,
	amount NUMERIC,
	round_date TEXT NOT NULL DEFAULT '',
	round_type TEXT,
	is_lead INTEGER NOT NULL DEFAULT 0,
	UNIQUE(startup_id, investor_name, round_date)
);

CREATE TABLE IF NOT EXISTS leadership (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	startup_id INTEGER NOT NULL REFERENCES startups(id),
	name TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT '',
	linkedin TEXT,
	UNIQUE(startup_id, name, role)
);

CREATE TABLE IF NOT EXISTS raw_data (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT,
	source TEXT,
	data TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_funding_startup ON funding_rounds(startup_id, round_date);
CREATE INDEX IF NOT EXISTS idx_funding_investor ON funding_rounds(investor_name);
`

func (s *Store) initialize() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Snapshot returns the point-in-time set of known records for dedup. Taken
// once per discovery run and treated as immutable for the whole batch.
func (s *Store) Snapshot(ctx context.Context) ([]types.KnownRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT name, website FROM startups`)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	defer rows.Close()

	var known []types.KnownRecord
	for rows.Next() {
		var k types.KnownRecord
		if err := rows.Scan(&k.Name, &k.Website); err != nil {
			return nil, fmt.Errorf("failed to scan known record: %w", err)
		}
		known = append(known, k)
	}
	return known, rows.Err()
}

// Totals summarizes table sizes for reporting.
type Totals struct {
	Startups      int
	FundingRounds int
	Leadership    int
	RawPayloads   int
}

// Totals counts rows in each table.
func (s *Store) Totals(ctx context.Context) (Totals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var t Totals
	for _, q := range []struct {
		table string
		dst   *int
	}{
		{"startups", &t.Startups},
		{"funding_rounds", &t.FundingRounds},
		{"leadership", &t.Leadership},
		{"raw_data", &t.RawPayloads},
	} {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+q.table).Scan(q.dst); err != nil {
			return Totals{}, fmt.Errorf("failed to count %s: %w", q.table, err)
		}
	}
	return t, nil
}

// Apply executes a write plan in one transaction.
func (s *Store) Apply(ctx context.Context, plan *WritePlan) error {
	if plan == nil || len(plan.Statements) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	for _, st := range plan.Statements {
		if _, err := tx.ExecContext(ctx, st.SQL, st.Args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("write plan failed for %q: %w", plan.Startup, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit write plan: %w", err)
	}
	s.log.Info("applied write plan",
		zap.String("startup", plan.Startup),
		zap.String("run_id", plan.RunID),
		zap.Int("statements", len(plan.Statements)))
	return nil
}
