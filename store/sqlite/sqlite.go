/*
Package sqlite provides a SQLite-backed implementation of every storage
interface in the pipeline.

PURPOSE:
  Implements schedule.Store, timelog.Store, payroll.Store, and
  directory.Store against one SQLite database. In production the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

ATOMICITY:
  Every multi-step operation the pipeline calls atomic really is one
  database transaction here:
    - ReplaceForWorkerDay: delete originals + insert replacements (split)
    - CreateFromSchedule:  insert records + delete source entries (convert)
    - CreateBatch:         insert batch + all items (build)
    - SettleBatch:         flip batch + stamp every referenced record
    - DeleteEntry:         entry + linked record + its pay run item

CONSTRAINTS THE SCHEMA ENFORCES:
  - idx_pay_run_items_record: a time record appears in at most one live
    batch; violation surfaces as AlreadyClaimedError
  - pay_run_items.pay_run_id ON DELETE CASCADE: deleting a batch removes
    its items
  - pay_run_items.time_log_id ON DELETE CASCADE: deleting a record removes
    its item, so no dangling payable lines survive

  time_logs.source_schedule_id is deliberately NOT a foreign key: after
  conversion the entry is gone and the column is a historical pointer.

CONCURRENCY:
  sync.RWMutex for in-process thread safety; WAL mode for concurrent
  readers. With PostgreSQL, database-level concurrency control replaces
  the mutex.

KEY TABLES:
  companies, workers, projects:  reference data
  schedule_entries:              planned labor
  time_logs:                     worked, costed labor
  pay_runs, pay_run_items:       payroll batches

USAGE:
  store, err := sqlite.New("./data/crewbase.db")
  if err != nil { log.Fatal(err) }
  defer store.Close()

SEE ALSO:
  - schedule.go, timelog.go, payroll.go, directory.go: per-table code
  - store/memory.go: in-memory implementation for unit tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Reference data
	CREATE TABLE IF NOT EXISTS companies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS workers (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		hourly_rate TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_workers_company ON workers(company_id);

	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_projects_company ON projects(company_id);

	-- Planned labor
	CREATE TABLE IF NOT EXISTS schedule_entries (
		id TEXT PRIMARY KEY,
		worker_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		trade_id TEXT,
		cost_code_id TEXT,
		date TEXT NOT NULL,
		scheduled_hours TEXT NOT NULL,
		notes TEXT,
		status TEXT NOT NULL DEFAULT 'planned',
		created_at TEXT NOT NULL
	);

	-- Day views and the split engine read by (worker, date); day listings
	-- read by date alone (hot path).
	CREATE INDEX IF NOT EXISTS idx_schedule_entries_worker_date
		ON schedule_entries(worker_id, date);
	CREATE INDEX IF NOT EXISTS idx_schedule_entries_date
		ON schedule_entries(date);
	CREATE INDEX IF NOT EXISTS idx_schedule_entries_project
		ON schedule_entries(project_id);

	-- Worked labor. source_schedule_id is a historical pointer, not a
	-- foreign key: the originating entry no longer exists after conversion.
	CREATE TABLE IF NOT EXISTS time_logs (
		id TEXT PRIMARY KEY,
		worker_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		trade_id TEXT,
		date TEXT NOT NULL,
		hours_worked TEXT NOT NULL,
		labor_cost TEXT NOT NULL,
		notes TEXT,
		payment_status TEXT NOT NULL DEFAULT 'unpaid',
		payment_date TEXT,
		source_schedule_id TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	-- CRITICAL: at most one record per source entry. Conversion exclusivity
	-- is enforced here, not just in service code.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_time_logs_source
		ON time_logs(source_schedule_id) WHERE source_schedule_id IS NOT NULL;

	-- Pay run candidate selection (hot path)
	CREATE INDEX IF NOT EXISTS idx_time_logs_status_date
		ON time_logs(payment_status, date);
	CREATE INDEX IF NOT EXISTS idx_time_logs_worker_date
		ON time_logs(worker_id, date);

	-- Payroll batches
	CREATE TABLE IF NOT EXISTS pay_runs (
		id TEXT PRIMARY KEY,
		date_range_start TEXT NOT NULL,
		date_range_end TEXT NOT NULL,
		payer_company_id TEXT,
		payee_company_id TEXT,
		status TEXT NOT NULL DEFAULT 'draft',
		total_amount TEXT NOT NULL DEFAULT '0',
		payment_date TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pay_runs_status ON pay_runs(status);

	CREATE TABLE IF NOT EXISTS pay_run_items (
		id TEXT PRIMARY KEY,
		pay_run_id TEXT NOT NULL REFERENCES pay_runs(id) ON DELETE CASCADE,
		time_log_id TEXT NOT NULL REFERENCES time_logs(id) ON DELETE CASCADE,
		worker_id TEXT NOT NULL,
		hours TEXT NOT NULL,
		rate TEXT NOT NULL,
		amount TEXT NOT NULL
	);

	-- CRITICAL: a time record may be claimed by at most one live batch.
	-- Two builders racing over the same record cannot both win; the loser
	-- gets AlreadyClaimed instead of creating a double payment.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_pay_run_items_record
		ON pay_run_items(time_log_id);
	CREATE INDEX IF NOT EXISTS idx_pay_run_items_batch
		ON pay_run_items(pay_run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"pay_run_items", "pay_runs", "time_logs", "schedule_entries", "workers", "projects", "companies"}
	for _, table := range tables {
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}

// execer is satisfied by both *sql.DB and *sql.Tx so write helpers work
// inside and outside transactions.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
