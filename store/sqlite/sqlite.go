/*
Package sqlite provides a SQLite-backed records.TxStore.

PURPOSE:
  Persists every back-office collection (inventory, sales, users, employees,
  production records, salary records) as one JSON document per row, the same
  layout the front end keeps in browser storage. Also keeps the payroll run
  log.

KEY TABLES:
  collections:  name, JSON data, version, updated_at
  payroll_runs: audit trail of scheduled and manual salary generation

OPTIMISTIC VERSIONING:
  Save is a compare-and-swap on the version column:
  - version 0 inserts, and fails if another writer inserted first
  - otherwise UPDATE ... WHERE version = ?, and fails if no row matched
  Either failure is records.ErrConcurrentModification.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. WithTx holds the write lock for the
  whole transaction, and the Store handed to fn talks to the *sql.Tx
  directly, never back through the locked methods.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so readers don't block the
  writer.

USAGE:
  store, err := sqlite.New("./data/tess.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  items, err := records.Inventory.All(ctx, store)

SEE ALSO:
  - records/store.go: Interface definitions
  - records/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/tess/backoffice/payroll"
	"github.com/tess/backoffice/records"
)

// Store implements records.TxStore and payroll.RunLog using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: ":memory:" databases are per connection, and SQLite
	// has a single writer anyway.
	db.SetMaxOpenConns(1)

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

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		version INTEGER NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS payroll_runs (
		id TEXT PRIMARY KEY,
		period TEXT NOT NULL,
		trigger_kind TEXT NOT NULL,
		status TEXT NOT NULL,
		generated INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_payroll_runs_started
		ON payroll_runs(started_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// queryExecer is satisfied by both *sql.DB and *sql.Tx.
type queryExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// DOCUMENT STORE (records.Store interface)
// =============================================================================

// Load returns the named document, or an empty one at version 0.
func (s *Store) Load(ctx context.Context, name records.CollectionName) (records.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return loadDoc(ctx, s.db, name)
}

// Save writes doc if the stored version still equals doc.Version.
func (s *Store) Save(ctx context.Context, doc records.Document) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return saveDoc(ctx, s.db, doc)
}

func loadDoc(ctx context.Context, db queryExecer, name records.CollectionName) (records.Document, error) {
	var data string
	var version int64
	err := db.QueryRowContext(ctx,
		`SELECT data, version FROM collections WHERE name = ?`, string(name),
	).Scan(&data, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return records.Document{Name: name}, nil
	}
	if err != nil {
		return records.Document{}, fmt.Errorf("failed to load %s: %w", name, err)
	}
	return records.Document{Name: name, Data: []byte(data), Version: version}, nil
}

func saveDoc(ctx context.Context, db queryExecer, doc records.Document) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	var (
		res sql.Result
		err error
	)
	if doc.Version == 0 {
		res, err = db.ExecContext(ctx, `
			INSERT INTO collections (name, data, version, updated_at)
			VALUES (?, ?, 1, ?)
			ON CONFLICT(name) DO NOTHING
		`, string(doc.Name), string(doc.Data), now)
	} else {
		res, err = db.ExecContext(ctx, `
			UPDATE collections SET data = ?, version = version + 1, updated_at = ?
			WHERE name = ? AND version = ?
		`, string(doc.Data), now, string(doc.Name), doc.Version)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to save %s: %w", doc.Name, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to save %s: %w", doc.Name, err)
	}
	if n == 0 {
		return 0, records.ErrConcurrentModification
	}
	return doc.Version + 1, nil
}

// =============================================================================
// TRANSACTIONAL STORE (records.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store records.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) Load(ctx context.Context, name records.CollectionName) (records.Document, error) {
	return loadDoc(ctx, ts.tx, name)
}

func (ts *txStore) Save(ctx context.Context, doc records.Document) (int64, error) {
	return saveDoc(ctx, ts.tx, doc)
}

// =============================================================================
// PAYROLL RUNS (payroll.RunLog interface)
// =============================================================================

// SaveRun inserts a run or updates it by ID.
func (s *Store) SaveRun(ctx context.Context, r payroll.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO payroll_runs (id, period, trigger_kind, status, generated, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			generated = excluded.generated,
			error = excluded.error,
			completed_at = excluded.completed_at
	`

	var completedAt *string
	if r.CompletedAt != nil {
		c := r.CompletedAt.UTC().Format(timeLayout)
		completedAt = &c
	}

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Period, r.Trigger, string(r.Status), r.Generated, nullString(r.Error),
		r.StartedAt.UTC().Format(timeLayout), completedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save payroll run: %w", err)
	}
	return nil
}

// Runs returns the newest runs first. limit <= 0 returns all.
func (s *Store) Runs(ctx context.Context, limit int) ([]payroll.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, period, trigger_kind, status, generated, error, started_at, completed_at
		FROM payroll_runs
		ORDER BY started_at DESC, id DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []payroll.Run
	for rows.Next() {
		var r payroll.Run
		var status, startedAt string
		var runErr, completedAt sql.NullString
		if err := rows.Scan(
			&r.ID, &r.Period, &r.Trigger, &status, &r.Generated, &runErr, &startedAt, &completedAt,
		); err != nil {
			return nil, err
		}

		r.Status = payroll.RunStatus(status)
		r.Error = runErr.String
		r.StartedAt, _ = time.Parse(timeLayout, startedAt)
		if completedAt.Valid {
			t, _ := time.Parse(timeLayout, completedAt.String)
			r.CompletedAt = &t
		}

		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"collections", "payroll_runs"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
