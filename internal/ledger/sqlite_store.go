package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// sqliteSchemaDDL defines the table backing the SQLite store.
//
// position preserves insertion order; the UNIQUE constraint on name enforces
// the ledger's dedup invariant at the storage layer as well.
const sqliteSchemaDDL = `
CREATE TABLE IF NOT EXISTS tasks (
    position INTEGER PRIMARY KEY,
    id TEXT NOT NULL,
    name TEXT NOT NULL UNIQUE,
    spec TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'pending',
    priority TEXT NOT NULL DEFAULT 'medium',
    agent TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_tasks_spec ON tasks(spec);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
`

const sqliteSelectColumns = `SELECT id, name, spec, status, priority, agent FROM tasks`

// SQLiteStore implements Store and QueryableStore using SQLite.
//
// Each operation opens its own connection, so the store holds no resources
// between calls and needs no Close.
type SQLiteStore struct {
	// DBPath is the absolute path to the SQLite database file.
	DBPath string
}

// NewSQLiteStore creates a SQLiteStore and initializes the schema.
//
// Parent directories are created if they don't exist. Returns an error if
// the file is not a usable SQLite database; a file that is not a database
// at all, or whose pages are damaged, yields an error wrapping
// ErrStorageCorrupt.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	s := &SQLiteStore{
		DBPath: dbPath,
	}

	if err := s.ensureSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// connect opens a connection with WAL journaling enabled.
func (s *SQLiteStore) connect() (*sql.DB, error) {
	dir := filepath.Dir(s.DBPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", s.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, s.classify(fmt.Errorf("failed to set WAL mode: %w", err))
	}

	return db, nil
}

// classify wraps err in ErrStorageCorrupt when SQLite reports that the file
// is not a database or is malformed.
func (s *SQLiteStore) classify(err error) error {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return err
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_NOTADB, sqlite3.SQLITE_CORRUPT:
		return fmt.Errorf("%w: %s: %v", ErrStorageCorrupt, s.DBPath, err)
	}
	return err
}

func (s *SQLiteStore) ensureSchema() error {
	db, err := s.connect()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(sqliteSchemaDDL); err != nil {
		return s.classify(fmt.Errorf("failed to execute schema DDL: %w", err))
	}

	return nil
}

// Load reads every task in insertion order.
func (s *SQLiteStore) Load() (*Ledger, error) {
	tasks, err := s.query(sqliteSelectColumns + ` ORDER BY position`)
	if err != nil {
		return nil, err
	}
	return &Ledger{Tasks: tasks}, nil
}

// Save replaces all rows with the tasks in l inside a single transaction.
func (s *SQLiteStore) Save(l *Ledger) error {
	db, err := s.connect()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM tasks`); err != nil {
		return fmt.Errorf("failed to clear tasks: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO tasks (position, id, name, spec, status, priority, agent)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, t := range l.Tasks {
		if _, err := stmt.Exec(i+1, t.ID, t.Name, t.Spec,
			string(t.Status), string(t.Priority), string(t.Agent)); err != nil {
			return fmt.Errorf("failed to insert task %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ledger: %w", err)
	}
	return nil
}

// TasksBySpec returns the tasks produced by spec, in insertion order.
func (s *SQLiteStore) TasksBySpec(spec string) ([]Task, error) {
	return s.query(sqliteSelectColumns+` WHERE spec = ? ORDER BY position`, spec)
}

// TasksByStatus returns the tasks with the given status, in insertion order.
func (s *SQLiteStore) TasksByStatus(status Status) ([]Task, error) {
	return s.query(sqliteSelectColumns+` WHERE status = ? ORDER BY position`, string(status))
}

func (s *SQLiteStore) query(query string, args ...any) ([]Task, error) {
	db, err := s.connect()
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, s.classify(fmt.Errorf("failed to query tasks: %w", err))
	}
	defer func() { _ = rows.Close() }()

	result := make([]Task, 0)
	for rows.Next() {
		var t Task
		var status, priority, agent string
		if err := rows.Scan(&t.ID, &t.Name, &t.Spec, &status, &priority, &agent); err != nil {
			return nil, fmt.Errorf("%w: failed to scan task: %v", ErrStorageCorrupt, err)
		}
		t.Status = Status(status)
		t.Priority = Priority(priority)
		t.Agent = Agent(agent)
		result = append(result, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return result, nil
}
