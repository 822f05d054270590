package ledger

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/JamesPrial/conductor/internal/pathutil"
)

// Backend names accepted by Open.
const (
	BackendJSON     = "json"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Default ledger locations, relative to the project directory.
const (
	DefaultJSONPath   = "tasks.json"
	DefaultSQLitePath = ".conductor/tasks.db"
)

// ErrUnknownBackend is returned by Open for an unrecognised backend name.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Options selects and locates a ledger backend.
type Options struct {
	// Backend is "json" (default), "sqlite" or "postgres". Case and
	// surrounding whitespace are ignored.
	Backend string

	// JSONPath is the ledger file for the json backend, relative to the
	// project directory unless absolute. Defaults to DefaultJSONPath.
	JSONPath string

	// SQLitePath is the database file for the sqlite backend. Defaults to
	// DefaultSQLitePath.
	SQLitePath string

	// DatabaseURL is the connection string for the postgres backend.
	DatabaseURL string
}

// BackendName returns the normalised backend name, defaulting to json.
func (o Options) BackendName() string {
	name := strings.ToLower(strings.TrimSpace(o.Backend))
	if name == "" {
		return BackendJSON
	}
	return name
}

// Open returns the Store described by opts.
//
// File-based ledgers must stay inside projectDir; custom paths that escape it
// are rejected. The postgres backend requires DatabaseURL.
func Open(projectDir string, opts Options) (Store, error) {
	switch opts.BackendName() {
	case BackendJSON:
		path, err := filePath(projectDir, opts.JSONPath, DefaultJSONPath)
		if err != nil {
			return nil, fmt.Errorf("invalid JSON ledger path: %w", err)
		}
		return NewJSONStore(path), nil

	case BackendSQLite:
		path, err := filePath(projectDir, opts.SQLitePath, DefaultSQLitePath)
		if err != nil {
			return nil, fmt.Errorf("invalid SQLite ledger path: %w", err)
		}
		return NewSQLiteStore(path)

	case BackendPostgres:
		if strings.TrimSpace(opts.DatabaseURL) == "" {
			return nil, fmt.Errorf("postgres backend requires a database URL")
		}
		return NewPostgresStore(opts.DatabaseURL)

	default:
		return nil, fmt.Errorf("%w: %q. Expected 'json', 'sqlite' or 'postgres'", ErrUnknownBackend, opts.Backend)
	}
}

// filePath validates a custom path, or builds the default one.
func filePath(projectDir, custom, def string) (string, error) {
	if strings.TrimSpace(custom) != "" {
		return pathutil.ResolveSafePath(projectDir, strings.TrimSpace(custom))
	}
	return filepath.Join(projectDir, filepath.FromSlash(def)), nil
}
