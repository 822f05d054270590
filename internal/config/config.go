// Package config resolves the project directory, the tracks directory and
// the ledger backend from an optional .conductor.yaml and the environment.
//
// Precedence, highest first: environment variables, the project file,
// built-in defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JamesPrial/conductor/internal/ledger"
	"github.com/JamesPrial/conductor/internal/pathutil"
	"github.com/JamesPrial/conductor/internal/specdoc"
)

// FileName is the optional per-project configuration file.
const FileName = ".conductor.yaml"

// Environment variables read by Load and ResolveProjectDir.
const (
	EnvProjectDir     = "CONDUCTOR_PROJECT_DIR"
	EnvTracksDir      = "CONDUCTOR_TRACKS_DIR"
	EnvStorageBackend = "CONDUCTOR_STORAGE_BACKEND"
	EnvLedgerPath     = "CONDUCTOR_LEDGER_PATH"
	EnvSQLitePath     = "CONDUCTOR_SQLITE_PATH"
	EnvDatabaseURL    = "CONDUCTOR_DATABASE_URL"
)

// ErrInvalidConfig is returned when the project file cannot be parsed or a
// configured path escapes the project directory.
var ErrInvalidConfig = errors.New("invalid configuration")

// Storage is the storage section of the project file.
type Storage struct {
	Backend     string `yaml:"backend"`
	JSONPath    string `yaml:"json_path"`
	SQLitePath  string `yaml:"sqlite_path"`
	DatabaseURL string `yaml:"database_url"`
}

// Config is the resolved configuration for one project.
type Config struct {
	// ProjectDir is the absolute project root. Not read from the file.
	ProjectDir string `yaml:"-"`

	// TracksDir is the absolute tracks directory after Load.
	TracksDir string `yaml:"tracks_dir"`

	Storage Storage `yaml:"storage"`
}

// ResolveProjectDir picks the project root: flagValue if set, else
// CONDUCTOR_PROJECT_DIR, else the working directory. The result is absolute.
func ResolveProjectDir(flagValue string) (string, error) {
	dir := strings.TrimSpace(flagValue)
	if dir == "" {
		dir = strings.TrimSpace(os.Getenv(EnvProjectDir))
	}
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve project directory %q: %w", dir, err)
	}
	return abs, nil
}

// Load reads projectDir/.conductor.yaml if present, applies environment
// overrides and resolves the tracks directory inside projectDir.
func Load(projectDir string) (*Config, error) {
	cfg := &Config{}

	path := filepath.Join(projectDir, FileName)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.ProjectDir = projectDir

	tracks := strings.TrimSpace(cfg.TracksDir)
	if tracks == "" {
		tracks = specdoc.DefaultTracksDir
	}
	resolved, err := pathutil.ResolveSafePath(projectDir, tracks)
	if err != nil {
		return nil, fmt.Errorf("%w: tracks_dir: %v", ErrInvalidConfig, err)
	}
	cfg.TracksDir = resolved

	return cfg, nil
}

// decode parses the project file strictly; unknown keys are errors. An
// empty file is valid.
func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	override(&c.TracksDir, EnvTracksDir)
	override(&c.Storage.Backend, EnvStorageBackend)
	override(&c.Storage.JSONPath, EnvLedgerPath)
	override(&c.Storage.SQLitePath, EnvSQLitePath)
	override(&c.Storage.DatabaseURL, EnvDatabaseURL)
}

// LedgerOptions converts the storage section for ledger.Open.
func (c *Config) LedgerOptions() ledger.Options {
	return ledger.Options{
		Backend:     c.Storage.Backend,
		JSONPath:    c.Storage.JSONPath,
		SQLitePath:  c.Storage.SQLitePath,
		DatabaseURL: c.Storage.DatabaseURL,
	}
}

// OpenStore opens the configured ledger backend.
func (c *Config) OpenStore() (ledger.Store, error) {
	return ledger.Open(c.ProjectDir, c.LedgerOptions())
}

// Locator returns a Locator over the resolved tracks directory.
func (c *Config) Locator() *specdoc.Locator {
	return specdoc.NewLocator(c.TracksDir)
}
