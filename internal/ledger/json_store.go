package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// JSONStore implements Store using a single JSON document on disk.
//
// The file layout is {"tasks": [...]} with 4-space indentation and non-ASCII
// text written verbatim, matching ledgers produced by earlier tooling. Writes
// go through a temporary file and os.Rename so that readers only ever see a
// complete document.
type JSONStore struct {
	// Path is the absolute path to the ledger file.
	Path string
}

// NewJSONStore creates a JSONStore for the given file path.
//
// Parent directories are created on the first Save.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{
		Path: path,
	}
}

// Load reads the ledger file.
//
// Members other tools added to records or to the top-level object are kept
// and written back by Save.
//
// A missing file yields an empty ledger. An empty file, invalid JSON, a
// top-level value that is not an object, a missing or non-array "tasks"
// field, or records with fields of the wrong type all yield an error wrapping
// ErrStorageCorrupt.
func (s *JSONStore) Load() (*Ledger, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	l, err := decodeLedger(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStorageCorrupt, s.Path, err)
	}
	return l, nil
}

// decodeLedger parses a ledger document and checks its shape.
func decodeLedger(data []byte) (*Ledger, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("top-level value is null")
	}

	rawTasks, ok := doc["tasks"]
	if !ok {
		return nil, fmt.Errorf(`missing "tasks" field`)
	}
	trimmed := bytes.TrimSpace(rawTasks)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf(`"tasks" is not an array`)
	}

	tasks := make([]Task, 0)
	if err := json.Unmarshal(trimmed, &tasks); err != nil {
		return nil, err
	}
	return &Ledger{Tasks: tasks, extra: unknownMembers(doc, []string{"tasks"})}, nil
}

// Save atomically replaces the ledger file with l.
//
// Creates parent directories if needed, encodes the ledger into a temporary
// file in the same directory and renames it over the target.
func (s *JSONStore) Save(l *Ledger) error {
	doc := Ledger{Tasks: l.Tasks, extra: l.extra}
	if doc.Tasks == nil {
		doc.Tasks = make([]Task, 0)
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tasks-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.Write(buf.Bytes())
	closeErr := tmpFile.Close()
	if writeErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write ledger: %w", writeErr)
	}
	if closeErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write ledger: %w", closeErr)
	}

	if err := os.Rename(tmpPath, s.Path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace ledger: %w", err)
	}

	return nil
}
