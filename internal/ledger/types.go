// Package ledger provides the task ledger types and its persistence backends.
//
// The ledger is the full collection of task records produced by spec
// synchronization. It is always loaded and saved as a whole: callers load it,
// mutate the in-memory copy and hand the complete collection back to Save.
// All backends implement the Store interface so the synchronizer can be run
// against a JSON file, SQLite, PostgreSQL or an in-memory store.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrStorageCorrupt is returned by Load when persisted data exists but cannot
// be parsed into a ledger. No repair is attempted.
var ErrStorageCorrupt = errors.New("ledger storage is corrupt")

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Priority is the scheduling priority of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Agent names the role expected to pick a task up. The set is open; these
// are the roles the default assignment policy produces.
type Agent string

const (
	AgentArchitect Agent = "Architect"
	AgentDeveloper Agent = "Developer"
)

// Task is a single record in the ledger.
//
// JSON field names and enum spellings are shared with existing tasks.json
// files and must not change. Members written by other tools are kept in
// extra and re-emitted on encode.
type Task struct {
	// ID has the form T-NNN and is assigned once at creation.
	ID string `json:"id"`

	// Name is the checklist description. It is unique within the ledger.
	Name string `json:"name"`

	// Spec is the specification ID whose documents produced this task.
	Spec string `json:"spec"`

	Status   Status   `json:"status"`
	Priority Priority `json:"priority"`
	Agent    Agent    `json:"agent"`

	extra map[string]json.RawMessage
}

// Ledger is the persisted document: a top-level "tasks" field holding
// records in insertion order. Other top-level members are kept in extra.
type Ledger struct {
	Tasks []Task `json:"tasks"`

	extra map[string]json.RawMessage
}

// New returns an empty ledger whose Tasks slice is non-nil, so it serializes
// as "tasks": [] rather than null.
func New() *Ledger {
	return &Ledger{Tasks: make([]Task, 0)}
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	return len(l.Tasks)
}

// NextID returns the identifier the next appended record receives.
func (l *Ledger) NextID() string {
	return FormatID(len(l.Tasks) + 1)
}

// FormatID renders a sequence number as T-NNN, zero-padded to width 3.
func FormatID(n int) string {
	return fmt.Sprintf("T-%03d", n)
}

// Names returns the set of task names currently in the ledger.
func (l *Ledger) Names() map[string]struct{} {
	names := make(map[string]struct{}, len(l.Tasks))
	for _, t := range l.Tasks {
		names[t.Name] = struct{}{}
	}
	return names
}

// Store defines the contract for ledger persistence.
type Store interface {
	// Load reads the whole ledger.
	//
	// Returns an empty ledger (not an error) when nothing has been persisted
	// yet. Returns an error wrapping ErrStorageCorrupt when persisted data
	// exists but has the wrong shape, and the underlying error for any other
	// read failure.
	Load() (*Ledger, error)

	// Save replaces the persisted ledger with l.
	//
	// The whole collection is rewritten; a concurrent or subsequent Load
	// never observes a partially written ledger.
	Save(l *Ledger) error
}

// QueryableStore extends Store with lookups answered by the backend itself.
//
// Only the SQL backends implement it. Filter provides the same answers for
// any Store.
type QueryableStore interface {
	Store

	// TasksBySpec returns the tasks produced by the given spec, in ledger order.
	TasksBySpec(spec string) ([]Task, error)

	// TasksByStatus returns the tasks with the given status, in ledger order.
	TasksByStatus(status Status) ([]Task, error)
}

// Query selects tasks from a ledger. Empty fields match everything.
type Query struct {
	Spec   string
	Status Status
}

// Match reports whether t satisfies q.
func (q Query) Match(t Task) bool {
	if q.Spec != "" && t.Spec != q.Spec {
		return false
	}
	if q.Status != "" && t.Status != q.Status {
		return false
	}
	return true
}

// Filter returns the tasks in s matching q, in ledger order.
//
// When s is a QueryableStore and only one field is set, the lookup is
// delegated to the backend; otherwise the ledger is loaded and filtered in
// memory.
func Filter(s Store, q Query) ([]Task, error) {
	if qs, ok := s.(QueryableStore); ok {
		switch {
		case q.Spec != "" && q.Status == "":
			return qs.TasksBySpec(q.Spec)
		case q.Status != "" && q.Spec == "":
			return qs.TasksByStatus(q.Status)
		}
	}

	l, err := s.Load()
	if err != nil {
		return nil, err
	}

	result := make([]Task, 0)
	for _, t := range l.Tasks {
		if q.Match(t) {
			result = append(result, t)
		}
	}
	return result, nil
}
