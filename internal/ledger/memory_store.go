package ledger

import "sync"

// MemoryStore is an in-process Store. It never touches the filesystem, which
// makes it the store of choice for exercising the synchronizer in tests.
//
// Load and Save copy the task slice so callers cannot mutate the stored
// ledger without going through Save.
type MemoryStore struct {
	mu     sync.Mutex
	ledger *Ledger
	saves  int

	// LoadErr, when set, is returned by every Load.
	LoadErr error
	// SaveErr, when set, is returned by every Save and nothing is stored.
	SaveErr error
}

// NewMemoryStore returns a store holding a copy of the given tasks. With no
// tasks it behaves like a store that has never been written.
func NewMemoryStore(tasks ...Task) *MemoryStore {
	s := &MemoryStore{}
	if len(tasks) > 0 {
		s.ledger = &Ledger{Tasks: append([]Task(nil), tasks...)}
	}
	return s
}

// Load returns a copy of the stored ledger, or an empty one if nothing has
// been saved.
func (s *MemoryStore) Load() (*Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	if s.ledger == nil {
		return New(), nil
	}
	return &Ledger{Tasks: append(make([]Task, 0, len(s.ledger.Tasks)), s.ledger.Tasks...), extra: s.ledger.extra}, nil
}

// Save stores a copy of l.
func (s *MemoryStore) Save(l *Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.ledger = &Ledger{Tasks: append(make([]Task, 0, len(l.Tasks)), l.Tasks...), extra: l.extra}
	s.saves++
	return nil
}

// Saves reports how many times Save has succeeded.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Persisted reports whether anything has been saved or seeded.
func (s *MemoryStore) Persisted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger != nil
}
