// Package conductor merges track checklists into the task ledger.
//
// A sync pass extracts the unchecked items of one track, loads the ledger,
// appends a record for every item whose name is not already present and
// saves the result. Passes are idempotent: re-running one against an
// unchanged document adds nothing.
package conductor

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JamesPrial/conductor/internal/ledger"
	"github.com/JamesPrial/conductor/internal/specdoc"
)

// Extractor yields the candidate descriptions for a spec ID.
// *specdoc.Locator is the production implementation.
type Extractor interface {
	ExtractTasks(specID string) (specdoc.Extraction, error)
}

// Result describes one sync pass.
type Result struct {
	// SpecID is the spec the pass ran for.
	SpecID string

	// RunID identifies the pass. It is also attached to every log entry the
	// pass writes as the "run_id" field.
	RunID string

	// Found is false when the track's primary document does not exist.
	Found bool

	// Source is the document the candidates were read from.
	Source string

	// Candidates is the number of unchecked items extracted.
	Candidates int

	// Added holds the records created by this pass, in insertion order.
	Added []ledger.Task

	// Skipped counts candidates whose name was already in the ledger.
	Skipped int
}

// Synced reports whether extraction produced candidates and the merge ran.
// It is true even when every candidate was already present.
func (r Result) Synced() bool {
	return r.Candidates > 0
}

// Changed reports whether the pass added records to the ledger.
func (r Result) Changed() bool {
	return len(r.Added) > 0
}

// Synchronizer runs sync passes against a Store.
type Synchronizer struct {
	store     ledger.Store
	extractor Extractor
	policy    AgentPolicy
	logger    *zap.Logger
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithAgentPolicy replaces SetupAgentPolicy.
func WithAgentPolicy(p AgentPolicy) Option {
	return func(s *Synchronizer) {
		if p != nil {
			s.policy = p
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Synchronizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns a Synchronizer reading documents through extractor and
// persisting through store.
func New(store ledger.Store, extractor Extractor, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		store:     store,
		extractor: extractor,
		policy:    SetupAgentPolicy,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the ledger store the synchronizer writes to.
func (s *Synchronizer) Store() ledger.Store {
	return s.store
}

// ExtractTasks returns the candidate descriptions for specID without
// touching the ledger.
func (s *Synchronizer) ExtractTasks(specID string) (specdoc.Extraction, error) {
	return s.extractor.ExtractTasks(specID)
}

// Sync merges the unchecked items of specID into the ledger.
//
// When the track has no document or no unchecked items the ledger is
// neither loaded nor written and the returned Result has Synced() == false.
// Otherwise each candidate whose name is not yet in the ledger becomes a
// pending, medium-priority record with the next sequential ID. The ledger is
// saved only if something was added. Storage and read errors are returned
// wrapped but otherwise unchanged.
func (s *Synchronizer) Sync(specID string) (Result, error) {
	runID := uuid.NewString()
	log := s.logger.With(zap.String("spec", specID), zap.String("run_id", runID))

	ext, err := s.extractor.ExtractTasks(specID)
	if err != nil {
		return Result{SpecID: specID, RunID: runID}, fmt.Errorf("extract tasks for spec %s: %w", specID, err)
	}

	res := Result{
		SpecID:     specID,
		RunID:      runID,
		Found:      ext.Found,
		Source:     ext.Source,
		Candidates: len(ext.Items),
		Added:      make([]ledger.Task, 0),
	}
	if !ext.Found {
		log.Info("no spec document for track")
		return res, nil
	}
	if ext.Empty() {
		log.Info("no unchecked items in track documents", zap.String("source", ext.Source))
		return res, nil
	}

	l, err := s.store.Load()
	if err != nil {
		return res, fmt.Errorf("load ledger: %w", err)
	}

	res.Added, res.Skipped = merge(l, specID, ext.Items, s.policy)

	for _, t := range res.Added {
		log.Debug("task added",
			zap.String("id", t.ID),
			zap.String("name", t.Name),
			zap.String("agent", string(t.Agent)))
	}

	if res.Changed() {
		if err := s.store.Save(l); err != nil {
			return res, fmt.Errorf("save ledger: %w", err)
		}
	}

	log.Info("sync pass complete",
		zap.String("source", ext.Source),
		zap.Int("candidates", res.Candidates),
		zap.Int("added", len(res.Added)),
		zap.Int("skipped", res.Skipped))

	return res, nil
}

// merge appends a record to l for every name not already present, in order,
// and returns the new records and the number of names skipped. A name that
// repeats within items is only added once.
func merge(l *ledger.Ledger, specID string, items []string, policy AgentPolicy) ([]ledger.Task, int) {
	if l.Tasks == nil {
		l.Tasks = make([]ledger.Task, 0, len(items))
	}
	seen := l.Names()
	added := make([]ledger.Task, 0)
	skipped := 0

	for _, name := range items {
		if _, dup := seen[name]; dup {
			skipped++
			continue
		}
		t := ledger.Task{
			ID:       l.NextID(),
			Name:     name,
			Spec:     specID,
			Status:   ledger.StatusPending,
			Priority: ledger.PriorityMedium,
			Agent:    policy(name),
		}
		l.Tasks = append(l.Tasks, t)
		seen[name] = struct{}{}
		added = append(added, t)
	}
	return added, skipped
}
