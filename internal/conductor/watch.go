package conductor

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/JamesPrial/conductor/internal/specdoc"
)

// DefaultDebounce coalesces the burst of events an editor emits per save.
const DefaultDebounce = 200 * time.Millisecond

// PassFunc receives the outcome of every sync pass run by a Watcher.
type PassFunc func(Result, error)

// Watcher re-runs Sync for one spec whenever its track documents change.
type Watcher struct {
	sync     *Synchronizer
	specID   string
	trackDir string
	debounce time.Duration
	onPass   PassFunc
}

// NewWatcher returns a Watcher for specID. The track directory must exist
// when Run is called. onPass may be nil.
func NewWatcher(s *Synchronizer, locator *specdoc.Locator, specID string, onPass PassFunc) (*Watcher, error) {
	dir, err := locator.TrackDir(specID)
	if err != nil {
		return nil, err
	}
	if onPass == nil {
		onPass = func(Result, error) {}
	}
	return &Watcher{
		sync:     s,
		specID:   specID,
		trackDir: dir,
		debounce: DefaultDebounce,
		onPass:   onPass,
	}, nil
}

// SetDebounce overrides DefaultDebounce. Non-positive values run a pass per event.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Run blocks until ctx is cancelled, running a sync pass after each change
// to spec.md or plan.md. Passes run on the calling goroutine, one at a time.
// Run returns nil on cancellation and an error if the watch cannot start or
// the event stream fails.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	if err := fw.Add(w.trackDir); err != nil {
		return fmt.Errorf("watch %s: %w", w.trackDir, err)
	}

	log := w.sync.logger.With(zap.String("spec", w.specID), zap.String("dir", w.trackDir))
	log.Info("watching track documents")

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("watch stopped")
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return fmt.Errorf("watch %s: event stream closed", w.trackDir)
			}
			if !isTrackDocumentChange(event) {
				continue
			}
			log.Debug("track document changed", zap.String("file", event.Name), zap.String("op", event.Op.String()))
			if w.debounce <= 0 {
				w.pass()
				continue
			}
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return fmt.Errorf("watch %s: error stream closed", w.trackDir)
			}
			log.Warn("watcher error", zap.Error(err))

		case <-timer.C:
			w.pass()
		}
	}
}

func (w *Watcher) pass() {
	res, err := w.sync.Sync(w.specID)
	w.onPass(res, err)
}

// isTrackDocumentChange matches writes and creations of spec.md or plan.md.
func isTrackDocumentChange(e fsnotify.Event) bool {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return false
	}
	switch filepath.Base(e.Name) {
	case specdoc.PrimaryDocument, specdoc.FallbackDocument:
		return true
	}
	return false
}
