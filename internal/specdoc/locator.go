package specdoc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JamesPrial/conductor/internal/pathutil"
)

// Document file names inside a track directory.
const (
	PrimaryDocument  = "spec.md"
	FallbackDocument = "plan.md"
)

// DefaultTracksDir is the tracks directory relative to the project root.
const DefaultTracksDir = "tracks"

// ErrInvalidSpecID is returned for spec IDs that are blank or would resolve
// outside the tracks directory.
var ErrInvalidSpecID = errors.New("invalid spec id")

// Extraction is the outcome of reading a track's documents.
type Extraction struct {
	// Found is false when the primary document does not exist. In that case
	// nothing else was read and Items is empty.
	Found bool

	// Source is the path of the document the items came from. When neither
	// document had unchecked items it is the primary document.
	Source string

	// Items are the unchecked descriptions in document order.
	Items []string
}

// Empty reports whether there is nothing to synchronize.
func (e Extraction) Empty() bool {
	return len(e.Items) == 0
}

// Locator resolves spec IDs to track documents.
type Locator struct {
	// TracksDir holds one track-<ID> directory per specification.
	TracksDir string
}

// NewLocator returns a Locator rooted at tracksDir.
func NewLocator(tracksDir string) *Locator {
	return &Locator{TracksDir: tracksDir}
}

// TrackDir returns the directory holding the documents for specID.
func (l *Locator) TrackDir(specID string) (string, error) {
	id := strings.TrimSpace(specID)
	if id == "" || id != specID {
		return "", fmt.Errorf("%w: %q", ErrInvalidSpecID, specID)
	}
	dir, err := pathutil.JoinWithin(l.TracksDir, "track-"+id)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidSpecID, specID, err)
	}
	// track-<ID> must be a direct child; "a/b" would nest deeper.
	if filepath.Dir(dir) != filepath.Clean(l.TracksDir) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSpecID, specID)
	}
	return dir, nil
}

// PrimaryPath returns the path of spec.md for specID.
func (l *Locator) PrimaryPath(specID string) (string, error) {
	dir, err := l.TrackDir(specID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, PrimaryDocument), nil
}

// FallbackPath returns the path of plan.md for specID.
func (l *Locator) FallbackPath(specID string) (string, error) {
	dir, err := l.TrackDir(specID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FallbackDocument), nil
}

// ExtractTasks reads the unchecked checklist items for specID.
//
// A missing primary document is not an error: the returned Extraction has
// Found set to false. When the primary document has no unchecked items and a
// fallback document exists, the fallback's items are returned instead. Any
// other read failure is returned as an error.
func (l *Locator) ExtractTasks(specID string) (Extraction, error) {
	dir, err := l.TrackDir(specID)
	if err != nil {
		return Extraction{}, err
	}
	primary := filepath.Join(dir, PrimaryDocument)

	items, found, err := extractFile(primary)
	if err != nil {
		return Extraction{}, err
	}
	if !found {
		return Extraction{Found: false, Items: make([]string, 0)}, nil
	}
	if len(items) > 0 {
		return Extraction{Found: true, Source: primary, Items: items}, nil
	}

	fallback := filepath.Join(dir, FallbackDocument)
	fbItems, fbFound, err := extractFile(fallback)
	if err != nil {
		return Extraction{}, err
	}
	if fbFound && len(fbItems) > 0 {
		return Extraction{Found: true, Source: fallback, Items: fbItems}, nil
	}

	return Extraction{Found: true, Source: primary, Items: make([]string, 0)}, nil
}

// extractFile runs ExtractChecklist on path. found is false when the file
// does not exist.
func extractFile(path string) (items []string, found bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	items, err = ExtractChecklist(f)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return items, true, nil
}
