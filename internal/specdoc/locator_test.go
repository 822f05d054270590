package specdoc_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/JamesPrial/conductor/internal/specdoc"
)

// writeTrackDoc writes a document into tracksDir/track-<id>/<name>.
func writeTrackDoc(t *testing.T, tracksDir, id, name, content string) string {
	t.Helper()
	dir := filepath.Join(tracksDir, "track-"+id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll(%q): %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%q): %v", path, err)
	}
	return path
}

// ---------------------------------------------------------------------------
// Paths
// ---------------------------------------------------------------------------

func Test_Locator_Paths(t *testing.T) {
	t.Parallel()

	l := specdoc.NewLocator(filepath.Join("proj", "tracks"))

	primary, err := l.PrimaryPath("002")
	if err != nil {
		t.Fatalf("PrimaryPath() unexpected error: %v", err)
	}
	if want := filepath.Join("proj", "tracks", "track-002", "spec.md"); primary != want {
		t.Errorf("PrimaryPath() = %q, want %q", primary, want)
	}

	fallback, err := l.FallbackPath("002")
	if err != nil {
		t.Fatalf("FallbackPath() unexpected error: %v", err)
	}
	if want := filepath.Join("proj", "tracks", "track-002", "plan.md"); fallback != want {
		t.Errorf("FallbackPath() = %q, want %q", fallback, want)
	}
}

func Test_Locator_TrackDir_RejectsBadIDs(t *testing.T) {
	t.Parallel()

	l := specdoc.NewLocator("tracks")
	for _, id := range []string{"", "   ", " 002", "../../etc", "a/b", "/abs", "x\x00y"} {
		if _, err := l.TrackDir(id); !errors.Is(err, specdoc.ErrInvalidSpecID) {
			t.Errorf("TrackDir(%q) error = %v, want ErrInvalidSpecID", id, err)
		}
	}
}

// ---------------------------------------------------------------------------
// ExtractTasks
// ---------------------------------------------------------------------------

func Test_Locator_ExtractTasks_Cases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		primary    *string
		fallback   *string
		wantFound  bool
		wantItems  []string
		wantSource string
	}{
		{
			name:      "primary missing",
			wantFound: false,
			wantItems: []string{},
		},
		{
			name:      "primary missing even with a fallback present",
			fallback:  ptr("- [ ] from plan"),
			wantFound: false,
			wantItems: []string{},
		},
		{
			name:       "primary has items",
			primary:    ptr("- [ ] Setup database\n- [ ] Write tests\n- [x] Done already"),
			fallback:   ptr("- [ ] ignored"),
			wantFound:  true,
			wantItems:  []string{"Setup database", "Write tests"},
			wantSource: "spec.md",
		},
		{
			name:       "primary empty falls back to plan",
			primary:    ptr("# Spec\n- [x] only checked"),
			fallback:   ptr("- [ ] Plan step one\n- [ ] Plan step two"),
			wantFound:  true,
			wantItems:  []string{"Plan step one", "Plan step two"},
			wantSource: "plan.md",
		},
		{
			name:       "primary empty and fallback missing",
			primary:    ptr("nothing here"),
			wantFound:  true,
			wantItems:  []string{},
			wantSource: "spec.md",
		},
		{
			name:       "both empty",
			primary:    ptr(""),
			fallback:   ptr("- [x] done"),
			wantFound:  true,
			wantItems:  []string{},
			wantSource: "spec.md",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tracksDir := filepath.Join(t.TempDir(), "tracks")
			if err := os.MkdirAll(filepath.Join(tracksDir, "track-7"), 0o755); err != nil {
				t.Fatalf("MkdirAll: %v", err)
			}
			if tt.primary != nil {
				writeTrackDoc(t, tracksDir, "7", "spec.md", *tt.primary)
			}
			if tt.fallback != nil {
				writeTrackDoc(t, tracksDir, "7", "plan.md", *tt.fallback)
			}

			got, err := specdoc.NewLocator(tracksDir).ExtractTasks("7")
			if err != nil {
				t.Fatalf("ExtractTasks() unexpected error: %v", err)
			}
			if got.Found != tt.wantFound {
				t.Errorf("Found = %v, want %v", got.Found, tt.wantFound)
			}
			if !reflect.DeepEqual(got.Items, tt.wantItems) {
				t.Errorf("Items = %q, want %q", got.Items, tt.wantItems)
			}
			if got.Empty() != (len(tt.wantItems) == 0) {
				t.Errorf("Empty() = %v with %d items", got.Empty(), len(got.Items))
			}
			if tt.wantSource != "" && filepath.Base(got.Source) != tt.wantSource {
				t.Errorf("Source = %q, want base %q", got.Source, tt.wantSource)
			}
		})
	}
}

func Test_Locator_ExtractTasks_MissingTracksDir(t *testing.T) {
	t.Parallel()

	got, err := specdoc.NewLocator(filepath.Join(t.TempDir(), "nope")).ExtractTasks("1")
	if err != nil {
		t.Fatalf("ExtractTasks() unexpected error: %v", err)
	}
	if got.Found {
		t.Error("Found = true for a missing tracks directory")
	}
}

func Test_Locator_ExtractTasks_UnreadablePrimaryIsError(t *testing.T) {
	t.Parallel()

	tracksDir := t.TempDir()
	// A directory named spec.md exists but cannot be read as a document.
	if err := os.MkdirAll(filepath.Join(tracksDir, "track-1", "spec.md"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	if _, err := specdoc.NewLocator(tracksDir).ExtractTasks("1"); err == nil {
		t.Error("ExtractTasks() with a directory as spec.md returned nil error")
	}
}

func Test_Locator_ExtractTasks_InvalidID(t *testing.T) {
	t.Parallel()

	if _, err := specdoc.NewLocator(t.TempDir()).ExtractTasks("../x"); !errors.Is(err, specdoc.ErrInvalidSpecID) {
		t.Errorf("ExtractTasks(../x) error = %v, want ErrInvalidSpecID", err)
	}
}

func ptr(s string) *string { return &s }
