// Package pathutil keeps user-supplied paths inside the project directory.
//
// Ledger locations and the tracks directory come from configuration files and
// environment variables, and specification IDs come straight from the command
// line. Both are resolved here so that neither can point the synchronizer at
// files outside the project it was invoked for.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrEscapesBase is returned when a path resolves outside its base directory.
var ErrEscapesBase = errors.New("path escapes base directory")

// ResolveSafePath resolves userPath relative to baseDir and verifies that the
// result, after symlink resolution, is still inside baseDir.
//
// Relative paths are joined with baseDir; absolute paths are accepted only if
// they already point inside it. The target itself does not need to exist: the
// nearest existing ancestor is resolved and the missing tail re-attached, so a
// ledger file that will be created on first save can be validated up front.
//
// Returns an error if userPath is blank, contains a null byte, or escapes
// baseDir (the latter wraps ErrEscapesBase).
//
// Example:
//
//	ledgerPath, err := ResolveSafePath("/home/user/project", "state/tasks.json")
func ResolveSafePath(baseDir, userPath string) (string, error) {
	if strings.TrimSpace(userPath) == "" {
		return "", fmt.Errorf("path is empty or whitespace-only")
	}
	if strings.Contains(userPath, "\x00") {
		return "", fmt.Errorf("path contains null byte")
	}

	candidate := userPath
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(baseDir, candidate)
	}
	candidate = filepath.Clean(candidate)

	resolved, err := resolveExistingParent(candidate)
	if err != nil {
		return "", err
	}

	baseResolved, err := filepath.EvalSymlinks(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory: %w", err)
	}

	if !within(baseResolved, resolved) {
		return "", fmt.Errorf("%w: %s", ErrEscapesBase, userPath)
	}

	return resolved, nil
}

// JoinWithin joins elem onto baseDir and reports an error if the cleaned
// result leaves baseDir. Unlike ResolveSafePath it is purely lexical, which
// suits paths built from identifiers (a track ID such as "../../etc") before
// anything on disk is consulted.
func JoinWithin(baseDir string, elem ...string) (string, error) {
	for _, e := range elem {
		if strings.Contains(e, "\x00") {
			return "", fmt.Errorf("path contains null byte")
		}
	}

	base := filepath.Clean(baseDir)
	joined := filepath.Join(append([]string{base}, elem...)...)
	if !within(base, joined) || joined == base {
		return "", fmt.Errorf("%w: %s", ErrEscapesBase, filepath.Join(elem...))
	}
	return joined, nil
}

// within reports whether target is base or lies below it.
func within(base, target string) bool {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// resolveExistingParent evaluates symlinks on the deepest existing ancestor of
// path and re-appends the components that do not exist yet.
func resolveExistingParent(path string) (string, error) {
	current := path
	var missing []string

	for {
		if _, err := os.Lstat(current); err == nil {
			resolved, err := filepath.EvalSymlinks(current)
			if err != nil {
				return "", fmt.Errorf("failed to resolve symlinks: %w", err)
			}
			for i := len(missing) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, missing[i])
			}
			return resolved, nil
		} else if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to stat %s: %w", current, err)
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("no existing parent directory found")
		}
		missing = append(missing, filepath.Base(current))
		current = parent
	}
}
