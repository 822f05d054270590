package main

import (
	"fmt"
	"io"
	"time"

	"github.com/JamesPrial/conductor/internal/conductor"
)

// pause paces the narration. Tests replace it.
var pause = time.Sleep

// narrator prints the human-facing progress lines.
type narrator struct {
	w io.Writer
}

func (n *narrator) printf(format string, a ...any) {
	_, _ = fmt.Fprintf(n.w, format, a...)
}

func (n *narrator) review(specID string) {
	n.printf("\n[conductor] Generating review report for spec %s...\n", specID)
	pause(time.Second)
	n.printf("Everything conforms to the TDD guidelines.\n")
}

func (n *narrator) merge(specID string) {
	n.printf("\n[conductor] Merging changes for spec %s...\n", specID)
	pause(time.Second)
	n.printf("Merge completed successfully.\n")
}

func (n *narrator) activate(specID string) {
	n.printf("\n[conductor] Activating conductor engine for spec %s...\n", specID)
}

func (n *narrator) syncing(specID string) {
	n.printf("Synchronizing specifications for track %s...\n", specID)
}

func (n *narrator) synced(specID string, res conductor.Result) {
	n.printf("[SUCCESS] Tasks for track %s synchronized (%d added, %d already present).\n",
		specID, len(res.Added), res.Skipped)
	for _, t := range res.Added {
		n.printf("  + %s %s (%s)\n", t.ID, t.Name, t.Agent)
	}
}

func (n *narrator) nothingNew(specID string) {
	n.printf("Warning: no new tasks processed for track %s.\n", specID)
}

func (n *narrator) failed(err error) {
	n.printf("Conductor error: %v\n", err)
}

func (n *narrator) watching(specID string) {
	n.printf("Watching track %s for changes. Press Ctrl+C to stop.\n", specID)
}

func (n *narrator) build(specID string) {
	n.printf("\n[conductor] Starting autonomous agent for spec %s\n", specID)
	n.printf("Running tasks...\n")
	pause(2 * time.Second)
	n.printf("Task 1: Setup - done\n")
	n.printf("Task 2: Implementation - done\n")
	n.printf("Task 3: Tests - passed\n")
	n.printf("\nBuild finished. Run with --review to validate.\n")
}
