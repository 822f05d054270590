// Package main implements the conductor command.
//
// conductor reads the unchecked checklist items of tracks/track-<ID>/spec.md
// (falling back to plan.md), appends the new ones to the project's task
// ledger and prints progress narration for the agent workflow.
//
// Exit codes:
//   - 0: Sync ran (records added or all already present), or review/merge done
//   - 1: Fault (corrupt ledger, I/O failure, invalid configuration)
//   - 2: Usage error (missing --spec, conflicting flags)
//   - 3: Nothing to sync (no spec.md, or no unchecked items)
//
// Environment variables:
//   - CONDUCTOR_PROJECT_DIR: Optional. Project root when --root is not given.
//   - CONDUCTOR_TRACKS_DIR: Optional. Tracks directory, relative to the project.
//   - CONDUCTOR_STORAGE_BACKEND: Optional. "json" (default), "sqlite" or "postgres".
//   - CONDUCTOR_LEDGER_PATH: Optional. Custom path for the JSON ledger.
//   - CONDUCTOR_SQLITE_PATH: Optional. Custom path for the SQLite database.
//   - CONDUCTOR_DATABASE_URL: Required for the postgres backend.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
