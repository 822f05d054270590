// Package mcpserver exposes the task ledger and track synchronization as MCP
// tools.
package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/JamesPrial/conductor/internal/ledger"
)

// syncTrackTool returns a tool definition for merging a track into the ledger.
func syncTrackTool() mcp.Tool {
	return mcp.NewTool("sync_track",
		mcp.WithDescription("Read the unchecked checklist items of tracks/track-<spec_id>/spec.md (or plan.md when spec.md has none) and append every item not already in the task ledger. Returns the records that were added."),
		mcp.WithString("spec_id",
			mcp.Required(),
			mcp.Description("Specification identifier, e.g. \"002\" for tracks/track-002")),
	)
}

// extractTasksTool returns a tool definition for previewing a track's items.
func extractTasksTool() mcp.Tool {
	return mcp.NewTool("extract_tasks",
		mcp.WithDescription("List the unchecked checklist items a sync of this track would consider, without modifying the ledger."),
		mcp.WithString("spec_id",
			mcp.Required(),
			mcp.Description("Specification identifier, e.g. \"002\" for tracks/track-002")),
	)
}

// listTasksTool returns a tool definition for reading the ledger.
func listTasksTool() mcp.Tool {
	return mcp.NewTool("list_tasks",
		mcp.WithDescription("List task ledger records in ledger order. Optionally filter by originating spec and by status."),
		mcp.WithString("spec",
			mcp.Description("Only return tasks created from this specification")),
		mcp.WithString("status",
			mcp.Description("Only return tasks in this status"),
			mcp.Enum(string(ledger.StatusPending), string(ledger.StatusInProgress), string(ledger.StatusDone))),
	)
}
