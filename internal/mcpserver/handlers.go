package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/JamesPrial/conductor/internal/conductor"
	"github.com/JamesPrial/conductor/internal/ledger"
)

// Handlers implements the tool callbacks. Sync passes are serialized because
// the ledger has no cross-writer locking.
type Handlers struct {
	mu   sync.Mutex
	sync *conductor.Synchronizer
}

// NewHandlers returns handlers backed by s.
func NewHandlers(s *conductor.Synchronizer) *Handlers {
	return &Handlers{sync: s}
}

type syncTrackResult struct {
	SpecID     string        `json:"spec_id"`
	RunID      string        `json:"run_id"`
	Found      bool          `json:"found"`
	Synced     bool          `json:"synced"`
	Source     string        `json:"source,omitempty"`
	Candidates int           `json:"candidates"`
	Skipped    int           `json:"skipped"`
	Added      []ledger.Task `json:"added"`
}

type extractTasksResult struct {
	SpecID string   `json:"spec_id"`
	Found  bool     `json:"found"`
	Source string   `json:"source,omitempty"`
	Items  []string `json:"items"`
}

type listTasksResult struct {
	Count int           `json:"count"`
	Tasks []ledger.Task `json:"tasks"`
}

// HandleSyncTrack runs one sync pass for spec_id.
// A track without a spec.md is reported with found=false, not as an error.
func (h *Handlers) HandleSyncTrack(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	specID, err := request.RequireString("spec_id")
	if err != nil {
		return mcp.NewToolResultError("Missing required parameter: spec_id"), nil
	}

	h.mu.Lock()
	res, err := h.sync.Sync(specID)
	h.mu.Unlock()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Sync failed: %v", err)), nil
	}

	return jsonResult(syncTrackResult{
		SpecID:     specID,
		RunID:      res.RunID,
		Found:      res.Found,
		Synced:     res.Synced(),
		Source:     res.Source,
		Candidates: res.Candidates,
		Skipped:    res.Skipped,
		Added:      res.Added,
	})
}

// HandleExtractTasks returns the unchecked items of spec_id without
// touching the ledger.
func (h *Handlers) HandleExtractTasks(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	specID, err := request.RequireString("spec_id")
	if err != nil {
		return mcp.NewToolResultError("Missing required parameter: spec_id"), nil
	}

	ext, err := h.sync.ExtractTasks(specID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Extraction failed: %v", err)), nil
	}

	items := ext.Items
	if items == nil {
		items = make([]string, 0)
	}
	return jsonResult(extractTasksResult{
		SpecID: specID,
		Found:  ext.Found,
		Source: ext.Source,
		Items:  items,
	})
}

// HandleListTasks returns ledger records, optionally filtered by spec and
// status.
func (h *Handlers) HandleListTasks(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := ledger.Query{
		Spec:   strings.TrimSpace(request.GetString("spec", "")),
		Status: ledger.Status(strings.TrimSpace(request.GetString("status", ""))),
	}
	switch q.Status {
	case "", ledger.StatusPending, ledger.StatusInProgress, ledger.StatusDone:
	default:
		return mcp.NewToolResultError(fmt.Sprintf("Invalid status %q. Expected pending, in_progress or done", q.Status)), nil
	}

	tasks, err := ledger.Filter(h.sync.Store(), q)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to read ledger: %v", err)), nil
	}

	return jsonResult(listTasksResult{Count: len(tasks), Tasks: tasks})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
