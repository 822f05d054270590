package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/JamesPrial/conductor/internal/conductor"
	"github.com/JamesPrial/conductor/internal/ledger"
	"github.com/JamesPrial/conductor/internal/specdoc"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// resultText extracts the text content from the first Content element of a
// CallToolResult. It calls t.Fatal if the result is nil or has no content.
func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatal("result is nil")
	}
	if len(result.Content) == 0 {
		t.Fatal("result has no Content elements")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("result.Content[0] is %T, want mcp.TextContent", result.Content[0])
	}
	return tc.Text
}

// decodeResult unmarshals a successful result's JSON text into v.
func decodeResult(t *testing.T, result *mcp.CallToolResult, v any) {
	t.Helper()
	if result.IsError {
		t.Fatalf("result IsError = true, text = %q", resultText(t, result))
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), v); err != nil {
		t.Fatalf("result is not valid JSON: %v", err)
	}
}

func makeRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// fixture is a tracks directory plus an in-memory ledger.
type fixture struct {
	tracks string
	store  *ledger.MemoryStore
	h      *Handlers
}

func newFixture(t *testing.T, seed ...ledger.Task) *fixture {
	t.Helper()
	tracks := t.TempDir()
	store := ledger.NewMemoryStore(seed...)
	return &fixture{
		tracks: tracks,
		store:  store,
		h:      NewHandlers(conductor.New(store, specdoc.NewLocator(tracks))),
	}
}

func (f *fixture) writeSpec(t *testing.T, specID, content string) {
	t.Helper()
	dir := filepath.Join(f.tracks, "track-"+specID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, specdoc.PrimaryDocument), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

// ---------------------------------------------------------------------------
// HandleSyncTrack
// ---------------------------------------------------------------------------

func Test_HandleSyncTrack_AddsTasks(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.writeSpec(t, "002", "- [ ] Setup database\n- [ ] Write tests\n- [x] Done already")

	result, err := f.h.HandleSyncTrack(context.Background(), makeRequest("sync_track", map[string]any{"spec_id": "002"}))
	if err != nil {
		t.Fatalf("HandleSyncTrack() returned Go error: %v", err)
	}

	var got syncTrackResult
	decodeResult(t, result, &got)
	if !got.Found || !got.Synced {
		t.Errorf("found/synced = %v/%v, want true/true", got.Found, got.Synced)
	}
	if got.Candidates != 2 || len(got.Added) != 2 {
		t.Fatalf("candidates = %d, added = %d, want 2 and 2", got.Candidates, len(got.Added))
	}
	if got.Added[0].ID != "T-001" || got.Added[0].Agent != ledger.AgentArchitect {
		t.Errorf("Added[0] = %+v, want T-001 assigned to Architect", got.Added[0])
	}
	if f.store.Saves() != 1 {
		t.Errorf("store saves = %d, want 1", f.store.Saves())
	}
	if !strings.Contains(resultText(t, result), `"run_id": "`+got.RunID+`"`) || got.RunID == "" {
		t.Errorf("payload run_id = %q, want a non-empty run ID", got.RunID)
	}

	again, err := f.h.HandleSyncTrack(context.Background(), makeRequest("sync_track", map[string]any{"spec_id": "002"}))
	if err != nil {
		t.Fatalf("second HandleSyncTrack() returned Go error: %v", err)
	}
	var second syncTrackResult
	decodeResult(t, again, &second)
	if second.RunID == "" || second.RunID == got.RunID {
		t.Errorf("second run_id = %q, want a fresh ID distinct from %q", second.RunID, got.RunID)
	}
}

func Test_HandleSyncTrack_MissingDocument(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	result, err := f.h.HandleSyncTrack(context.Background(), makeRequest("sync_track", map[string]any{"spec_id": "999"}))
	if err != nil {
		t.Fatalf("HandleSyncTrack() returned Go error: %v", err)
	}

	var got syncTrackResult
	decodeResult(t, result, &got)
	if got.Found || got.Synced {
		t.Errorf("found/synced = %v/%v, want false/false", got.Found, got.Synced)
	}
	if got.Added == nil {
		t.Error("added must serialize as [] not null")
	}
	if f.store.Persisted() {
		t.Error("ledger was written for a missing document")
	}
}

func Test_HandleSyncTrack_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		args     map[string]any
		saveErr  error
		wantText string
	}{
		{name: "missing spec_id", args: map[string]any{}, wantText: "Missing required parameter: spec_id"},
		{name: "escaping spec_id", args: map[string]any{"spec_id": "../x"}, wantText: "invalid spec id"},
		{name: "save failure", args: map[string]any{"spec_id": "1"}, saveErr: errors.New("disk full"), wantText: "disk full"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			f.writeSpec(t, "1", "- [ ] Item")
			f.store.SaveErr = tt.saveErr

			result, err := f.h.HandleSyncTrack(context.Background(), makeRequest("sync_track", tt.args))
			if err != nil {
				t.Fatalf("HandleSyncTrack() returned Go error: %v", err)
			}
			if !result.IsError {
				t.Fatal("HandleSyncTrack() IsError = false, want true")
			}
			if text := resultText(t, result); !strings.Contains(text, tt.wantText) {
				t.Errorf("result text = %q, want it to contain %q", text, tt.wantText)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// HandleExtractTasks
// ---------------------------------------------------------------------------

func Test_HandleExtractTasks_PreviewOnly(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.writeSpec(t, "3", "- [ ] One\n- [x] Two\n- [ ] Three")

	result, err := f.h.HandleExtractTasks(context.Background(), makeRequest("extract_tasks", map[string]any{"spec_id": "3"}))
	if err != nil {
		t.Fatalf("HandleExtractTasks() returned Go error: %v", err)
	}

	var got extractTasksResult
	decodeResult(t, result, &got)
	if !got.Found || len(got.Items) != 2 || got.Items[0] != "One" || got.Items[1] != "Three" {
		t.Errorf("extract_tasks = %+v, want found with [One Three]", got)
	}
	if f.store.Persisted() {
		t.Error("extract_tasks wrote to the ledger")
	}
}

func Test_HandleExtractTasks_MissingDocument(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	result, err := f.h.HandleExtractTasks(context.Background(), makeRequest("extract_tasks", map[string]any{"spec_id": "404"}))
	if err != nil {
		t.Fatalf("HandleExtractTasks() returned Go error: %v", err)
	}
	if !strings.Contains(resultText(t, result), `"items": []`) {
		t.Errorf("result text = %q, want an empty items array", resultText(t, result))
	}
}

func Test_HandleExtractTasks_MissingParam(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	result, err := f.h.HandleExtractTasks(context.Background(), makeRequest("extract_tasks", map[string]any{}))
	if err != nil {
		t.Fatalf("HandleExtractTasks() returned Go error: %v", err)
	}
	if !result.IsError {
		t.Error("HandleExtractTasks() IsError = false, want true when spec_id is missing")
	}
}

// ---------------------------------------------------------------------------
// HandleListTasks
// ---------------------------------------------------------------------------

func Test_HandleListTasks_Filters(t *testing.T) {
	t.Parallel()

	seed := []ledger.Task{
		{ID: "T-001", Name: "a", Spec: "001", Status: ledger.StatusDone, Priority: ledger.PriorityHigh, Agent: ledger.AgentDeveloper},
		{ID: "T-002", Name: "b", Spec: "002", Status: ledger.StatusPending, Priority: ledger.PriorityMedium, Agent: ledger.AgentArchitect},
		{ID: "T-003", Name: "c", Spec: "002", Status: ledger.StatusDone, Priority: ledger.PriorityLow, Agent: ledger.AgentDeveloper},
	}

	tests := []struct {
		name    string
		args    map[string]any
		wantIDs []string
	}{
		{name: "no filter", args: map[string]any{}, wantIDs: []string{"T-001", "T-002", "T-003"}},
		{name: "by spec", args: map[string]any{"spec": "002"}, wantIDs: []string{"T-002", "T-003"}},
		{name: "by status", args: map[string]any{"status": "done"}, wantIDs: []string{"T-001", "T-003"}},
		{name: "by both", args: map[string]any{"spec": "002", "status": "done"}, wantIDs: []string{"T-003"}},
		{name: "no match", args: map[string]any{"spec": "999"}, wantIDs: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, seed...)
			result, err := f.h.HandleListTasks(context.Background(), makeRequest("list_tasks", tt.args))
			if err != nil {
				t.Fatalf("HandleListTasks() returned Go error: %v", err)
			}

			var got listTasksResult
			decodeResult(t, result, &got)
			if got.Count != len(tt.wantIDs) || len(got.Tasks) != len(tt.wantIDs) {
				t.Fatalf("count = %d, tasks = %d, want %d", got.Count, len(got.Tasks), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got.Tasks[i].ID != id {
					t.Errorf("Tasks[%d].ID = %q, want %q", i, got.Tasks[i].ID, id)
				}
			}
		})
	}
}

func Test_HandleListTasks_InvalidStatus(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	result, err := f.h.HandleListTasks(context.Background(), makeRequest("list_tasks", map[string]any{"status": "blocked"}))
	if err != nil {
		t.Fatalf("HandleListTasks() returned Go error: %v", err)
	}
	if !result.IsError {
		t.Error("HandleListTasks() IsError = false, want true for unknown status")
	}
}

func Test_HandleListTasks_LoadError(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.store.LoadErr = ledger.ErrStorageCorrupt

	result, err := f.h.HandleListTasks(context.Background(), makeRequest("list_tasks", map[string]any{}))
	if err != nil {
		t.Fatalf("HandleListTasks() returned Go error: %v", err)
	}
	if !result.IsError {
		t.Fatal("HandleListTasks() IsError = false, want true when the ledger cannot be read")
	}
	if text := resultText(t, result); !strings.Contains(text, "corrupt") {
		t.Errorf("result text = %q, want it to mention corruption", text)
	}
}
