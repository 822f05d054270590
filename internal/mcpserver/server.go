package mcpserver

import (
	"errors"

	"github.com/mark3labs/mcp-go/server"

	"github.com/JamesPrial/conductor/internal/conductor"
)

// NewServer creates and configures a new MCP server with the ledger tools
// registered. All tools share sync and its store.
func NewServer(sync *conductor.Synchronizer) (*server.MCPServer, error) {
	if sync == nil {
		return nil, errors.New("mcpserver: synchronizer is required")
	}
	h := NewHandlers(sync)

	s := server.NewMCPServer(
		"conductor",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.AddTool(syncTrackTool(), h.HandleSyncTrack)
	s.AddTool(extractTasksTool(), h.HandleExtractTasks)
	s.AddTool(listTasksTool(), h.HandleListTasks)

	return s, nil
}
