// Package main implements the conductor MCP server.
//
// This server exposes track synchronization and the task ledger as tools
// (sync_track, extract_tasks, list_tasks). Communicates via stdio JSON-RPC
// (Model Context Protocol). Configuration is resolved the same way as for
// the conductor command, from CONDUCTOR_PROJECT_DIR or the working directory.
package main

import (
	"log"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/JamesPrial/conductor/internal/conductor"
	"github.com/JamesPrial/conductor/internal/config"
	"github.com/JamesPrial/conductor/internal/mcpserver"
)

func run() int {
	errLogger := log.New(os.Stderr, "[conductor-mcp] ", log.LstdFlags)

	projectDir, err := config.ResolveProjectDir("")
	if err != nil {
		errLogger.Printf("Failed to resolve project directory: %v", err)
		return 1
	}
	cfg, err := config.Load(projectDir)
	if err != nil {
		errLogger.Printf("Failed to load configuration: %v", err)
		return 1
	}
	store, err := cfg.OpenStore()
	if err != nil {
		errLogger.Printf("Failed to open ledger: %v", err)
		return 1
	}

	srv, err := mcpserver.NewServer(conductor.New(store, cfg.Locator()))
	if err != nil {
		errLogger.Printf("Failed to create MCP server: %v", err)
		return 1
	}

	if err := server.ServeStdio(srv, server.WithErrorLogger(errLogger)); err != nil {
		errLogger.Printf("Server error: %v", err)
		return 1
	}

	return 0
}

func main() {
	os.Exit(run())
}
