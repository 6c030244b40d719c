package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"

	"github.com/emmett/ferryvox/internal/config"
	"github.com/emmett/ferryvox/internal/routes"
	"github.com/emmett/ferryvox/internal/server/mcp"
	"github.com/emmett/ferryvox/internal/telemetry"
)

// MCPHandler serves the route table over MCP on stdio
type MCPHandler struct {
	cfg     *config.Config
	version string
	stderr  io.Writer
}

// NewMCPHandler creates a new MCP handler. Status goes to stderr because
// stdout carries the protocol.
func NewMCPHandler(cfg *config.Config, version string) *MCPHandler {
	return &MCPHandler{cfg: cfg, version: version, stderr: os.Stderr}
}

// ClientConfig returns the JSON snippet an MCP client needs to launch us
func (h *MCPHandler) ClientConfig(execPath string) ([]byte, error) {
	type serverConfig struct {
		Command string   `json:"command"`
		Args    []string `json:"args"`
	}
	type clientConfig struct {
		MCPServers map[string]serverConfig `json:"mcpServers"`
	}

	return json.MarshalIndent(clientConfig{
		MCPServers: map[string]serverConfig{
			"ferryvox": {
				Command: execPath,
				Args:    []string{"mcp", "--db", h.cfg.Routes.Database},
			},
		},
	}, "", "  ")
}

// Run blocks until ctx is cancelled or the client disconnects
func (h *MCPHandler) Run(ctx context.Context) (err error) {
	store, err := routes.OpenSQLite(h.cfg.Routes.Database)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, store.Close()) }()

	if err := store.Migrate(ctx); err != nil {
		return err
	}

	var job mcp.JobReader
	if h.cfg.Telemetry.URL != "" {
		monitor := telemetry.NewMonitor()
		feedCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = monitor.Feed(feedCtx, telemetry.NewWebSocketSource(h.cfg.Telemetry.URL))
		}()
		defer func() {
			cancel()
			<-done
		}()
		job = monitor
	}

	if execPath, err := os.Executable(); err == nil {
		if snippet, err := h.ClientConfig(execPath); err == nil {
			fmt.Fprintf(h.stderr, "MCP Client Configuration:\n%s\n\n", snippet)
		}
	}

	server := mcp.NewServer(mcp.Config{
		ServerName:    "ferryvox-mcp",
		ServerVersion: h.version,
	}, routes.NewResolver(store), store, job)

	fmt.Fprintf(h.stderr, "MCP server ready. Listening on stdin/stdout...\n")
	if err := server.Start(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
