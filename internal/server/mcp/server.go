package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/emmett/ferryvox/internal/routes"
	"github.com/emmett/ferryvox/internal/telemetry"
)

type Config struct {
	ServerName    string
	ServerVersion string
}

// RouteFinder answers a single directional lookup
type RouteFinder interface {
	Lookup(ctx context.Context, departure, arrival string) (*routes.Route, error)
}

// RouteLister returns every stored route
type RouteLister interface {
	List(ctx context.Context) ([]routes.Route, error)
}

// JobReader exposes the latest telemetry snapshot
type JobReader interface {
	Snapshot() telemetry.Snapshot
}

// Server exposes the ferry route table (and, when telemetry is wired,
// the current job) as MCP tools
type Server struct {
	config    Config
	mcpServer *sdk.Server
	finder    RouteFinder
	lister    RouteLister
	job       JobReader
}

// NewServer registers the tools. job may be nil.
func NewServer(cfg Config, finder RouteFinder, lister RouteLister, job JobReader) *Server {
	s := &Server{
		config: cfg,
		finder: finder,
		lister: lister,
		job:    job,
	}

	s.mcpServer = sdk.NewServer(&sdk.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}, nil)

	s.registerTools()

	return s
}

// Start serves over stdin/stdout until ctx is done or the client hangs up
func (s *Server) Start(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &sdk.StdioTransport{})
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "find_ferry",
		Description: "Find the ferry to take between two areas (direction matters)",
	}, s.handleFindFerry)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "list_routes",
		Description: "List every known ferry route",
	}, s.handleListRoutes)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "current_job",
		Description: "Report the delivery job the truck is currently on",
	}, s.handleCurrentJob)
}
