package mcp

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

type FindFerryArgs struct {
	Departure string `json:"departure" jsonschema:"area the job starts in, e.g. Calais"`
	Arrival   string `json:"arrival" jsonschema:"area the job ends in, e.g. London"`
}

type ListRoutesArgs struct{}

type CurrentJobArgs struct{}

func text(s string) *sdk.CallToolResult {
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: s}},
	}
}

func (s *Server) handleFindFerry(ctx context.Context, req *sdk.CallToolRequest, args FindFerryArgs) (*sdk.CallToolResult, any, error) {
	dep := strings.TrimSpace(args.Departure)
	arr := strings.TrimSpace(args.Arrival)
	if dep == "" || arr == "" {
		return nil, nil, fmt.Errorf("departure and arrival are required")
	}

	route, err := s.finder.Lookup(ctx, dep, arr)
	if err != nil {
		return nil, nil, fmt.Errorf("route lookup failed: %w", err)
	}
	if route == nil {
		return text(fmt.Sprintf("No ferry route from %s to %s.", dep, arr)), nil, nil
	}

	return text(fmt.Sprintf("Board at %s, land at %s.", route.BoardingPort, route.LandingPort)), nil, nil
}

func (s *Server) handleListRoutes(ctx context.Context, req *sdk.CallToolRequest, args ListRoutesArgs) (*sdk.CallToolResult, any, error) {
	all, err := s.lister.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list routes: %w", err)
	}

	content := []sdk.Content{
		&sdk.TextContent{Text: fmt.Sprintf("Ferry routes (%d):", len(all))},
	}
	for _, r := range all {
		content = append(content, &sdk.TextContent{
			Text: fmt.Sprintf("- %s -> %s: %s to %s", r.DepartureArea, r.ArrivalArea, r.BoardingPort, r.LandingPort),
		})
	}

	return &sdk.CallToolResult{Content: content}, nil, nil
}

func (s *Server) handleCurrentJob(ctx context.Context, req *sdk.CallToolRequest, args CurrentJobArgs) (*sdk.CallToolResult, any, error) {
	if s.job == nil {
		return text("Telemetry is not configured."), nil, nil
	}

	snap := s.job.Snapshot()
	switch {
	case !snap.TelemetryReceived:
		return text("No telemetry received yet."), nil, nil
	case !snap.JobActive:
		return text("No active job."), nil, nil
	}
	return text(fmt.Sprintf("Delivering from %s to %s.", snap.CitySource, snap.CityDestination)), nil, nil
}
