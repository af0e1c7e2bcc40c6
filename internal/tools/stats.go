package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// StatsInput defines the (empty) input schema for the stats tool.
type StatsInput struct{}

// NewStatsHandler creates the stats tool handler, exposing the in-memory
// metrics snapshot: per-operation timings, token totals, cost, and route
// counts.
func NewStatsHandler(deps *Dependencies) mcp.ToolHandlerFor[StatsInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatsInput) (*mcp.CallToolResult, any, error) {
		return JSONResult(deps.Metrics.Snapshot()), nil, nil
	}
}
