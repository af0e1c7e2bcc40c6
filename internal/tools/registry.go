package tools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterAll registers all tools with the MCP server.
// This is called from main after server creation but before Run().
func RegisterAll(server *mcp.Server, deps *Dependencies) {
	// Ping tool - test/placeholder
	mcp.AddTool(server, &mcp.Tool{
		Name:        "ping",
		Description: "Test tool - responds with pong or echoes input",
	}, NewPingHandler(deps))

	// The orchestrated entry point
	mcp.AddTool(server, &mcp.Tool{
		Name:        "troubleshoot",
		Description: "Answer an industrial equipment problem via curated knowledge, vendor experts, or general guidance",
	}, NewTroubleshootHandler(deps))

	// Curation tools
	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_atoms",
		Description: "Vector-search curated knowledge atoms with manufacturer/type filters",
	}, NewSearchAtomsHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_atom",
		Description: "Add a curated knowledge atom; the embedding is generated automatically",
	}, NewAddAtomHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_gaps",
		Description: "List knowledge gaps (the research queue), highest priority first",
	}, NewListGapsHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "resolve_gap",
		Description: "Resolve a knowledge gap by linking or creating the atom that answers it",
	}, NewResolveGapHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "stats",
		Description: "Runtime statistics: operation timings, token usage, cost, route counts",
	}, NewStatsHandler(deps))
}
