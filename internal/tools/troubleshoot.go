package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rivetlabs/rivet/internal/models"
)

// TroubleshootInput defines the input schema for the troubleshoot tool.
type TroubleshootInput struct {
	Query        string `json:"query" jsonschema:"required,The equipment problem description"`
	Manufacturer string `json:"manufacturer,omitempty" jsonschema:"Equipment manufacturer if known"`
	ModelNumber  string `json:"model_number,omitempty" jsonschema:"Equipment model number if known"`
	FaultCode    string `json:"fault_code,omitempty" jsonschema:"Fault or error code shown on the equipment"`
}

// NewTroubleshootHandler creates the troubleshoot tool handler, the MCP entry
// point into the four-route orchestrator.
func NewTroubleshootHandler(deps *Dependencies) mcp.ToolHandlerFor[TroubleshootInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input TroubleshootInput) (*mcp.CallToolResult, any, error) {
		if input.Query == "" {
			return ErrorResult("Query cannot be empty", "Describe the equipment problem"), nil, nil
		}

		result := deps.Orchestrator.Troubleshoot(ctx, input.Query, models.EquipmentContext{
			Manufacturer: input.Manufacturer,
			ModelNumber:  input.ModelNumber,
			FaultCode:    input.FaultCode,
		})

		queryLog := input.Query
		if len(queryLog) > 30 {
			queryLog = queryLog[:30] + "..."
		}
		deps.Logger.Info("troubleshoot completed",
			"query", queryLog,
			"route", string(result.Route),
			"confidence", result.Confidence)

		return JSONResult(result), nil, nil
	}
}
