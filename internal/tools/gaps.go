package tools

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rivetlabs/rivet/internal/db"
	"github.com/rivetlabs/rivet/internal/models"
)

// ListGapsInput defines the input schema for the list_gaps tool.
type ListGapsInput struct {
	Status string `json:"status,omitempty" jsonschema:"Filter by research status: pending, in_progress, completed, failed. Default pending"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Max results 1-100, default 20"`
}

type listGapsResult struct {
	Gaps  []models.KnowledgeGap `json:"gaps"`
	Count int                   `json:"count"`
}

// NewListGapsHandler creates the list_gaps tool handler: the research queue,
// highest priority first.
func NewListGapsHandler(deps *Dependencies) mcp.ToolHandlerFor[ListGapsInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListGapsInput) (*mcp.CallToolResult, any, error) {
		status := models.ResearchStatus(input.Status)
		if status == "" {
			status = models.GapPending
		}
		switch status {
		case models.GapPending, models.GapInProgress, models.GapCompleted, models.GapFailed:
		default:
			return ErrorResult("Unknown status: "+input.Status, "Use pending, in_progress, completed, or failed"), nil, nil
		}

		limit := input.Limit
		if limit <= 0 {
			limit = 20
		}
		if limit > 100 {
			return ErrorResult("Limit must be 1-100", "Reduce limit value"), nil, nil
		}

		gaps, err := deps.DB.ListGaps(ctx, db.ListGapOptions{Status: status, Limit: limit})
		if err != nil {
			deps.Logger.Error("list gaps failed", "error", err)
			return ErrorResult("Failed to list gaps", "Database may be unavailable"), nil, nil
		}

		return JSONResult(listGapsResult{Gaps: gaps, Count: len(gaps)}), nil, nil
	}
}

// ResolveGapInput defines the input schema for the resolve_gap tool.
type ResolveGapInput struct {
	GapID string `json:"gap_id" jsonschema:"required,The gap record ID to resolve"`

	// Either link an existing atom or create a new one inline.
	AtomID string        `json:"atom_id,omitempty" jsonschema:"Existing atom that answers this gap"`
	Atom   *AddAtomInput `json:"atom,omitempty" jsonschema:"New atom to create and link"`

	// Failed marks the gap as researched-without-result instead.
	Failed bool `json:"failed,omitempty" jsonschema:"Mark the gap as failed (research yielded nothing useful)"`
}

// NewResolveGapHandler creates the resolve_gap tool handler, closing the
// self-improvement loop: a researched gap becomes a curated atom.
func NewResolveGapHandler(deps *Dependencies) mcp.ToolHandlerFor[ResolveGapInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ResolveGapInput) (*mcp.CallToolResult, any, error) {
		if input.GapID == "" {
			return ErrorResult("gap_id is required", "Use list_gaps to find gap IDs"), nil, nil
		}

		if input.Failed {
			gap, err := deps.DB.MarkGapFailed(ctx, input.GapID)
			if err != nil {
				return gapWriteError(deps, "mark gap failed", err), nil, nil
			}
			return JSONResult(gap), nil, nil
		}

		atomID := input.AtomID
		if atomID == "" {
			if input.Atom == nil {
				return ErrorResult("Provide atom_id or an inline atom", "Link an existing atom or create one"), nil, nil
			}
			confidence := input.Atom.Confidence
			if confidence == 0 {
				confidence = 0.5
			}
			in := models.AtomInput{
				Type:          models.AtomType(input.Atom.Type),
				Title:         input.Atom.Title,
				Content:       input.Atom.Content,
				Confidence:    confidence,
				HumanVerified: input.Atom.HumanVerified,
			}
			if input.Atom.Manufacturer != "" {
				in.Manufacturer = &input.Atom.Manufacturer
			}
			if input.Atom.Model != "" {
				in.Model = &input.Atom.Model
			}
			if input.Atom.EquipmentType != "" {
				in.EquipmentType = &input.Atom.EquipmentType
			}
			if input.Atom.SourceURL != "" {
				in.SourceURL = &input.Atom.SourceURL
			}
			atom, err := deps.Knowledge.Ingest(ctx, in)
			if err != nil {
				var verr *models.ValidationError
				if errors.As(err, &verr) {
					return ErrorResult("Invalid atom: "+verr.Error(), "Fix the field and retry"), nil, nil
				}
				return gapWriteError(deps, "create resolving atom", err), nil, nil
			}
			atomID = models.MustRecordIDString(atom.ID)
		}

		gap, err := deps.DB.MarkGapResolved(ctx, input.GapID, atomID)
		if err != nil {
			return gapWriteError(deps, "resolve gap", err), nil, nil
		}

		deps.Logger.Info("gap resolved", "gap", input.GapID, "atom", atomID)
		return JSONResult(gap), nil, nil
	}
}

func gapWriteError(deps *Dependencies, op string, err error) *mcp.CallToolResult {
	if errors.Is(err, db.ErrNotFound) {
		return ErrorResult("Gap not found", "Use list_gaps to find valid gap IDs")
	}
	deps.Logger.Error(op+" failed", "error", err)
	return ErrorResult("Failed to "+op, "Database may be unavailable")
}
