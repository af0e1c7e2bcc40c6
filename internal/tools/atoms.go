package tools

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rivetlabs/rivet/internal/db"
	"github.com/rivetlabs/rivet/internal/models"
)

// SearchAtomsInput defines the input schema for the search_atoms tool.
type SearchAtomsInput struct {
	Query         string   `json:"query" jsonschema:"required,The search query text"`
	Manufacturer  string   `json:"manufacturer,omitempty" jsonschema:"Filter by manufacturer (case-insensitive)"`
	EquipmentType string   `json:"equipment_type,omitempty" jsonschema:"Filter by equipment type"`
	Types         []string `json:"types,omitempty" jsonschema:"Filter by atom types (fault, procedure, spec, part, tip, safety)"`
	MinConfidence float64  `json:"min_confidence,omitempty" jsonschema:"Minimum author-asserted confidence 0-1"`
	Limit         int      `json:"limit,omitempty" jsonschema:"Max results 1-50, default 5"`
}

// searchAtomsResult is the JSON envelope returned to the caller.
type searchAtomsResult struct {
	Atoms []models.KnowledgeAtom `json:"atoms"`
	Count int                    `json:"count"`
}

// NewSearchAtomsHandler creates the search_atoms tool handler: raw vector
// search without routing or boosts, for curation workflows.
func NewSearchAtomsHandler(deps *Dependencies) mcp.ToolHandlerFor[SearchAtomsInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchAtomsInput) (*mcp.CallToolResult, any, error) {
		if input.Query == "" {
			return ErrorResult("Query cannot be empty", "Provide a search query"), nil, nil
		}

		limit := input.Limit
		if limit <= 0 {
			limit = 5
		}
		if limit > 50 {
			return ErrorResult("Limit must be 1-50", "Reduce limit value"), nil, nil
		}

		var types []models.AtomType
		for _, t := range input.Types {
			atomType := models.AtomType(t)
			if !atomType.IsValid() {
				return ErrorResult("Unknown atom type: "+t, "Use fault, procedure, spec, part, tip, or safety"), nil, nil
			}
			types = append(types, atomType)
		}

		embedding, err := deps.Knowledge.Embed(ctx, input.Query)
		if err != nil {
			deps.Logger.Error("embedding failed", "error", err)
			return ErrorResult("Failed to generate query embedding", "Check embedding provider configuration"), nil, nil
		}

		atoms, err := deps.DB.SearchAtoms(ctx, db.AtomSearchOptions{
			Embedding:     embedding,
			Manufacturer:  input.Manufacturer,
			EquipmentType: input.EquipmentType,
			Types:         types,
			MinConfidence: input.MinConfidence,
			Limit:         limit,
		})
		if err != nil {
			deps.Logger.Error("search failed", "error", err)
			return ErrorResult("Search failed", "Database may be unavailable"), nil, nil
		}

		return JSONResult(searchAtomsResult{Atoms: atoms, Count: len(atoms)}), nil, nil
	}
}

// AddAtomInput defines the input schema for the add_atom tool.
type AddAtomInput struct {
	Type          string  `json:"type" jsonschema:"required,Atom type: fault, procedure, spec, part, tip, or safety"`
	Title         string  `json:"title" jsonschema:"required,Short title, 5-500 characters"`
	Content       string  `json:"content" jsonschema:"required,Long-form content, at least 20 characters"`
	Manufacturer  string  `json:"manufacturer,omitempty" jsonschema:"Equipment manufacturer"`
	Model         string  `json:"model,omitempty" jsonschema:"Equipment model"`
	EquipmentType string  `json:"equipment_type,omitempty" jsonschema:"Equipment category (plc, vfd, robot, ...)"`
	SourceURL     string  `json:"source_url,omitempty" jsonschema:"Where this knowledge came from"`
	Confidence    float64 `json:"confidence,omitempty" jsonschema:"Author-asserted quality 0-1, default 0.5"`
	HumanVerified bool    `json:"human_verified,omitempty" jsonschema:"Whether a human verified this content"`
}

// NewAddAtomHandler creates the add_atom tool handler. The embedding is
// generated server-side from title and content.
func NewAddAtomHandler(deps *Dependencies) mcp.ToolHandlerFor[AddAtomInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AddAtomInput) (*mcp.CallToolResult, any, error) {
		confidence := input.Confidence
		if confidence == 0 {
			confidence = 0.5
		}

		in := models.AtomInput{
			Type:          models.AtomType(input.Type),
			Title:         input.Title,
			Content:       input.Content,
			Confidence:    confidence,
			HumanVerified: input.HumanVerified,
		}
		if input.Manufacturer != "" {
			in.Manufacturer = &input.Manufacturer
		}
		if input.Model != "" {
			in.Model = &input.Model
		}
		if input.EquipmentType != "" {
			in.EquipmentType = &input.EquipmentType
		}
		if input.SourceURL != "" {
			in.SourceURL = &input.SourceURL
		}

		atom, err := deps.Knowledge.Ingest(ctx, in)
		if err != nil {
			var verr *models.ValidationError
			if errors.As(err, &verr) {
				return ErrorResult("Invalid atom: "+verr.Error(), "Fix the field and retry"), nil, nil
			}
			deps.Logger.Error("atom ingest failed", "error", err)
			return ErrorResult("Failed to store atom", "Database or embedding provider may be unavailable"), nil, nil
		}

		deps.Logger.Info("atom added", "atom", models.MustRecordIDString(atom.ID), "type", string(atom.Type))
		return JSONResult(atom), nil, nil
	}
}
