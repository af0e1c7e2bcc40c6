package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"

	"github.com/rivetlabs/rivet/internal/models"
)

// atomColumns are the API-level atom fields; embedding is deliberately
// excluded from every read path except the vector index itself.
const atomColumns = `id, type, manufacturer, model, equipment_type, title, content,
       source_url, confidence, human_verified, usage_count, created_at, last_verified`

// AtomSearchOptions configures a filtered nearest-neighbor query.
type AtomSearchOptions struct {
	Embedding     []float32
	Manufacturer  string
	EquipmentType string
	Types         []models.AtomType
	MinConfidence float64
	Limit         int
}

// CreateAtom validates and persists a new knowledge atom.
// Returns *models.ValidationError for malformed input; this is never masked.
func (c *Client) CreateAtom(ctx context.Context, in models.AtomInput) (*models.KnowledgeAtom, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if len(in.Embedding) != c.dimension {
		return nil, fmt.Errorf("create atom: %w: got %d, want %d", ErrDimensionMismatch, len(in.Embedding), c.dimension)
	}

	id := uuid.NewString()
	in.Confidence = models.RoundConfidence(in.Confidence)

	sql := `
		CREATE type::record("knowledge_atom", $id) SET
			type = $type,
			manufacturer = $manufacturer,
			model = $model,
			equipment_type = $equipment_type,
			title = $title,
			content = $content,
			source_url = $source_url,
			confidence = $confidence,
			human_verified = $human_verified,
			usage_count = 0,
			embedding = $embedding
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.KnowledgeAtom](ctx, c.db, sql, map[string]any{
		"id":             id,
		"type":           in.Type,
		"manufacturer":   in.Manufacturer,
		"model":          in.Model,
		"equipment_type": in.EquipmentType,
		"title":          in.Title,
		"content":        in.Content,
		"source_url":     in.SourceURL,
		"confidence":     in.Confidence,
		"human_verified": in.HumanVerified,
		"embedding":      in.Embedding,
	})
	if err != nil {
		return nil, fmt.Errorf("create atom: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create atom: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// GetAtom retrieves an atom by ID. Returns ErrNotFound if it does not exist.
func (c *Client) GetAtom(ctx context.Context, id string) (*models.KnowledgeAtom, error) {
	sql := fmt.Sprintf(`SELECT %s FROM type::record("knowledge_atom", $id)`, atomColumns)

	results, err := surrealdb.Query[[]models.KnowledgeAtom](ctx, c.db, sql, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get atom: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("get atom %s: %w", id, ErrNotFound)
	}
	return &(*results)[0].Result[0], nil
}

// UpdateAtom applies a partial-field update; nil fields are left unchanged.
// Setting HumanVerified to true also refreshes last_verified.
func (c *Client) UpdateAtom(ctx context.Context, id string, args models.UpdateAtomArgs) (*models.KnowledgeAtom, error) {
	sets := []string{}
	vars := map[string]any{"id": id}

	if args.Title != nil {
		if len(*args.Title) < 5 || len(*args.Title) > 500 {
			return nil, &models.ValidationError{Field: "title", Reason: "length must be 5-500 characters"}
		}
		sets = append(sets, "title = $title")
		vars["title"] = *args.Title
	}
	if args.Content != nil {
		if len(*args.Content) < 20 {
			return nil, &models.ValidationError{Field: "content", Reason: "length must be at least 20 characters"}
		}
		sets = append(sets, "content = $content")
		vars["content"] = *args.Content
	}
	if args.SourceURL != nil {
		sets = append(sets, "source_url = $source_url")
		vars["source_url"] = *args.SourceURL
	}
	if args.Confidence != nil {
		if *args.Confidence < 0 || *args.Confidence > 1 {
			return nil, &models.ValidationError{Field: "confidence", Reason: "must be in [0, 1]"}
		}
		sets = append(sets, "confidence = $confidence")
		vars["confidence"] = models.RoundConfidence(*args.Confidence)
	}
	if args.HumanVerified != nil {
		sets = append(sets, "human_verified = $human_verified")
		vars["human_verified"] = *args.HumanVerified
		if *args.HumanVerified {
			sets = append(sets, "last_verified = time::now()")
		}
	}
	if len(args.Embedding) > 0 {
		if len(args.Embedding) != c.dimension {
			return nil, fmt.Errorf("update atom: %w: got %d, want %d", ErrDimensionMismatch, len(args.Embedding), c.dimension)
		}
		sets = append(sets, "embedding = $embedding")
		vars["embedding"] = args.Embedding
	}

	if len(sets) == 0 {
		return c.GetAtom(ctx, id)
	}

	sql := fmt.Sprintf(`UPDATE type::record("knowledge_atom", $id) SET %s RETURN AFTER`, strings.Join(sets, ", "))

	results, err := surrealdb.Query[[]models.KnowledgeAtom](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("update atom: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("update atom %s: %w", id, ErrNotFound)
	}
	return &(*results)[0].Result[0], nil
}

// SearchAtoms performs a filtered nearest-neighbor query over the HNSW index,
// projecting cosine similarity as similarity_score. Results are ordered by
// descending similarity.
func (c *Client) SearchAtoms(ctx context.Context, opts AtomSearchOptions) ([]models.KnowledgeAtom, error) {
	if len(opts.Embedding) != c.dimension {
		return nil, fmt.Errorf("search atoms: %w: got %d, want %d", ErrDimensionMismatch, len(opts.Embedding), c.dimension)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 5
	}

	filterClause := ""
	vars := map[string]any{
		"emb":            opts.Embedding,
		"min_confidence": opts.MinConfidence,
		"limit":          limit,
	}
	if opts.Manufacturer != "" {
		filterClause += ` AND string::lowercase(manufacturer ?? "") = string::lowercase($manufacturer)`
		vars["manufacturer"] = opts.Manufacturer
	}
	if opts.EquipmentType != "" {
		filterClause += " AND equipment_type = $equipment_type"
		vars["equipment_type"] = opts.EquipmentType
	}
	if len(opts.Types) > 0 {
		filterClause += " AND type IN $types"
		vars["types"] = opts.Types
	}

	// KNN over 2x limit for variety before confidence filtering; ef=40 for
	// better recall. The KNN operand must be a literal, hence Sprintf.
	sql := fmt.Sprintf(`
		SELECT %s, vector::similarity::cosine(embedding, $emb) AS similarity_score
		FROM knowledge_atom
		WHERE embedding <|%d,40|> $emb
			AND confidence >= $min_confidence
			%s
		ORDER BY similarity_score DESC
		LIMIT $limit
	`, atomColumns, limit*2, filterClause)

	results, err := surrealdb.Query[[]models.KnowledgeAtom](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("search atoms: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.KnowledgeAtom{}, nil
	}
	return (*results)[0].Result, nil
}

// IncrementUsage bumps an atom's usage counter. Best-effort: lost increments
// under concurrent load are tolerated.
func (c *Client) IncrementUsage(ctx context.Context, id string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("knowledge_atom", $id) SET usage_count += 1
	`, map[string]any{"id": id})
	if err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	return nil
}

// ListAtomOptions filters atom listings.
type ListAtomOptions struct {
	Type         models.AtomType
	Manufacturer string
	Limit        int
}

// ListAtoms returns atoms ordered by creation time, newest first.
func (c *Client) ListAtoms(ctx context.Context, opts ListAtomOptions) ([]models.KnowledgeAtom, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	filterClauses := []string{}
	vars := map[string]any{"limit": limit}
	if opts.Type != "" {
		filterClauses = append(filterClauses, "type = $type")
		vars["type"] = opts.Type
	}
	if opts.Manufacturer != "" {
		filterClauses = append(filterClauses, `string::lowercase(manufacturer ?? "") = string::lowercase($manufacturer)`)
		vars["manufacturer"] = opts.Manufacturer
	}

	whereClause := ""
	if len(filterClauses) > 0 {
		whereClause = "WHERE " + strings.Join(filterClauses, " AND ")
	}

	sql := fmt.Sprintf(`
		SELECT %s FROM knowledge_atom %s
		ORDER BY created_at DESC
		LIMIT $limit
	`, atomColumns, whereClause)

	results, err := surrealdb.Query[[]models.KnowledgeAtom](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("list atoms: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.KnowledgeAtom{}, nil
	}
	return (*results)[0].Result, nil
}

// DeleteAtom removes an atom. Returns false if it did not exist.
func (c *Client) DeleteAtom(ctx context.Context, id string) (bool, error) {
	results, err := surrealdb.Query[[]models.KnowledgeAtom](ctx, c.db, `
		DELETE type::record("knowledge_atom", $id) RETURN BEFORE
	`, map[string]any{"id": id})
	if err != nil {
		return false, fmt.Errorf("delete atom: %w", err)
	}
	return results != nil && len(*results) > 0 && len((*results)[0].Result) > 0, nil
}
