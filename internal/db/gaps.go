package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"

	"github.com/rivetlabs/rivet/internal/models"
)

// CreateOrIncrementGap records a low-confidence query as a research gap. If a
// pending gap already exists for the same (query, manufacturer, model) triple
// it is incremented in place; otherwise a new pending row is created. The
// schema's unique dedup index guarantees at most one pending row per triple
// even under concurrent writers.
func (c *Client) CreateOrIncrementGap(ctx context.Context, query string, equipment models.EquipmentContext, confidence float64) (*models.KnowledgeGap, error) {
	confidence = models.RoundConfidence(confidence)

	gap, err := c.incrementPendingGap(ctx, query, equipment, confidence)
	if err != nil {
		return nil, err
	}
	if gap != nil {
		return gap, nil
	}

	gap, err = c.createGap(ctx, query, equipment, confidence)
	if errors.Is(err, ErrDuplicateGap) {
		// Lost a create race; the other writer's row is now the pending one.
		gap, err = c.incrementPendingGap(ctx, query, equipment, confidence)
		if err == nil && gap == nil {
			err = fmt.Errorf("create or increment gap: pending row vanished after duplicate rejection")
		}
	}
	if err != nil {
		return nil, err
	}
	return gap, nil
}

func (c *Client) incrementPendingGap(ctx context.Context, query string, equipment models.EquipmentContext, confidence float64) (*models.KnowledgeGap, error) {
	sql := `
		UPDATE knowledge_gap SET
			occurrence_count += 1,
			confidence_score = math::min([confidence_score, $confidence]),
			updated_at = time::now()
		WHERE query = $query
			AND (manufacturer ?? "") = $manufacturer
			AND (model ?? "") = $model
			AND research_status = "pending"
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.KnowledgeGap](ctx, c.db, sql, map[string]any{
		"query":        query,
		"manufacturer": equipment.Manufacturer,
		"model":        equipment.ModelNumber,
		"confidence":   confidence,
	})
	if err != nil {
		return nil, fmt.Errorf("increment gap: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	gap := (*results)[0].Result[0]

	return c.reprioritizeGap(ctx, gap)
}

func (c *Client) createGap(ctx context.Context, query string, equipment models.EquipmentContext, confidence float64) (*models.KnowledgeGap, error) {
	id := uuid.NewString()

	var manufacturer, model *string
	if equipment.Manufacturer != "" {
		manufacturer = &equipment.Manufacturer
	}
	if equipment.ModelNumber != "" {
		model = &equipment.ModelNumber
	}

	sql := `
		CREATE type::record("knowledge_gap", $id) SET
			query = $query,
			manufacturer = $manufacturer,
			model = $model,
			confidence_score = $confidence,
			research_status = "pending",
			occurrence_count = 1,
			priority = $priority
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.KnowledgeGap](ctx, c.db, sql, map[string]any{
		"id":           id,
		"query":        query,
		"manufacturer": manufacturer,
		"model":        model,
		"confidence":   confidence,
		"priority":     models.GapPriority(1, confidence),
	})
	if err != nil {
		return nil, fmt.Errorf("create gap: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create gap: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// reprioritizeGap recomputes priority from the post-increment occurrence count
// and worst-seen confidence, keeping the scoring rule in one place (Go) rather
// than duplicated in SurrealQL.
func (c *Client) reprioritizeGap(ctx context.Context, gap models.KnowledgeGap) (*models.KnowledgeGap, error) {
	priority := models.GapPriority(gap.OccurrenceCount, gap.ConfidenceScore)
	if priority == gap.Priority {
		return &gap, nil
	}

	results, err := surrealdb.Query[[]models.KnowledgeGap](ctx, c.db, `
		UPDATE $gap SET priority = $priority RETURN AFTER
	`, map[string]any{
		"gap":      gap.ID,
		"priority": priority,
	})
	if err != nil {
		return nil, fmt.Errorf("reprioritize gap: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("reprioritize gap %s: %w", gap.ID, ErrNotFound)
	}
	return &(*results)[0].Result[0], nil
}

// MarkGapResolved closes a gap, linking the atom that now answers it. The
// dedup key collapses to the record ID, so the same triple can open a fresh
// pending gap later if the atom turns out insufficient.
func (c *Client) MarkGapResolved(ctx context.Context, gapID, atomID string) (*models.KnowledgeGap, error) {
	sql := `
		UPDATE type::record("knowledge_gap", $id) SET
			research_status = "completed",
			resolved_atom_id = $atom_id,
			resolved_at = time::now(),
			updated_at = time::now()
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.KnowledgeGap](ctx, c.db, sql, map[string]any{
		"id":      gapID,
		"atom_id": atomID,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve gap: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("resolve gap %s: %w", gapID, ErrNotFound)
	}
	return &(*results)[0].Result[0], nil
}

// MarkGapFailed marks a gap's research attempt as failed without linking an
// atom.
func (c *Client) MarkGapFailed(ctx context.Context, gapID string) (*models.KnowledgeGap, error) {
	sql := `
		UPDATE type::record("knowledge_gap", $id) SET
			research_status = "failed",
			updated_at = time::now()
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.KnowledgeGap](ctx, c.db, sql, map[string]any{"id": gapID})
	if err != nil {
		return nil, fmt.Errorf("fail gap: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("fail gap %s: %w", gapID, ErrNotFound)
	}
	return &(*results)[0].Result[0], nil
}

// GetGap retrieves a gap by ID.
func (c *Client) GetGap(ctx context.Context, id string) (*models.KnowledgeGap, error) {
	results, err := surrealdb.Query[[]models.KnowledgeGap](ctx, c.db, `
		SELECT * FROM type::record("knowledge_gap", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get gap: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("get gap %s: %w", id, ErrNotFound)
	}
	return &(*results)[0].Result[0], nil
}

// ListGapOptions filters gap listings.
type ListGapOptions struct {
	Status models.ResearchStatus
	Limit  int
}

// ListGaps returns gaps ordered by priority, highest first.
func (c *Client) ListGaps(ctx context.Context, opts ListGapOptions) ([]models.KnowledgeGap, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	whereClause := ""
	vars := map[string]any{"limit": limit}
	if opts.Status != "" {
		whereClause = "WHERE research_status = $status"
		vars["status"] = opts.Status
	}

	sql := fmt.Sprintf(`
		SELECT * FROM knowledge_gap %s
		ORDER BY priority DESC, occurrence_count DESC
		LIMIT $limit
	`, whereClause)

	results, err := surrealdb.Query[[]models.KnowledgeGap](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("list gaps: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.KnowledgeGap{}, nil
	}
	return (*results)[0].Result, nil
}
