package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rivetlabs/rivet/internal/metrics"
	"github.com/rivetlabs/rivet/internal/models"
)

// ClarifyThreshold separates "the question is under-specified, ask for
// detail" from "the question is fine, we just don't know the answer yet".
// Deliberately not configurable alongside the route thresholds: it guards the
// research queue against noise, not routing quality.
const ClarifyThreshold = 0.40

// GapStore is the dedup-write contract the tracker needs.
type GapStore interface {
	CreateOrIncrementGap(ctx context.Context, query string, equipment models.EquipmentContext, confidence float64) (*models.KnowledgeGap, error)
}

// GapTracker decides whether a low-confidence event becomes a clarifying
// question or a logged research gap.
type GapTracker struct {
	store   GapStore
	metrics *metrics.Collector
	logger  *slog.Logger
}

// NewGapTracker creates a gap tracker.
func NewGapTracker(store GapStore, collector *metrics.Collector, logger *slog.Logger) *GapTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &GapTracker{store: store, metrics: collector, logger: logger}
}

// RecordGap handles a query that failed both the KB and SME routes.
// Below ClarifyThreshold the query is treated as under-specified: a
// clarifying question is produced and nothing is logged. Otherwise the gap is
// written through the dedup upsert. Store failures are absorbed; this call
// must never block the caller beyond the single write.
func (t *GapTracker) RecordGap(ctx context.Context, query string, equipment models.EquipmentContext, kbConfidence, smeConfidence float64) models.GapOutcome {
	best := kbConfidence
	if smeConfidence > best {
		best = smeConfidence
	}

	if best < ClarifyThreshold {
		return models.GapOutcome{
			ClarificationNeeded: true,
			ClarificationPrompt: buildClarificationPrompt(equipment),
		}
	}

	start := time.Now()
	gap, err := t.store.CreateOrIncrementGap(ctx, query, equipment, best)
	if t.metrics != nil {
		t.metrics.RecordTiming(metrics.OpGapWrite, time.Since(start))
	}
	if err != nil {
		t.logger.Warn("gap write failed", "query", query, "error", err)
		return models.GapOutcome{}
	}

	t.logger.Info("knowledge gap recorded",
		"gap_id", models.MustRecordIDString(gap.ID),
		"occurrences", gap.OccurrenceCount,
		"priority", gap.Priority)
	return models.GapOutcome{GapLogged: true}
}

// buildClarificationPrompt asks only for the context fields not yet supplied.
func buildClarificationPrompt(equipment models.EquipmentContext) string {
	var missing []string
	if equipment.Manufacturer == "" {
		missing = append(missing, "the equipment manufacturer")
	}
	if equipment.ModelNumber == "" {
		missing = append(missing, "the model number")
	}
	if equipment.FaultCode == "" {
		missing = append(missing, "any fault or error code shown")
	}

	if len(missing) == 0 {
		return "I need a bit more detail to help. What were the symptoms, and what changed right before the problem started?"
	}
	return fmt.Sprintf("I need a bit more detail to help. Could you tell me %s?", joinNaturally(missing))
}

func joinNaturally(items []string) string {
	switch len(items) {
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
	}
}
