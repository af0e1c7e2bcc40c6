package models

import (
	"math"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// ResearchStatus tracks the lifecycle of a knowledge gap.
type ResearchStatus string

const (
	GapPending    ResearchStatus = "pending"
	GapInProgress ResearchStatus = "in_progress"
	GapCompleted  ResearchStatus = "completed"
	GapFailed     ResearchStatus = "failed"
)

// KnowledgeGap records a query the system could not answer with sufficient
// confidence. While status is pending, the (query, manufacturer, model)
// triple is unique; repeats increment OccurrenceCount instead of creating
// new rows.
type KnowledgeGap struct {
	ID              surrealmodels.RecordID `json:"id"`
	Query           string                 `json:"query"`
	Manufacturer    *string                `json:"manufacturer,omitempty"`
	Model           *string                `json:"model,omitempty"`
	ConfidenceScore float64                `json:"confidence_score"`
	ResearchStatus  ResearchStatus         `json:"research_status"`
	OccurrenceCount int                    `json:"occurrence_count"`
	Priority        int                    `json:"priority"`
	ResolvedAtomID  *string                `json:"resolved_atom_id,omitempty"`
	ResolvedAt      *time.Time             `json:"resolved_at,omitempty"`
	CreatedAt       time.Time              `json:"created_at,omitempty"`
	UpdatedAt       time.Time              `json:"updated_at,omitempty"`
}

// GapPriority derives research priority from how often a gap recurred and how
// far below the SME threshold its confidence fell. Monotonic in both inputs,
// capped at 100.
func GapPriority(occurrences int, confidence float64) int {
	deficit := 0.70 - confidence
	if deficit < 0 {
		deficit = 0
	}
	p := occurrences*10 + int(math.Round(deficit*100))
	if p > 100 {
		p = 100
	}
	return p
}
