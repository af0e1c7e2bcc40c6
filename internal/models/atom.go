// Package models defines data structures for the RIVET knowledge base.
package models

import (
	"math"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// EmbeddingDimension is the vector dimension stored for every atom.
// CRITICAL: Must match the HNSW index dimension in the SurrealDB schema.
const EmbeddingDimension = 1536

// AtomType classifies a knowledge atom.
type AtomType string

const (
	AtomFault     AtomType = "fault"
	AtomProcedure AtomType = "procedure"
	AtomSpec      AtomType = "spec"
	AtomPart      AtomType = "part"
	AtomTip       AtomType = "tip"
	AtomSafety    AtomType = "safety"
)

// ValidAtomTypes lists every accepted atom type, in display order.
var ValidAtomTypes = []AtomType{AtomFault, AtomProcedure, AtomSpec, AtomPart, AtomTip, AtomSafety}

// IsValid reports whether t is a known atom type.
func (t AtomType) IsValid() bool {
	for _, v := range ValidAtomTypes {
		if t == v {
			return true
		}
	}
	return false
}

// KnowledgeAtom is a single curated fact/procedure/spec record with a vector
// embedding for semantic search.
type KnowledgeAtom struct {
	ID            surrealmodels.RecordID `json:"id"`
	Type          AtomType               `json:"type"`
	Manufacturer  *string                `json:"manufacturer,omitempty"`
	Model         *string                `json:"model,omitempty"`
	EquipmentType *string                `json:"equipment_type,omitempty"`
	Title         string                 `json:"title"`
	Content       string                 `json:"content"`
	SourceURL     *string                `json:"source_url,omitempty"`
	Confidence    float64                `json:"confidence"`
	HumanVerified bool                   `json:"human_verified"`
	UsageCount    int                    `json:"usage_count"`
	// Embedding is stored for similarity search only and excluded from
	// API-level views.
	Embedding    []float32 `json:"-"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	LastVerified time.Time `json:"last_verified,omitempty"`

	// SimilarityScore is computed at query time against the query vector.
	// Never persisted.
	SimilarityScore float64 `json:"similarity_score,omitempty"`
}

// AtomInput holds the fields for creating a new atom.
type AtomInput struct {
	Type          AtomType
	Manufacturer  *string
	Model         *string
	EquipmentType *string
	Title         string
	Content       string
	SourceURL     *string
	Confidence    float64
	HumanVerified bool
	Embedding     []float32
}

// Validate checks the input against the atom integrity rules.
// Returns a *ValidationError describing the first violation found.
func (in AtomInput) Validate() error {
	if !in.Type.IsValid() {
		return &ValidationError{Field: "type", Reason: "unknown atom type: " + string(in.Type)}
	}
	if len(in.Title) < 5 || len(in.Title) > 500 {
		return &ValidationError{Field: "title", Reason: "length must be 5-500 characters"}
	}
	if len(in.Content) < 20 {
		return &ValidationError{Field: "content", Reason: "length must be at least 20 characters"}
	}
	if in.Confidence < 0 || in.Confidence > 1 {
		return &ValidationError{Field: "confidence", Reason: "must be in [0, 1]"}
	}
	if len(in.Embedding) != 0 && len(in.Embedding) != EmbeddingDimension {
		return &ValidationError{Field: "embedding", Reason: "dimension mismatch"}
	}
	return nil
}

// UpdateAtomArgs carries a partial-field atom update. Nil fields are left
// unchanged.
type UpdateAtomArgs struct {
	Title         *string
	Content       *string
	SourceURL     *string
	Confidence    *float64
	HumanVerified *bool
	Embedding     []float32
}

// RoundConfidence clamps v to [0, 1] and rounds to 3 decimals, the canonical
// representation for every confidence value in the system.
func RoundConfidence(v float64) float64 {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return math.Round(v*1000) / 1000
}
