// Package service composes the knowledge store, embedder, and LLM
// collaborators into the troubleshooting routing engine.
package service

import (
	"strings"
	"time"

	"github.com/rivetlabs/rivet/internal/models"
)

// Confidence boost weights applied on top of raw cosine similarity.
const (
	ManufacturerBoost = 0.10
	ModelBoost        = 0.15
	VerifiedBoost     = 0.10
	StalenessPenalty  = 0.10
	StalenessAge      = 730 * 24 * time.Hour
)

// ScoreDetail is a scored candidate with the boosts that fired, for
// observability. The confidence value alone drives routing.
type ScoreDetail struct {
	Confidence float64
	Boosts     []string
}

// Score turns a raw vector-similarity into an actionable routing confidence.
// Pure function: missing context fields simply skip their boost.
func Score(atom models.KnowledgeAtom, rawSimilarity float64, equipment models.EquipmentContext, now time.Time) ScoreDetail {
	confidence := rawSimilarity
	var boosts []string

	if equipment.Manufacturer != "" && atom.Manufacturer != nil &&
		strings.EqualFold(equipment.Manufacturer, *atom.Manufacturer) {
		confidence += ManufacturerBoost
		boosts = append(boosts, "manufacturer")
	}
	if equipment.ModelNumber != "" && atom.Model != nil &&
		strings.EqualFold(equipment.ModelNumber, *atom.Model) {
		confidence += ModelBoost
		boosts = append(boosts, "model")
	}
	if atom.HumanVerified {
		confidence += VerifiedBoost
		boosts = append(boosts, "verified")
	}
	if !atom.LastVerified.IsZero() && now.Sub(atom.LastVerified) > StalenessAge {
		confidence -= StalenessPenalty
		boosts = append(boosts, "stale")
	}

	return ScoreDetail{Confidence: models.RoundConfidence(confidence), Boosts: boosts}
}
