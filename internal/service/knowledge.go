package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rivetlabs/rivet/internal/db"
	"github.com/rivetlabs/rivet/internal/metrics"
	"github.com/rivetlabs/rivet/internal/models"
)

// Embedder is the embedding collaborator contract.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// AtomStore is the knowledge-atom persistence contract.
type AtomStore interface {
	SearchAtoms(ctx context.Context, opts db.AtomSearchOptions) ([]models.KnowledgeAtom, error)
	IncrementUsage(ctx context.Context, id string) error
	CreateAtom(ctx context.Context, in models.AtomInput) (*models.KnowledgeAtom, error)
}

// Match is the best KB candidate for a query with its boosted confidence.
type Match struct {
	Atom       models.KnowledgeAtom
	Similarity float64
	Confidence float64
	Boosts     []string
}

// KnowledgeService runs embed-search-score lookups against the atom store.
type KnowledgeService struct {
	store    AtomStore
	embedder Embedder
	metrics  *metrics.Collector
	logger   *slog.Logger
	now      func() time.Time
}

// NewKnowledgeService creates a knowledge service.
func NewKnowledgeService(store AtomStore, embedder Embedder, collector *metrics.Collector, logger *slog.Logger) *KnowledgeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &KnowledgeService{
		store:    store,
		embedder: embedder,
		metrics:  collector,
		logger:   logger,
		now:      time.Now,
	}
}

// Embed generates a query embedding, recording timing metrics.
func (s *KnowledgeService) Embed(ctx context.Context, text string) ([]float32, error) {
	start := s.now()
	embedding, err := s.embedder.Embed(ctx, text)
	if s.metrics != nil {
		s.metrics.RecordTiming(metrics.OpEmbedding, time.Since(start))
	}
	return embedding, err
}

// BestMatch embeds the query, searches the vector index, and returns the
// candidate with the highest boosted confidence. A nil match with nil error
// means the store had no candidates at all.
func (s *KnowledgeService) BestMatch(ctx context.Context, query string, equipment models.EquipmentContext) (*Match, error) {
	embedding, err := s.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	start := s.now()
	atoms, err := s.store.SearchAtoms(ctx, db.AtomSearchOptions{
		Embedding: embedding,
		Limit:     5,
	})
	if s.metrics != nil {
		s.metrics.RecordTiming(metrics.OpVectorSearch, time.Since(start))
	}
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if len(atoms) == 0 {
		return nil, nil
	}

	// Manufacturer/model boosts can reorder the similarity ranking, so every
	// candidate is scored before picking.
	now := s.now()
	var best *Match
	for _, atom := range atoms {
		detail := Score(atom, atom.SimilarityScore, equipment, now)
		if best == nil || detail.Confidence > best.Confidence {
			best = &Match{
				Atom:       atom,
				Similarity: atom.SimilarityScore,
				Confidence: detail.Confidence,
				Boosts:     detail.Boosts,
			}
		}
	}

	s.logger.Debug("kb best match",
		"atom", models.MustRecordIDString(best.Atom.ID),
		"similarity", best.Similarity,
		"confidence", best.Confidence,
		"boosts", best.Boosts)
	return best, nil
}

// MarkUsed bumps the usage counter of an atom that was returned to a user.
// Best-effort: failures are logged and absorbed.
func (s *KnowledgeService) MarkUsed(ctx context.Context, atom models.KnowledgeAtom) {
	id, err := models.RecordIDString(atom.ID)
	if err != nil {
		s.logger.Warn("usage tracking skipped", "error", err)
		return
	}
	if err := s.store.IncrementUsage(ctx, id); err != nil {
		s.logger.Warn("usage increment failed", "atom", id, "error", err)
	}
}

// Ingest creates a new atom, embedding its title and content when the input
// carries no vector. Validation errors propagate to the caller.
func (s *KnowledgeService) Ingest(ctx context.Context, in models.AtomInput) (*models.KnowledgeAtom, error) {
	if len(in.Embedding) == 0 {
		embedding, err := s.Embed(ctx, in.Title+"\n"+in.Content)
		if err != nil {
			return nil, fmt.Errorf("embed atom: %w", err)
		}
		in.Embedding = embedding
	}
	return s.store.CreateAtom(ctx, in)
}

// IngestBatch creates many atoms in one pass, embedding every input that
// carries no vector through a single batch call. Inputs are validated up
// front so a malformed row aborts before any write. On a mid-batch store
// failure the atoms created so far are returned alongside the error.
func (s *KnowledgeService) IngestBatch(ctx context.Context, ins []models.AtomInput) ([]models.KnowledgeAtom, error) {
	for i := range ins {
		if err := ins[i].Validate(); err != nil {
			return nil, fmt.Errorf("atom %d: %w", i, err)
		}
	}

	var texts []string
	var missing []int
	for i, in := range ins {
		if len(in.Embedding) == 0 {
			texts = append(texts, in.Title+"\n"+in.Content)
			missing = append(missing, i)
		}
	}
	if len(texts) > 0 {
		start := s.now()
		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if s.metrics != nil {
			s.metrics.RecordTiming(metrics.OpEmbedding, time.Since(start))
		}
		if err != nil {
			return nil, fmt.Errorf("embed batch: %w", err)
		}
		for j, i := range missing {
			ins[i].Embedding = vectors[j]
		}
	}

	atoms := make([]models.KnowledgeAtom, 0, len(ins))
	for i, in := range ins {
		atom, err := s.store.CreateAtom(ctx, in)
		if err != nil {
			return atoms, fmt.Errorf("atom %d (%q): %w", i, in.Title, err)
		}
		atoms = append(atoms, *atom)
	}
	s.logger.Info("batch ingest complete", "atoms", len(atoms), "embedded", len(missing))
	return atoms, nil
}
