package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/rivetlabs/rivet/internal/models"
)

type fakeGapStore struct {
	calls      int
	lastQuery  string
	lastConf   float64
	err        error
	occurrence int
}

func (f *fakeGapStore) CreateOrIncrementGap(_ context.Context, query string, _ models.EquipmentContext, confidence float64) (*models.KnowledgeGap, error) {
	f.calls++
	f.lastQuery = query
	f.lastConf = confidence
	if f.err != nil {
		return nil, f.err
	}
	f.occurrence++
	return &models.KnowledgeGap{
		ID:              surrealmodels.NewRecordID("knowledge_gap", "g1"),
		Query:           query,
		ConfidenceScore: confidence,
		ResearchStatus:  models.GapPending,
		OccurrenceCount: f.occurrence,
		Priority:        models.GapPriority(f.occurrence, confidence),
	}, nil
}

func TestRecordGapLogsInBand(t *testing.T) {
	store := &fakeGapStore{}
	tracker := NewGapTracker(store, nil, nil)

	outcome := tracker.RecordGap(context.Background(), "why does it trip", models.EquipmentContext{}, 0.30, 0.50)
	if !outcome.GapLogged {
		t.Error("Confidence in [0.40, 0.70) should log a gap")
	}
	if outcome.ClarificationNeeded {
		t.Error("No clarification expected in the loggable band")
	}
	if store.calls != 1 {
		t.Errorf("Store calls = %d, want 1", store.calls)
	}
	// The better of the two route confidences is recorded.
	if store.lastConf != 0.50 {
		t.Errorf("Recorded confidence = %v, want 0.50", store.lastConf)
	}
}

func TestRecordGapClarifiesBelowThreshold(t *testing.T) {
	store := &fakeGapStore{}
	tracker := NewGapTracker(store, nil, nil)

	outcome := tracker.RecordGap(context.Background(), "it's broken", models.EquipmentContext{}, 0.10, 0.20)
	if !outcome.ClarificationNeeded {
		t.Error("max confidence below 0.40 should request clarification")
	}
	if outcome.GapLogged {
		t.Error("Under-specified queries must not pollute the research queue")
	}
	if store.calls != 0 {
		t.Error("No store write expected for clarification")
	}
	for _, want := range []string{"manufacturer", "model number", "fault"} {
		if !strings.Contains(outcome.ClarificationPrompt, want) {
			t.Errorf("Prompt should ask for %s: %q", want, outcome.ClarificationPrompt)
		}
	}
}

func TestClarificationPromptNamesOnlyMissingFields(t *testing.T) {
	tracker := NewGapTracker(&fakeGapStore{}, nil, nil)

	outcome := tracker.RecordGap(context.Background(), "odd noise",
		models.EquipmentContext{Manufacturer: "Siemens", ModelNumber: "G120"}, 0.1, 0.1)
	prompt := outcome.ClarificationPrompt
	if strings.Contains(prompt, "manufacturer") || strings.Contains(prompt, "model number") {
		t.Errorf("Prompt should not ask for fields already supplied: %q", prompt)
	}
	if !strings.Contains(prompt, "fault") {
		t.Errorf("Prompt should ask for the missing fault code: %q", prompt)
	}

	// All fields present: fall back to a generic symptom question.
	outcome = tracker.RecordGap(context.Background(), "odd noise",
		models.EquipmentContext{Manufacturer: "Siemens", ModelNumber: "G120", FaultCode: "F30005"}, 0.1, 0.1)
	if !strings.Contains(outcome.ClarificationPrompt, "symptoms") {
		t.Errorf("Fully-specified query should get the symptom prompt: %q", outcome.ClarificationPrompt)
	}
}

func TestRecordGapAbsorbsStoreFailure(t *testing.T) {
	store := &fakeGapStore{err: errors.New("db down")}
	tracker := NewGapTracker(store, nil, nil)

	outcome := tracker.RecordGap(context.Background(), "valid question", models.EquipmentContext{}, 0.50, 0.50)
	if outcome.GapLogged {
		t.Error("Failed write must not report a logged gap")
	}
	if outcome.ClarificationNeeded {
		t.Error("Store failure must not turn into a clarification request")
	}
}

func TestRecordGapBoundary(t *testing.T) {
	store := &fakeGapStore{}
	tracker := NewGapTracker(store, nil, nil)

	// Exactly at the clarify threshold logs a gap.
	outcome := tracker.RecordGap(context.Background(), "boundary case", models.EquipmentContext{}, 0.40, 0.0)
	if !outcome.GapLogged || outcome.ClarificationNeeded {
		t.Errorf("Confidence exactly 0.40 should log, got %+v", outcome)
	}
}
