// Package db provides integration tests for SurrealDB operations.
package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rivetlabs/rivet/internal/models"
)

var testDB *Client
var testContainer testcontainers.Container

// TestMain sets up and tears down the SurrealDB container for all tests.
func TestMain(m *testing.M) {
	// Disable ryuk (cleanup container) as it can cause issues in some environments
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	var err error
	testContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0-beta.1",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--log", "info", "--user", "root", "--pass", "root"},
			WaitingFor:   wait.ForLog("Started web server").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start SurrealDB container: %v", err)
	}

	host, err := testContainer.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	// Workaround: testcontainers may return "null" as host in some environments
	if host == "" || host == "null" {
		host = "localhost"
	}
	mappedPort, err := testContainer.MappedPort(ctx, "8000")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	testDB, err = NewClient(ctx, Config{
		URL:       fmt.Sprintf("ws://%s:%s/rpc", host, mappedPort.Port()),
		Namespace: "test",
		Database:  "test",
		Username:  "root",
		Password:  "root",
		AuthLevel: "root",
	}, nil)
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := testDB.InitSchema(ctx, models.EmbeddingDimension); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	code := m.Run()

	_ = testDB.Close(ctx)
	_ = testContainer.Terminate(ctx)

	os.Exit(code)
}

// directionEmbedding returns a unit vector at angle theta in the plane spanned
// by the first two dimensions. Cosine similarity between two such vectors is
// cos(theta1 - theta2), which makes search ordering deterministic.
func directionEmbedding(theta float64) []float32 {
	embedding := make([]float32, models.EmbeddingDimension)
	embedding[0] = float32(math.Cos(theta))
	embedding[1] = float32(math.Sin(theta))
	return embedding
}

func strptr(s string) *string { return &s }

func mustCreateAtom(t *testing.T, in models.AtomInput) *models.KnowledgeAtom {
	t.Helper()
	atom, err := testDB.CreateAtom(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateAtom failed: %v", err)
	}
	t.Cleanup(func() {
		_, _ = testDB.DeleteAtom(context.Background(), models.MustRecordIDString(atom.ID))
	})
	return atom
}

// =============================================================================
// ATOM TESTS
// =============================================================================

func TestCreateAndGetAtom(t *testing.T) {
	ctx := context.Background()

	atom := mustCreateAtom(t, models.AtomInput{
		Type:          models.AtomFault,
		Manufacturer:  strptr("Siemens"),
		Model:         strptr("S7-1200"),
		EquipmentType: strptr("plc"),
		Title:         "F30005 overcurrent on power unit",
		Content:       "Check motor cable insulation and verify drive output current limits.",
		SourceURL:     strptr("https://support.example.com/f30005"),
		Confidence:    0.9,
		HumanVerified: true,
		Embedding:     directionEmbedding(0),
	})

	if atom.Type != models.AtomFault {
		t.Errorf("Expected type fault, got %q", atom.Type)
	}
	if atom.Manufacturer == nil || *atom.Manufacturer != "Siemens" {
		t.Errorf("Manufacturer mismatch: %v", atom.Manufacturer)
	}
	if atom.Confidence != 0.9 {
		t.Errorf("Expected confidence 0.9, got %v", atom.Confidence)
	}
	if atom.UsageCount != 0 {
		t.Errorf("New atom should have usage_count 0, got %d", atom.UsageCount)
	}

	fetched, err := testDB.GetAtom(ctx, models.MustRecordIDString(atom.ID))
	if err != nil {
		t.Fatalf("GetAtom failed: %v", err)
	}
	if fetched.Title != atom.Title {
		t.Errorf("Title mismatch: got %q, want %q", fetched.Title, atom.Title)
	}
	if len(fetched.Embedding) != 0 {
		t.Error("GetAtom should not return the embedding")
	}

	_, err = testDB.GetAtom(ctx, "does-not-exist")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing atom, got %v", err)
	}
}

func TestCreateAtomValidation(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name  string
		input models.AtomInput
		field string
	}{
		{
			name:  "unknown type",
			input: models.AtomInput{Type: "rumor", Title: "Valid title", Content: "Valid content with enough length", Confidence: 0.5},
			field: "type",
		},
		{
			name:  "short title",
			input: models.AtomInput{Type: models.AtomTip, Title: "abc", Content: "Valid content with enough length", Confidence: 0.5},
			field: "title",
		},
		{
			name:  "short content",
			input: models.AtomInput{Type: models.AtomTip, Title: "Valid title", Content: "too short", Confidence: 0.5},
			field: "content",
		},
		{
			name:  "confidence out of range",
			input: models.AtomInput{Type: models.AtomTip, Title: "Valid title", Content: "Valid content with enough length", Confidence: 1.5},
			field: "confidence",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := testDB.CreateAtom(ctx, tc.input)
			var verr *models.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected *models.ValidationError, got %v", err)
			}
			if verr.Field != tc.field {
				t.Errorf("Expected field %q, got %q", tc.field, verr.Field)
			}
		})
	}

	// Wrong embedding dimension is a dimension error, not a validation error.
	_, err := testDB.CreateAtom(ctx, models.AtomInput{
		Type:       models.AtomTip,
		Title:      "Valid title",
		Content:    "Valid content with enough length",
		Confidence: 0.5,
		Embedding:  make([]float32, 8),
	})
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("Expected validation error for short embedding, got %v", err)
	}
}

func TestUpdateAtomPartial(t *testing.T) {
	ctx := context.Background()

	atom := mustCreateAtom(t, models.AtomInput{
		Type:       models.AtomProcedure,
		Title:      "Replace DC bus fuse",
		Content:    "Lockout the drive, wait for capacitor discharge, then replace the fuse.",
		Confidence: 0.6,
		Embedding:  directionEmbedding(0.2),
	})
	atomID := models.MustRecordIDString(atom.ID)

	newContent := "Lockout the drive, verify zero energy, wait 15 minutes, then replace the fuse."
	newConfidence := 0.85
	verified := true
	updated, err := testDB.UpdateAtom(ctx, atomID, models.UpdateAtomArgs{
		Content:       &newContent,
		Confidence:    &newConfidence,
		HumanVerified: &verified,
	})
	if err != nil {
		t.Fatalf("UpdateAtom failed: %v", err)
	}
	if updated.Content != newContent {
		t.Errorf("Content not updated")
	}
	if updated.Confidence != 0.85 {
		t.Errorf("Expected confidence 0.85, got %v", updated.Confidence)
	}
	if !updated.HumanVerified {
		t.Error("human_verified should be true after update")
	}
	// Title untouched.
	if updated.Title != atom.Title {
		t.Errorf("Title should be unchanged, got %q", updated.Title)
	}
	if !updated.LastVerified.After(atom.LastVerified) {
		t.Error("last_verified should advance when human_verified is set")
	}

	// Empty update is a no-op read.
	same, err := testDB.UpdateAtom(ctx, atomID, models.UpdateAtomArgs{})
	if err != nil {
		t.Fatalf("Empty UpdateAtom failed: %v", err)
	}
	if same.Content != newContent {
		t.Error("Empty update should not change anything")
	}

	_, err = testDB.UpdateAtom(ctx, "does-not-exist", models.UpdateAtomArgs{Confidence: &newConfidence})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSearchAtoms(t *testing.T) {
	ctx := context.Background()

	// Angles fix the similarity ordering against a theta=0 query.
	near := mustCreateAtom(t, models.AtomInput{
		Type:         models.AtomFault,
		Manufacturer: strptr("Siemens"),
		Title:        "F30002 DC link overvoltage",
		Content:      "Extend ramp-down time or fit a braking resistor to absorb regenerated energy.",
		Confidence:   0.9,
		Embedding:    directionEmbedding(0.1),
	})
	mid := mustCreateAtom(t, models.AtomInput{
		Type:         models.AtomFault,
		Manufacturer: strptr("Rockwell"),
		Title:        "PowerFlex fault 5 undervoltage",
		Content:      "Verify incoming supply voltage and check for sags during motor start.",
		Confidence:   0.8,
		Embedding:    directionEmbedding(0.6),
	})
	far := mustCreateAtom(t, models.AtomInput{
		Type:         models.AtomTip,
		Manufacturer: strptr("Siemens"),
		Title:        "TIA Portal project compare",
		Content:      "Use the offline/online compare view before downloading changes to the PLC.",
		Confidence:   0.4,
		Embedding:    directionEmbedding(1.3),
	})

	query := directionEmbedding(0)

	results, err := testDB.SearchAtoms(ctx, AtomSearchOptions{Embedding: query, Limit: 10})
	if err != nil {
		t.Fatalf("SearchAtoms failed: %v", err)
	}
	if len(results) < 3 {
		t.Fatalf("Expected at least 3 results, got %d", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i].SimilarityScore > results[i-1].SimilarityScore {
			t.Error("Results should be ordered by descending similarity")
		}
	}
	if models.MustRecordIDString(results[0].ID) != models.MustRecordIDString(near.ID) {
		t.Errorf("Closest atom should rank first, got %q", results[0].Title)
	}
	if len(results[0].Embedding) != 0 {
		t.Error("Search results should not include embeddings")
	}

	// Manufacturer filter is case-insensitive.
	results, err = testDB.SearchAtoms(ctx, AtomSearchOptions{Embedding: query, Manufacturer: "siemens", Limit: 10})
	if err != nil {
		t.Fatalf("SearchAtoms with manufacturer failed: %v", err)
	}
	for _, r := range results {
		if r.Manufacturer == nil || *r.Manufacturer != "Siemens" {
			t.Errorf("Manufacturer filter leaked %q", r.Title)
		}
	}

	// Confidence floor excludes the 0.4 atom.
	results, err = testDB.SearchAtoms(ctx, AtomSearchOptions{Embedding: query, MinConfidence: 0.5, Limit: 10})
	if err != nil {
		t.Fatalf("SearchAtoms with min confidence failed: %v", err)
	}
	for _, r := range results {
		if models.MustRecordIDString(r.ID) == models.MustRecordIDString(far.ID) {
			t.Error("Low-confidence atom should be filtered out")
		}
	}

	// Type filter.
	results, err = testDB.SearchAtoms(ctx, AtomSearchOptions{
		Embedding: query,
		Types:     []models.AtomType{models.AtomFault},
		Limit:     10,
	})
	if err != nil {
		t.Fatalf("SearchAtoms with types failed: %v", err)
	}
	seen := map[string]bool{}
	for _, r := range results {
		if r.Type != models.AtomFault {
			t.Errorf("Type filter leaked %q", r.Type)
		}
		seen[models.MustRecordIDString(r.ID)] = true
	}
	if !seen[models.MustRecordIDString(mid.ID)] {
		t.Error("Fault-typed atom missing from type-filtered search")
	}

	// Dimension mismatch is rejected before touching the database.
	_, err = testDB.SearchAtoms(ctx, AtomSearchOptions{Embedding: make([]float32, 8)})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Expected ErrDimensionMismatch, got %v", err)
	}
}

func TestIncrementUsage(t *testing.T) {
	ctx := context.Background()

	atom := mustCreateAtom(t, models.AtomInput{
		Type:       models.AtomSpec,
		Title:      "S7-1200 digital input spec",
		Content:    "24 VDC sink/source inputs, 4 ms default filter time, configurable per channel.",
		Confidence: 0.7,
		Embedding:  directionEmbedding(0.4),
	})
	atomID := models.MustRecordIDString(atom.ID)

	for i := 0; i < 3; i++ {
		if err := testDB.IncrementUsage(ctx, atomID); err != nil {
			t.Fatalf("IncrementUsage failed: %v", err)
		}
	}

	fetched, err := testDB.GetAtom(ctx, atomID)
	if err != nil {
		t.Fatalf("GetAtom failed: %v", err)
	}
	if fetched.UsageCount != 3 {
		t.Errorf("Expected usage_count 3, got %d", fetched.UsageCount)
	}
}

func TestListAtoms(t *testing.T) {
	ctx := context.Background()

	mustCreateAtom(t, models.AtomInput{
		Type:         models.AtomSafety,
		Manufacturer: strptr("ABB"),
		Title:        "ACS880 capacitor discharge wait",
		Content:      "Wait at least 5 minutes after disconnecting supply before opening the cabinet.",
		Confidence:   0.95,
		Embedding:    directionEmbedding(0.9),
	})

	results, err := testDB.ListAtoms(ctx, ListAtomOptions{Type: models.AtomSafety, Manufacturer: "abb"})
	if err != nil {
		t.Fatalf("ListAtoms failed: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("Expected at least one safety atom for ABB")
	}
	for _, r := range results {
		if r.Type != models.AtomSafety {
			t.Errorf("Type filter leaked %q", r.Type)
		}
	}
}

// =============================================================================
// GAP TESTS
// =============================================================================

func TestGapDedup(t *testing.T) {
	ctx := context.Background()
	if err := testDB.WipeData(ctx); err != nil {
		t.Fatalf("WipeData failed: %v", err)
	}

	equipment := models.EquipmentContext{Manufacturer: "siemens", ModelNumber: "G120"}

	first, err := testDB.CreateOrIncrementGap(ctx, "drive trips F30021 on startup", equipment, 0.35)
	if err != nil {
		t.Fatalf("First CreateOrIncrementGap failed: %v", err)
	}
	if first.OccurrenceCount != 1 {
		t.Errorf("Expected occurrence_count 1, got %d", first.OccurrenceCount)
	}
	if first.Priority != models.GapPriority(1, 0.35) {
		t.Errorf("Expected priority %d, got %d", models.GapPriority(1, 0.35), first.Priority)
	}

	second, err := testDB.CreateOrIncrementGap(ctx, "drive trips F30021 on startup", equipment, 0.5)
	if err != nil {
		t.Fatalf("Second CreateOrIncrementGap failed: %v", err)
	}
	if models.MustRecordIDString(second.ID) != models.MustRecordIDString(first.ID) {
		t.Error("Same triple should increment the existing pending gap")
	}
	if second.OccurrenceCount != 2 {
		t.Errorf("Expected occurrence_count 2, got %d", second.OccurrenceCount)
	}
	// Worst confidence seen is kept.
	if second.ConfidenceScore != 0.35 {
		t.Errorf("Expected confidence_score 0.35, got %v", second.ConfidenceScore)
	}
	if second.Priority != models.GapPriority(2, 0.35) {
		t.Errorf("Expected priority %d, got %d", models.GapPriority(2, 0.35), second.Priority)
	}

	// A different model is a different gap.
	other, err := testDB.CreateOrIncrementGap(ctx, "drive trips F30021 on startup",
		models.EquipmentContext{Manufacturer: "siemens", ModelNumber: "G130"}, 0.35)
	if err != nil {
		t.Fatalf("CreateOrIncrementGap with other model failed: %v", err)
	}
	if models.MustRecordIDString(other.ID) == models.MustRecordIDString(first.ID) {
		t.Error("Different model should create a separate gap")
	}

	// No equipment context at all is its own dedup bucket.
	bare, err := testDB.CreateOrIncrementGap(ctx, "drive trips F30021 on startup", models.EquipmentContext{}, 0.35)
	if err != nil {
		t.Fatalf("CreateOrIncrementGap without equipment failed: %v", err)
	}
	if models.MustRecordIDString(bare.ID) == models.MustRecordIDString(first.ID) {
		t.Error("Missing equipment context should not collide with a populated one")
	}

	// A repeat without equipment context lands on the bare gap, exercising
	// the coalesced NONE-to-empty comparison in the dedup WHERE clause.
	bareAgain, err := testDB.CreateOrIncrementGap(ctx, "drive trips F30021 on startup", models.EquipmentContext{}, 0.4)
	if err != nil {
		t.Fatalf("Repeat CreateOrIncrementGap without equipment failed: %v", err)
	}
	if models.MustRecordIDString(bareAgain.ID) != models.MustRecordIDString(bare.ID) {
		t.Error("Repeat without equipment should increment the bare gap, not create a new one")
	}
	if bareAgain.OccurrenceCount != 2 {
		t.Errorf("Expected bare gap occurrence_count 2, got %d", bareAgain.OccurrenceCount)
	}
}

func TestGapConcurrentIncrement(t *testing.T) {
	ctx := context.Background()
	if err := testDB.WipeData(ctx); err != nil {
		t.Fatalf("WipeData failed: %v", err)
	}

	const writers = 8
	equipment := models.EquipmentContext{Manufacturer: "rockwell"}

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := testDB.CreateOrIncrementGap(ctx, "ControlLogix major fault 4", equipment, 0.2)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	failed := 0
	for err := range errs {
		if err != nil && !errors.Is(err, ErrTransactionConflict) {
			t.Errorf("Unexpected writer error: %v", err)
		}
		if err != nil {
			failed++
		}
	}

	gaps, err := testDB.ListGaps(ctx, ListGapOptions{Status: models.GapPending})
	if err != nil {
		t.Fatalf("ListGaps failed: %v", err)
	}
	if len(gaps) != 1 {
		t.Fatalf("Expected exactly 1 pending gap after concurrent writes, got %d", len(gaps))
	}
	if gaps[0].OccurrenceCount != writers-failed {
		t.Errorf("Expected occurrence_count %d, got %d", writers-failed, gaps[0].OccurrenceCount)
	}
}

func TestGapResolveLifecycle(t *testing.T) {
	ctx := context.Background()
	if err := testDB.WipeData(ctx); err != nil {
		t.Fatalf("WipeData failed: %v", err)
	}

	atom := mustCreateAtom(t, models.AtomInput{
		Type:       models.AtomFault,
		Title:      "VFD output phase loss fault",
		Content:    "Check motor terminal connections and continuity of each output phase.",
		Confidence: 0.8,
		Embedding:  directionEmbedding(0.3),
	})

	gap, err := testDB.CreateOrIncrementGap(ctx, "vfd output phase loss", models.EquipmentContext{}, 0.3)
	if err != nil {
		t.Fatalf("CreateOrIncrementGap failed: %v", err)
	}
	gapID := models.MustRecordIDString(gap.ID)

	resolved, err := testDB.MarkGapResolved(ctx, gapID, models.MustRecordIDString(atom.ID))
	if err != nil {
		t.Fatalf("MarkGapResolved failed: %v", err)
	}
	if resolved.ResearchStatus != models.GapCompleted {
		t.Errorf("Expected status completed, got %q", resolved.ResearchStatus)
	}
	if resolved.ResolvedAtomID == nil || *resolved.ResolvedAtomID != models.MustRecordIDString(atom.ID) {
		t.Error("resolved_atom_id should link the resolving atom")
	}
	if resolved.ResolvedAt == nil {
		t.Error("resolved_at should be set")
	}

	// The same triple can open a fresh pending gap after resolution.
	fresh, err := testDB.CreateOrIncrementGap(ctx, "vfd output phase loss", models.EquipmentContext{}, 0.3)
	if err != nil {
		t.Fatalf("CreateOrIncrementGap after resolve failed: %v", err)
	}
	if models.MustRecordIDString(fresh.ID) == gapID {
		t.Error("Resolved gap should not absorb new occurrences")
	}
	if fresh.OccurrenceCount != 1 {
		t.Errorf("Fresh gap should start at occurrence_count 1, got %d", fresh.OccurrenceCount)
	}

	failed, err := testDB.MarkGapFailed(ctx, models.MustRecordIDString(fresh.ID))
	if err != nil {
		t.Fatalf("MarkGapFailed failed: %v", err)
	}
	if failed.ResearchStatus != models.GapFailed {
		t.Errorf("Expected status failed, got %q", failed.ResearchStatus)
	}

	if _, err := testDB.MarkGapResolved(ctx, "does-not-exist", "whatever"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestListGapsOrdering(t *testing.T) {
	ctx := context.Background()
	if err := testDB.WipeData(ctx); err != nil {
		t.Fatalf("WipeData failed: %v", err)
	}

	// Low priority: one occurrence, near-threshold confidence.
	if _, err := testDB.CreateOrIncrementGap(ctx, "minor question", models.EquipmentContext{}, 0.65); err != nil {
		t.Fatalf("CreateOrIncrementGap failed: %v", err)
	}
	// High priority: repeated occurrences at zero confidence.
	for i := 0; i < 3; i++ {
		if _, err := testDB.CreateOrIncrementGap(ctx, "hard recurring question", models.EquipmentContext{}, 0); err != nil {
			t.Fatalf("CreateOrIncrementGap failed: %v", err)
		}
	}

	gaps, err := testDB.ListGaps(ctx, ListGapOptions{Status: models.GapPending})
	if err != nil {
		t.Fatalf("ListGaps failed: %v", err)
	}
	if len(gaps) != 2 {
		t.Fatalf("Expected 2 pending gaps, got %d", len(gaps))
	}
	if gaps[0].Query != "hard recurring question" {
		t.Errorf("Highest priority gap should rank first, got %q", gaps[0].Query)
	}
	for i := 1; i < len(gaps); i++ {
		if gaps[i].Priority > gaps[i-1].Priority {
			t.Error("Gaps should be ordered by descending priority")
		}
	}
}
