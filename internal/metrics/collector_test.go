package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestRecordTiming(t *testing.T) {
	c := NewCollector()

	c.RecordTiming(OpVectorSearch, 10*time.Millisecond)
	c.RecordTiming(OpVectorSearch, 30*time.Millisecond)

	snap := c.Snapshot()
	if snap.VectorSearch == nil {
		t.Fatal("Expected vector search snapshot")
	}
	if snap.VectorSearch.Count != 2 {
		t.Errorf("Count = %d, want 2", snap.VectorSearch.Count)
	}
	if snap.VectorSearch.MinTimeMs != 10 || snap.VectorSearch.MaxTimeMs != 30 {
		t.Errorf("Min/Max = %d/%d, want 10/30", snap.VectorSearch.MinTimeMs, snap.VectorSearch.MaxTimeMs)
	}
	if snap.VectorSearch.AvgTimeMs != 20 {
		t.Errorf("AvgTimeMs = %v, want 20", snap.VectorSearch.AvgTimeMs)
	}

	if snap.Embedding != nil {
		t.Error("Unused operations should snapshot as nil")
	}
}

func TestRecordLLMUsage(t *testing.T) {
	c := NewCollector()

	c.RecordLLMUsage(OpLLMGenerate, 100*time.Millisecond, 200, 80, 0.002)
	c.RecordLLMUsage(OpLLMGenerate, 200*time.Millisecond, 400, 120, 0.004)

	snap := c.Snapshot()
	if snap.LLMGenerate == nil {
		t.Fatal("Expected llm_generate snapshot")
	}
	if *snap.LLMGenerate.TotalInputTokens != 600 {
		t.Errorf("TotalInputTokens = %d, want 600", *snap.LLMGenerate.TotalInputTokens)
	}
	if *snap.LLMGenerate.TotalOutputTokens != 200 {
		t.Errorf("TotalOutputTokens = %d, want 200", *snap.LLMGenerate.TotalOutputTokens)
	}
	if *snap.LLMGenerate.AvgInputTokens != 300 {
		t.Errorf("AvgInputTokens = %v, want 300", *snap.LLMGenerate.AvgInputTokens)
	}
	if got := *snap.LLMGenerate.TotalCostUSD; got < 0.0059 || got > 0.0061 {
		t.Errorf("TotalCostUSD = %v, want ~0.006", got)
	}
}

func TestRecordRoute(t *testing.T) {
	c := NewCollector()
	c.RecordRoute("kb")
	c.RecordRoute("kb")
	c.RecordRoute("general")

	snap := c.Snapshot()
	if snap.RouteCounts["kb"] != 2 || snap.RouteCounts["general"] != 1 {
		t.Errorf("RouteCounts = %v", snap.RouteCounts)
	}
}

func TestCollectorConcurrency(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.RecordTiming(OpEmbedding, time.Millisecond)
				c.RecordLLMUsage(OpLLMGenerate, time.Millisecond, 10, 5, 0.0001)
				c.RecordRoute("sme")
			}
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	if snap.Embedding.Count != 1000 {
		t.Errorf("Embedding count = %d, want 1000", snap.Embedding.Count)
	}
	if snap.RouteCounts["sme"] != 1000 {
		t.Errorf("Route count = %d, want 1000", snap.RouteCounts["sme"])
	}
}

func TestSnapshotSurfacesCostWithoutTokens(t *testing.T) {
	c := NewCollector()
	// Providers that report no usage still incur cost; the snapshot must not
	// hide it behind zero token totals.
	c.RecordLLMUsage(OpLLMGenerate, time.Millisecond, 0, 0, 0.0042)

	snap := c.Snapshot()
	if snap.LLMGenerate == nil {
		t.Fatal("Expected LLM generate snapshot")
	}
	if snap.LLMGenerate.TotalCostUSD == nil || *snap.LLMGenerate.TotalCostUSD != 0.0042 {
		t.Errorf("TotalCostUSD = %v, want 0.0042", snap.LLMGenerate.TotalCostUSD)
	}
}
