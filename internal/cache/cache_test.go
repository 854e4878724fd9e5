package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/crewhq/crew/pkg/models"
)

func researchTask(id, description string, deps ...string) *models.Task {
	return &models.Task{
		ID:          id,
		Description: description,
		Category:    models.CategoryResearch,
		DependsOn:   deps,
	}
}

func successResult(taskID, output string) models.TaskResult {
	return models.TaskResult{TaskID: taskID, Success: true, Output: output, Attempts: 1}
}

func TestKey_IgnoresTaskID(t *testing.T) {
	a := researchTask("t1", "find recent papers", "dep1", "dep2")
	b := researchTask("t99", "find recent papers", "dep1", "dep2")
	if Key(a) != Key(b) {
		t.Error("tasks identical except for ID should share a key")
	}
}

func TestKey_DependencyOrderIrrelevant(t *testing.T) {
	a := researchTask("t1", "summarize", "x", "y")
	b := researchTask("t1", "summarize", "y", "x")
	if Key(a) != Key(b) {
		t.Error("dependency order should not change the key")
	}
}

func TestKey_DistinguishesSemanticFields(t *testing.T) {
	base := researchTask("t1", "summarize findings")
	tests := []struct {
		name  string
		other *models.Task
	}{
		{
			name: "different description",
			other: &models.Task{
				ID: "t1", Description: "summarize results", Category: models.CategoryResearch,
			},
		},
		{
			name: "different category",
			other: &models.Task{
				ID: "t1", Description: "summarize findings", Category: models.CategoryWriting,
			},
		},
		{
			name: "different dependencies",
			other: &models.Task{
				ID: "t1", Description: "summarize findings", Category: models.CategoryResearch,
				DependsOn: []string{"other"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if Key(base) == Key(tt.other) {
				t.Error("semantically different tasks must not share a key")
			}
		})
	}
}

func TestGetPut_RoundTrip(t *testing.T) {
	c := New(10, time.Hour)
	task := researchTask("t1", "collect sources")

	if _, ok := c.Get(task); ok {
		t.Fatal("Get() on empty cache returned a hit")
	}

	c.Put(task, successResult("t1", "three sources found"))

	got, ok := c.Get(task)
	if !ok {
		t.Fatal("Get() after Put() returned a miss")
	}
	if got.Output != "three sources found" {
		t.Errorf("Output = %q, want %q", got.Output, "three sources found")
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Stats() = %+v, want 1 hit and 1 miss", stats)
	}
}

func TestGet_ExpiredEntryBehavesAsMiss(t *testing.T) {
	c := New(10, time.Minute)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	task := researchTask("t1", "collect sources")
	c.Put(task, successResult("t1", "stale"))

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get(task); ok {
		t.Fatal("Get() returned an expired entry")
	}
	if c.Len() != 0 {
		t.Error("expired entry should be deleted on read")
	}
}

func TestPut_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2, time.Hour)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	first := researchTask("a", "first")
	second := researchTask("b", "second")
	c.Put(first, successResult("a", "1"))
	now = now.Add(time.Second)
	c.Put(second, successResult("b", "2"))

	// Touch the first entry so the second becomes least recently used.
	now = now.Add(time.Second)
	c.Get(first)

	now = now.Add(time.Second)
	c.Put(researchTask("c", "third"), successResult("c", "3"))

	if _, ok := c.Get(first); !ok {
		t.Error("recently used entry was evicted")
	}
	if _, ok := c.Get(second); ok {
		t.Error("least recently used entry survived eviction")
	}
	if got := c.Stats().Evictions; got != 1 {
		t.Errorf("Evictions = %d, want 1", got)
	}
}

func TestPut_SameKeyDoesNotEvict(t *testing.T) {
	c := New(1, time.Hour)
	task := researchTask("a", "only")
	c.Put(task, successResult("a", "v1"))
	c.Put(task, successResult("a", "v2"))

	got, ok := c.Get(task)
	if !ok {
		t.Fatal("Get() missed after overwrite")
	}
	if got.Output != "v2" {
		t.Errorf("Output = %q, want v2", got.Output)
	}
	if c.Stats().Evictions != 0 {
		t.Error("overwriting an existing key must not evict")
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New(50, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				task := researchTask("t", fmt.Sprintf("task %d-%d", n, j%10))
				c.Put(task, successResult("t", "out"))
				c.Get(task)
			}
		}(i)
	}
	wg.Wait()

	if c.Len() > 50 {
		t.Errorf("Len() = %d, exceeds capacity 50", c.Len())
	}
}

func TestExportImport_RoundTrip(t *testing.T) {
	src := New(10, time.Hour)
	taskA := researchTask("a", "alpha")
	taskB := researchTask("b", "beta")
	src.Put(taskA, successResult("a", "A"))
	src.Put(taskB, successResult("b", "B"))

	dst := New(10, time.Hour)
	dst.Import(src.Export())

	for _, task := range []*models.Task{taskA, taskB} {
		if _, ok := dst.Get(task); !ok {
			t.Errorf("entry for %s lost in export/import round trip", task.ID)
		}
	}
}

func TestImport_SkipsExpiredEntries(t *testing.T) {
	c := New(10, time.Minute)
	c.Import([]Entry{
		{
			Key:      "stale",
			Result:   successResult("t", "old"),
			StoredAt: time.Now().Add(-time.Hour),
		},
	})
	if c.Len() != 0 {
		t.Error("Import() kept an expired entry")
	}
}
