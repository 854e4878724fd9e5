package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/crewhq/crew/pkg/models"
)

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")

	store, err := OpenStore(dbPath)
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	defer store.Close()

	src := New(10, time.Hour)
	task := &models.Task{
		ID:          "t1",
		Description: "persisted task",
		Category:    models.CategoryAnalysis,
	}
	src.Put(task, models.TaskResult{
		TaskID:  "t1",
		Success: true,
		Output:  "analysis output",
		Cost:    0.02,
		Tokens:  140,
	})

	if err := store.Save(src); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	dst := New(10, time.Hour)
	if err := store.Load(dst); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	got, ok := dst.Get(task)
	if !ok {
		t.Fatal("entry lost across save/load")
	}
	if got.Output != "analysis output" {
		t.Errorf("Output = %q, want %q", got.Output, "analysis output")
	}
	if got.Cost != 0.02 || got.Tokens != 140 {
		t.Errorf("resource metadata Cost=%v Tokens=%v not preserved", got.Cost, got.Tokens)
	}
}

func TestStore_SaveReplacesContents(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")

	store, err := OpenStore(dbPath)
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	defer store.Close()

	first := New(10, time.Hour)
	oldTask := &models.Task{ID: "old", Description: "old task", Category: models.CategoryResearch}
	first.Put(oldTask, models.TaskResult{TaskID: "old", Success: true, Output: "old"})
	if err := store.Save(first); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	second := New(10, time.Hour)
	newTask := &models.Task{ID: "new", Description: "new task", Category: models.CategoryResearch}
	second.Put(newTask, models.TaskResult{TaskID: "new", Success: true, Output: "new"})
	if err := store.Save(second); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	loaded := New(10, time.Hour)
	if err := store.Load(loaded); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, ok := loaded.Get(oldTask); ok {
		t.Error("old entry survived a replacing save")
	}
	if _, ok := loaded.Get(newTask); !ok {
		t.Error("new entry missing after save")
	}
}

func TestStore_LoadIntoEmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")

	store, err := OpenStore(dbPath)
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	defer store.Close()

	c := New(10, time.Hour)
	if err := store.Load(c); err != nil {
		t.Fatalf("Load() on empty database error = %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after empty load, want 0", c.Len())
	}
}
