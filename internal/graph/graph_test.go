package graph

import (
	"errors"
	"testing"

	"github.com/crewhq/crew/pkg/models"
)

func task(id string, priority int, deps ...string) models.Task {
	return models.Task{
		ID:          id,
		Description: "task " + id,
		Category:    models.CategoryResearch,
		DependsOn:   deps,
		Priority:    priority,
	}
}

func TestBuild_ValidGraph(t *testing.T) {
	g := New()
	err := g.Build([]models.Task{
		task("a", 1),
		task("b", 2, "a"),
		task("c", 3, "a", "b"),
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if g.Size() != 3 {
		t.Errorf("Size() = %d, want 3", g.Size())
	}
}

func TestBuild_DuplicateID(t *testing.T) {
	g := New()
	err := g.Build([]models.Task{task("a", 1), task("a", 2)})
	if !errors.Is(err, ErrDuplicateID) {
		t.Errorf("Build() error = %v, want ErrDuplicateID", err)
	}
}

func TestBuild_UnknownDependency(t *testing.T) {
	g := New()
	err := g.Build([]models.Task{task("a", 1, "missing")})
	if !errors.Is(err, ErrUnknownDependency) {
		t.Errorf("Build() error = %v, want ErrUnknownDependency", err)
	}
}

func TestBuild_CycleDetection(t *testing.T) {
	tests := []struct {
		name  string
		tasks []models.Task
	}{
		{
			name:  "two task cycle",
			tasks: []models.Task{task("a", 1, "b"), task("b", 1, "a")},
		},
		{
			name:  "self dependency",
			tasks: []models.Task{task("a", 1, "a")},
		},
		{
			name: "three task cycle",
			tasks: []models.Task{
				task("a", 1, "c"),
				task("b", 1, "a"),
				task("c", 1, "b"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New()
			err := g.Build(tt.tasks)
			if !errors.Is(err, ErrCycleDetected) {
				t.Errorf("Build() error = %v, want ErrCycleDetected", err)
			}
		})
	}
}

func TestStages_EmptyGraph(t *testing.T) {
	g := New()
	if err := g.Build(nil); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	stages, err := g.Stages()
	if err != nil {
		t.Fatalf("Stages() error = %v", err)
	}
	if len(stages) != 0 {
		t.Errorf("Stages() returned %d stages for empty graph, want 0", len(stages))
	}
}

func TestStages_DependenciesPrecedeDependents(t *testing.T) {
	g := New()
	err := g.Build([]models.Task{
		task("fetch", 1),
		task("parse", 2, "fetch"),
		task("summarize", 2, "parse"),
		task("index", 3, "fetch"),
		task("report", 1, "summarize", "index"),
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	stages, err := g.Stages()
	if err != nil {
		t.Fatalf("Stages() error = %v", err)
	}

	stageOf := make(map[string]int)
	for i, stage := range stages {
		for _, tsk := range stage {
			stageOf[tsk.ID] = i
		}
	}

	for id := range stageOf {
		for _, dep := range g.GetDependencies(id) {
			if stageOf[id] <= stageOf[dep] {
				t.Errorf("task %s in stage %d does not follow dependency %s in stage %d",
					id, stageOf[id], dep, stageOf[dep])
			}
		}
	}
}

func TestStages_IndependentTasksShareOneStage(t *testing.T) {
	g := New()
	err := g.Build([]models.Task{task("a", 3), task("b", 3), task("c", 3)})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	stages, err := g.Stages()
	if err != nil {
		t.Fatalf("Stages() error = %v", err)
	}
	if len(stages) != 1 {
		t.Fatalf("Stages() returned %d stages, want 1", len(stages))
	}
	if len(stages[0]) != 3 {
		t.Errorf("stage 0 has %d tasks, want 3", len(stages[0]))
	}
}

func TestStages_TieBreakByPriorityThenID(t *testing.T) {
	g := New()
	err := g.Build([]models.Task{
		task("zeta", 1),
		task("alpha", 2),
		task("mid", 1),
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	stages, err := g.Stages()
	if err != nil {
		t.Fatalf("Stages() error = %v", err)
	}

	got := []string{stages[0][0].ID, stages[0][1].ID, stages[0][2].ID}
	want := []string{"mid", "zeta", "alpha"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("stage order = %v, want %v", got, want)
			break
		}
	}
}

func TestGetDependents(t *testing.T) {
	g := New()
	err := g.Build([]models.Task{
		task("a", 1),
		task("b", 2, "a"),
		task("c", 2, "a"),
		task("d", 3, "b"),
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	deps := g.GetDependents("a")
	if len(deps) != 2 {
		t.Fatalf("GetDependents(a) = %v, want 2 entries", deps)
	}
	if deps[0] != "b" || deps[1] != "c" {
		t.Errorf("GetDependents(a) = %v, want [b c]", deps)
	}
	if got := g.GetDependents("d"); len(got) != 0 {
		t.Errorf("GetDependents(d) = %v, want empty", got)
	}
}
