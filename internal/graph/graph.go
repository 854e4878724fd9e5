// Package graph provides the dependency graph and stage scheduling for task execution.
package graph

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/crewhq/crew/pkg/models"
)

// ErrCycleDetected indicates a circular dependency was found in the task graph.
var ErrCycleDetected = errors.New("circular dependency detected")

// ErrUnknownDependency indicates a task depends on an ID not present in the plan.
var ErrUnknownDependency = errors.New("dependency references unknown task")

// ErrDuplicateID indicates two tasks in the plan share an ID.
var ErrDuplicateID = errors.New("duplicate task id")

// DependencyGraph represents a directed acyclic graph of task dependencies.
// Tasks are nodes, and edges represent "blocked by" relationships.
type DependencyGraph struct {
	mu sync.RWMutex
	// nodes maps task ID to the task itself.
	nodes map[string]*models.Task
	// edges maps task ID to IDs of tasks it depends on (is blocked by).
	edges map[string][]string
	// order preserves plan order for deterministic iteration.
	order []string
	// debugLog is an optional logging function.
	debugLog func(format string, args ...interface{})
}

// New creates a new empty dependency graph.
func New() *DependencyGraph {
	return &DependencyGraph{
		nodes:    make(map[string]*models.Task),
		edges:    make(map[string][]string),
		debugLog: func(format string, args ...interface{}) {}, // no-op by default
	}
}

// SetDebugLog sets the debug logging function.
func (g *DependencyGraph) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		g.debugLog = fn
	}
}

// Build constructs the dependency graph from a slice of tasks.
// Returns ErrDuplicateID, ErrUnknownDependency, or ErrCycleDetected on
// structurally invalid input. These are fatal plan errors: nothing may
// execute once Build fails.
func (g *DependencyGraph) Build(tasks []models.Task) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.debugLog("[graph.Build] building graph from %d tasks", len(tasks))

	// First pass: register all tasks as nodes.
	for i := range tasks {
		task := tasks[i]
		if _, exists := g.nodes[task.ID]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateID, task.ID)
		}
		g.nodes[task.ID] = &task
		g.edges[task.ID] = nil
		g.order = append(g.order, task.ID)
	}

	// Second pass: build edges from DependsOn fields.
	for i := range tasks {
		task := &tasks[i]
		for _, depID := range task.DependsOn {
			if _, exists := g.nodes[depID]; !exists {
				return fmt.Errorf("%w: task %s depends on %s", ErrUnknownDependency, task.ID, depID)
			}
			g.edges[task.ID] = append(g.edges[task.ID], depID)
		}
	}

	if g.hasCycleLocked() {
		return ErrCycleDetected
	}

	g.debugLog("[graph.Build] graph built successfully with %d nodes", len(g.nodes))
	return nil
}

// HasCycle returns true if the graph contains a circular dependency.
// Uses depth-first search with coloring to detect back edges.
func (g *DependencyGraph) HasCycle() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.hasCycleLocked()
}

// hasCycleLocked is the internal implementation that assumes the lock is held.
func (g *DependencyGraph) hasCycleLocked() bool {
	// Color states: 0 = white (unvisited), 1 = gray (in progress), 2 = black (done).
	colors := make(map[string]int)
	for id := range g.nodes {
		colors[id] = 0
	}

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = 1 // Mark as in progress.

		for _, depID := range g.edges[id] {
			switch colors[depID] {
			case 1:
				// Found a back edge - cycle detected.
				return true
			case 0:
				if visit(depID) {
					return true
				}
			}
			// color == 2 means already processed, skip.
		}

		colors[id] = 2 // Mark as done.
		return false
	}

	for id := range g.nodes {
		if colors[id] == 0 {
			if visit(id) {
				return true
			}
		}
	}

	return false
}

// Stages groups tasks into execution levels: a task enters stage n only when
// all of its dependencies were assigned to stages before n. Tasks within one
// stage have no dependency relationship among them and are safe to run
// concurrently. Ties within a stage break by ascending priority, then ID, so
// the schedule is deterministic.
func (g *DependencyGraph) Stages() ([][]*models.Task, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var stages [][]*models.Task
	assigned := make(map[string]bool, len(g.nodes))

	for len(assigned) < len(g.nodes) {
		var stage []*models.Task

		for _, id := range g.order {
			if assigned[id] {
				continue
			}
			ready := true
			for _, depID := range g.edges[id] {
				if !assigned[depID] {
					ready = false
					break
				}
			}
			if ready {
				stage = append(stage, g.nodes[id])
			}
		}

		if len(stage) == 0 {
			// No progress means a cycle survived Build, which should not happen
			// for graphs constructed through it.
			return nil, ErrCycleDetected
		}

		sort.Slice(stage, func(i, j int) bool {
			if stage[i].Priority != stage[j].Priority {
				return stage[i].Priority < stage[j].Priority
			}
			return stage[i].ID < stage[j].ID
		})

		for _, task := range stage {
			assigned[task.ID] = true
		}
		stages = append(stages, stage)
		g.debugLog("[graph.Stages] stage %d has %d tasks", len(stages), len(stage))
	}

	return stages, nil
}

// GetTask returns the task for a given ID, or nil if not found.
func (g *DependencyGraph) GetTask(taskID string) *models.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[taskID]
}

// Size returns the number of tasks in the graph.
func (g *DependencyGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// GetDependencies returns the IDs of tasks that the given task depends on.
func (g *DependencyGraph) GetDependencies(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edges[taskID]
}

// GetDependents returns the IDs of tasks that depend on the given task.
func (g *DependencyGraph) GetDependents(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var dependents []string
	for _, id := range g.order {
		for _, depID := range g.edges[id] {
			if depID == taskID {
				dependents = append(dependents, id)
				break
			}
		}
	}
	return dependents
}
