// Package plan loads execution plans from YAML or JSON files and validates
// their structure before the orchestrator sees them.
package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/crewhq/crew/internal/graph"
	"github.com/crewhq/crew/pkg/models"
)

// TaskSpec is the on-disk shape of one task. Timeout accepts either a Go
// duration string ("45s") or a bare number of seconds.
type TaskSpec struct {
	ID          string   `yaml:"id" json:"id"`
	Description string   `yaml:"description" json:"description"`
	Category    string   `yaml:"category" json:"category"`
	DependsOn   []string `yaml:"depends_on" json:"depends_on"`
	Priority    int      `yaml:"priority" json:"priority"`
	Timeout     string   `yaml:"timeout" json:"timeout"`
	MaxRetries  *int     `yaml:"max_retries" json:"max_retries"`
}

// planFile is the on-disk shape of an execution plan.
type planFile struct {
	Strategy string     `yaml:"strategy" json:"strategy"`
	Tasks    []TaskSpec `yaml:"tasks" json:"tasks"`
}

// Load reads an execution plan from a YAML or JSON file, applies defaults,
// and validates its structure. The returned plan is safe to execute.
func Load(path string) (*models.ExecutionPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan file: %w", err)
	}

	var file planFile
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse plan JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse plan YAML: %w", err)
		}
	}

	return Parse(file.Strategy, file.Tasks)
}

// Parse converts raw plan fields into a validated ExecutionPlan.
func Parse(strategy string, specs []TaskSpec) (*models.ExecutionPlan, error) {
	p := &models.ExecutionPlan{
		Strategy: models.Strategy(strategy),
	}
	if p.Strategy == "" {
		p.Strategy = models.StrategyHybrid
	}
	if !p.Strategy.Valid() {
		return nil, fmt.Errorf("unknown strategy %q", strategy)
	}

	for i, spec := range specs {
		task, err := spec.toTask()
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", i, err)
		}
		p.Tasks = append(p.Tasks, task)
	}

	if err := Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

// toTask applies defaults and converts one spec into a Task.
func (s TaskSpec) toTask() (models.Task, error) {
	if strings.TrimSpace(s.Description) == "" {
		return models.Task{}, fmt.Errorf("description is required")
	}

	category := models.Category(s.Category)
	if !category.Valid() {
		return models.Task{}, fmt.Errorf("unknown category %q", s.Category)
	}

	id := s.ID
	if id == "" {
		id = uuid.New().String()[:8]
	}

	priority := s.Priority
	if priority == 0 {
		priority = models.DefaultPriority
	}

	timeout, err := parseTimeout(s.Timeout)
	if err != nil {
		return models.Task{}, err
	}

	maxRetries := models.DefaultMaxRetries
	if s.MaxRetries != nil {
		if *s.MaxRetries < 0 {
			return models.Task{}, fmt.Errorf("max_retries must not be negative")
		}
		maxRetries = *s.MaxRetries
	}

	return models.Task{
		ID:          id,
		Description: s.Description,
		Category:    category,
		DependsOn:   s.DependsOn,
		Priority:    priority,
		Timeout:     timeout,
		MaxRetries:  maxRetries,
	}, nil
}

// parseTimeout accepts "45s"-style duration strings or bare seconds.
func parseTimeout(raw string) (time.Duration, error) {
	if raw == "" {
		return models.DefaultTimeout, nil
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds <= 0 {
			return 0, fmt.Errorf("timeout must be positive, got %d", seconds)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeout must be positive, got %s", d)
	}
	return d, nil
}

// Validate checks the structural integrity of a plan: unique IDs, known
// dependency references, and an acyclic dependency graph. These are fatal
// errors; nothing executes when Validate fails.
func Validate(p *models.ExecutionPlan) error {
	g := graph.New()
	if err := g.Build(p.Tasks); err != nil {
		return fmt.Errorf("invalid plan: %w", err)
	}
	if _, err := g.Stages(); err != nil {
		return fmt.Errorf("invalid plan: %w", err)
	}
	return nil
}
