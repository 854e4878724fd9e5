package models

import "time"

// Category identifies the kind of specialized invoker that should handle a task.
type Category string

const (
	// CategoryResearch routes to the research invoker.
	CategoryResearch Category = "research"
	// CategoryAnalysis routes to the analysis invoker.
	CategoryAnalysis Category = "analysis"
	// CategoryWriting routes to the writing invoker.
	CategoryWriting Category = "writing"
	// CategoryReview routes to the review invoker.
	CategoryReview Category = "review"
)

// Valid returns true if the category is a known value.
func (c Category) Valid() bool {
	switch c {
	case CategoryResearch, CategoryAnalysis, CategoryWriting, CategoryReview:
		return true
	default:
		return false
	}
}

// Categories returns all known categories in a stable order.
func Categories() []Category {
	return []Category{CategoryResearch, CategoryAnalysis, CategoryWriting, CategoryReview}
}

// Default task parameters applied by the plan loader when a field is omitted.
const (
	// DefaultPriority is the middle-of-the-road task priority.
	DefaultPriority = 3
	// DefaultTimeout bounds a single execution attempt.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxRetries is the number of additional attempts after the first failure.
	DefaultMaxRetries = 2
)

// Task represents one unit of work in an execution plan.
// Tasks are immutable during a run; results are tracked separately by task ID.
type Task struct {
	// ID is the unique identifier for this task within one plan.
	ID string `json:"id" yaml:"id"`
	// Description is the natural-language instruction passed to the invoker.
	Description string `json:"description" yaml:"description"`
	// Category determines which invoker handles this task.
	Category Category `json:"category" yaml:"category"`
	// DependsOn lists task IDs that must complete successfully before this task runs.
	DependsOn []string `json:"depends_on,omitempty" yaml:"depends_on"`
	// Priority orders tasks within a stage; lower is more critical (1=critical, 5=optional).
	Priority int `json:"priority" yaml:"priority"`
	// Timeout is the maximum wall-clock duration for one execution attempt.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
	// MaxRetries is the number of additional attempts after the first failure.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}
