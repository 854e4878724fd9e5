package models

// Strategy is an execution-strategy hint supplied by the plan source.
type Strategy string

const (
	// StrategySequential executes one task at a time in dependency order.
	StrategySequential Strategy = "sequential"
	// StrategyParallel executes independent tasks concurrently.
	StrategyParallel Strategy = "parallel"
	// StrategyHybrid derives the schedule from the dependency graph, running
	// each dependency level with intra-level parallelism. This is the default.
	StrategyHybrid Strategy = "hybrid"
)

// Valid returns true if the strategy is a known value.
func (s Strategy) Valid() bool {
	switch s {
	case StrategySequential, StrategyParallel, StrategyHybrid:
		return true
	default:
		return false
	}
}

// ExecutionPlan is the ordered set of tasks the orchestrator executes.
// The strategy is a hint: hybrid and parallel both derive the real schedule
// from the dependency graph, sequential forces one task per stage.
type ExecutionPlan struct {
	// Tasks is the ordered sequence of tasks to execute.
	Tasks []Task `json:"tasks" yaml:"tasks"`
	// Strategy is the execution-strategy hint.
	Strategy Strategy `json:"strategy" yaml:"strategy"`
}
