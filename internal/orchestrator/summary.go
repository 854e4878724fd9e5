package orchestrator

import (
	"strings"
	"time"

	"github.com/crewhq/crew/pkg/models"
)

// Failure identifies a task that did not produce a successful result.
type Failure struct {
	TaskID    string           `json:"task_id"`
	Error     string           `json:"error"`
	ErrorKind models.ErrorKind `json:"error_kind"`
}

// Metrics reports aggregate execution statistics for one run.
type Metrics struct {
	WallClock time.Duration `json:"wall_clock"`
	// SequentialEstimate is the sum of individual task durations, i.e.
	// roughly how long the run would have taken with one worker.
	SequentialEstimate time.Duration `json:"sequential_estimate"`
	Speedup            float64       `json:"speedup"`
	CacheHits          int           `json:"cache_hits"`
	CacheMisses        int           `json:"cache_misses"`
	TotalCost          float64       `json:"total_cost"`
	TotalTokens        int64         `json:"total_tokens"`
	ErrorRate          float64       `json:"error_rate"`
}

// Summary is the synthesized outcome of one run.
type Summary struct {
	RunID       string                       `json:"run_id"`
	Status      models.RunStatus             `json:"status"`
	SuccessRate float64                      `json:"success_rate"`
	Output      string                       `json:"output"`
	Results     map[string]models.TaskResult `json:"results"`
	Failures    []Failure                    `json:"failures"`
	// Aborted is true when a critical failure stopped not-yet-started stages.
	Aborted bool `json:"aborted"`
	// Cancelled is true when the run's context was cancelled before all
	// stages completed.
	Cancelled bool    `json:"cancelled"`
	Metrics   Metrics `json:"metrics"`
}

// synthesize builds the run summary from accumulated results.
// executed holds the task ids of each stage that ran, in stage order;
// within a stage the ids keep their scheduling order, which fixes the
// concatenation order of successful outputs.
func (e *Engine) synthesize(runID string, totalTasks int, executed [][]string, results map[string]models.TaskResult, aborted, cancelled bool, wallClock time.Duration) *Summary {
	var outputs []string
	var failures []Failure
	successes := 0
	attempted := 0
	var seqEstimate time.Duration
	var totalTokens int64

	for _, stage := range executed {
		for _, id := range stage {
			r, ok := results[id]
			if !ok {
				continue
			}
			attempted++
			seqEstimate += r.Duration
			totalTokens += r.Tokens
			if r.Success {
				successes++
				if r.Output != "" {
					outputs = append(outputs, r.Output)
				}
			} else {
				failures = append(failures, Failure{TaskID: id, Error: r.Error, ErrorKind: r.ErrorKind})
			}
		}
	}

	status := models.RunFailed
	switch {
	case successes == totalTasks:
		status = models.RunCompleted
	case successes > 0:
		status = models.RunPartial
	}

	successRate := 1.0
	errorRate := 0.0
	if attempted > 0 {
		successRate = float64(successes) / float64(attempted)
		errorRate = float64(attempted-successes) / float64(attempted)
	}

	m := Metrics{
		WallClock:          wallClock,
		SequentialEstimate: seqEstimate,
		TotalCost:          e.cost.Current(),
		TotalTokens:        totalTokens,
		ErrorRate:          errorRate,
	}
	if wallClock > 0 {
		m.Speedup = float64(seqEstimate) / float64(wallClock)
	}
	stats := e.cache.Stats()
	m.CacheHits = stats.Hits
	m.CacheMisses = stats.Misses

	return &Summary{
		RunID:       runID,
		Status:      status,
		SuccessRate: successRate,
		Output:      strings.Join(outputs, "\n\n"),
		Results:     results,
		Failures:    failures,
		Aborted:     aborted,
		Cancelled:   cancelled,
		Metrics:     m,
	}
}
