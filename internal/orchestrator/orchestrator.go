package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/crewhq/crew/internal/breaker"
	"github.com/crewhq/crew/internal/cache"
	"github.com/crewhq/crew/internal/cost"
	"github.com/crewhq/crew/internal/graph"
	"github.com/crewhq/crew/internal/invoker"
	"github.com/crewhq/crew/pkg/models"
)

// Engine executes an ExecutionPlan stage by stage. Tasks within a stage
// run concurrently under a bounded worker pool; stages run strictly in
// order so later tasks can read their dependencies' outputs.
type Engine struct {
	registry         *invoker.Registry
	breaker          *breaker.Breaker
	cache            *cache.ResultCache
	cost             *cost.Controller
	logger           *DebugLogger
	workers          int
	criticalPriority int
	contextLimit     int
	retryInterval    time.Duration
	retryMaxInterval time.Duration

	now func() time.Time
}

// New creates an Engine from required config plus options.
func New(req RequiredConfig, opts ...Option) (*Engine, error) {
	if req.Registry == nil {
		return nil, errors.New("orchestrator: registry is required")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	if o.workers < 1 {
		o.workers = 1
	}
	if o.breaker == nil {
		o.breaker = breaker.New(breaker.DefaultSettings())
	}
	if o.cache == nil {
		o.cache = cache.New(cache.DefaultCapacity, cache.DefaultTTL)
	}
	if o.costController == nil {
		o.costController = cost.NewController(0)
	}
	if o.logger == nil {
		o.logger = NopLogger()
	}
	setPackageLogger(o.logger)

	return &Engine{
		registry:         req.Registry,
		breaker:          o.breaker,
		cache:            o.cache,
		cost:             o.costController,
		logger:           o.logger,
		workers:          o.workers,
		criticalPriority: o.criticalPriority,
		contextLimit:     o.contextLimit,
		retryInterval:    o.retryInterval,
		retryMaxInterval: o.retryMaxInterval,
		now:              time.Now,
	}, nil
}

// Breaker exposes the engine's circuit breaker for reporting.
func (e *Engine) Breaker() *breaker.Breaker { return e.breaker }

// Cache exposes the engine's result cache for reporting and persistence.
func (e *Engine) Cache() *cache.ResultCache { return e.cache }

// Cost exposes the engine's cost controller for reporting.
func (e *Engine) Cost() *cost.Controller { return e.cost }

// Execute runs the plan to completion and synthesizes a summary.
// It returns an error only for structural problems (duplicate ids,
// unknown dependencies, cycles) detected before any task runs; every
// per-task failure is captured in the summary instead.
func (e *Engine) Execute(ctx context.Context, plan *models.ExecutionPlan) (*Summary, error) {
	start := e.now()
	runID := uuid.New().String()[:8]

	g := graph.New()
	g.SetDebugLog(debugLog)
	if err := g.Build(plan.Tasks); err != nil {
		return nil, fmt.Errorf("build dependency graph: %w", err)
	}
	stages, err := g.Stages()
	if err != nil {
		return nil, fmt.Errorf("compute stages: %w", err)
	}
	if plan.Strategy == models.StrategySequential {
		stages = singletonStages(stages)
	}

	e.logger.Log("run %s: %d tasks in %d stages (strategy=%s)", runID, len(plan.Tasks), len(stages), plan.Strategy)

	results := make(map[string]models.TaskResult, len(plan.Tasks))
	var executed [][]string
	aborted := false
	cancelled := false

	for i, stage := range stages {
		ids := make([]string, len(stage))
		for j, t := range stage {
			ids[j] = t.ID
		}
		executed = append(executed, ids)

		e.logger.Log("run %s: stage %d/%d: %v", runID, i+1, len(stages), ids)
		e.runStage(ctx, stage, results)

		for _, t := range stage {
			r := results[t.ID]
			if !r.Success && e.isCritical(t, g) {
				e.logger.Log("run %s: critical task %s failed (%s), aborting remaining stages", runID, t.ID, r.ErrorKind)
				aborted = true
			}
		}
		if ctx.Err() != nil {
			e.logger.Log("run %s: context cancelled, skipping remaining stages", runID)
			cancelled = true
		}
		if aborted || cancelled {
			break
		}
	}

	summary := e.synthesize(runID, len(plan.Tasks), executed, results, aborted, cancelled, e.now().Sub(start))
	e.logger.Log("run %s: status=%s success_rate=%.2f cost=%.4f", runID, summary.Status, summary.SuccessRate, summary.Metrics.TotalCost)
	return summary, nil
}

// runStage gates each task (dependencies, cache, breaker, budget) and
// dispatches the survivors concurrently. All results for the stage are
// written into results before it returns.
func (e *Engine) runStage(ctx context.Context, stage []*models.Task, results map[string]models.TaskResult) {
	var dispatch []*models.Task

	for _, t := range stage {
		if blocked, dep := e.blockedDependency(t, results); blocked {
			results[t.ID] = syntheticFailure(t.ID, models.ErrorKindBlockedByDependency,
				fmt.Sprintf("dependency %q did not succeed", dep))
			continue
		}
		if r, ok := e.cache.Get(t); ok {
			r.TaskID = t.ID
			r.Cached = true
			results[t.ID] = r
			e.logger.Log("task %s: cache hit", t.ID)
			continue
		}
		if !e.breaker.Allow(t.Category) {
			results[t.ID] = syntheticFailure(t.ID, models.ErrorKindBreakerOpen,
				fmt.Sprintf("circuit breaker open for category %q", t.Category))
			continue
		}
		if !e.cost.CanProceed() {
			results[t.ID] = syntheticFailure(t.ID, models.ErrorKindBudgetExceeded,
				fmt.Sprintf("cost budget exhausted (remaining %.4f)", e.cost.Remaining()))
			continue
		}
		dispatch = append(dispatch, t)
	}

	if len(dispatch) == 0 {
		return
	}

	sem := semaphore.NewWeighted(int64(e.workers))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, t := range dispatch {
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			results[t.ID] = syntheticFailure(t.ID, models.ErrorKindInvocation, err.Error())
			mu.Unlock()
			continue
		}
		wg.Add(1)
		go func(t *models.Task) {
			defer wg.Done()
			defer sem.Release(1)
			r := e.runTask(ctx, t, results, &mu)
			mu.Lock()
			results[t.ID] = r
			mu.Unlock()
		}(t)
	}
	wg.Wait()
}

// runTask invokes the agent for one task with per-attempt timeouts and
// exponential backoff between attempts. It updates the cost controller,
// breaker, and cache according to the final outcome.
func (e *Engine) runTask(ctx context.Context, t *models.Task, results map[string]models.TaskResult, mu *sync.Mutex) models.TaskResult {
	prompt := e.buildPrompt(t, results, mu)
	started := e.now()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.retryInterval
	bo.RandomizationFactor = 0
	bo.Multiplier = 2
	bo.MaxInterval = e.retryMaxInterval
	bo.MaxElapsedTime = 0
	bo.Reset()

	var lastErr error
	kind := models.ErrorKindInvocation
	attempts := 0

	for attempt := 0; attempt <= t.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(bo.NextBackOff()):
			case <-ctx.Done():
				attempts = attempt
				return taskFailure(t.ID, attempts, kind, lastErr, e.now().Sub(started))
			}
		}
		attempts = attempt + 1

		attemptCtx, cancel := context.WithTimeout(ctx, t.Timeout)
		resp, err := e.registry.Invoke(attemptCtx, t.Category, prompt)
		cancel()

		if err == nil {
			r := models.TaskResult{
				TaskID:   t.ID,
				Success:  true,
				Output:   resp.Output,
				Attempts: attempts,
				Cost:     resp.Cost,
				Tokens:   resp.Tokens,
				Duration: e.now().Sub(started),
			}
			e.cost.AddCost(r.Cost, t.Category)
			e.breaker.OnSuccess(t.Category)
			e.cache.Put(t, r)
			return r
		}

		lastErr = err
		if errors.Is(err, context.DeadlineExceeded) {
			kind = models.ErrorKindTimeout
		} else {
			kind = models.ErrorKindInvocation
		}
		e.logger.Log("task %s: attempt %d/%d failed (%s): %v", t.ID, attempts, t.MaxRetries+1, kind, err)

		if ctx.Err() != nil {
			break
		}
	}

	e.breaker.OnFailure(t.Category)
	return taskFailure(t.ID, attempts, kind, lastErr, e.now().Sub(started))
}

// blockedDependency reports whether any dependency of t is missing or
// failed, returning the first offending id.
func (e *Engine) blockedDependency(t *models.Task, results map[string]models.TaskResult) (bool, string) {
	for _, dep := range t.DependsOn {
		r, ok := results[dep]
		if !ok || !r.Success {
			return true, dep
		}
	}
	return false, ""
}

// buildPrompt assembles the task's prompt from its description plus the
// outputs of its dependencies, each truncated to the context limit.
func (e *Engine) buildPrompt(t *models.Task, results map[string]models.TaskResult, mu *sync.Mutex) string {
	if len(t.DependsOn) == 0 {
		return t.Description
	}

	var b strings.Builder
	b.WriteString(t.Description)
	b.WriteString("\n\nContext from dependencies:\n")
	for _, dep := range t.DependsOn {
		mu.Lock()
		r, ok := results[dep]
		mu.Unlock()
		if !ok || !r.Success {
			continue
		}
		fmt.Fprintf(&b, "\n[%s]\n%s\n", dep, truncate(r.Output, e.contextLimit))
	}
	return b.String()
}

// truncate keeps the head and tail of long output, dropping the middle.
func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	head := limit / 2
	tail := limit * 3 / 10
	return s[:head] + "\n...[truncated]...\n" + s[len(s)-tail:]
}

// isCritical reports whether t's failure should abort remaining stages:
// either its priority marks it critical or at least two tasks depend on it.
func (e *Engine) isCritical(t *models.Task, g *graph.DependencyGraph) bool {
	if t.Priority <= e.criticalPriority {
		return true
	}
	return len(g.GetDependents(t.ID)) >= 2
}

// singletonStages flattens stages so each task runs alone, preserving
// the existing stage and in-stage order.
func singletonStages(stages [][]*models.Task) [][]*models.Task {
	var out [][]*models.Task
	for _, stage := range stages {
		for _, t := range stage {
			out = append(out, []*models.Task{t})
		}
	}
	return out
}

func syntheticFailure(taskID string, kind models.ErrorKind, msg string) models.TaskResult {
	return models.TaskResult{
		TaskID:    taskID,
		Success:   false,
		Error:     msg,
		ErrorKind: kind,
	}
}

func taskFailure(taskID string, attempts int, kind models.ErrorKind, err error, d time.Duration) models.TaskResult {
	msg := "invocation failed"
	if err != nil {
		msg = err.Error()
	}
	return models.TaskResult{
		TaskID:    taskID,
		Success:   false,
		Error:     msg,
		ErrorKind: kind,
		Attempts:  attempts,
		Duration:  d,
	}
}
