package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/crewhq/crew/internal/breaker"
	"github.com/crewhq/crew/internal/cache"
	"github.com/crewhq/crew/internal/config"
	"github.com/crewhq/crew/internal/cost"
	"github.com/crewhq/crew/internal/invoker"
	"github.com/crewhq/crew/internal/orchestrator"
	"github.com/crewhq/crew/internal/plan"
	"github.com/crewhq/crew/pkg/models"
)

var (
	runWorkers   int
	runCostLimit float64
	runCacheDB   string
	runStatic    bool
	runVerbose   bool
)

var runCmd = &cobra.Command{
	Use:   "run <plan-file>",
	Short: "Execute a task plan",
	Long: `Execute a YAML or JSON task plan.

Each task names a category (research, analysis, writing, review) and may
depend on other tasks by id. Independent tasks run concurrently; dependent
tasks wait for their dependencies and receive their outputs as context.

Examples:
  crew run plan.yaml
  crew run plan.yaml --workers 8 --cost-limit 2.50
  crew run plan.yaml --static --verbose
  crew run plan.yaml --cache-db .crew/cache.db`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		failed, err := runPlan(args[0])
		if err != nil {
			return err
		}
		// Exit only after runPlan has returned so its deferred
		// store/logger closes have run.
		if failed {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "Max concurrent tasks (default from config)")
	runCmd.Flags().Float64Var(&runCostLimit, "cost-limit", 0, "Soft budget in dollars (default from config; 0 = unlimited)")
	runCmd.Flags().StringVar(&runCacheDB, "cache-db", "", "Persist the result cache to this SQLite file")
	runCmd.Flags().BoolVar(&runStatic, "static", false, "Use the built-in static invoker instead of the Anthropic API")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print per-task results, breaker state, and cost breakdown")
}

// runPlan executes the plan at path. The bool reports whether the run
// finished with no successful task.
func runPlan(path string) (bool, error) {
	cfg, err := config.Load()
	if err != nil {
		return false, fmt.Errorf("loading config: %w", err)
	}

	p, err := plan.Load(path)
	if err != nil {
		return false, err
	}

	reg := invoker.NewRegistry()
	if runStatic {
		reg.RegisterAll(invoker.NewStatic())
	} else {
		claude, err := invoker.NewClaudeInvoker(invoker.ClaudeConfig{
			APIKey:    cfg.Anthropic.APIKey,
			Model:     anthropic.Model(cfg.Anthropic.Model),
			MaxTokens: int64(cfg.Anthropic.MaxTokens),
		})
		if err != nil {
			return false, fmt.Errorf("creating Claude invoker: %w (use --static for a dry run)", err)
		}
		reg.RegisterAll(claude)
	}

	workers := cfg.Defaults.Workers
	if runWorkers > 0 {
		workers = runWorkers
	}
	costLimit := cfg.Defaults.CostLimit
	if runCostLimit > 0 {
		costLimit = runCostLimit
	}

	resultCache := cache.New(cfg.Defaults.CacheSize, cfg.Defaults.CacheTTL)
	var store *cache.Store
	if runCacheDB != "" {
		store, err = cache.OpenStore(runCacheDB)
		if err != nil {
			return false, fmt.Errorf("opening cache store: %w", err)
		}
		defer store.Close()
		if err := store.Load(resultCache); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not load cache: %v\n", err)
		}
	}

	logger := orchestrator.NopLogger()
	if runVerbose {
		logger = orchestrator.NewDebugLoggerForDir(".")
	}
	defer logger.Close()

	engine, err := orchestrator.New(
		orchestrator.RequiredConfig{Registry: reg},
		orchestrator.WithWorkers(workers),
		orchestrator.WithCostController(cost.NewController(costLimit)),
		orchestrator.WithCache(resultCache),
		orchestrator.WithBreaker(breaker.New(breaker.Settings{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			SuccessThreshold: cfg.Breaker.SuccessThreshold,
			Cooldown:         cfg.Breaker.Cooldown,
		})),
		orchestrator.WithCriticalPriority(cfg.Defaults.CriticalPriority),
		orchestrator.WithRetryInterval(cfg.Retry.InitialInterval),
		orchestrator.WithRetryMaxInterval(cfg.Retry.MaxInterval),
		orchestrator.WithLogger(logger),
	)
	if err != nil {
		return false, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := engine.Execute(ctx, p)
	if err != nil {
		return false, err
	}

	if store != nil {
		if err := store.Save(engine.Cache()); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not save cache: %v\n", err)
		}
	}

	printSummary(summary, engine)
	return summary.Status == models.RunFailed, nil
}

func printSummary(s *orchestrator.Summary, engine *orchestrator.Engine) {
	statusColor := color.New(color.FgGreen)
	switch s.Status {
	case models.RunPartial:
		statusColor = color.New(color.FgYellow)
	case models.RunFailed:
		statusColor = color.New(color.FgRed)
	}

	fmt.Printf("\nRun %s: %s (%.0f%% succeeded)\n", s.RunID, statusColor.Sprint(s.Status), s.SuccessRate*100)
	if s.Aborted {
		color.Yellow("Run aborted early after a critical task failure")
	} else if s.Cancelled {
		color.Yellow("Run cancelled before all stages completed")
	}

	if runVerbose {
		ids := make([]string, 0, len(s.Results))
		for id := range s.Results {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			r := s.Results[id]
			mark := color.GreenString("✓")
			if !r.Success {
				mark = color.RedString("✗")
			}
			cached := ""
			if r.Cached {
				cached = " (cached)"
			}
			fmt.Printf("  %s %s%s", mark, id, cached)
			if r.Attempts > 1 {
				fmt.Printf(" [%d attempts]", r.Attempts)
			}
			fmt.Println()
		}
	}

	for _, f := range s.Failures {
		fmt.Printf("  %s %s: %s (%s)\n", color.RedString("✗"), f.TaskID, f.Error, f.ErrorKind)
	}

	m := s.Metrics
	fmt.Printf("\n%d tasks in %s", len(s.Results), m.WallClock.Round(time.Millisecond))
	if m.Speedup > 1.01 {
		fmt.Printf(" (%.1fx faster than sequential)", m.Speedup)
	}
	fmt.Printf("\nCost: $%.4f | Tokens: %d | Cache: %d hits / %d misses\n",
		m.TotalCost, m.TotalTokens, m.CacheHits, m.CacheMisses)

	if runVerbose {
		printBreakdown(engine)
	}

	if s.Output != "" {
		fmt.Printf("\n%s\n%s\n", color.CyanString("=== Output ==="), s.Output)
	}
}

func printBreakdown(engine *orchestrator.Engine) {
	b := engine.Cost().Breakdown()
	if b.Total > 0 {
		fmt.Println("\nCost by category:")
		cats := make([]models.Category, 0, len(b.ByCategory))
		for c := range b.ByCategory {
			cats = append(cats, c)
		}
		sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
		for _, c := range cats {
			fmt.Printf("  %-10s $%.4f\n", c, b.ByCategory[c])
		}
	}
	for _, s := range engine.Cost().Suggestions() {
		color.Yellow("Hint: %s", s)
	}

	for _, cs := range engine.Breaker().Snapshot() {
		if cs.State != breaker.StateClosed.String() {
			color.Yellow("Breaker %s: %s (%d failures)", cs.Category, cs.State, cs.Failures)
		}
	}
}
