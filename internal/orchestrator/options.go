package orchestrator

import (
	"time"

	"github.com/crewhq/crew/internal/breaker"
	"github.com/crewhq/crew/internal/cache"
	"github.com/crewhq/crew/internal/cost"
	"github.com/crewhq/crew/internal/invoker"
)

// Defaults for optional engine configuration.
const (
	// DefaultWorkers bounds concurrent task dispatch within a stage.
	DefaultWorkers = 4
	// DefaultCriticalPriority is the priority at or below which a task's
	// failure aborts remaining stages.
	DefaultCriticalPriority = 2
	// DefaultContextLimit is the character budget for each dependency's
	// output when assembling a task's prompt context.
	DefaultContextLimit = 1000
	// DefaultRetryInterval is the base wait before the first retry.
	// Successive waits double, so attempt n waits roughly 2^n times this.
	DefaultRetryInterval = 1 * time.Second
	// DefaultRetryMaxInterval caps the backoff wait between attempts.
	DefaultRetryMaxInterval = 30 * time.Second
)

// RequiredConfig contains the minimal required configuration for an Engine.
// All fields are required and have no defaults.
type RequiredConfig struct {
	// Registry routes task categories to agent invokers.
	Registry *invoker.Registry
}

// Option configures an Engine. Use With* functions to create Options.
type Option func(*engineOptions)

// engineOptions holds all optional configuration.
type engineOptions struct {
	workers          int
	criticalPriority int
	contextLimit     int
	retryInterval    time.Duration
	retryMaxInterval time.Duration
	breaker          *breaker.Breaker
	cache            *cache.ResultCache
	costController   *cost.Controller
	logger           *DebugLogger
}

// WithWorkers sets the maximum number of concurrently dispatched tasks.
func WithWorkers(n int) Option {
	return func(o *engineOptions) { o.workers = n }
}

// WithCriticalPriority sets the priority threshold at or below which a
// failed task aborts remaining stages.
func WithCriticalPriority(p int) Option {
	return func(o *engineOptions) { o.criticalPriority = p }
}

// WithContextLimit sets the per-dependency character budget for prompt context.
func WithContextLimit(n int) Option {
	return func(o *engineOptions) { o.contextLimit = n }
}

// WithRetryInterval sets the base backoff interval between retry attempts.
func WithRetryInterval(d time.Duration) Option {
	return func(o *engineOptions) { o.retryInterval = d }
}

// WithRetryMaxInterval caps the backoff interval between retry attempts.
func WithRetryMaxInterval(d time.Duration) Option {
	return func(o *engineOptions) { o.retryMaxInterval = d }
}

// WithBreaker sets a custom circuit breaker.
func WithBreaker(b *breaker.Breaker) Option {
	return func(o *engineOptions) { o.breaker = b }
}

// WithCache sets a custom result cache.
func WithCache(c *cache.ResultCache) Option {
	return func(o *engineOptions) { o.cache = c }
}

// WithCostController sets a custom cost controller.
func WithCostController(c *cost.Controller) Option {
	return func(o *engineOptions) { o.costController = c }
}

// WithLogger sets the debug logger.
func WithLogger(l *DebugLogger) Option {
	return func(o *engineOptions) { o.logger = l }
}

// defaultOptions returns engineOptions with every field at its default.
func defaultOptions() *engineOptions {
	return &engineOptions{
		workers:          DefaultWorkers,
		criticalPriority: DefaultCriticalPriority,
		contextLimit:     DefaultContextLimit,
		retryInterval:    DefaultRetryInterval,
		retryMaxInterval: DefaultRetryMaxInterval,
	}
}
