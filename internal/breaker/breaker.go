// Package breaker implements a per-category circuit breaker that stops
// dispatching work to a repeatedly-failing invoker category until a cooldown
// elapses.
package breaker

import (
	"sync"
	"time"

	"github.com/crewhq/crew/pkg/models"
)

// State is the circuit state for a single category.
type State int

const (
	// StateClosed allows all dispatches.
	StateClosed State = iota
	// StateOpen blocks all dispatches until the cooldown elapses.
	StateOpen
	// StateHalfOpen allows probe dispatches while recovery is being confirmed.
	StateHalfOpen
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Default thresholds, matching the coordinator's tolerance for flaky invokers.
const (
	DefaultFailureThreshold = 3
	DefaultSuccessThreshold = 2
	DefaultCooldown         = 60 * time.Second
)

// Settings configures breaker behavior shared by all categories.
type Settings struct {
	// FailureThreshold is the number of consecutive closed-state failures that
	// opens the circuit.
	FailureThreshold int
	// SuccessThreshold is the number of consecutive half-open successes that
	// closes the circuit.
	SuccessThreshold int
	// Cooldown is how long the circuit stays open before probing resumes.
	Cooldown time.Duration
}

// DefaultSettings returns the default breaker settings.
func DefaultSettings() Settings {
	return Settings{
		FailureThreshold: DefaultFailureThreshold,
		SuccessThreshold: DefaultSuccessThreshold,
		Cooldown:         DefaultCooldown,
	}
}

// record holds the mutable circuit state for one category.
type record struct {
	state       State
	failures    int
	successes   int
	lastFailure time.Time
}

// Breaker tracks faults per invoker category. All state transitions for a
// category serialize through the breaker mutex, so concurrent tasks targeting
// the same category observe a consistent state machine.
type Breaker struct {
	settings Settings

	mu      sync.Mutex
	records map[models.Category]*record
	// now is the clock source, replaceable in tests.
	now func() time.Time
}

// New creates a Breaker with the given settings. Zero or negative settings
// fields fall back to defaults.
func New(settings Settings) *Breaker {
	if settings.FailureThreshold <= 0 {
		settings.FailureThreshold = DefaultFailureThreshold
	}
	if settings.SuccessThreshold <= 0 {
		settings.SuccessThreshold = DefaultSuccessThreshold
	}
	if settings.Cooldown <= 0 {
		settings.Cooldown = DefaultCooldown
	}
	return &Breaker{
		settings: settings,
		records:  make(map[models.Category]*record),
		now:      time.Now,
	}
}

// recordFor returns the record for a category, creating it in the closed
// state on first use. Caller must hold b.mu.
func (b *Breaker) recordFor(category models.Category) *record {
	r, ok := b.records[category]
	if !ok {
		r = &record{state: StateClosed}
		b.records[category] = r
	}
	return r
}

// Allow reports whether a dispatch to the category may proceed.
// An open circuit whose cooldown has elapsed transitions to half-open here,
// and the call that observes the transition is the probe: it returns true.
func (b *Breaker) Allow(category models.Category) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	r := b.recordFor(category)
	switch r.state {
	case StateOpen:
		if b.now().Sub(r.lastFailure) > b.settings.Cooldown {
			r.state = StateHalfOpen
			r.successes = 0
			return true
		}
		return false
	default:
		// Closed and half-open both admit work.
		return true
	}
}

// OnSuccess records a successful dispatch for the category.
// In half-open, reaching the success threshold closes the circuit.
// In closed, any success fully resets the failure count.
func (b *Breaker) OnSuccess(category models.Category) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r := b.recordFor(category)
	switch r.state {
	case StateHalfOpen:
		r.successes++
		if r.successes >= b.settings.SuccessThreshold {
			r.state = StateClosed
			r.failures = 0
		}
	case StateClosed:
		r.failures = 0
	}
}

// OnFailure records a failed dispatch for the category.
// A half-open failure reopens immediately; closed-state failures accumulate
// until the failure threshold opens the circuit.
func (b *Breaker) OnFailure(category models.Category) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r := b.recordFor(category)
	switch r.state {
	case StateHalfOpen:
		r.state = StateOpen
		r.lastFailure = b.now()
	case StateClosed:
		r.failures++
		if r.failures >= b.settings.FailureThreshold {
			r.state = StateOpen
			r.lastFailure = b.now()
		}
	}
}

// CategoryState is a point-in-time view of one category's circuit.
type CategoryState struct {
	Category    models.Category `json:"category"`
	State       string          `json:"state"`
	Failures    int             `json:"failures"`
	Successes   int             `json:"successes"`
	LastFailure time.Time       `json:"last_failure,omitempty"`
}

// Snapshot returns the current state of every category the breaker has seen.
func (b *Breaker) Snapshot() []CategoryState {
	b.mu.Lock()
	defer b.mu.Unlock()

	states := make([]CategoryState, 0, len(b.records))
	for _, category := range models.Categories() {
		r, ok := b.records[category]
		if !ok {
			continue
		}
		states = append(states, CategoryState{
			Category:    category,
			State:       r.state.String(),
			Failures:    r.failures,
			Successes:   r.successes,
			LastFailure: r.lastFailure,
		})
	}
	return states
}
