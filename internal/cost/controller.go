// Package cost tracks cumulative run spend against a budget.
package cost

import (
	"fmt"
	"sort"
	"sync"

	"github.com/crewhq/crew/pkg/models"
)

// Controller enforces a soft cost budget. CanProceed is a point-in-time check,
// not a reservation: concurrent tasks that both pass it before either adds
// cost may overshoot the limit by at most one task's spend.
type Controller struct {
	mu         sync.Mutex
	limit      float64
	current    float64
	byCategory map[models.Category]float64
	adds       int
}

// NewController creates a Controller with the given budget.
// A non-positive limit disables enforcement.
func NewController(limit float64) *Controller {
	return &Controller{
		limit:      limit,
		byCategory: make(map[models.Category]float64),
	}
}

// AddCost records spend against the budget. Cost is additive and monotonic
// within a run.
func (c *Controller) AddCost(amount float64, category models.Category) {
	if amount < 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current += amount
	c.adds++
	if category != "" {
		c.byCategory[category] += amount
	}
}

// CanProceed reports whether further dispatch is within budget.
func (c *Controller) CanProceed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.limit <= 0 {
		return true
	}
	return c.current < c.limit
}

// Remaining returns the unspent budget, clamped at zero.
func (c *Controller) Remaining() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.limit <= 0 {
		return 0
	}
	remaining := c.limit - c.current
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Current returns the total spend so far.
func (c *Controller) Current() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Breakdown is a point-in-time view of spend.
type Breakdown struct {
	Total          float64                     `json:"total"`
	Remaining      float64                     `json:"remaining"`
	ByCategory     map[models.Category]float64 `json:"by_category"`
	AveragePerTask float64                     `json:"average_per_task"`
}

// Breakdown returns the detailed spend picture.
func (c *Controller) Breakdown() Breakdown {
	c.mu.Lock()
	defer c.mu.Unlock()

	byCategory := make(map[models.Category]float64, len(c.byCategory))
	for k, v := range c.byCategory {
		byCategory[k] = v
	}

	remaining := 0.0
	if c.limit > 0 {
		remaining = c.limit - c.current
		if remaining < 0 {
			remaining = 0
		}
	}

	average := 0.0
	if c.adds > 0 {
		average = c.current / float64(c.adds)
	}

	return Breakdown{
		Total:          c.current,
		Remaining:      remaining,
		ByCategory:     byCategory,
		AveragePerTask: average,
	}
}

// Suggestions returns cost-optimization hints based on where the spend went.
func (c *Controller) Suggestions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var suggestions []string

	if c.limit > 0 && c.current > c.limit*0.8 {
		suggestions = append(suggestions, "over 80% of budget spent: consider a cheaper model for low-priority tasks")
	}

	// Flag any category that dominates spend.
	var dominant []string
	for category, spent := range c.byCategory {
		if c.current > 0 && spent > c.current*0.4 {
			dominant = append(dominant, string(category))
		}
	}
	sort.Strings(dominant)
	for _, category := range dominant {
		suggestions = append(suggestions, fmt.Sprintf("category %q accounts for over 40%% of spend: tighten its prompts or cache more aggressively", category))
	}

	return suggestions
}
