// Package invoker defines the agent invocation contract and the category
// routing between tasks and configured invoker implementations.
package invoker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/crewhq/crew/pkg/models"
)

// ErrNoInvoker indicates no invoker is registered for a requested category.
var ErrNoInvoker = errors.New("no invoker registered for category")

// Response is the result of one successful agent invocation.
type Response struct {
	// Output is the agent's text result.
	Output string
	// Cost is the dollar cost of the invocation as reported (or estimated)
	// by the implementation.
	Cost float64
	// Tokens is the total token count of the invocation.
	Tokens int64
}

// Invoker executes one prompt for a category and returns the agent's output.
// Implementations are treated as pure functions of (category, prompt): they
// never touch orchestrator-shared state. Whether an invoker is backed by a
// real model or a test double is a construction-time decision.
type Invoker interface {
	Invoke(ctx context.Context, category models.Category, prompt string) (*Response, error)
}

// Registry maps categories to configured invoker instances. Specialization is
// data (which invoker, which prompt template), not a type hierarchy.
type Registry struct {
	mu       sync.RWMutex
	invokers map[models.Category]Invoker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{invokers: make(map[models.Category]Invoker)}
}

// Register binds an invoker to a category, replacing any previous binding.
func (r *Registry) Register(category models.Category, inv Invoker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invokers[category] = inv
}

// RegisterAll binds one invoker to every known category.
func (r *Registry) RegisterAll(inv Invoker) {
	for _, category := range models.Categories() {
		r.Register(category, inv)
	}
}

// Lookup returns the invoker for a category.
func (r *Registry) Lookup(category models.Category) (Invoker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inv, ok := r.invokers[category]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoInvoker, category)
	}
	return inv, nil
}

// Invoke routes a prompt to the invoker registered for the category.
func (r *Registry) Invoke(ctx context.Context, category models.Category, prompt string) (*Response, error) {
	inv, err := r.Lookup(category)
	if err != nil {
		return nil, err
	}
	return inv.Invoke(ctx, category, prompt)
}
