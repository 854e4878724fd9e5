package invoker

import (
	"context"
	"fmt"

	"github.com/crewhq/crew/pkg/models"
)

// Static is an offline invoker that produces deterministic canned output.
// It serves dry runs and plan debugging without spending API budget.
type Static struct {
	// CostPerCall is the cost reported for each invocation.
	CostPerCall float64
	// TokensPerCall is the token count reported for each invocation.
	TokensPerCall int64
}

// NewStatic returns a Static invoker with plausible per-call usage figures.
func NewStatic() *Static {
	return &Static{CostPerCall: 0.01, TokensPerCall: 100}
}

// Invoke returns a deterministic response echoing the category and prompt.
func (s *Static) Invoke(ctx context.Context, category models.Category, prompt string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Response{
		Output: fmt.Sprintf("[%s] %s", category, prompt),
		Cost:   s.CostPerCall,
		Tokens: s.TokensPerCall,
	}, nil
}
