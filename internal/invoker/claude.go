package invoker

import (
	"context"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/crewhq/crew/pkg/models"
)

// ModelPricing contains pricing per 1M tokens for a model.
type ModelPricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// DefaultModelPricing contains pricing for known Claude models.
var DefaultModelPricing = map[string]ModelPricing{
	"claude-sonnet-4-20250514":   {InputPerMillion: 3.00, OutputPerMillion: 15.00},
	"claude-3-5-sonnet-20241022": {InputPerMillion: 3.00, OutputPerMillion: 15.00},
	"claude-3-5-haiku-20241022":  {InputPerMillion: 0.80, OutputPerMillion: 4.00},
}

// defaultSystemPrompts gives each category its specialization. Swapping a
// prompt changes the agent's role without touching any type.
var defaultSystemPrompts = map[models.Category]string{
	models.CategoryResearch: "You are a research specialist. Gather relevant facts for the task and report them concisely with sources where possible.",
	models.CategoryAnalysis: "You are an analysis specialist. Interpret the provided material, identify patterns, and state conclusions with supporting reasoning.",
	models.CategoryWriting:  "You are a writing specialist. Turn the provided material into clear, well-structured prose for the requested audience.",
	models.CategoryReview:   "You are a review specialist. Critique the provided material for correctness, clarity, and completeness, and list concrete improvements.",
}

// ClaudeConfig contains configuration for creating a ClaudeInvoker.
type ClaudeConfig struct {
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY env var.
	APIKey string
	// Model is the Claude model to use.
	Model anthropic.Model
	// MaxTokens caps the response length per invocation.
	MaxTokens int64
	// SystemPrompts overrides the per-category system prompts.
	SystemPrompts map[models.Category]string
}

// ClaudeInvoker executes prompts against the Anthropic Messages API.
// One instance serves every category; the category selects the system prompt.
type ClaudeInvoker struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	prompts   map[models.Category]string
}

// NewClaudeInvoker creates an Anthropic-backed invoker.
func NewClaudeInvoker(cfg ClaudeConfig) (*ClaudeInvoker, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
	}

	model := cfg.Model
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	prompts := make(map[models.Category]string, len(defaultSystemPrompts))
	for category, prompt := range defaultSystemPrompts {
		prompts[category] = prompt
	}
	for category, prompt := range cfg.SystemPrompts {
		prompts[category] = prompt
	}

	return &ClaudeInvoker{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: maxTokens,
		prompts:   prompts,
	}, nil
}

// Invoke sends the prompt to the Messages API with the category's system
// prompt and returns the text output with API-reported usage.
func (c *ClaudeInvoker) Invoke(ctx context.Context, category models.Category, prompt string) (*Response, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: c.prompts[category]},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("messages API: %w", err)
	}

	var output string
	for _, block := range resp.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			output += variant.Text
		}
	}

	tokens := resp.Usage.InputTokens + resp.Usage.OutputTokens
	return &Response{
		Output: output,
		Cost:   c.estimateCost(resp.Usage.InputTokens, resp.Usage.OutputTokens),
		Tokens: tokens,
	}, nil
}

// estimateCost converts API-reported token usage to dollars using the
// pricing table. Unknown models cost zero rather than guessing.
func (c *ClaudeInvoker) estimateCost(inputTokens, outputTokens int64) float64 {
	pricing, ok := DefaultModelPricing[string(c.model)]
	if !ok {
		return 0
	}
	inputCost := float64(inputTokens) / 1_000_000 * pricing.InputPerMillion
	outputCost := float64(outputTokens) / 1_000_000 * pricing.OutputPerMillion
	return inputCost + outputCost
}
