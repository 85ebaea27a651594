package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ziadkadry99/notedraft/internal/config"
	"github.com/ziadkadry99/notedraft/internal/llm"
)

// ModelGenerator drafts through a chat-completion transport with greedy
// decoding. Each call gets its own wall-clock budget when timeout > 0.
type ModelGenerator struct {
	provider llm.Provider
	model    string
	timeout  time.Duration

	// jsonMode asks the engine to constrain output to a JSON object.
	jsonMode bool
}

// NewModelGenerator wraps provider. A zero timeout means no per-call budget.
func NewModelGenerator(provider llm.Provider, model string, timeout time.Duration) *ModelGenerator {
	return &ModelGenerator{
		provider: provider,
		model:    model,
		timeout:  timeout,
	}
}

func (g *ModelGenerator) Name() string {
	return "heavy"
}

// Model returns the configured model identifier.
func (g *ModelGenerator) Model() string {
	return g.model
}

func (g *ModelGenerator) Generate(ctx context.Context, system, user string, maxTokens int) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.provider.Complete(ctx, llm.CompletionRequest{
		Model:       g.model,
		Messages:    llm.ChatTurns(system, user),
		MaxTokens:   maxTokens,
		Temperature: 0,
		JSONMode:    g.jsonMode,
	})
	if errors.Is(err, llm.ErrModelNotFound) {
		return "", &config.ConfigurationError{Key: "model_id", Reason: err.Error()}
	}
	if err != nil {
		return "", fmt.Errorf("%s completion with %s: %w", g.provider.Name(), g.model, err)
	}
	return strings.TrimSpace(resp.Content), nil
}
