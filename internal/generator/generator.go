// Package generator provides the uniform text-generation surface the note
// pipeline drafts through: a deterministic stub and a model-backed variant.
package generator

import (
	"context"

	"github.com/ziadkadry99/notedraft/internal/config"
)

// Generator produces raw, untrusted text for a system/user prompt pair.
type Generator interface {
	// Generate returns the newly generated text only; the prompt is never echoed.
	Generate(ctx context.Context, system, user string, maxTokens int) (string, error)
	// Name identifies the backend; it is recorded as provenance model_family.
	Name() string
}

// New returns the generator selected by cfg. The heavy variant is served
// from the process-wide cache (see Shared). Unresolved configuration yields
// a *config.ConfigurationError and nothing is constructed.
func New(cfg *config.Config) (Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case config.BackendStub:
		return NewStubGenerator(cfg.PromptVersion), nil
	case config.BackendHeavy:
		return Shared(cfg)
	default:
		return nil, &config.ConfigurationError{Key: "backend", Reason: "unknown backend " + string(cfg.Backend)}
	}
}
