package pipeline

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/ziadkadry99/notedraft/internal/config"
	"github.com/ziadkadry99/notedraft/internal/generator"
	"github.com/ziadkadry99/notedraft/internal/prompt"
)

// OptionsFromConfig maps configuration onto orchestrator options.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		Retries:        cfg.Retries,
		MaxTokens:      cfg.MaxNewTokens,
		PromptVersion:  cfg.PromptVersion,
		DiagnosticPath: cfg.DiagnosticPath,
	}
	if cfg.SaveLastPrompt {
		opts.PromptPath = cfg.LastPromptPath
	}
	return opts
}

// GenerateOutput drafts one note for intake. It returns the validated
// record and the raw text it was extracted from.
//
// Configuration problems are returned before any generation. When every
// attempt fails the last raw text is saved at cfg.DiagnosticPath and the
// error is an *ExhaustedError.
func GenerateOutput(ctx context.Context, cfg *config.Config, intake any, outputSchema Validator, riskLevel string, riskFlags []string, promptDir string) (Record, string, error) {
	res, err := Draft(ctx, cfg, Request{
		Intake:    intake,
		RiskLevel: riskLevel,
		RiskFlags: riskFlags,
	}, outputSchema, promptDir)
	if err != nil {
		return nil, "", err
	}
	return res.Record, res.Raw, nil
}

// Draft is GenerateOutput with access to the full Request and Result. The
// Templates field of req is loaded from promptDir.
func Draft(ctx context.Context, cfg *config.Config, req Request, outputSchema Validator, promptDir string) (*Result, error) {
	gen, err := generator.New(cfg)
	if err != nil {
		return nil, err
	}
	tpl, err := prompt.Load(promptDir)
	if err != nil {
		return nil, err
	}
	req.Templates = tpl
	return New(gen, outputSchema, OptionsFromConfig(cfg)).Run(ctx, req)
}

// RunArtifactPath names a per-run diagnostic file next to base:
// last_model_raw.txt becomes last_model_raw_<runID>.txt. An empty runID gets
// a fresh UUID.
func RunArtifactPath(base, runID string) string {
	if base == "" {
		base = "last_model_raw.txt"
	}
	if runID == "" {
		runID = uuid.NewString()
	}
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "_" + runID + ext
}
