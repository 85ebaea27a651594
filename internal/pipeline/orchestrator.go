// Package pipeline turns raw model output into a validated note, retrying
// with a tightened prompt until the output schema accepts a record or the
// retry budget runs out.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ziadkadry99/notedraft/internal/enforce"
	"github.com/ziadkadry99/notedraft/internal/extract"
	"github.com/ziadkadry99/notedraft/internal/generator"
	"github.com/ziadkadry99/notedraft/internal/llm"
	"github.com/ziadkadry99/notedraft/internal/prompt"
	"github.com/ziadkadry99/notedraft/internal/safety"
)

// Record is a validated output note.
type Record = map[string]any

// Validator checks a candidate record against the output schema.
type Validator interface {
	Validate(doc any) error
}

// Options configure an Orchestrator.
type Options struct {
	// Retries is the number of extra attempts after the first.
	Retries   int
	MaxTokens int

	// Backend fills provenance.model_family when the model left it out.
	Backend       string
	PromptVersion string

	// DiagnosticPath receives the last raw text when every attempt fails.
	DiagnosticPath string
	// PromptPath, when set, receives the prompt sent on each attempt.
	PromptPath string

	Logger *zerolog.Logger
	Now    func() time.Time
}

// Request is one note to draft.
type Request struct {
	Intake    any
	RiskLevel string
	RiskFlags []string
	Templates prompt.Templates

	// Per-request overrides of the Options paths.
	DiagnosticPath string
	PromptPath     string

	Observer Observer
}

// Result is a successful run.
type Result struct {
	Record   Record
	Raw      string
	Prompt   prompt.Prompt
	Attempts []Attempt
}

// Orchestrator drives the draft, extract, sanitize, enforce, validate loop.
// It holds no per-run state and is safe for concurrent use.
type Orchestrator struct {
	gen       generator.Generator
	validator Validator
	opts      Options
}

// New creates an Orchestrator.
func New(gen generator.Generator, validator Validator, opts Options) *Orchestrator {
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Backend == "" {
		opts.Backend = gen.Name()
	}
	if opts.DiagnosticPath == "" {
		opts.DiagnosticPath = "last_model_raw.txt"
	}
	if opts.Logger == nil {
		opts.Logger = &log.Logger
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{gen: gen, validator: validator, opts: opts}
}

// Run executes attempts until one produces a record the schema accepts.
// Extraction and validation failures are retried with a corrective
// instruction appended to the prompt. A generation backend failure or a
// cancelled context ends the run at once. When the budget is spent the last
// raw text is written to the diagnostic path and an *ExhaustedError is
// returned.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	p, err := req.Templates.Render(req.RiskLevel, req.RiskFlags, req.Intake)
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}

	fields := enforce.Fields{
		RiskLevel:     req.RiskLevel,
		RiskFlags:     req.RiskFlags,
		Backend:       o.opts.Backend,
		PromptVersion: o.opts.PromptVersion,
	}
	promptPath := firstNonEmpty(req.PromptPath, o.opts.PromptPath)
	logger := o.opts.Logger.With().Str("backend", o.gen.Name()).Logger()

	var (
		attempts []Attempt
		lastRaw  string
		lastErr  error
	)
	total := o.opts.Retries + 1
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if lastErr != nil {
			p = p.WithCorrection(lastErr.Error())
		}
		if promptPath != "" {
			if err := writeFile(promptPath, p.Text()); err != nil {
				logger.Warn().Err(err).Str("path", promptPath).Msg("could not save prompt")
			}
		}

		logger.Debug().
			Int("attempt", i).
			Int("prompt_tokens", llm.EstimateTokens(p.Text())).
			Msg("drafting")

		start := time.Now()
		enter := func(s State) {
			logger.Debug().Int("attempt", i).Stringer("state", s).Msg("entering state")
		}
		rec, raw, state, err := o.attempt(ctx, p, fields, enter)
		a := Attempt{Index: i, State: state, Raw: raw, Duration: time.Since(start)}
		if err != nil {
			a.Err = err.Error()
		}
		attempts = append(attempts, a)
		if req.Observer != nil {
			req.Observer.OnAttempt(a)
		}

		if errors.Is(err, ErrGeneration) {
			logger.Error().Err(err).Int("attempt", i).Msg("generation backend failed")
			return nil, err
		}
		if err == nil {
			logger.Info().Int("attempt", i).Stringer("state", StateSucceeded).Dur("took", a.Duration).Msg("note drafted")
			return &Result{Record: rec, Raw: raw, Prompt: p, Attempts: attempts}, nil
		}

		logger.Warn().Err(err).Int("attempt", i).Str("state", state.String()).Msg("attempt rejected")
		lastRaw, lastErr = raw, err
	}

	return nil, o.exhaust(req, attempts, lastRaw, lastErr, logger)
}

// attempt runs one Drafting to Validating pass and reports the state it
// stopped in. enter is called as each state begins.
func (o *Orchestrator) attempt(ctx context.Context, p prompt.Prompt, fields enforce.Fields, enter func(State)) (Record, string, State, error) {
	enter(StateDrafting)
	raw, err := o.gen.Generate(ctx, p.System, p.User, o.opts.MaxTokens)
	if err != nil {
		return nil, "", StateDrafting, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	enter(StateExtracting)
	cand, ok := extract.Extract(raw)
	if !ok {
		return nil, raw, StateExtracting, ErrNoJSONObject
	}

	enter(StateProcessing)
	cleaned, _ := safety.Sanitize(cand)
	rec := enforce.Enforce(cleaned, fields, o.opts.Now())

	enter(StateValidating)
	if err := o.validator.Validate(rec); err != nil {
		return nil, raw, StateValidating, &SchemaValidationError{Err: err}
	}
	return rec, raw, StateSucceeded, nil
}

func (o *Orchestrator) exhaust(req Request, attempts []Attempt, lastRaw string, lastErr error, logger zerolog.Logger) error {
	path := firstNonEmpty(req.DiagnosticPath, o.opts.DiagnosticPath)
	exh := &ExhaustedError{
		Attempts:     len(attempts),
		Last:         lastErr,
		ArtifactPath: path,
		ArtifactErr:  writeFile(path, lastRaw),
	}
	logger.Error().
		Err(lastErr).
		Stringer("state", StateExhausted).
		Int("attempts", exh.Attempts).
		Str("artifact", path).
		Msg("retry budget exhausted")
	return exh
}

func writeFile(path, content string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
