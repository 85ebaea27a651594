// Package batch drafts notes for a directory of intake cases and collects
// the per-case outcomes for the demo report.
package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/notedraft/internal/config"
	"github.com/ziadkadry99/notedraft/internal/history"
	"github.com/ziadkadry99/notedraft/internal/intake"
	"github.com/ziadkadry99/notedraft/internal/metrics"
	"github.com/ziadkadry99/notedraft/internal/pipeline"
	"github.com/ziadkadry99/notedraft/internal/progress"
	"github.com/ziadkadry99/notedraft/internal/report"
)

// DefaultPattern matches the bundled demo cases.
const DefaultPattern = "data_demo/cases/*.json"

const excerptRunes = 2000

// ErrNoCases is returned by Discover when the pattern matches nothing.
var ErrNoCases = errors.New("no cases found")

// Options configure a Runner. History, Metrics and Reporter are optional.
type Options struct {
	Config    *config.Config
	Validator pipeline.Validator
	PromptDir string

	OutDir      string
	RawDir      string
	SavePrompts bool
	Concurrency int

	History  *history.Store
	Metrics  *metrics.Collector
	Reporter progress.Reporter
}

// Runner drafts notes for many cases concurrently.
type Runner struct {
	opts Options
}

// NewRunner creates a Runner.
func NewRunner(opts Options) *Runner {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Reporter == nil {
		opts.Reporter = progress.NewCIReporter(os.Stderr)
	}
	return &Runner{opts: opts}
}

// Discover returns the files matching pattern in lexical order.
func Discover(pattern string) ([]string, error) {
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("matching %s: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoCases, pattern)
	}
	sort.Strings(matches)
	return matches, nil
}

// Run drafts every case and returns the results in case order. A failing
// case never stops the others; only a cancelled context ends the run early.
func (r *Runner) Run(ctx context.Context, cases []string) ([]report.CaseResult, error) {
	results := make([]report.CaseResult, len(cases))

	r.opts.Reporter.Start(len(cases))
	defer r.opts.Reporter.Finish()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)
	for i, path := range cases {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = r.runCase(ctx, path)
			r.opts.Reporter.Done(filepath.Base(path), results[i].OK)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// caseTrace keeps what the pipeline reported about one case.
type caseTrace struct {
	mu       sync.Mutex
	attempts int
	lastRaw  string
}

func (t *caseTrace) OnAttempt(a pipeline.Attempt) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attempts = a.Index
	if a.Raw != "" {
		t.lastRaw = a.Raw
	}
}

func (r *Runner) runCase(ctx context.Context, path string) report.CaseResult {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	res := report.CaseResult{CaseFile: filepath.ToSlash(path)}
	logger := log.With().Str("case", stem).Logger()

	in, err := intake.Load(path)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	level, flags := intake.Risk(in)

	cfg := r.opts.Config
	backend := string(cfg.Backend)
	rawPath := filepath.Join(r.opts.RawDir, "raw_"+stem+".txt")
	var promptPath string
	if r.opts.SavePrompts {
		promptPath = filepath.Join(r.opts.RawDir, "prompt_"+stem+".txt")
	}

	trace := &caseTrace{}
	observers := []pipeline.Observer{trace}
	rec := r.opts.History.Begin(ctx, history.Run{
		Source:    history.SourceDemo,
		CaseName:  stem,
		Backend:   backend,
		ModelID:   cfg.ModelID,
		RiskLevel: level,
	})
	if rec != nil {
		observers = append(observers, rec)
	}
	done := func(error) {}
	if r.opts.Metrics != nil {
		observers = append(observers, r.opts.Metrics.Observer(backend))
		done = r.opts.Metrics.RunStarted(backend)
	}

	out, err := pipeline.Draft(ctx, cfg, pipeline.Request{
		Intake:         in,
		RiskLevel:      level,
		RiskFlags:      flags,
		DiagnosticPath: rawPath,
		PromptPath:     promptPath,
		Observer:       pipeline.Observers(observers...),
	}, r.opts.Validator, r.opts.PromptDir)
	done(err)
	rec.Finish(err)

	res.RunID = rec.RunID()
	res.Attempts = trace.attempts
	if promptPath != "" && fileExists(promptPath) {
		res.PromptFile = filepath.ToSlash(promptPath)
	}

	if err != nil {
		logger.Warn().Err(err).Msg("case failed")
		res.Error = err.Error()
		var exh *pipeline.ExhaustedError
		if errors.As(err, &exh) && exh.ArtifactErr == nil {
			res.RawFile = filepath.ToSlash(exh.ArtifactPath)
		}
		res.RawExcerpt = report.Excerpt(trace.lastRaw, excerptRunes)
		return res
	}

	if err := r.opts.Validator.Validate(out.Record); err != nil {
		res.Error = "Schema validation failed: " + err.Error()
		return res
	}
	res.Validated = true

	outPath := filepath.Join(r.opts.OutDir, "output_"+stem+".json")
	if err := writeJSON(outPath, out.Record); err != nil {
		res.Error = err.Error()
		return res
	}
	res.OutputFile = filepath.ToSlash(outPath)

	if err := writeFile(rawPath, []byte(out.Raw)); err != nil {
		logger.Warn().Err(err).Msg("could not save raw text")
	} else {
		res.RawFile = filepath.ToSlash(rawPath)
	}

	res.OK = true
	return res
}

func writeJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return writeFile(path, buf.Bytes())
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
