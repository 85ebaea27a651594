package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ziadkadry99/notedraft/internal/assets"
	"github.com/ziadkadry99/notedraft/internal/config"
	"github.com/ziadkadry99/notedraft/internal/prompt"
	"github.com/ziadkadry99/notedraft/internal/safety"
	"github.com/ziadkadry99/notedraft/internal/schema"
)

// scriptedGenerator replays canned outputs and records every user prompt.
// The last output repeats once the script runs out.
type scriptedGenerator struct {
	mu      sync.Mutex
	outputs []string
	err     error
	prompts []string
}

func (s *scriptedGenerator) Name() string { return "scripted" }

func (s *scriptedGenerator) Generate(ctx context.Context, system, user string, maxTokens int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, user)
	if s.err != nil {
		return "", s.err
	}
	i := len(s.prompts) - 1
	if i >= len(s.outputs) {
		i = len(s.outputs) - 1
	}
	return s.outputs[i], nil
}

func (s *scriptedGenerator) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func outputSchema(t *testing.T) Validator {
	t.Helper()
	data, err := assets.Read(assets.OutputSchema)
	if err != nil {
		t.Fatalf("reading schema: %v", err)
	}
	v, err := schema.Compile("output.schema.json", data)
	if err != nil {
		t.Fatalf("compiling schema: %v", err)
	}
	return v
}

func templates() prompt.Templates {
	return prompt.Templates{
		System: "You draft notes.",
		User:   "Risk {{RISK_LEVEL}} {{RISK_FLAGS}}\n{{INTAKE_JSON}}",
	}
}

func newTestOrchestrator(t *testing.T, gen *scriptedGenerator, retries int) *Orchestrator {
	t.Helper()
	nop := zerolog.Nop()
	return New(gen, outputSchema(t), Options{
		Retries:        retries,
		MaxTokens:      800,
		PromptVersion:  "step5",
		DiagnosticPath: filepath.Join(t.TempDir(), "last_model_raw.txt"),
		Logger:         &nop,
		Now:            func() time.Time { return testNow },
	})
}

func candidateJSON(t *testing.T, mutate func(map[string]any)) string {
	t.Helper()
	c := map[string]any{
		"summary":            "Cough for two days.",
		"draft_note":         "Cough for two days, worse at night.",
		"missing_info":       []string{"Temperature readings"},
		"followup_questions": []string{"Any fever?"},
		"risk_level":         "LOW",
		"risk_flags":         []string{},
		"safety":             map[string]any{"no_diagnosis_or_treatment": true, "notes": []string{}},
		"provenance":         map[string]any{"model_family": "scripted", "model_variant": nil, "prompt_version": "step5", "generated_at": ""},
	}
	if mutate != nil {
		mutate(c)
	}
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func request() Request {
	return Request{
		Intake:    map[string]any{"visit": map[string]any{"chief_complaint_category": "cough"}},
		RiskLevel: "LOW",
		RiskFlags: []string{},
		Templates: templates(),
	}
}

func TestScenarioStubSucceedsFirstAttempt(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DiagnosticPath = filepath.Join(t.TempDir(), "raw.txt")

	res, err := Draft(context.Background(), cfg, Request{
		Intake:    map[string]any{"patient": map[string]any{"age_years": 30}},
		RiskLevel: "LOW",
		RiskFlags: []string{},
	}, outputSchema(t), t.TempDir())
	if err != nil {
		t.Fatalf("Draft: %v", err)
	}
	if len(res.Attempts) != 1 {
		t.Errorf("expected 1 attempt, got %d", len(res.Attempts))
	}
	note := res.Record["draft_note"].(string)
	if !strings.Contains(note, "PLAN") {
		t.Errorf("draft_note lacks PLAN: %q", note)
	}
	if res.Record["safety"].(map[string]any)["no_diagnosis_or_treatment"] != true {
		t.Error("no_diagnosis_or_treatment must be true")
	}
	if _, err := os.Stat(cfg.DiagnosticPath); !os.IsNotExist(err) {
		t.Error("diagnostic artifact written on success")
	}
}

func TestScenarioBraceFreeExhausts(t *testing.T) {
	gen := &scriptedGenerator{outputs: []string{"I cannot help.", "Still no JSON.", "Final answer: none"}}
	o := newTestOrchestrator(t, gen, 2)

	res, err := o.Run(context.Background(), request())
	if res != nil {
		t.Fatal("no record may be returned on failure")
	}
	if !errors.Is(err, ErrRetryBudgetExhausted) {
		t.Fatalf("expected exhaustion, got %v", err)
	}
	if !errors.Is(err, ErrNoJSONObject) {
		t.Errorf("expected last error to be ErrNoJSONObject, got %v", err)
	}

	var exh *ExhaustedError
	if !errors.As(err, &exh) {
		t.Fatalf("expected *ExhaustedError, got %T", err)
	}
	if exh.Attempts != 3 || gen.calls() != 3 {
		t.Errorf("attempts: error says %d, generator saw %d, want 3", exh.Attempts, gen.calls())
	}
	data, readErr := os.ReadFile(exh.ArtifactPath)
	if readErr != nil {
		t.Fatalf("artifact missing: %v", readErr)
	}
	if string(data) != "Final answer: none" {
		t.Errorf("artifact: got %q", data)
	}
	if !strings.Contains(err.Error(), "raw text saved for review") {
		t.Errorf("message: %v", err)
	}
}

func TestScenarioMissingSafetyIsInjected(t *testing.T) {
	raw := candidateJSON(t, func(c map[string]any) { delete(c, "safety") })
	gen := &scriptedGenerator{outputs: []string{raw}}

	res, err := newTestOrchestrator(t, gen, 2).Run(context.Background(), request())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if gen.calls() != 1 {
		t.Errorf("expected success on the first attempt, got %d calls", gen.calls())
	}
	s := res.Record["safety"].(map[string]any)
	if s["no_diagnosis_or_treatment"] != true {
		t.Errorf("safety: %v", s)
	}
	notes := s["notes"].([]any)
	if len(notes) != 1 || notes[0] != safety.AuditNote {
		t.Errorf("notes: %v", notes)
	}
}

func TestScenarioTreatmentSentenceRemoved(t *testing.T) {
	raw := "```json\n" + candidateJSON(t, func(c map[string]any) {
		c["draft_note"] = "Cough for two days. Take ibuprofen 400 mg every 6 hours. Sleeps poorly."
	}) + "\n```"
	gen := &scriptedGenerator{outputs: []string{raw}}

	res, err := newTestOrchestrator(t, gen, 2).Run(context.Background(), request())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	note := res.Record["draft_note"].(string)
	if strings.Contains(note, "ibuprofen") {
		t.Errorf("treatment sentence survived: %q", note)
	}
	want := "Cough for two days. Sleeps poorly. " + safety.PlanPlaceholder
	if note != want {
		t.Errorf("draft_note:\n got %q\nwant %q", note, want)
	}
	if res.Raw != raw {
		t.Error("raw text must be returned unmodified")
	}
}

func TestProtectedFieldsOverridden(t *testing.T) {
	raw := candidateJSON(t, func(c map[string]any) {
		c["risk_level"] = "HIGH"
		c["risk_flags"] = []string{"invented"}
		c["safety"] = map[string]any{"no_diagnosis_or_treatment": false, "notes": []string{}}
	})
	gen := &scriptedGenerator{outputs: []string{raw}}
	req := request()
	req.RiskLevel = "MED"
	req.RiskFlags = []string{"fever_3_days"}

	res, err := newTestOrchestrator(t, gen, 0).Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Record["risk_level"] != "MED" {
		t.Errorf("risk_level: %v", res.Record["risk_level"])
	}
	flags := res.Record["risk_flags"].([]any)
	if len(flags) != 1 || flags[0] != "fever_3_days" {
		t.Errorf("risk_flags: %v", flags)
	}
	if res.Record["safety"].(map[string]any)["no_diagnosis_or_treatment"] != true {
		t.Error("safety flag not forced")
	}
	prov := res.Record["provenance"].(map[string]any)
	if prov["generated_at"] != "2025-06-01T12:00:00Z" || prov["model_family"] != "scripted" {
		t.Errorf("provenance: %v", prov)
	}
}

func TestCorrectionsAccumulate(t *testing.T) {
	gen := &scriptedGenerator{outputs: []string{
		"no braces here",
		`{"summary": 5}`,
		candidateJSON(t, nil),
	}}
	var seen []Attempt
	req := request()
	req.Observer = ObserverFunc(func(a Attempt) { seen = append(seen, a) })

	res, err := newTestOrchestrator(t, gen, 2).Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	p := gen.prompts
	if len(p) != 3 {
		t.Fatalf("expected 3 prompts, got %d", len(p))
	}
	if !strings.HasPrefix(p[1], p[0]) || !strings.HasPrefix(p[2], p[1]) {
		t.Error("prompt must only grow between attempts")
	}
	if !strings.HasSuffix(p[1], prompt.CorrectionPrefix+ErrNoJSONObject.Error()) {
		t.Errorf("second prompt tail: %q", p[1][len(p[0]):])
	}
	if !strings.Contains(p[2][len(p[1]):], "Schema validation error") {
		t.Errorf("third prompt tail: %q", p[2][len(p[1]):])
	}
	if res.Prompt.User != p[2] {
		t.Error("result prompt should be the last one sent")
	}

	wantStates := []State{StateExtracting, StateValidating, StateSucceeded}
	if len(seen) != len(wantStates) {
		t.Fatalf("observer saw %d attempts", len(seen))
	}
	for i, a := range seen {
		if a.Index != i+1 || a.State != wantStates[i] {
			t.Errorf("attempt %d: index %d state %s, want %s", i, a.Index, a.State, wantStates[i])
		}
	}
	if seen[2].Err != "" || seen[0].Err != ErrNoJSONObject.Error() {
		t.Errorf("attempt errors: %q, %q", seen[0].Err, seen[2].Err)
	}
}

func TestGenerationErrorAbortsWithoutRetry(t *testing.T) {
	gen := &scriptedGenerator{err: errors.New("connection refused")}
	o := newTestOrchestrator(t, gen, 2)

	_, err := o.Run(context.Background(), request())
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("expected generation error, got %v", err)
	}
	if errors.Is(err, ErrRetryBudgetExhausted) {
		t.Error("generation errors are not exhaustion")
	}
	if gen.calls() != 1 {
		t.Errorf("expected 1 call, got %d", gen.calls())
	}
	if _, statErr := os.Stat(o.opts.DiagnosticPath); !os.IsNotExist(statErr) {
		t.Error("no artifact expected for generation errors")
	}
}

func TestZeroRetriesMeansOneAttempt(t *testing.T) {
	gen := &scriptedGenerator{outputs: []string{"nope"}}
	_, err := newTestOrchestrator(t, gen, 0).Run(context.Background(), request())
	var exh *ExhaustedError
	if !errors.As(err, &exh) || exh.Attempts != 1 || gen.calls() != 1 {
		t.Errorf("expected one attempt, got %v after %d calls", err, gen.calls())
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen := &scriptedGenerator{outputs: []string{candidateJSON(t, nil)}}

	_, err := newTestOrchestrator(t, gen, 2).Run(ctx, request())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if gen.calls() != 0 {
		t.Error("generator called after cancellation")
	}
}

func TestPromptCapture(t *testing.T) {
	gen := &scriptedGenerator{outputs: []string{"nope", candidateJSON(t, nil)}}
	req := request()
	req.PromptPath = filepath.Join(t.TempDir(), "prompts", "last.txt")
	req.DiagnosticPath = filepath.Join(t.TempDir(), "case_raw.txt")

	res, err := newTestOrchestrator(t, gen, 2).Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	data, err := os.ReadFile(req.PromptPath)
	if err != nil {
		t.Fatalf("prompt not saved: %v", err)
	}
	if string(data) != res.Prompt.Text() {
		t.Errorf("saved prompt differs from the last prompt sent")
	}
}

func TestGenerateOutputConfigurationError(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Backend = "gpu"
	_, _, err := GenerateOutput(context.Background(), cfg, map[string]any{}, outputSchema(t), "LOW", nil, t.TempDir())
	if !errors.Is(err, config.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestGenerateOutputReturnsRecordAndRaw(t *testing.T) {
	cfg := config.DefaultConfig()
	rec, raw, err := GenerateOutput(context.Background(), cfg, map[string]any{}, outputSchema(t), "HIGH", []string{"chest_pain"}, t.TempDir())
	if err != nil {
		t.Fatalf("GenerateOutput: %v", err)
	}
	if rec["risk_level"] != "HIGH" {
		t.Errorf("risk_level: %v", rec["risk_level"])
	}
	if !strings.Contains(raw, `"model_family":"stub"`) {
		t.Errorf("raw: %s", raw)
	}
}

func TestRunArtifactPath(t *testing.T) {
	if got := RunArtifactPath(filepath.Join("out", "last_model_raw.txt"), "abc"); got != filepath.Join("out", "last_model_raw_abc.txt") {
		t.Errorf("got %q", got)
	}
	if got := RunArtifactPath("", "abc"); got != "last_model_raw_abc.txt" {
		t.Errorf("default base: got %q", got)
	}
	a, b := RunArtifactPath("raw.txt", ""), RunArtifactPath("raw.txt", "")
	if a == b || !strings.HasPrefix(a, "raw_") {
		t.Errorf("anonymous runs: %q %q", a, b)
	}
}

type rejectingValidator struct{}

func (rejectingValidator) Validate(any) error { return errors.New("/: rejected") }

func TestLogsEveryStateEntered(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	gen := &scriptedGenerator{outputs: []string{candidateJSON(t, nil)}}
	o := New(gen, rejectingValidator{}, Options{
		Retries:        0,
		DiagnosticPath: filepath.Join(t.TempDir(), "raw.txt"),
		Logger:         &logger,
		Now:            func() time.Time { return testNow },
	})

	if _, err := o.Run(context.Background(), request()); !errors.Is(err, ErrRetryBudgetExhausted) {
		t.Fatalf("expected exhaustion, got %v", err)
	}
	out := buf.String()
	for _, state := range []State{StateDrafting, StateExtracting, StateProcessing, StateValidating, StateExhausted} {
		if !strings.Contains(out, `"state":"`+state.String()+`"`) {
			t.Errorf("no log line for %s:\n%s", state, out)
		}
	}
}
