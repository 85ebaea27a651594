package generator

import (
	"context"
	"encoding/json"
	"time"
)

// StubGenerator returns a fixed schema-shaped note instantly. It never
// fails and ignores the prompt.
type StubGenerator struct {
	promptVersion string
	now           func() time.Time
}

// NewStubGenerator creates a stub that stamps the given prompt version.
func NewStubGenerator(promptVersion string) *StubGenerator {
	return &StubGenerator{promptVersion: promptVersion, now: time.Now}
}

func (s *StubGenerator) Name() string {
	return "stub"
}

type stubSafety struct {
	NoDiagnosisOrTreatment bool     `json:"no_diagnosis_or_treatment"`
	Notes                  []string `json:"notes"`
}

type stubProvenance struct {
	ModelFamily   string  `json:"model_family"`
	ModelVariant  *string `json:"model_variant"`
	PromptVersion string  `json:"prompt_version"`
	GeneratedAt   string  `json:"generated_at"`
}

type stubNote struct {
	Summary           string         `json:"summary"`
	DraftNote         string         `json:"draft_note"`
	MissingInfo       []string       `json:"missing_info"`
	FollowupQuestions []string       `json:"followup_questions"`
	RiskLevel         string         `json:"risk_level"`
	RiskFlags         []string       `json:"risk_flags"`
	Safety            stubSafety     `json:"safety"`
	Provenance        stubProvenance `json:"provenance"`
}

func (s *StubGenerator) Generate(ctx context.Context, system, user string, maxTokens int) (string, error) {
	note := stubNote{
		Summary:           "Stub summary. Set MODEL_PROVIDER=heavy and MODEL_ID to run a real model.",
		DraftNote:         "Stub draft note. Facts only. Clinician review required.",
		MissingInfo:       []string{"MODEL_PROVIDER=stub: connect a model to generate real output."},
		FollowupQuestions: []string{},
		RiskLevel:         "LOW",
		RiskFlags:         []string{},
		Safety: stubSafety{
			NoDiagnosisOrTreatment: true,
			Notes:                  []string{"Human-in-the-loop."},
		},
		Provenance: stubProvenance{
			ModelFamily:   "stub",
			PromptVersion: s.promptVersion,
			GeneratedAt:   s.now().UTC().Format(time.RFC3339),
		},
	}
	out, err := json.Marshal(note)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
