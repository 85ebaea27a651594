// Package prompt loads the prompt templates and renders them for one intake.
package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ziadkadry99/notedraft/internal/assets"
)

const (
	SystemFile = "system.md"
	UserFile   = "user_template.md"

	// CorrectionPrefix starts the instruction appended after a failed attempt.
	CorrectionPrefix = "\n\nReturn only one JSON object, first character '{', last character '}'. "
)

// Templates are the raw template texts.
type Templates struct {
	System string
	User   string
}

// Prompt is a rendered (system, user) pair.
type Prompt struct {
	System string
	User   string
}

// Load reads system.md and user_template.md from dir. A file missing from
// dir is replaced by the built-in default.
func Load(dir string) (Templates, error) {
	system, err := assets.ReadOrDefault(filepath.Join(dir, SystemFile), assets.SystemPrompt)
	if err != nil {
		return Templates{}, fmt.Errorf("reading system prompt: %w", err)
	}
	user, err := assets.ReadOrDefault(filepath.Join(dir, UserFile), assets.UserTemplate)
	if err != nil {
		return Templates{}, fmt.Errorf("reading user template: %w", err)
	}
	return Templates{System: string(system), User: string(user)}, nil
}

// Render substitutes {{RISK_LEVEL}}, {{RISK_FLAGS}} and {{INTAKE_JSON}} by
// exact string replacement. Other placeholders are left as they are, and
// substituted values are never scanned again.
func (t Templates) Render(riskLevel string, riskFlags []string, intake any) (Prompt, error) {
	if riskFlags == nil {
		riskFlags = []string{}
	}
	flagsJSON, err := marshal(riskFlags)
	if err != nil {
		return Prompt{}, fmt.Errorf("encoding risk flags: %w", err)
	}
	intakeJSON, err := marshal(intake)
	if err != nil {
		return Prompt{}, fmt.Errorf("encoding intake: %w", err)
	}

	r := strings.NewReplacer(
		"{{RISK_LEVEL}}", riskLevel,
		"{{RISK_FLAGS}}", flagsJSON,
		"{{INTAKE_JSON}}", intakeJSON,
	)
	return Prompt{
		System: strings.TrimSpace(t.System),
		User:   strings.TrimSpace(r.Replace(t.User)),
	}, nil
}

// WithCorrection returns p with a corrective instruction carrying lastErr
// appended to the user text. Earlier corrections are kept.
func (p Prompt) WithCorrection(lastErr string) Prompt {
	p.User += CorrectionPrefix + lastErr
	return p
}

// Text joins both parts the way they are shown to a reviewer.
func (p Prompt) Text() string {
	return p.System + "\n\n" + p.User
}

// marshal encodes v as JSON without HTML escaping so that non-ASCII and
// angle brackets reach the model unchanged.
func marshal(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
