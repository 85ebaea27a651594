// Package extract recovers a single JSON object from free-form model output.
package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/tailscale/hujson"
)

// Candidate is a decoded JSON object. Numbers are kept as json.Number.
type Candidate = map[string]any

// CoreKeys are the fields that mark a candidate as the intended note.
var CoreKeys = []string{"summary", "draft_note", "missing_info", "followup_questions", "safety", "provenance"}

// ExpectedKeys is the full top-level field set of an output record.
var ExpectedKeys = []string{
	"summary",
	"draft_note",
	"missing_info",
	"followup_questions",
	"risk_level",
	"risk_flags",
	"safety",
	"provenance",
}

var errNotObject = errors.New("not a JSON object")

// Extract returns the best JSON object found in raw, or false when none
// parses. Selection prefers the last candidate holding every core key;
// otherwise the one with the most expected keys wins, earliest on ties.
func Extract(raw string) (Candidate, bool) {
	cands := Candidates(raw)
	if len(cands) == 0 {
		return nil, false
	}
	return choose(cands), true
}

// Candidates returns every span in raw that decodes to an object, in order.
func Candidates(raw string) []Candidate {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	text := StripFences(raw)

	var out []Candidate
	for _, sp := range Spans(text) {
		if c, ok := Parse(text[sp.Start:sp.End]); ok {
			out = append(out, c)
		}
	}
	return out
}

// Parse decodes s as a JSON object, falling back to a relaxed reading that
// accepts single-quoted strings, True/False/None, comments and trailing
// commas.
func Parse(s string) (Candidate, bool) {
	if c, err := decodeObject([]byte(s)); err == nil {
		return c, true
	}
	c, err := decodeRelaxed(s)
	if err != nil {
		return nil, false
	}
	return c, true
}

func decodeRelaxed(s string) (Candidate, error) {
	std, err := hujson.Standardize([]byte(normalizeLiterals(s)))
	if err != nil {
		return nil, err
	}
	return decodeObject(std)
}

func decodeObject(data []byte) (Candidate, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after object")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errNotObject
	}
	return obj, nil
}

func choose(cands []Candidate) Candidate {
	for i := len(cands) - 1; i >= 0; i-- {
		if overlap(cands[i], CoreKeys) == len(CoreKeys) {
			return cands[i]
		}
	}

	best := cands[0]
	bestScore := overlap(best, ExpectedKeys)
	for _, c := range cands[1:] {
		if score := overlap(c, ExpectedKeys); score > bestScore {
			best, bestScore = c, score
		}
	}
	return best
}

func overlap(c Candidate, keys []string) int {
	n := 0
	for _, k := range keys {
		if _, ok := c[k]; ok {
			n++
		}
	}
	return n
}
