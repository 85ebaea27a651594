// Package safety strips treatment language from generated notes.
//
// The filter is a static bilingual keyword list. It is advisory: it will miss
// paraphrases, misspellings and languages it does not know, so its output
// still needs clinician review.
package safety

import (
	"strings"
	"unicode"
)

const (
	// PlanPlaceholder is appended to a draft note that has no PLAN section.
	PlanPlaceholder = "PLAN: To be completed by the clinician."

	// AuditNote is recorded in safety.notes on every pass.
	AuditNote = "Treatment-language filter and PLAN placeholder check applied; clinician review required."
)

// Report describes what a Sanitize call changed.
type Report struct {
	SentencesRemoved int
	PlaceholderAdded bool
}

// Sanitize returns a copy of c with treatment sentences removed from summary
// and draft_note, a PLAN placeholder guaranteed in draft_note and the audit
// note appended to safety.notes. c is not modified. Non-string fields are
// left for schema validation to reject.
func Sanitize(c map[string]any) (map[string]any, Report) {
	out := make(map[string]any, len(c)+2)
	for k, v := range c {
		out[k] = v
	}

	var rep Report
	if s, ok := out["summary"].(string); ok {
		filtered, n := filterTreatment(s)
		out["summary"] = filtered
		rep.SentencesRemoved += n
	}

	note, isString := out["draft_note"].(string)
	if _, present := out["draft_note"]; !present || isString {
		filtered, n := filterTreatment(note)
		rep.SentencesRemoved += n
		if !HasPlan(filtered) {
			filtered = appendSentence(filtered, PlanPlaceholder)
			rep.PlaceholderAdded = true
		}
		out["draft_note"] = filtered
	}

	out["safety"] = withAuditNote(out["safety"])
	return out, rep
}

// FilterTreatment drops every sentence of s that mentions treatment and
// joins the rest with single spaces.
func FilterTreatment(s string) string {
	filtered, _ := filterTreatment(s)
	return filtered
}

func filterTreatment(s string) (string, int) {
	var kept []string
	removed := 0
	for _, sentence := range splitSentences(s) {
		if MentionsTreatment(sentence) {
			removed++
			continue
		}
		kept = append(kept, sentence)
	}
	return strings.Join(kept, " "), removed
}

// splitSentences breaks s after '.', '!', '?' or '…' when whitespace
// follows. Empty pieces are dropped.
func splitSentences(s string) []string {
	var out []string
	runes := []rune(s)
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) || i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if piece := strings.TrimSpace(string(runes[start : i+1])); piece != "" {
			out = append(out, piece)
		}
		start = i + 1
	}
	if piece := strings.TrimSpace(string(runes[start:])); piece != "" {
		out = append(out, piece)
	}
	return out
}

func isTerminal(r rune) bool {
	switch r {
	case '.', '!', '?', '…':
		return true
	}
	return false
}

func appendSentence(text, sentence string) string {
	if text == "" {
		return sentence
	}
	return text + " " + sentence
}

func withAuditNote(v any) map[string]any {
	src, _ := v.(map[string]any)
	safety := make(map[string]any, len(src)+1)
	for k, val := range src {
		safety[k] = val
	}

	var notes []any
	switch existing := safety["notes"].(type) {
	case []any:
		notes = append(notes, existing...)
	case []string:
		for _, n := range existing {
			notes = append(notes, n)
		}
	}
	safety["notes"] = append(notes, AuditNote)
	return safety
}
