package safety

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestFilterTreatment(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "english dosage",
			in:   "Patient reports headache for 3 days. Take ibuprofen 400 mg twice daily. Follow up if worse.",
			want: "Patient reports headache for 3 days. Follow up if worse.",
		},
		{
			name: "russian prescription",
			in:   "Пациент жалуется на кашель. Назначить антибиотики на 5 дней. Температура 38.",
			want: "Пациент жалуется на кашель. Температура 38.",
		},
		{
			name: "unit glued to number",
			in:   "Fever since Monday. Give 5mg now.",
			want: "Fever since Monday.",
		},
		{
			name: "case insensitive",
			in:   "TREATMENT options discussed! Sleep is poor.",
			want: "Sleep is poor.",
		},
		{
			name: "cyrillic upper case",
			in:   "ЛЕЧЕНИЕ не начато. Жалоб на боль нет.",
			want: "Жалоб на боль нет.",
		},
		{
			name: "word boundary",
			in:   "Went on a retreat last week. Slept on a new pillow.",
			want: "Went on a retreat last week. Slept on a new pillow.",
		},
		{
			name: "whitespace collapsed between sentences",
			in:   "First line.\n\nSecond line.   Third?",
			want: "First line. Second line. Third?",
		},
		{
			name: "everything removed",
			in:   "Start therapy. Prescribe rest.",
			want: "",
		},
		{name: "empty", in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FilterTreatment(tt.in); got != tt.want {
				t.Errorf("FilterTreatment() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHasPlan(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"PLAN: rest", true},
		{"Plan discussed.", true},
		{"see plan.", true},
		{"Discharge planning discussed.", false},
		{"airplane", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := HasPlan(tt.in); got != tt.want {
			t.Errorf("HasPlan(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeAddsPlaceholder(t *testing.T) {
	in := map[string]any{
		"summary":    "Cough for a week. Start antibiotics.",
		"draft_note": "Cough for a week. Prescribe amoxicillin.",
	}
	out, rep := Sanitize(in)

	if out["summary"] != "Cough for a week." {
		t.Errorf("summary: got %q", out["summary"])
	}
	want := "Cough for a week. " + PlanPlaceholder
	if out["draft_note"] != want {
		t.Errorf("draft_note: got %q, want %q", out["draft_note"], want)
	}
	if rep.SentencesRemoved != 2 || !rep.PlaceholderAdded {
		t.Errorf("report: %+v", rep)
	}

	notes := out["safety"].(map[string]any)["notes"].([]any)
	if len(notes) != 1 || notes[0] != AuditNote {
		t.Errorf("notes: %v", notes)
	}
}

func TestSanitizeKeepsExistingPlan(t *testing.T) {
	in := map[string]any{"draft_note": "Cough. Plan: review in clinic."}
	out, rep := Sanitize(in)
	if out["draft_note"] != "Cough. Plan: review in clinic." {
		t.Errorf("draft_note: got %q", out["draft_note"])
	}
	if rep.PlaceholderAdded {
		t.Error("placeholder should not be added when a plan exists")
	}
}

func TestSanitizeDoesNotMutateInput(t *testing.T) {
	in := map[string]any{
		"draft_note": "Take aspirin.",
		"safety":     map[string]any{"notes": []any{"existing"}},
	}
	out, _ := Sanitize(in)

	if in["draft_note"] != "Take aspirin." {
		t.Errorf("input draft_note changed to %q", in["draft_note"])
	}
	if notes := in["safety"].(map[string]any)["notes"].([]any); len(notes) != 1 {
		t.Errorf("input notes changed: %v", notes)
	}
	if notes := out["safety"].(map[string]any)["notes"].([]any); len(notes) != 2 || notes[0] != "existing" {
		t.Errorf("output notes: %v", notes)
	}
}

func TestSanitizeRepairsSafetyShape(t *testing.T) {
	tests := []struct {
		name   string
		safety any
	}{
		{"missing", nil},
		{"wrong type", "not a map"},
		{"notes wrong type", map[string]any{"notes": "oops", "no_diagnosis_or_treatment": true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := map[string]any{"draft_note": "x"}
			if tt.safety != nil {
				in["safety"] = tt.safety
			}
			out, _ := Sanitize(in)
			safety, ok := out["safety"].(map[string]any)
			if !ok {
				t.Fatalf("safety: got %T", out["safety"])
			}
			notes, ok := safety["notes"].([]any)
			if !ok || len(notes) != 1 || notes[0] != AuditNote {
				t.Errorf("notes: %#v", safety["notes"])
			}
		})
	}
}

func TestSanitizeMissingAndNonStringNote(t *testing.T) {
	out, _ := Sanitize(map[string]any{})
	if out["draft_note"] != PlanPlaceholder {
		t.Errorf("missing draft_note: got %v", out["draft_note"])
	}

	out, _ = Sanitize(map[string]any{"draft_note": 42})
	if out["draft_note"] != 42 {
		t.Errorf("non-string draft_note should be left alone, got %v", out["draft_note"])
	}
}

func TestSanitizeIsIdempotentOnPlaceholder(t *testing.T) {
	first, _ := Sanitize(map[string]any{"draft_note": "Mild rash on the arm."})
	second, rep := Sanitize(first)

	assert.Equal(t, first["draft_note"], second["draft_note"])
	assert.False(t, rep.PlaceholderAdded)
	assert.Equal(t, 1, strings.Count(second["draft_note"].(string), "PLAN"))

	notes := second["safety"].(map[string]any)["notes"].([]any)
	assert.Len(t, notes, 2)
}

func TestPropertyPlaceholderNeverDuplicated(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		note := rapid.String().Draw(t, "draft_note")

		first, _ := Sanitize(map[string]any{"draft_note": note})
		second, _ := Sanitize(first)

		a := first["draft_note"].(string)
		b := second["draft_note"].(string)
		require.True(t, HasPlan(a), "no PLAN after first pass: %q", a)
		require.True(t, HasPlan(b), "no PLAN after second pass: %q", b)
		require.Equal(t, strings.Count(a, PlanPlaceholder), strings.Count(b, PlanPlaceholder))
	})
}
