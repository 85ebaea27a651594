// Package report writes the batch run summary as JSON, Markdown and HTML.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CaseResult is the outcome of one intake case.
type CaseResult struct {
	CaseFile   string `json:"case_file"`
	OK         bool   `json:"ok"`
	Validated  bool   `json:"validated"`
	OutputFile string `json:"output_file,omitempty"`
	RawFile    string `json:"raw_file,omitempty"`
	PromptFile string `json:"prompt_file,omitempty"`
	Error      string `json:"error,omitempty"`
	Attempts   int    `json:"attempts,omitempty"`
	RunID      string `json:"run_id,omitempty"`

	// RawExcerpt is shown in the failure details of the Markdown report.
	RawExcerpt string `json:"-"`
}

// Report summarizes a batch run.
type Report struct {
	StartedAt   string            `json:"started_at"`
	FinishedAt  string            `json:"finished_at"`
	RunConfig   map[string]string `json:"run_config"`
	CasesTotal  int               `json:"cases_total"`
	CasesOK     int               `json:"cases_ok"`
	CasesFailed int               `json:"cases_failed"`
	Results     []CaseResult      `json:"results"`
}

// New builds a report and computes its totals.
func New(started, finished time.Time, runConfig map[string]string, results []CaseResult) *Report {
	r := &Report{
		StartedAt:  started.UTC().Format(time.RFC3339),
		FinishedAt: finished.UTC().Format(time.RFC3339),
		RunConfig:  runConfig,
		CasesTotal: len(results),
		Results:    results,
	}
	for _, res := range results {
		if res.OK {
			r.CasesOK++
		}
	}
	r.CasesFailed = r.CasesTotal - r.CasesOK
	return r
}

// AllOK reports whether every case succeeded.
func (r *Report) AllOK() bool {
	return r.CasesFailed == 0
}

// WriteJSON writes the machine-readable report.
func (r *Report) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(path, append(data, '\n'))
}

// Markdown renders the human-readable report.
func (r *Report) Markdown() string {
	var sb strings.Builder
	sb.WriteString("# Demo run report\n\n")
	fmt.Fprintf(&sb, "- started_at: `%s`\n", r.StartedAt)
	fmt.Fprintf(&sb, "- finished_at: `%s`\n", r.FinishedAt)
	fmt.Fprintf(&sb, "- total: **%d** | ok: **%d** | failed: **%d**\n", r.CasesTotal, r.CasesOK, r.CasesFailed)
	sb.WriteString("\n## Results\n\n")
	sb.WriteString("| case | status | attempts | output | raw | error |\n")
	sb.WriteString("|---|---:|---:|---|---|---|\n")
	for _, res := range r.Results {
		status := "OK"
		if !res.OK {
			status = "FAILED"
		}
		fmt.Fprintf(&sb, "| `%s` | **%s** | %d | %s | %s | %s |\n",
			filepath.Base(res.CaseFile),
			status,
			res.Attempts,
			code(res.OutputFile),
			code(res.RawFile),
			escapeCell(res.Error),
		)
	}

	var failed []CaseResult
	for _, res := range r.Results {
		if !res.OK && res.RawExcerpt != "" {
			failed = append(failed, res)
		}
	}
	if len(failed) > 0 {
		sb.WriteString("\n## Failure details\n")
		for _, res := range failed {
			fence := "```"
			for strings.Contains(res.RawExcerpt, fence) {
				fence += "`"
			}
			fmt.Fprintf(&sb, "\n### %s\n\n%stext\n%s\n%s\n", filepath.Base(res.CaseFile), fence, res.RawExcerpt, fence)
		}
	}
	return sb.String()
}

// WriteMarkdown writes the Markdown report.
func (r *Report) WriteMarkdown(path string) error {
	return writeFile(path, []byte(r.Markdown()))
}

func code(s string) string {
	if s == "" {
		return ""
	}
	return "`" + s + "`"
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "&#124;")
	return strings.ReplaceAll(s, "\n", " ")
}

// Excerpt trims raw to at most n runes for the failure section.
func Excerpt(raw string, n int) string {
	runes := []rune(strings.TrimSpace(raw))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n]) + "\n[truncated]"
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
