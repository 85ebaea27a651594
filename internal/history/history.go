// Package history records pipeline runs and their attempts in SQLite.
package history

import "time"

// Source identifies which surface started a run.
type Source string

const (
	SourceCLI  Source = "cli"
	SourceDemo Source = "demo"
	SourceHTTP Source = "http"
	SourceMCP  Source = "mcp"
)

// Status is the outcome of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusExhausted Status = "exhausted"
	StatusFailed    Status = "failed"
)

// Run is one GenerateOutput invocation.
type Run struct {
	ID           string     `json:"id"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	Source       Source     `json:"source"`
	CaseName     string     `json:"case_name,omitempty"`
	Backend      string     `json:"backend"`
	ModelID      string     `json:"model_id,omitempty"`
	RiskLevel    string     `json:"risk_level,omitempty"`
	Status       Status     `json:"status"`
	Attempts     int        `json:"attempts"`
	Error        string     `json:"error,omitempty"`
	ArtifactPath string     `json:"artifact_path,omitempty"`

	// Log is only filled by Get.
	Log []Attempt `json:"log,omitempty"`
}

// Attempt is one stored pipeline attempt.
type Attempt struct {
	Index    int           `json:"index"`
	State    string        `json:"state"`
	Error    string        `json:"error,omitempty"`
	RawText  string        `json:"raw_text"`
	Duration time.Duration `json:"duration"`
}
