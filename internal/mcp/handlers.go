package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/notedraft/internal/history"
	"github.com/ziadkadry99/notedraft/internal/intake"
	"github.com/ziadkadry99/notedraft/internal/pipeline"
	"github.com/ziadkadry99/notedraft/internal/schema"
)

// handleDraftNote runs the note pipeline on the given intake.
func (s *Server) handleDraftNote(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("intake_json")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: intake_json"), nil
	}

	v, err := schema.Decode(strings.NewReader(raw))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("intake_json is not valid JSON: %v", err)), nil
	}
	in, ok := v.(map[string]any)
	if !ok {
		return mcp.NewToolResultError("intake_json must be a JSON object"), nil
	}

	level, flags := intake.Risk(in)
	if l := request.GetString("risk_level", ""); l != "" {
		level = l
	}
	if err := intake.CheckRiskLevel(level); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if f := request.GetString("risk_flags", ""); f != "" {
		if err := json.Unmarshal([]byte(f), &flags); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("risk_flags must be a JSON array of strings: %v", err)), nil
		}
	}

	cfg := s.deps.Pipeline
	rec := s.deps.History.Begin(ctx, history.Run{
		Source:    history.SourceMCP,
		Backend:   string(cfg.Backend),
		ModelID:   cfg.ModelID,
		RiskLevel: level,
	})
	req := pipeline.Request{
		Intake:         in,
		RiskLevel:      level,
		RiskFlags:      flags,
		DiagnosticPath: pipeline.RunArtifactPath(cfg.DiagnosticPath, rec.RunID()),
	}
	if rec != nil {
		req.Observer = rec
	}

	res, err := pipeline.Draft(ctx, cfg, req, s.deps.OutputSchema, s.deps.PromptDir)
	rec.Finish(err)
	if err != nil {
		var exh *pipeline.ExhaustedError
		if errors.As(err, &exh) {
			return mcp.NewToolResultError(exh.Error()), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("drafting failed: %v", err)), nil
	}

	out, err := json.MarshalIndent(res.Record, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding note: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// handleValidateJSON checks a document against one of the schemas.
func (s *Server) handleValidateJSON(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("document_json")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: document_json"), nil
	}

	validator := s.deps.OutputSchema
	if request.GetString("schema", "output") == "intake" {
		validator = s.deps.IntakeSchema
	}
	if validator == nil {
		return mcp.NewToolResultError("schema not loaded"), nil
	}

	doc, err := schema.Decode(strings.NewReader(raw))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("document_json is not valid JSON: %v", err)), nil
	}
	if err := validator.Validate(doc); err != nil {
		return mcp.NewToolResultText("INVALID: " + err.Error()), nil
	}
	return mcp.NewToolResultText("OK"), nil
}

// handleRecentRuns lists recent runs from the history store.
func (s *Server) handleRecentRuns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", 10)
	if limit <= 0 {
		limit = 10
	}

	runs, err := s.deps.History.List(ctx, history.ListFilter{
		Status: history.Status(request.GetString("status", "")),
		Limit:  limit,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing runs failed: %v", err)), nil
	}
	if len(runs) == 0 {
		return mcp.NewToolResultText("No runs recorded yet."), nil
	}
	return mcp.NewToolResultText(formatRuns(runs)), nil
}

func formatRuns(runs []history.Run) string {
	var sb strings.Builder
	for _, r := range runs {
		fmt.Fprintf(&sb, "- %s [%s] %s backend=%s attempts=%d",
			r.ID, r.Status, r.StartedAt.Format("2006-01-02 15:04:05"), r.Backend, r.Attempts)
		if r.CaseName != "" {
			fmt.Fprintf(&sb, " case=%s", r.CaseName)
		}
		if r.ArtifactPath != "" {
			fmt.Fprintf(&sb, " artifact=%s", r.ArtifactPath)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
