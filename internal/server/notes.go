package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ziadkadry99/notedraft/internal/config"
	"github.com/ziadkadry99/notedraft/internal/history"
	"github.com/ziadkadry99/notedraft/internal/intake"
	"github.com/ziadkadry99/notedraft/internal/pipeline"
	"github.com/ziadkadry99/notedraft/internal/schema"
)

// draftRequest is the body of POST /api/notes and of each websocket
// message. Risk fields default to the intake's risk_flags_rule_based.
type draftRequest struct {
	Intake    json.RawMessage `json:"intake"`
	RiskLevel string          `json:"risk_level,omitempty"`
	RiskFlags []string        `json:"risk_flags,omitempty"`
}

type draftResponse struct {
	RunID  string          `json:"run_id,omitempty"`
	Output pipeline.Record `json:"output"`
	Raw    string          `json:"raw"`
}

type errorResponse struct {
	Error        string `json:"error"`
	ArtifactPath string `json:"artifact_path,omitempty"`
	RunID        string `json:"run_id,omitempty"`
}

// parse validates a draft request and resolves its risk fields.
func (req draftRequest) parse() (intake.Record, string, []string, error) {
	if len(bytes.TrimSpace(req.Intake)) == 0 {
		return nil, "", nil, errors.New("intake is required")
	}
	v, err := schema.Decode(bytes.NewReader(req.Intake))
	if err != nil {
		return nil, "", nil, fmt.Errorf("intake: %w", err)
	}
	rec, ok := v.(map[string]any)
	if !ok {
		return nil, "", nil, errors.New("intake must be a JSON object")
	}

	level, flags := intake.Risk(rec)
	if req.RiskLevel != "" {
		level = req.RiskLevel
	}
	if req.RiskFlags != nil {
		flags = req.RiskFlags
	}
	if err := intake.CheckRiskLevel(level); err != nil {
		return nil, "", nil, err
	}
	return rec, level, flags, nil
}

// draft runs the pipeline with history and metrics attached. extra, when
// set, also observes every attempt.
func (s *Server) draft(ctx context.Context, source history.Source, in intake.Record, level string, flags []string, extra pipeline.Observer) (*pipeline.Result, string, error) {
	cfg := s.deps.Pipeline
	backend := string(cfg.Backend)

	rec := s.deps.History.Begin(ctx, history.Run{
		Source:    source,
		Backend:   backend,
		ModelID:   cfg.ModelID,
		RiskLevel: level,
	})
	var metricsObs pipeline.Observer
	done := func(error) {}
	if s.deps.Metrics != nil {
		metricsObs = s.deps.Metrics.Observer(backend)
		done = s.deps.Metrics.RunStarted(backend)
	}

	var recObs pipeline.Observer
	if rec != nil {
		recObs = rec
	}

	res, err := pipeline.Draft(ctx, cfg, pipeline.Request{
		Intake:         in,
		RiskLevel:      level,
		RiskFlags:      flags,
		DiagnosticPath: pipeline.RunArtifactPath(cfg.DiagnosticPath, rec.RunID()),
		Observer:       pipeline.Observers(recObs, metricsObs, extra),
	}, s.deps.Validator, s.deps.PromptDir)

	done(err)
	rec.Finish(err)
	return res, rec.RunID(), err
}

func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	in, level, flags, err := req.parse()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	res, runID, err := s.draft(r.Context(), history.SourceHTTP, in, level, flags, nil)
	if err != nil {
		status, body := errorStatus(err)
		body.RunID = runID
		writeJSON(w, status, body)
		return
	}
	writeJSON(w, http.StatusOK, draftResponse{RunID: runID, Output: res.Record, Raw: res.Raw})
}

// errorStatus maps a pipeline error to a response.
func errorStatus(err error) (int, errorResponse) {
	var exh *pipeline.ExhaustedError
	switch {
	case errors.As(err, &exh):
		return http.StatusUnprocessableEntity, errorResponse{Error: exh.Error(), ArtifactPath: exh.ArtifactPath}
	case errors.Is(err, config.ErrConfiguration):
		return http.StatusInternalServerError, errorResponse{Error: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, errorResponse{Error: err.Error()}
	default:
		return http.StatusInternalServerError, errorResponse{Error: err.Error()}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
