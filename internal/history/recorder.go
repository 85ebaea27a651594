package history

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/ziadkadry99/notedraft/internal/pipeline"
)

// Recorder tracks one run. It implements pipeline.Observer. A nil Recorder
// records nothing, so callers without a history database can use it freely.
type Recorder struct {
	store *Store
	ctx   context.Context
	runID string
}

// Begin starts a run and returns its recorder. Storage failures are logged
// and yield a nil Recorder; history never blocks note generation.
func (s *Store) Begin(ctx context.Context, run Run) *Recorder {
	if s == nil {
		return nil
	}
	id, err := s.Start(ctx, run)
	if err != nil {
		log.Warn().Err(err).Msg("history: could not start run")
		return nil
	}
	return &Recorder{store: s, ctx: context.WithoutCancel(ctx), runID: id}
}

// RunID returns the ID of the tracked run, or "" for a nil Recorder.
func (r *Recorder) RunID() string {
	if r == nil {
		return ""
	}
	return r.runID
}

func (r *Recorder) OnAttempt(a pipeline.Attempt) {
	if r == nil {
		return
	}
	if err := r.store.RecordAttempt(r.ctx, r.runID, a); err != nil {
		log.Warn().Err(err).Str("run", r.runID).Msg("history: could not record attempt")
	}
}

// Finish closes the run with the outcome of the pipeline.
func (r *Recorder) Finish(runErr error) {
	if r == nil {
		return
	}
	if err := r.store.Finish(r.ctx, r.runID, runErr); err != nil {
		log.Warn().Err(err).Str("run", r.runID).Msg("history: could not finish run")
	}
}
