package history

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/notedraft/internal/db"
	"github.com/ziadkadry99/notedraft/internal/pipeline"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestStartRecordFinish(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	id, err := store.Start(ctx, Run{Source: SourceDemo, CaseName: "case_01", Backend: "stub", RiskLevel: "LOW"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated ID")
	}

	store.RecordAttempt(ctx, id, pipeline.Attempt{Index: 1, State: pipeline.StateExtracting, Err: "no JSON object found", Raw: "hello", Duration: 1500 * time.Millisecond})
	store.RecordAttempt(ctx, id, pipeline.Attempt{Index: 2, State: pipeline.StateSucceeded, Raw: "{}"})
	if err := store.Finish(ctx, id, nil); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	got, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusSucceeded || got.Attempts != 2 {
		t.Errorf("status %q attempts %d", got.Status, got.Attempts)
	}
	if got.Source != SourceDemo || got.CaseName != "case_01" {
		t.Errorf("source/case: %q %q", got.Source, got.CaseName)
	}
	if got.FinishedAt == nil {
		t.Error("FinishedAt not set")
	}
	if len(got.Log) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(got.Log))
	}
	if got.Log[0].State != "extracting" || got.Log[0].RawText != "hello" || got.Log[0].Duration != 1500*time.Millisecond {
		t.Errorf("first attempt: %+v", got.Log[0])
	}
}

func TestFinishStatuses(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		err      error
		status   Status
		artifact string
	}{
		{"exhausted", &pipeline.ExhaustedError{Attempts: 3, Last: pipeline.ErrNoJSONObject, ArtifactPath: "last_model_raw.txt"}, StatusExhausted, "last_model_raw.txt"},
		{"failed", errors.New("connection refused"), StatusFailed, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, _ := store.Start(ctx, Run{Backend: "heavy"})
			if err := store.Finish(ctx, id, tt.err); err != nil {
				t.Fatalf("Finish: %v", err)
			}
			got, _ := store.Get(ctx, id)
			if got.Status != tt.status || got.ArtifactPath != tt.artifact {
				t.Errorf("got %q %q, want %q %q", got.Status, got.ArtifactPath, tt.status, tt.artifact)
			}
			if got.Error == "" {
				t.Error("error message not stored")
			}
		})
	}
}

func TestGetNotFound(t *testing.T) {
	store := setupStore(t)
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListFilters(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	a, _ := store.Start(ctx, Run{Source: SourceCLI, Backend: "stub"})
	store.Finish(ctx, a, nil)
	b, _ := store.Start(ctx, Run{Source: SourceHTTP, Backend: "stub"})
	store.Finish(ctx, b, errors.New("boom"))
	store.Start(ctx, Run{Source: SourceHTTP, Backend: "stub"})

	all, err := store.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 runs, got %d", len(all))
	}

	httpRuns, _ := store.List(ctx, ListFilter{Source: SourceHTTP})
	if len(httpRuns) != 2 {
		t.Errorf("expected 2 http runs, got %d", len(httpRuns))
	}

	failed, _ := store.List(ctx, ListFilter{Status: StatusFailed})
	if len(failed) != 1 || failed[0].ID != b {
		t.Errorf("failed runs: %+v", failed)
	}

	limited, _ := store.List(ctx, ListFilter{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("expected 1 run, got %d", len(limited))
	}
}

func TestDeleteBefore(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	store.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	old, _ := store.Start(ctx, Run{Backend: "stub"})
	store.RecordAttempt(ctx, old, pipeline.Attempt{Index: 1, State: pipeline.StateSucceeded})
	store.now = time.Now
	store.Start(ctx, Run{Backend: "stub"})

	n, err := store.DeleteBefore(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d, want 1", n)
	}
	if _, err := store.Get(ctx, old); !errors.Is(err, ErrNotFound) {
		t.Error("old run still present")
	}
}

func TestRecorderObservesPipeline(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	rec := store.Begin(ctx, Run{Source: SourceMCP, Backend: "stub"})
	if rec.RunID() == "" {
		t.Fatal("expected a run ID")
	}
	var obs pipeline.Observer = rec
	obs.OnAttempt(pipeline.Attempt{Index: 1, State: pipeline.StateValidating, Err: "Schema validation error: /: bad"})
	rec.Finish(&pipeline.ExhaustedError{Attempts: 1, Last: errors.New("x"), ArtifactPath: "raw.txt"})

	got, _ := store.Get(ctx, rec.RunID())
	if got.Status != StatusExhausted || got.Attempts != 1 {
		t.Errorf("run: %+v", got)
	}
}

func TestNilRecorderIsNoop(t *testing.T) {
	var store *Store
	rec := store.Begin(context.Background(), Run{})
	if rec != nil {
		t.Fatal("expected nil recorder from nil store")
	}
	rec.OnAttempt(pipeline.Attempt{Index: 1})
	rec.Finish(nil)
	if rec.RunID() != "" {
		t.Error("nil recorder has no run ID")
	}
}

func TestRoutes(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	id, _ := store.Start(ctx, Run{Backend: "stub"})
	store.Finish(ctx, id, nil)

	r := chi.NewRouter()
	RegisterRoutes(r, store)

	req := httptest.NewRequest("GET", "/api/runs/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}
	var runs []Run
	if err := json.Unmarshal(w.Body.Bytes(), &runs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != id {
		t.Errorf("runs: %+v", runs)
	}

	req = httptest.NewRequest("GET", "/api/runs/"+id, nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("get: expected 200, got %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/api/runs/missing", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing: expected 404, got %d", w.Code)
	}
}
