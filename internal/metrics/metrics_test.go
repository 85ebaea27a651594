package metrics

import (
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ziadkadry99/notedraft/internal/config"
	"github.com/ziadkadry99/notedraft/internal/pipeline"
)

func TestObserverCountsAttempts(t *testing.T) {
	c := NewCollector()
	obs := c.Observer("stub")
	obs.OnAttempt(pipeline.Attempt{Index: 1, State: pipeline.StateExtracting, Duration: time.Second})
	obs.OnAttempt(pipeline.Attempt{Index: 2, State: pipeline.StateSucceeded, Duration: time.Second})
	obs.OnAttempt(pipeline.Attempt{Index: 1, State: pipeline.StateSucceeded})

	if got := testutil.ToFloat64(c.attemptsTotal.WithLabelValues("stub", "succeeded")); got != 2 {
		t.Errorf("succeeded attempts = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.attemptsTotal.WithLabelValues("stub", "extracting")); got != 1 {
		t.Errorf("extracting attempts = %v, want 1", got)
	}
}

func TestRunOutcomes(t *testing.T) {
	c := NewCollector()

	done := c.RunStarted("heavy")
	if got := testutil.ToFloat64(c.runsInFlight); got != 1 {
		t.Errorf("in flight = %v, want 1", got)
	}
	done(&pipeline.ExhaustedError{Last: pipeline.ErrNoJSONObject})
	c.RunStarted("heavy")(nil)
	c.RunStarted("heavy")(fmt.Errorf("%w: refused", pipeline.ErrGeneration))

	if got := testutil.ToFloat64(c.runsInFlight); got != 0 {
		t.Errorf("in flight = %v, want 0", got)
	}
	for _, outcome := range []string{"exhausted", "succeeded", "generation_error"} {
		if got := testutil.ToFloat64(c.runsTotal.WithLabelValues("heavy", outcome)); got != 1 {
			t.Errorf("%s runs = %v, want 1", outcome, got)
		}
	}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "succeeded"},
		{&pipeline.ExhaustedError{}, "exhausted"},
		{fmt.Errorf("%w: x", pipeline.ErrGeneration), "generation_error"},
		{&config.ConfigurationError{Key: "backend"}, "error"},
		{errors.New("other"), "error"},
	}
	for _, tt := range tests {
		if got := Outcome(tt.err); got != tt.want {
			t.Errorf("Outcome(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	c := NewCollector()
	c.Observer("stub").OnAttempt(pipeline.Attempt{Index: 1, State: pipeline.StateSucceeded})

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `notedraft_attempts_total{backend="stub",state="succeeded"} 1`) {
		t.Errorf("metric missing from output:\n%s", body)
	}
}

func TestWriteTextfile(t *testing.T) {
	c := NewCollector()
	c.RunStarted("stub")(nil)

	path := filepath.Join(t.TempDir(), "nested", "demo.prom")
	if err := c.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading textfile: %v", err)
	}
	if want := `notedraft_runs_total{backend="stub",outcome="succeeded"} 1`; !strings.Contains(string(data), want) {
		t.Errorf("textfile missing %q:\n%s", want, data)
	}
}
