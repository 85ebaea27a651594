package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Reporter provides progress feedback while a batch of notes is drafted.
// Implementations are safe for concurrent use.
type Reporter interface {
	Start(total int)
	Done(name string, ok bool)
	Finish()
}

// NewReporter returns a TerminalReporter if running in an interactive terminal,
// or a CIReporter if the CI environment variable is set.
func NewReporter() Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return &CIReporter{out: os.Stderr}
	}
	return &TerminalReporter{}
}

// TerminalReporter displays a progress bar in the terminal.
type TerminalReporter struct {
	bar *progressbar.ProgressBar
}

func (r *TerminalReporter) Start(total int) {
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Drafting notes"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *TerminalReporter) Done(name string, ok bool) {
	if r.bar == nil {
		return
	}
	if ok {
		r.bar.Describe(name)
	} else {
		r.bar.Describe(name + " (failed)")
	}
	_ = r.bar.Add(1)
}

func (r *TerminalReporter) Finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

// CIReporter prints line-by-line progress suitable for CI logs.
type CIReporter struct {
	out   io.Writer
	mu    sync.Mutex
	total int
	done  int
}

// NewCIReporter writes progress lines to w.
func NewCIReporter(w io.Writer) *CIReporter {
	return &CIReporter{out: w}
}

func (r *CIReporter) Start(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = total
	fmt.Fprintf(r.out, "Running %d case(s)\n", total)
}

func (r *CIReporter) Done(name string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done++
	status := "OK"
	if !ok {
		status = "FAILED"
	}
	fmt.Fprintf(r.out, "[%d/%d] %s: %s\n", r.done, r.total, status, name)
}

func (r *CIReporter) Finish() {
	fmt.Fprintln(r.out, "Batch complete")
}
