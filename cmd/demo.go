package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/notedraft/internal/assets"
	"github.com/ziadkadry99/notedraft/internal/batch"
	"github.com/ziadkadry99/notedraft/internal/config"
	"github.com/ziadkadry99/notedraft/internal/metrics"
	"github.com/ziadkadry99/notedraft/internal/progress"
	"github.com/ziadkadry99/notedraft/internal/report"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run every demo case end-to-end and write a report",
	Long: `Drafts a note for every intake case matching --cases, validates each one
and writes output_<case>.json, raw_<case>.txt and prompt_<case>.txt plus a
JSON, Markdown and optional HTML report. Exits 1 when any case fails and 2
when the run cannot start.`,
	RunE: runDemo,
}

func init() {
	demoCmd.Flags().String("cases", batch.DefaultPattern, "glob of intake case files")
	demoCmd.Flags().String("out-dir", "data_demo/outputs", "where to write output_*.json")
	demoCmd.Flags().String("raw-dir", "data_demo/raw", "where to write raw model text and prompts")
	demoCmd.Flags().String("report", "data_demo/demo_report.json", "machine-readable report path")
	demoCmd.Flags().String("report-md", "data_demo/demo_report.md", "human-readable report path")
	demoCmd.Flags().String("report-html", "", "also render the report as HTML to this path")
	demoCmd.Flags().Int("concurrency", 0, "cases drafted in parallel (overrides config)")
	demoCmd.Flags().Bool("no-prompts", false, "do not save the prompt of each case")
	demoCmd.Flags().String("metrics-out", "", "write run metrics in Prometheus text format to this path")
	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return &ExitError{Code: 2, Err: err}
	}

	pattern, _ := cmd.Flags().GetString("cases")
	outDir, _ := cmd.Flags().GetString("out-dir")
	rawDir, _ := cmd.Flags().GetString("raw-dir")
	jsonPath, _ := cmd.Flags().GetString("report")
	mdPath, _ := cmd.Flags().GetString("report-md")
	htmlPath, _ := cmd.Flags().GetString("report-html")
	noPrompts, _ := cmd.Flags().GetBool("no-prompts")
	metricsPath, _ := cmd.Flags().GetString("metrics-out")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	if concurrency <= 0 {
		concurrency = cfg.MaxConcurrency
	}

	cases, err := batch.Discover(pattern)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}

	validator, err := loadValidator(cfg.OutputSchema, assets.OutputSchema)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}

	store, closeHistory := openHistory(cfg)
	defer closeHistory()

	reporter := progress.NewReporter()
	if verbose {
		reporter = progress.NewCIReporter(os.Stderr)
	}

	collector := metrics.NewCollector()
	started := time.Now()
	runner := batch.NewRunner(batch.Options{
		Config:      cfg,
		Validator:   validator,
		PromptDir:   cfg.PromptDir,
		OutDir:      outDir,
		RawDir:      rawDir,
		SavePrompts: !noPrompts,
		Concurrency: concurrency,
		History:     store,
		Metrics:     collector,
		Reporter:    reporter,
	})
	results, runErr := runner.Run(ctx, cases)

	rep := report.New(started, time.Now(), runConfig(cfg, !noPrompts), results)
	if err := rep.WriteJSON(jsonPath); err != nil {
		return err
	}
	if err := rep.WriteMarkdown(mdPath); err != nil {
		return err
	}
	if htmlPath != "" {
		if err := rep.WriteHTML(htmlPath); err != nil {
			return err
		}
	}
	if metricsPath != "" {
		if err := collector.WriteTextfile(metricsPath); err != nil {
			return err
		}
	}

	for _, r := range results {
		if r.OK || r.CaseFile == "" {
			continue
		}
		fmt.Fprintf(os.Stderr, "- FAILED: %s\n  reason: %s\n", r.CaseFile, r.Error)
		if r.RawFile != "" {
			fmt.Fprintf(os.Stderr, "  raw:    %s\n", r.RawFile)
		}
	}
	fmt.Println()
	fmt.Printf("Report: %s\n", jsonPath)
	fmt.Printf("Report (md): %s\n", mdPath)
	if htmlPath != "" {
		fmt.Printf("Report (html): %s\n", htmlPath)
	}
	fmt.Printf("Outputs: %s\n", outDir)
	fmt.Printf("RAW: %s\n", rawDir)

	if runErr != nil {
		return runErr
	}
	if !rep.AllOK() {
		return fmt.Errorf("%d of %d case(s) failed", rep.CasesFailed, rep.CasesTotal)
	}
	return nil
}

func runConfig(cfg *config.Config, savePrompts bool) map[string]string {
	return map[string]string{
		"backend":          string(cfg.Backend),
		"model_id":         cfg.ModelID,
		"engine":           string(cfg.Engine),
		"max_new_tokens":   strconv.Itoa(cfg.MaxNewTokens),
		"retries":          strconv.Itoa(cfg.Retries),
		"save_last_prompt": strconv.FormatBool(savePrompts),
		"schema_path":      cfg.OutputSchema,
		"prompt_version":   cfg.PromptVersion,
	}
}
