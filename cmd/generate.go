package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/notedraft/internal/assets"
	"github.com/ziadkadry99/notedraft/internal/history"
	"github.com/ziadkadry99/notedraft/internal/intake"
	"github.com/ziadkadry99/notedraft/internal/pipeline"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Draft a note for one intake record",
	Long: `Reads an intake JSON file, drafts a structured note and prints it as JSON.
The intake is checked against the intake schema first; a mismatch is reported
as a warning only.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().String("intake", "", "path to the intake JSON file")
	generateCmd.Flags().String("out", "", "also write the note to this file")
	generateCmd.Flags().Bool("show-raw", false, "print the raw model text to stderr")
	generateCmd.MarkFlagRequired("intake")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	intakePath, _ := cmd.Flags().GetString("intake")
	outPath, _ := cmd.Flags().GetString("out")
	showRaw, _ := cmd.Flags().GetBool("show-raw")

	in, err := intake.Load(intakePath)
	if err != nil {
		return err
	}

	if intakeSchema, err := loadValidator(cfg.IntakeSchema, assets.IntakeSchema); err != nil {
		log.Warn().Err(err).Msg("intake schema unavailable")
	} else if err := intakeSchema.Validate(in); err != nil {
		log.Warn().Err(err).Str("intake", intakePath).Msg("intake does not match the intake schema")
	}

	outputSchema, err := loadValidator(cfg.OutputSchema, assets.OutputSchema)
	if err != nil {
		return err
	}

	store, closeHistory := openHistory(cfg)
	defer closeHistory()

	level, flags := intake.Risk(in)
	rec := store.Begin(ctx, history.Run{
		Source:    history.SourceCLI,
		Backend:   string(cfg.Backend),
		ModelID:   cfg.ModelID,
		RiskLevel: level,
	})
	req := pipeline.Request{Intake: in, RiskLevel: level, RiskFlags: flags}
	if rec != nil {
		req.Observer = rec
	}

	res, err := pipeline.Draft(ctx, cfg, req, outputSchema, cfg.PromptDir)
	rec.Finish(err)
	if err != nil {
		describeFailure(err)
		return err
	}

	if showRaw {
		fmt.Fprintln(os.Stderr, "--- raw model text ---")
		fmt.Fprintln(os.Stderr, res.Raw)
		fmt.Fprintln(os.Stderr, "----------------------")
	}

	data, err := json.MarshalIndent(res.Record, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding note: %w", err)
	}
	fmt.Println(string(data))

	if outPath != "" {
		if err := os.WriteFile(outPath, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", outPath, err)
		}
		log.Info().Str("path", outPath).Msg("note written")
	}
	return nil
}
