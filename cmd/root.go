package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/notedraft/internal/config"
	"github.com/ziadkadry99/notedraft/internal/logging"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "notedraft",
	Short: "Draft structured clinical notes from patient intake with a language model",
	Long: `notedraft turns a patient intake record into a structured draft note for
clinician review. Model output is extracted, stripped of treatment language,
forced onto the rule-engine risk fields and validated against the output
schema, retrying with a tightened prompt until it passes.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init("info", verbose)
	},
}

// ExitError carries a process exit code other than 1.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

func Execute() error {
	return rootCmd.Execute()
}

// ExitCode maps an Execute error to the process exit code.
func ExitCode(err error) int {
	var exit *ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	if err != nil {
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
