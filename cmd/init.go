package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/notedraft/internal/assets"
	"github.com/ziadkadry99/notedraft/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize notedraft configuration with an interactive wizard",
	Long: `Runs an interactive wizard that writes .notedraft.yml, then copies the default
schemas and prompt templates into the working directory so they can be edited.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := config.RunWizard(); err != nil {
			return err
		}
		written, err := assets.WriteAll(".")
		if err != nil {
			return fmt.Errorf("writing default assets: %w", err)
		}
		for _, p := range written {
			fmt.Printf("  created %s\n", p)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
