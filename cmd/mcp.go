package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/notedraft/internal/assets"
	mcpserver "github.com/ziadkadry99/notedraft/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio exposing the draft_note, validate_json and recent_runs tools.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		outputSchema, err := loadValidator(cfg.OutputSchema, assets.OutputSchema)
		if err != nil {
			return err
		}
		intakeSchema, err := loadValidator(cfg.IntakeSchema, assets.IntakeSchema)
		if err != nil {
			return err
		}

		store, closeHistory := openHistory(cfg)
		defer closeHistory()

		mcpserver.Version = Version

		log.Info().Str("backend", string(cfg.Backend)).Msg("notedraft MCP server started on stdio")

		deps := mcpserver.Deps{
			Pipeline:     cfg,
			OutputSchema: outputSchema,
			IntakeSchema: intakeSchema,
			PromptDir:    cfg.PromptDir,
			History:      store,
		}
		return mcpserver.NewServer(deps).Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
