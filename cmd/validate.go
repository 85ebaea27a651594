package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/notedraft/internal/assets"
	"github.com/ziadkadry99/notedraft/internal/schema"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a JSON file against the intake or output schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		which, _ := cmd.Flags().GetString("schema")
		file, _ := cmd.Flags().GetString("file")

		var path, asset string
		switch which {
		case "intake":
			path, asset = cfg.IntakeSchema, assets.IntakeSchema
		case "output":
			path, asset = cfg.OutputSchema, assets.OutputSchema
		default:
			return fmt.Errorf("unknown schema %q: must be intake or output", which)
		}

		v, err := loadValidator(path, asset)
		if err != nil {
			return err
		}
		doc, err := schema.DecodeFile(file)
		if err != nil {
			return err
		}
		if err := v.Validate(doc); err != nil {
			return err
		}
		fmt.Println("OK")
		return nil
	},
}

func init() {
	validateCmd.Flags().String("schema", "", "schema to validate against (intake or output)")
	validateCmd.Flags().String("file", "", "JSON file to validate")
	validateCmd.MarkFlagRequired("schema")
	validateCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(validateCmd)
}
