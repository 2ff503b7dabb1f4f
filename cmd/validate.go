package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/monday-import/internal/importcfg"
)

var validateFlags inputFlags

// validateCmd checks a mapping document, and its columns when an export is given.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a mapping document against a board export",
	Long: `Check a mapping document for structural problems and, when --file is given,
for columns that do not exist in the export.

Missing id, title and required columns are errors; everything else is reported
as a warning. No Linear credentials are needed.

Example:
  monday-import validate --config mapping.yaml --file board.xlsx`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnv()
		if err != nil {
			return err
		}

		cfg, result, err := loadConfig(validateFlags.configPath, env)
		if err != nil {
			renderValidation(cmd.OutOrStdout(), result)
			return err
		}

		if validateFlags.filePath != "" {
			in, warnings, err := readExport(cfg, validateFlags)
			if err != nil {
				return err
			}
			for _, w := range warnings {
				result.Warnings = append(result.Warnings, importcfg.Diagnostic{Path: "source.sheet", Message: w})
			}
			result = result.Merge(checkColumns(cfg, in))
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d data rows in sheet %q\n", validateFlags.filePath, len(in.Main.Rows), in.Main.Name)
		}

		renderValidation(cmd.OutOrStdout(), result)
		return result.Err()
	},
}

func init() {
	addInputFlags(validateCmd, &validateFlags)
}
