package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/monday-import/internal/config"
	"github.com/danielolaszy/monday-import/internal/importcfg"
	"github.com/danielolaszy/monday-import/internal/importer"
	"github.com/danielolaszy/monday-import/internal/logging"
	"github.com/danielolaszy/monday-import/internal/sheet"
)

// loadEnv reads process settings; replaced in tests.
var loadEnv = config.LoadConfig

// inputFlags are the file flags shared by validate, dry-run and run.
type inputFlags struct {
	configPath  string
	filePath    string
	updatesPath string
}

func addInputFlags(cmd *cobra.Command, f *inputFlags) {
	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "mapping document (.json, .yaml, .yml or .toml)")
	cmd.Flags().StringVarP(&f.filePath, "file", "f", "", "board export (.csv or .xlsx)")
	cmd.Flags().StringVarP(&f.updatesPath, "updates-file", "u", "", "updates export, when not a sheet of --file")
	_ = cmd.MarkFlagRequired("config")
}

// loadConfig loads the mapping document, applies the environment's team
// override and validates the result.
func loadConfig(path string, env *config.Config) (*importcfg.ImportConfig, importcfg.ValidationResult, error) {
	return importcfg.Build(path, func(cfg *importcfg.ImportConfig) {
		if env == nil || env.Linear.TeamID == "" {
			return
		}
		if cfg.Target.TeamID != "" && cfg.Target.TeamID != env.Linear.TeamID {
			logging.Info("LINEAR_TEAM_ID overrides the mapping document's team", "document", cfg.Target.TeamID, "env", env.Linear.TeamID)
		}
		cfg.Target.TeamID = env.Linear.TeamID
	})
}

// checkColumns validates the document against the export's headers.
func checkColumns(cfg *importcfg.ImportConfig, in importer.Input) importcfg.ValidationResult {
	var updatesHeaders []string
	if in.Updates != nil {
		updatesHeaders = in.Updates.Headers
	}
	return importcfg.ValidateAgainstColumns(cfg, in.Main.Headers, updatesHeaders)
}

// readExport opens the board export and picks the main and updates sheets.
func readExport(cfg *importcfg.ImportConfig, f inputFlags) (importer.Input, []string, error) {
	var warnings []string

	wb, err := sheet.Open(f.filePath, sheet.Options{HeaderHint: cfg.Source.IDColumn})
	if err != nil {
		return importer.Input{}, nil, err
	}

	main := wb.Sheet(cfg.Source.Sheet)
	if main == nil && len(wb.Sheets) == 1 {
		main = wb.Sheets[0]
		warnings = append(warnings, fmt.Sprintf("sheet %q not found, using %q", cfg.Source.Sheet, main.Name))
	}
	if main == nil {
		return importer.Input{}, nil, fmt.Errorf("sheet %q not found in %s (available: %s)",
			cfg.Source.Sheet, f.filePath, strings.Join(wb.Names(), ", "))
	}
	logging.Info("read board export", "file", f.filePath, "sheet", main.Name, "rows", len(main.Rows), "header_row", main.HeaderRow)

	in := importer.Input{Main: main}
	if !cfg.Updates.Enabled {
		return in, warnings, nil
	}

	if f.updatesPath != "" {
		updates, err := sheet.Open(f.updatesPath, sheet.Options{HeaderHint: cfg.Updates.Columns.Link})
		if err != nil {
			return importer.Input{}, nil, err
		}
		in.Updates = updates.Sheet(cfg.Updates.Sheet)
		if in.Updates == nil {
			in.Updates = updates.Sheet("")
		}
	} else if s := wb.Sheet(cfg.Updates.Sheet); s != nil && s != main {
		in.Updates = s
	}
	if in.Updates != nil {
		logging.Info("read updates export", "sheet", in.Updates.Name, "rows", len(in.Updates.Rows))
	}
	return in, warnings, nil
}
