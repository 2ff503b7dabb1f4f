package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/monday-import/internal/config"
	"github.com/danielolaszy/monday-import/internal/importer"
	"github.com/danielolaszy/monday-import/internal/linear"
	"github.com/danielolaszy/monday-import/internal/logging"
	"github.com/danielolaszy/monday-import/internal/resolver"
	"github.com/danielolaszy/monday-import/pkg/models"
)

// LinearAPI is everything the import commands need from Linear.
type LinearAPI interface {
	importer.Client
	resolver.Catalog
	Viewer(ctx context.Context) (models.User, error)
}

// newLinearClient builds the Linear client; replaced in tests.
var newLinearClient = func(env *config.Config) (LinearAPI, error) {
	return linear.NewFromConfig(env)
}

var (
	dryRunFlags     inputFlags
	runFlags        inputFlags
	continueOnError bool
)

var dryRunCmd = &cobra.Command{
	Use:   "dry-run",
	Short: "Preview an import without changing Linear",
	Long: `Run every step of an import, including name resolution against Linear when
credentials are available, but log each create call instead of sending it.

The summary's planned counts are the ones a real run over the same data would
produce. Without credentials, names resolve through the mapping document's
fallback tables only.

Example:
  monday-import dry-run --config mapping.yaml --file board.xlsx`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd, dryRunFlags, true)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Import a board export into Linear",
	Long: `Import a board export into Linear: parents first, then sub-items, then
historical updates. LINEAR_API_KEY or LINEAR_OAUTH_TOKEN must be set.

Failed rows are reported in the summary. With --continue-on-error=false the
first failure stops the import; items already created are kept.

Example:
  monday-import run --config mapping.yaml --file board.xlsx --updates-file updates.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd, runFlags, false)
	},
}

func init() {
	for _, c := range []*cobra.Command{dryRunCmd, runCmd} {
		c.Flags().BoolVar(&continueOnError, "continue-on-error", true, "keep importing after a failed row (overrides options.continueOnError)")
		_ = c.MarkFlagRequired("file")
	}
	addInputFlags(dryRunCmd, &dryRunFlags)
	addInputFlags(runCmd, &runFlags)
}

func runImport(cmd *cobra.Command, flags inputFlags, dryRun bool) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	env, err := loadEnv()
	if err != nil {
		return err
	}

	cfg, validation, err := loadConfig(flags.configPath, env)
	if err != nil {
		renderValidation(out, validation)
		return err
	}
	if f := cmd.Flags().Lookup("continue-on-error"); f != nil && f.Changed {
		cfg.Options.ContinueOnError = continueOnError
	}

	in, readWarnings, err := readExport(cfg, flags)
	if err != nil {
		return err
	}
	if columns := checkColumns(cfg, in); !columns.Valid {
		renderValidation(out, validation.Merge(columns))
		return columns.Err()
	}

	var client importer.Client
	var catalog resolver.Catalog
	switch {
	case env.Linear.HasCredentials():
		api, err := newLinearClient(env)
		if err != nil {
			return fmt.Errorf("failed to initialize linear client: %w", err)
		}
		viewer, err := api.Viewer(ctx)
		if err != nil {
			return fmt.Errorf("failed to authenticate with Linear: %w", err)
		}
		logging.Info("authenticated with Linear", "user", viewer.Name, "email", viewer.Email)
		catalog = api
		if !dryRun {
			client = api
		}
	case dryRun:
		logging.Warn("no Linear credentials set; names resolve through fallback tables only")
	default:
		return config.ValidateLinearConfig(env)
	}

	imp := importer.New(cfg, client, catalog, importer.Options{DryRun: dryRun})
	result, err := imp.Run(ctx, in)
	if result == nil {
		return err
	}
	if !result.Validation.Valid {
		renderValidation(out, result.Validation)
		return err
	}

	result.Warnings = append(readWarnings, result.Warnings...)
	renderResult(out, result)
	logging.Info(result.Summary())

	if err != nil {
		return err
	}
	if result.Failed() {
		return fmt.Errorf("import finished with %d error(s)", len(result.Errors))
	}
	return nil
}
