package cmd

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/danielolaszy/monday-import/internal/importcfg"
	"github.com/danielolaszy/monday-import/internal/logging"
	"github.com/danielolaszy/monday-import/internal/sheet"
	"github.com/danielolaszy/monday-import/internal/transform"
)

var (
	usersFlags   inputFlags
	usersColumns []string
	usersOutput  string
)

// usersCmd writes a user mapping template for options.userMappingFile.
var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Write a user mapping template from the people in an export",
	Long: `Collect every distinct person named in the export's people columns and write
a YAML template mapping each name to a Linear user:

  users:
    Jane Doe: ""

Fill in a Linear name, email or user id for each entry and reference the file
from options.userMappingFile. People columns are taken from --column, or from
the user-typed mappings and the updates author column of --config. Without
either, headers such as Owner, Person, Assignee or Created By are used.

Example:
  monday-import users --file board.xlsx --config mapping.yaml --output users.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var cfg *importcfg.ImportConfig
		if usersFlags.configPath != "" {
			env, err := loadEnv()
			if err != nil {
				return err
			}
			cfg, _, err = loadConfig(usersFlags.configPath, env)
			if err != nil {
				return err
			}
		}

		names, err := collectPeople(cfg, usersFlags, usersColumns)
		if err != nil {
			return err
		}

		var known importcfg.ValueMap
		if cfg != nil {
			known = cfg.Fallbacks.Users
		}
		data, err := userTemplate(names, known)
		if err != nil {
			return err
		}

		if usersOutput == "" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		if err := os.WriteFile(usersOutput, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", usersOutput, err)
		}
		logging.Info("wrote user mapping template", "file", usersOutput, "users", len(names))
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d user(s) to %s\n", len(names), usersOutput)
		return nil
	},
}

func init() {
	usersCmd.Flags().StringVarP(&usersFlags.filePath, "file", "f", "", "board export (.csv or .xlsx)")
	usersCmd.Flags().StringVarP(&usersFlags.configPath, "config", "c", "", "mapping document used to find people columns")
	usersCmd.Flags().StringVarP(&usersFlags.updatesPath, "updates-file", "u", "", "updates export, when not a sheet of --file")
	usersCmd.Flags().StringArrayVar(&usersColumns, "column", nil, "people column to scan (repeatable)")
	usersCmd.Flags().StringVarP(&usersOutput, "output", "o", "", "write the template to this file instead of stdout")
	_ = usersCmd.MarkFlagRequired("file")
}

// collectPeople returns the sorted distinct names found in the people columns.
func collectPeople(cfg *importcfg.ImportConfig, flags inputFlags, columns []string) ([]string, error) {
	var main, updates *sheet.Sheet
	if cfg != nil {
		in, _, err := readExport(cfg, flags)
		if err != nil {
			return nil, err
		}
		main, updates = in.Main, in.Updates
	} else {
		wb, err := sheet.Open(flags.filePath, sheet.Options{})
		if err != nil {
			return nil, err
		}
		main = wb.Sheet("")
	}
	if main == nil {
		return nil, fmt.Errorf("%s has no sheets", flags.filePath)
	}

	var authorColumn string
	if len(columns) == 0 && cfg != nil {
		columns = peopleColumns(cfg)
		authorColumn = cfg.Updates.Columns.Author
	}
	if len(columns) == 0 && authorColumn == "" {
		columns = detectPeopleColumns(main.Headers)
		if len(columns) == 0 {
			return nil, fmt.Errorf("no people columns found in %s: pass --column or a --config with user mappings", flags.filePath)
		}
		logging.Info("using people columns detected from headers", "columns", strings.Join(columns, ", "))
	}

	seen := map[string]bool{}
	add := func(s *sheet.Sheet, column string) {
		if s == nil || column == "" {
			return
		}
		for _, row := range s.Rows {
			for _, name := range transform.SplitList(row.Value(column), ",") {
				seen[name] = true
			}
		}
	}
	for _, col := range columns {
		add(main, col)
	}
	add(updates, authorColumn)

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// peopleColumns lists the source columns of user-typed mappings.
func peopleColumns(cfg *importcfg.ImportConfig) []string {
	var cols []string
	for _, m := range cfg.Mappings() {
		if m.Transform == string(importcfg.TransformUser) && m.Source != "" {
			cols = append(cols, m.Source)
		}
	}
	sort.Strings(cols)
	return cols
}

var (
	peopleHeaders  = map[string]bool{"people": true, "lead": true, "author": true, "created by": true, "updated by": true, "assigned to": true}
	peopleKeywords = []string{"owner", "person", "assignee"}
)

// detectPeopleColumns picks headers that look like Monday people columns.
func detectPeopleColumns(headers []string) []string {
	var cols []string
	for _, h := range headers {
		name := strings.ToLower(strings.TrimSpace(h))
		if peopleHeaders[name] {
			cols = append(cols, h)
			continue
		}
		for _, kw := range peopleKeywords {
			if strings.Contains(name, kw) {
				cols = append(cols, h)
				break
			}
		}
	}
	return cols
}

func userTemplate(names []string, known importcfg.ValueMap) ([]byte, error) {
	users := make(map[string]string, len(names))
	for _, name := range names {
		users[name] = strings.TrimSpace(known[name])
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]any{"users": users}); err != nil {
		return nil, fmt.Errorf("failed to encode user template: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
