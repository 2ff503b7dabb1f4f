package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielolaszy/monday-import/internal/config"
	"github.com/danielolaszy/monday-import/internal/importcfg"
	"github.com/danielolaszy/monday-import/pkg/models"
)

const mappingYAML = `source:
  idColumn: Item ID
  nameColumn: Name
target:
  teamId: team-doc
dataModel:
  items:
    importAs: issue
    subitems:
      enabled: true
      column: Subitems
fieldMappings:
  issue:
    title:
      source: Name
    state:
      source: Status
      transform: statusMap
    assignee:
      source: Owner
      transform: user
statusMapping:
  Working on it: In Progress
fallbacks:
  users:
    Sam Roe: sam@example.com
`

const boardCSV = `Item ID,Name,Status,Owner,Subitems
1001,Checkout bug fix,Working on it,Jane Doe,"Repro, Patch"
1002,Search,Done,"Sam Roe, Jane Doe",
`

// MockLinear is a function-field fake of the Linear client.
type MockLinear struct {
	CreateIssueFunc func(ctx context.Context, in models.IssueInput) (models.Created, error)
	ListUsersFunc   func(ctx context.Context) ([]models.User, error)
	ViewerFunc      func(ctx context.Context) (models.User, error)

	Issues      []models.IssueInput
	ViewerCalls int
}

func (m *MockLinear) CreateProject(context.Context, models.ProjectInput) (models.Created, error) {
	return models.Created{ID: "project"}, nil
}

func (m *MockLinear) CreateIssue(ctx context.Context, in models.IssueInput) (models.Created, error) {
	m.Issues = append(m.Issues, in)
	if m.CreateIssueFunc != nil {
		return m.CreateIssueFunc(ctx, in)
	}
	return models.Created{ID: "issue-" + in.Title}, nil
}

func (m *MockLinear) CreateLabel(_ context.Context, _, name string) (models.Created, error) {
	return models.Created{ID: "label-" + name}, nil
}

func (m *MockLinear) CreateProjectUpdate(context.Context, string, string) (models.Created, error) {
	return models.Created{ID: "update"}, nil
}

func (m *MockLinear) CreateComment(context.Context, string, string) (models.Created, error) {
	return models.Created{ID: "comment"}, nil
}

func (m *MockLinear) CreateProjectLink(context.Context, string, models.Link) error { return nil }

func (m *MockLinear) CreateIssueLink(context.Context, string, models.Link) error { return nil }

func (m *MockLinear) ListUsers(ctx context.Context) ([]models.User, error) {
	if m.ListUsersFunc != nil {
		return m.ListUsersFunc(ctx)
	}
	return []models.User{{ID: "user-jane", Name: "Jane Doe"}, {ID: "user-sam", Name: "Sam Roe", Email: "sam@example.com"}}, nil
}

func (m *MockLinear) ListLabels(context.Context, string) ([]models.Named, error) { return nil, nil }

func (m *MockLinear) ListWorkflowStates(context.Context, string) ([]models.Named, error) {
	return []models.Named{{ID: "state-progress", Name: "In Progress"}, {ID: "state-done", Name: "Done"}}, nil
}

func (m *MockLinear) ListProjectStatuses(context.Context) ([]models.Named, error) { return nil, nil }

func (m *MockLinear) Viewer(ctx context.Context) (models.User, error) {
	m.ViewerCalls++
	if m.ViewerFunc != nil {
		return m.ViewerFunc(ctx)
	}
	return models.User{ID: "me", Name: "Importer"}, nil
}

type fixture struct {
	mapping string
	board   string
	dir     string
}

func newFixture(t *testing.T, mapping, board string) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{mapping: filepath.Join(dir, "mapping.yaml"), board: filepath.Join(dir, "board.csv"), dir: dir}
	require.NoError(t, os.WriteFile(f.mapping, []byte(mapping), 0o644))
	require.NoError(t, os.WriteFile(f.board, []byte(board), 0o644))
	return f
}

// useEnv replaces the process settings and the client factory for one test.
func useEnv(t *testing.T, linearCfg config.LinearConfig, client LinearAPI) {
	t.Helper()
	prevEnv, prevClient := loadEnv, newLinearClient
	t.Cleanup(func() { loadEnv, newLinearClient = prevEnv, prevClient })

	loadEnv = func() (*config.Config, error) {
		return &config.Config{Linear: linearCfg, Logging: config.LoggingConfig{Level: "info", Format: "text"}}, nil
	}
	newLinearClient = func(*config.Config) (LinearAPI, error) {
		if client == nil {
			return nil, errors.New("no client configured")
		}
		return client, nil
	}
}

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := executeWithLogs(t, args...)
	return out, err
}

// executeWithLogs runs the root command and returns its stdout and stderr.
func executeWithLogs(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	validateFlags, dryRunFlags, runFlags, usersFlags = inputFlags{}, inputFlags{}, inputFlags{}, inputFlags{}
	usersColumns, usersOutput, continueOnError = nil, "", true
	logLevel, logFormat = "", ""
	for _, c := range []*cobra.Command{dryRunCmd, runCmd} {
		if f := c.Flags().Lookup("continue-on-error"); f != nil {
			f.Changed = false
		}
	}

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func TestValidateCommand(t *testing.T) {
	useEnv(t, config.LinearConfig{}, nil)

	t.Run("valid", func(t *testing.T) {
		f := newFixture(t, mappingYAML, boardCSV)
		out, err := execute(t, "validate", "--config", f.mapping, "--file", f.board)
		require.NoError(t, err)
		assert.Contains(t, out, "mapping is valid")
		assert.Contains(t, out, "2 data rows")
	})

	t.Run("missing id column", func(t *testing.T) {
		f := newFixture(t, mappingYAML, "Key,Name,Status,Owner,Subitems\n1,A,,,\n")
		out, err := execute(t, "validate", "--config", f.mapping, "--file", f.board)

		var mismatch *importcfg.ColumnMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, []string{"Item ID"}, mismatch.Missing)
		assert.Contains(t, out, "mapping is invalid")
		assert.Contains(t, out, `column "Item ID" not found`)
	})

	t.Run("structural error without export", func(t *testing.T) {
		f := newFixture(t, "source:\n  idColumn: Item ID\ndataModel:\n  items:\n    importAs: epic\n", boardCSV)
		out, err := execute(t, "validate", "--config", f.mapping)

		var cfgErr *importcfg.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Contains(t, out, "target.teamId")
		assert.Contains(t, out, "dataModel.items.importAs")
	})
}

func TestDryRunWithoutCredentials(t *testing.T) {
	useEnv(t, config.LinearConfig{}, nil)
	f := newFixture(t, mappingYAML, boardCSV)

	out, err := execute(t, "dry-run", "--config", f.mapping, "--file", f.board)
	require.NoError(t, err)

	assert.Contains(t, out, "Dry run summary")
	assert.Regexp(t, `items\s+2 planned`, out)
	assert.Regexp(t, `sub-items\s+2 planned`, out)
	assert.Contains(t, out, "fallbacks only")
}

func TestRunRequiresCredentials(t *testing.T) {
	useEnv(t, config.LinearConfig{}, nil)
	f := newFixture(t, mappingYAML, boardCSV)

	_, err := execute(t, "run", "--config", f.mapping, "--file", f.board)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LINEAR_API_KEY")
}

func TestRunCommand(t *testing.T) {
	client := &MockLinear{}
	useEnv(t, config.LinearConfig{APIKey: "key", TeamID: "team-env"}, client)
	f := newFixture(t, mappingYAML, boardCSV)

	out, err := execute(t, "run", "--config", f.mapping, "--file", f.board)
	require.NoError(t, err)

	require.Len(t, client.Issues, 4)
	assert.Equal(t, "Checkout bug fix", client.Issues[0].Title)
	assert.Equal(t, "team-env", client.Issues[0].TeamID, "LINEAR_TEAM_ID overrides the document")
	assert.Equal(t, "state-progress", client.Issues[0].StateID)
	assert.Equal(t, "user-jane", client.Issues[0].AssigneeID)
	assert.Equal(t, "issue-Checkout bug fix", client.Issues[2].ParentID)

	assert.Contains(t, out, "Import summary")
	assert.Regexp(t, `items\s+2/2 created`, out)
}

func TestRunStopsOnFirstError(t *testing.T) {
	client := &MockLinear{CreateIssueFunc: func(context.Context, models.IssueInput) (models.Created, error) {
		return models.Created{}, errors.New("invalid input")
	}}
	useEnv(t, config.LinearConfig{APIKey: "key"}, client)
	f := newFixture(t, mappingYAML, boardCSV)

	out, err := execute(t, "run", "--config", f.mapping, "--file", f.board, "--continue-on-error=false")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 error(s)")
	assert.Len(t, client.Issues, 1)
	assert.Contains(t, out, "stopped early")
}

func TestRunAuthenticationFailure(t *testing.T) {
	client := &MockLinear{ViewerFunc: func(context.Context) (models.User, error) {
		return models.User{}, errors.New("401 unauthorized")
	}}
	useEnv(t, config.LinearConfig{APIKey: "bad"}, client)
	f := newFixture(t, mappingYAML, boardCSV)

	_, err := execute(t, "run", "--config", f.mapping, "--file", f.board)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authenticate")
	assert.Empty(t, client.Issues)
}

func TestUsersCommand(t *testing.T) {
	useEnv(t, config.LinearConfig{}, nil)

	t.Run("from config", func(t *testing.T) {
		f := newFixture(t, mappingYAML, boardCSV)
		out, err := execute(t, "users", "--file", f.board, "--config", f.mapping)
		require.NoError(t, err)
		assert.Equal(t, "users:\n  Jane Doe: \"\"\n  Sam Roe: sam@example.com\n", out)
	})

	t.Run("explicit column to file", func(t *testing.T) {
		f := newFixture(t, mappingYAML, boardCSV)
		output := filepath.Join(f.dir, "users.yaml")
		out, err := execute(t, "users", "--file", f.board, "--column", "Owner", "--output", output)
		require.NoError(t, err)
		assert.Contains(t, out, "wrote 2 user(s)")

		data, err := os.ReadFile(output)
		require.NoError(t, err)
		users, err := importcfg.LoadUserMapping(output)
		require.NoError(t, err, string(data))
		assert.Equal(t, map[string]string{"Jane Doe": "", "Sam Roe": ""}, users)
	})

	t.Run("detected from headers", func(t *testing.T) {
		f := newFixture(t, mappingYAML, "Item ID,Name,Task Owner,Created By\n1,A,Jane Doe,Ann Lee\n2,B,,Sam Roe\n")
		out, err := execute(t, "users", "--file", f.board)
		require.NoError(t, err)
		assert.Equal(t, "users:\n  Ann Lee: \"\"\n  Jane Doe: \"\"\n  Sam Roe: \"\"\n", out)
	})

	t.Run("no people columns", func(t *testing.T) {
		f := newFixture(t, mappingYAML, "Item ID,Name,Status\n1,A,Done\n")
		_, err := execute(t, "users", "--file", f.board)
		require.Error(t, err)
	})
}

func TestRunChecksColumnsBeforeContactingLinear(t *testing.T) {
	client := &MockLinear{}
	useEnv(t, config.LinearConfig{APIKey: "key"}, client)

	for _, command := range []string{"run", "dry-run"} {
		t.Run(command, func(t *testing.T) {
			client.ViewerCalls = 0
			f := newFixture(t, mappingYAML, "Key,Name,Status,Owner,Subitems\n1,A,,,\n")

			out, err := execute(t, command, "--config", f.mapping, "--file", f.board)

			var mismatch *importcfg.ColumnMismatchError
			require.ErrorAs(t, err, &mismatch)
			assert.Equal(t, []string{"Item ID"}, mismatch.Missing)
			assert.Contains(t, out, "mapping is invalid")
			assert.Equal(t, 0, client.ViewerCalls)
			assert.Empty(t, client.Issues)
		})
	}
}

func TestDryRunContinueOnErrorFlag(t *testing.T) {
	client := &MockLinear{ListUsersFunc: func(context.Context) ([]models.User, error) {
		return nil, errors.New("catalog unavailable")
	}}
	useEnv(t, config.LinearConfig{APIKey: "key"}, client)

	t.Run("stops on first error", func(t *testing.T) {
		f := newFixture(t, mappingYAML, boardCSV)
		out, err := execute(t, "dry-run", "--config", f.mapping, "--file", f.board, "--continue-on-error=false")
		require.Error(t, err)
		assert.Contains(t, out, "stopped early")
		assert.NotRegexp(t, `items\s+2 planned`, out)
	})

	t.Run("keeps going by default", func(t *testing.T) {
		f := newFixture(t, mappingYAML, boardCSV)
		out, err := execute(t, "dry-run", "--config", f.mapping, "--file", f.board)
		require.Error(t, err, "the catalog failure is still reported")
		assert.NotContains(t, out, "stopped early")
		assert.Regexp(t, `items\s+2 planned`, out)
	})
}

func TestLoggingSettingsFromDotEnv(t *testing.T) {
	prev := loadEnv
	t.Cleanup(func() { loadEnv = prev })
	loadEnv = config.LoadConfig

	for _, key := range []string{"LOG_LEVEL", "LOG_FORMAT", "LINEAR_API_KEY", "LINEAR_OAUTH_TOKEN", "LINEAR_TEAM_ID", "LINEAR_API_URL"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	f := newFixture(t, mappingYAML, boardCSV)
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, ".env"), []byte("LOG_LEVEL=debug\nLOG_FORMAT=json\n"), 0o644))
	t.Chdir(f.dir)

	_, logs, err := executeWithLogs(t, "validate", "--config", f.mapping, "--file", f.board)
	require.NoError(t, err)

	assert.Contains(t, logs, `"level":"DEBUG"`)
	assert.Contains(t, logs, `"msg":"starting monday-import"`)
}
