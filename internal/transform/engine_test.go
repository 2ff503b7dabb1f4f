package transform

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielolaszy/monday-import/internal/importcfg"
	"github.com/danielolaszy/monday-import/pkg/models"
)

func scalar(s string) *importcfg.Scalar {
	v := importcfg.Scalar(s)
	return &v
}

var headers = []string{"Item ID", "Name", "Status", "Priority", "Owner", "Timeline", "Tags", "Points", "Notes", "Risks", "Docs", "Subitems"}

func row(values ...string) *models.Row {
	return models.NewRow(2, headers, values)
}

func projectConfig() *importcfg.ImportConfig {
	return &importcfg.ImportConfig{
		Source: importcfg.SourceConfig{IDColumn: "Item ID", NameColumn: "Name"},
		DataModel: importcfg.DataModel{Items: importcfg.ItemsModel{
			ImportAs: models.KindProject,
			Subitems: importcfg.SubitemsConfig{Enabled: true, Column: "Subitems", Delimiter: ","},
		}},
		FieldMappings: importcfg.FieldMappings{Project: map[string]importcfg.FieldMapping{
			"name":       {Source: "Name"},
			"status":     {Source: "Status", Transform: "statusMap"},
			"priority":   {Source: "Priority", Transform: "priorityMap"},
			"lead":       {Source: "Owner", Transform: "user"},
			"startDate":  {Source: "Timeline", Transform: "timelineStart"},
			"targetDate": {Source: "Timeline", Transform: "timelineEnd"},
			"labels":     {Source: "Tags", Transform: "labels"},
			"content": {
				Sources:  []string{"Notes", "Risks"},
				Template: "_Imported from Monday item {{_mondayId}} (row {{_rowNumber}}) on {{_importDate}}_\n\n## Notes\n{{Notes}}\n\n## Risks\n{{Risks}}",
			},
			"cycle": {Source: "Sprint"},
		}},
		StatusMapping:   importcfg.ValueMap{"Working on it": "In Progress", "_default": "Backlog"},
		PriorityMapping: importcfg.ValueMap{"Critical": "urgent", "High": "high"},
		Links:           importcfg.LinksConfig{Enabled: true, Columns: []string{"Docs"}},
	}
}

func TestTransformRowProject(t *testing.T) {
	engine, err := New(projectConfig(), runDate)
	require.NoError(t, err)

	r := row("1001", "Checkout revamp", "Working on it", "Critical", "Jane Doe",
		"2024-01-15 - 2024-03-01", "payments, web", "", "Rewrite the flow", "", "Brief - https://docs.example.com/brief", "Design, Build")
	item := engine.TransformRow(r)

	require.Equal(t, models.KindProject, item.Kind)
	require.NotNil(t, item.Project)
	p := item.Project

	assert.Same(t, r, p.Row)
	assert.Equal(t, "1001", p.SourceID)
	assert.Equal(t, "Checkout revamp", p.Name)
	assert.Equal(t, models.Unresolved("In Progress"), p.Status)
	assert.Equal(t, models.Unresolved("Jane Doe"), p.Lead)
	require.NotNil(t, p.Priority)
	assert.Equal(t, 1, *p.Priority)
	assert.Equal(t, "2024-01-15", p.StartDate)
	assert.Equal(t, "2024-03-01", p.TargetDate)
	assert.Equal(t, []models.Ref{models.Unresolved("payments"), models.Unresolved("web")}, p.Labels)
	assert.Equal(t, "_Imported from Monday item 1001 (row 2) on 2025-01-15_\n\n## Notes\nRewrite the flow", p.Content)
	assert.Equal(t, []models.Link{{Label: "Brief", URL: "https://docs.example.com/brief"}}, p.Links)

	require.Len(t, item.Subitems, 2)
	assert.Equal(t, "Design", item.Subitems[0].Title)
	assert.Equal(t, "Build", item.Subitems[1].Title)
	assert.Same(t, r, item.Subitems[1].Row, "sub-items share the parent row")
}

func TestTransformRowDegradesPerField(t *testing.T) {
	engine, err := New(projectConfig(), runDate)
	require.NoError(t, err)

	item := engine.TransformRow(row("1002", "", "", "Whenever", "", "not a date", ""))
	p := item.Project

	assert.Equal(t, Untitled, p.Name)
	assert.True(t, p.Status.IsZero())
	assert.Nil(t, p.Priority)
	assert.Empty(t, p.StartDate)
	assert.Empty(t, p.TargetDate)
	assert.Empty(t, p.Labels)
	assert.Equal(t, "_Imported from Monday item 1002 (row 2) on 2025-01-15_", p.Content)
	assert.Empty(t, item.Subitems)
}

func TestTransformRowTitleNeverOverCap(t *testing.T) {
	engine, err := New(projectConfig(), runDate)
	require.NoError(t, err)

	long := strings.Repeat("x", 300)
	item := engine.TransformRow(row("1003", long))

	assert.Len(t, item.Title(), MaxTitleLength)
	assert.True(t, strings.HasSuffix(item.Title(), "..."))
	assert.Equal(t, long[:252], item.Title()[:252])
}

func TestTransformRowIssue(t *testing.T) {
	cfg := &importcfg.ImportConfig{
		Source:    importcfg.SourceConfig{IDColumn: "Item ID"},
		DataModel: importcfg.DataModel{Items: importcfg.ItemsModel{ImportAs: models.KindIssue}},
		FieldMappings: importcfg.FieldMappings{Issue: map[string]importcfg.FieldMapping{
			"title":    {Source: "Name"},
			"state":    {Source: "Status", Transform: "statusMap", Default: scalar("Todo")},
			"assignee": {Source: "Owner", Transform: "user"},
			"priority": {Source: "Priority"},
			"dueDate":  {Source: "Timeline", Transform: "date"},
			"estimate": {Source: "Points", Transform: "number"},
			"labels":   {Source: "Tags", Transform: "labels", Delimiter: ";"},
		}},
		StatusMapping: importcfg.ValueMap{"Done": "Completed"},
	}
	engine, err := New(cfg, runDate)
	require.NoError(t, err)

	item := engine.TransformRow(row("77", "Fix login", "", "High", "jdoe", "3/1/2024", "bug; auth", "1,5"))

	require.Equal(t, models.KindIssue, item.Kind)
	is := item.Issue
	assert.Equal(t, "Fix login", is.Title)
	assert.Equal(t, models.Unresolved("Todo"), is.State, "default substitutes for an empty cell before mapping")
	assert.Equal(t, models.Unresolved("jdoe"), is.Assignee)
	require.NotNil(t, is.Priority)
	assert.Equal(t, 2, *is.Priority)
	assert.Equal(t, "2024-03-01", is.DueDate)
	require.NotNil(t, is.Estimate)
	assert.InDelta(t, 15.0, *is.Estimate, 1e-9)
	assert.Equal(t, []models.Ref{models.Unresolved("bug"), models.Unresolved("auth")}, is.Labels)
	assert.Nil(t, item.Subitems)
}

func TestNewRejectsBadMapping(t *testing.T) {
	cfg := projectConfig()
	cfg.FieldMappings.Project["status"] = importcfg.FieldMapping{Source: "Status", Transform: "magic"}

	_, err := New(cfg, runDate)
	require.Error(t, err)
	var cfgErr *importcfg.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}
