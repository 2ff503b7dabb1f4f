// Package transform turns spreadsheet rows into typed Linear projects and
// issues by applying the compiled field mapping rules of an import config.
//
// Transformation is pure and never fails a row: a rule that yields nothing
// leaves its field at the zero value, and names of users, states and labels
// stay unresolved until creation time.
package transform

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/danielolaszy/monday-import/internal/importcfg"
	"github.com/danielolaszy/monday-import/internal/logging"
	"github.com/danielolaszy/monday-import/pkg/models"
)

// Template variables synthesized for every row.
const (
	VarMondayID   = "_mondayId"
	VarImportDate = "_importDate"
	VarRowNumber  = "_rowNumber"
)

// Engine transforms rows for one import run.
type Engine struct {
	cfg     *importcfg.ImportConfig
	kind    models.ItemKind
	rules   map[string]importcfg.Rule
	order   []string
	runDate time.Time
}

// New compiles the mapping table for the config's importAs mode. runDate is
// used for the _importDate variable and relative date expressions.
func New(cfg *importcfg.ImportConfig, runDate time.Time) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("transform: config is nil")
	}
	kind := cfg.DataModel.Items.ImportAs
	fields := importcfg.IssueFields
	if kind == models.KindProject {
		fields = importcfg.ProjectFields
	}

	rules, err := importcfg.CompiledMappings(cfg.FieldMappings.For(kind), fields)
	if err != nil {
		return nil, &importcfg.ConfigurationError{Message: "cannot compile field mappings", Err: err}
	}

	order := make([]string, 0, len(rules))
	for field := range rules {
		order = append(order, field)
	}
	sort.Strings(order)

	return &Engine{cfg: cfg, kind: kind, rules: rules, order: order, runDate: runDate}, nil
}

// Kind returns the entity type rows are transformed into.
func (e *Engine) Kind() models.ItemKind { return e.kind }

// TransformRow builds the item for one row.
func (e *Engine) TransformRow(row *models.Row) models.Item {
	sourceID := strings.TrimSpace(cellValue(row, e.cfg.Source.IDColumn))

	var item models.Item
	if e.kind == models.KindProject {
		p := &models.Project{Row: row, SourceID: sourceID}
		for _, field := range e.order {
			if v, ok := e.evaluate(e.rules[field], row, sourceID); ok {
				e.setProjectField(p, field, v, labelDelimiter(e.rules[field]))
			}
		}
		if strings.TrimSpace(p.Name) == "" {
			p.Name = e.fallbackName(row)
		}
		p.Name = Title(p.Name)
		p.Links = e.links(row)
		item = models.Item{Kind: models.KindProject, Project: p}
	} else {
		is := &models.Issue{Row: row, SourceID: sourceID}
		for _, field := range e.order {
			if v, ok := e.evaluate(e.rules[field], row, sourceID); ok {
				e.setIssueField(is, field, v, labelDelimiter(e.rules[field]))
			}
		}
		if strings.TrimSpace(is.Title) == "" {
			is.Title = e.fallbackName(row)
		}
		is.Title = Title(is.Title)
		is.Links = e.links(row)
		item = models.Item{Kind: models.KindIssue, Issue: is}
	}

	item.Subitems = e.subitems(row)
	return item
}

func (e *Engine) fallbackName(row *models.Row) string {
	if e.cfg.Source.NameColumn == "" {
		return ""
	}
	return cellValue(row, e.cfg.Source.NameColumn)
}

// evaluate runs one rule against a row. The bool is false when the rule
// yields nothing.
func (e *Engine) evaluate(rule importcfg.Rule, row *models.Row, sourceID string) (string, bool) {
	if tr, ok := rule.(importcfg.TemplateRule); ok {
		vars := make(map[string]string, len(tr.Sources)+3)
		for _, col := range tr.Sources {
			vars[col] = strings.TrimSpace(cellValue(row, col))
		}
		vars[VarMondayID] = sourceID
		vars[VarImportDate] = e.runDate.Format(ISODate)
		vars[VarRowNumber] = strconv.Itoa(row.Number)

		out, ok := RenderTemplate(tr.Template, vars)
		if !ok && tr.HasDefault {
			return tr.Default, tr.Default != ""
		}
		return out, ok
	}

	cell := cellOf(rule)
	raw := strings.TrimSpace(cellValue(row, cell.Column))
	if raw == "" && cell.HasDefault {
		raw = cell.Default
	}
	if raw == "" {
		return "", false
	}

	switch r := rule.(type) {
	case importcfg.TextRule, importcfg.UserRule, importcfg.LabelsRule:
		return raw, true
	case importcfg.StatusMapRule:
		return ApplyStatusMap(raw, e.cfg.StatusMapping)
	case importcfg.PriorityMapRule:
		return ApplyPriorityMap(raw, e.cfg.PriorityMapping)
	case importcfg.DateRule:
		d, ok := ParseDate(raw, e.runDate)
		if !ok {
			logging.Debug("unparseable date left empty", "row", row.Number, "column", cell.Column, "value", raw)
		}
		return d, ok
	case importcfg.TimelineRule:
		start, end := ParseTimeline(raw, e.runDate)
		if r.End {
			return end, end != ""
		}
		return start, start != ""
	case importcfg.NumberRule:
		n, ok := ParseNumber(raw)
		if !ok {
			logging.Debug("unparseable number left empty", "row", row.Number, "column", cell.Column, "value", raw)
			return "", false
		}
		return strconv.FormatFloat(n, 'f', -1, 64), true
	default:
		return "", false
	}
}

func cellOf(rule importcfg.Rule) importcfg.Cell {
	switch r := rule.(type) {
	case importcfg.TextRule:
		return r.Cell
	case importcfg.StatusMapRule:
		return r.Cell
	case importcfg.PriorityMapRule:
		return r.Cell
	case importcfg.DateRule:
		return r.Cell
	case importcfg.TimelineRule:
		return r.Cell
	case importcfg.UserRule:
		return r.Cell
	case importcfg.LabelsRule:
		return r.Cell
	case importcfg.NumberRule:
		return r.Cell
	}
	return importcfg.Cell{}
}

func labelDelimiter(rule importcfg.Rule) string {
	if lr, ok := rule.(importcfg.LabelsRule); ok {
		return lr.Delimiter
	}
	return ","
}

func (e *Engine) setProjectField(p *models.Project, field, v, delim string) {
	switch field {
	case "name":
		p.Name = v
	case "description":
		p.Description = Truncate(v, MaxTitleLength)
	case "content":
		p.Content = v
	case "status":
		p.Status = models.Unresolved(v)
	case "lead":
		p.Lead = models.Unresolved(v)
	case "priority":
		if n, ok := ParsePriority(v); ok {
			p.Priority = &n
		}
	case "startDate":
		p.StartDate, _ = ParseDate(v, e.runDate)
	case "targetDate":
		p.TargetDate, _ = ParseDate(v, e.runDate)
	case "labels":
		p.Labels = labelRefs(v, delim)
	}
}

func (e *Engine) setIssueField(is *models.Issue, field, v, delim string) {
	switch field {
	case "title":
		is.Title = v
	case "description":
		is.Description = v
	case "state":
		is.State = models.Unresolved(v)
	case "assignee":
		is.Assignee = models.Unresolved(v)
	case "priority":
		if n, ok := ParsePriority(v); ok {
			is.Priority = &n
		}
	case "dueDate":
		is.DueDate, _ = ParseDate(v, e.runDate)
	case "estimate":
		if f, ok := ParseNumber(v); ok {
			is.Estimate = &f
		}
	case "labels":
		is.Labels = labelRefs(v, delim)
	}
}

func labelRefs(v, delim string) []models.Ref {
	names := SplitList(v, delim)
	refs := make([]models.Ref, len(names))
	for i, n := range names {
		refs[i] = models.Unresolved(n)
	}
	return refs
}

func (e *Engine) links(row *models.Row) []models.Link {
	if !e.cfg.Links.Enabled {
		return nil
	}
	var links []models.Link
	for _, col := range e.cfg.Links.Columns {
		links = append(links, ExtractLinks(cellValue(row, col), col)...)
	}
	return links
}

func (e *Engine) subitems(row *models.Row) []*models.Issue {
	sub := e.cfg.DataModel.Items.Subitems
	if !sub.Enabled || sub.Column == "" {
		return nil
	}
	names := SplitList(cellValue(row, sub.Column), sub.Delimiter)
	if len(names) == 0 {
		return nil
	}
	out := make([]*models.Issue, len(names))
	for i, name := range names {
		out[i] = &models.Issue{Row: row, Title: Title(name)}
	}
	return out
}

// cellValue reads a column exactly, then ignoring case and spacing.
func cellValue(row *models.Row, column string) string {
	if row == nil || column == "" {
		return ""
	}
	if v, ok := row.Get(column); ok {
		return v
	}
	folded := strings.ToLower(strings.TrimSpace(column))
	for _, h := range row.Headers {
		if strings.ToLower(strings.TrimSpace(h)) == folded {
			return row.Value(h)
		}
	}
	return ""
}
