package importcfg

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/danielolaszy/monday-import/pkg/models"
)

// Diagnostic is one validation finding.
type Diagnostic struct {
	// Path is the document path of the offending value, e.g. "source.idColumn"
	Path string
	// Column is the spreadsheet column involved, if any
	Column  string
	Message string
}

func (d Diagnostic) String() string {
	if d.Path == "" {
		return d.Message
	}
	return d.Path + ": " + d.Message
}

// ValidationResult collects errors and warnings. Valid is false when at least
// one error was found.
type ValidationResult struct {
	Valid    bool
	Errors   []Diagnostic
	Warnings []Diagnostic
}

func newResult() ValidationResult {
	return ValidationResult{Valid: true}
}

func (r *ValidationResult) addError(d Diagnostic) {
	r.Valid = false
	r.Errors = append(r.Errors, d)
}

func (r *ValidationResult) addWarning(d Diagnostic) {
	r.Warnings = append(r.Warnings, d)
}

// Merge combines two results.
func (r ValidationResult) Merge(other ValidationResult) ValidationResult {
	return ValidationResult{
		Valid:    r.Valid && other.Valid,
		Errors:   append(append([]Diagnostic{}, r.Errors...), other.Errors...),
		Warnings: append(append([]Diagnostic{}, r.Warnings...), other.Warnings...),
	}
}

// Err returns nil for a valid result. Results whose errors are all about
// missing columns yield a *ColumnMismatchError, anything else a
// *ConfigurationError.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	var missing []string
	for _, d := range r.Errors {
		if d.Column == "" {
			return &ConfigurationError{Message: "invalid import config", Diagnostics: r.Errors}
		}
		missing = append(missing, d.Column)
	}
	return &ColumnMismatchError{Missing: missing, Diagnostics: r.Errors}
}

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateConfig checks a decoded document for internal consistency,
// independent of any spreadsheet. It never modifies cfg.
func ValidateConfig(cfg *ImportConfig) ValidationResult {
	result := newResult()
	if cfg == nil {
		result.addError(Diagnostic{Message: "config is missing"})
		return result
	}

	if err := structValidator.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				result.addError(Diagnostic{Path: fieldPath(fe), Message: describeTag(fe)})
			}
		} else {
			result.addError(Diagnostic{Message: err.Error()})
		}
	}

	if strings.TrimSpace(cfg.Target.TeamID) == "" && cfg.Target.TeamID != "" {
		result.addError(Diagnostic{Path: "target.teamId", Message: "must not be blank"})
	}

	importAs := cfg.DataModel.Items.ImportAs
	if importAs == models.KindProject || importAs == models.KindIssue {
		validateMappings(&result, cfg, importAs)
	}

	if cfg.Updates.Enabled {
		if cfg.Updates.Columns.Link == "" {
			result.addError(Diagnostic{Path: "updates.columns.link", Message: "is required when updates are enabled"})
		}
		if cfg.Updates.Columns.Content == "" {
			result.addError(Diagnostic{Path: "updates.columns.content", Message: "is required when updates are enabled"})
		}
		if cfg.Updates.Columns.Date == "" {
			result.addWarning(Diagnostic{Path: "updates.columns.date", Message: "not set; updates keep sheet order"})
		}
	}

	if cfg.Links.Enabled && len(cfg.Links.Columns) == 0 {
		result.addWarning(Diagnostic{Path: "links.columns", Message: "links are enabled but no columns are listed"})
	}

	return result
}

func validateMappings(result *ValidationResult, cfg *ImportConfig, importAs models.ItemKind) {
	section := "fieldMappings." + string(importAs)
	mappings := cfg.FieldMappings.For(importAs)
	known := IssueFields
	if importAs == models.KindProject {
		known = ProjectFields
	}

	if len(mappings) == 0 {
		result.addError(Diagnostic{Path: section, Message: "at least one field mapping is required"})
		return
	}

	titleField := TitleField(string(importAs))
	if _, ok := mappings[titleField]; !ok {
		if cfg.Source.NameColumn == "" {
			result.addError(Diagnostic{Path: section + "." + titleField, Message: "is required unless source.nameColumn is set"})
		} else {
			result.addWarning(Diagnostic{Path: section + "." + titleField, Message: fmt.Sprintf("not mapped; items are named from column %q", cfg.Source.NameColumn)})
		}
	}

	for _, field := range sortedKeys(mappings) {
		m := mappings[field]
		path := section + "." + field
		fieldType, ok := known[field]
		if !ok {
			result.addWarning(Diagnostic{Path: path, Message: "unknown target field, ignored"})
			continue
		}

		rule, err := Compile(m)
		if err != nil {
			result.addError(Diagnostic{Path: path, Message: err.Error()})
			continue
		}

		switch rule.(type) {
		case StatusMapRule:
			if len(cfg.StatusMapping) == 0 {
				result.addWarning(Diagnostic{Path: path, Message: "statusMap transform without a statusMapping table passes raw values through"})
			}
		case PriorityMapRule:
			if len(cfg.PriorityMapping) == 0 {
				result.addWarning(Diagnostic{Path: path, Message: "priorityMap transform without a priorityMapping table leaves priority unset"})
			}
		case TimelineRule, DateRule:
			if fieldType != FieldDate {
				result.addWarning(Diagnostic{Path: path, Message: "date transform on a non-date field stores the ISO date as text"})
			}
		}
	}
}

// ValidateAgainstColumns checks that every column the document references
// exists in the sheet headers. updatesHeaders is nil when no updates sheet
// was found.
func ValidateAgainstColumns(cfg *ImportConfig, headers, updatesHeaders []string) ValidationResult {
	result := newResult()
	if cfg == nil {
		result.addError(Diagnostic{Message: "config is missing"})
		return result
	}

	index := newHeaderIndex(headers)
	check := func(path, column string, required bool) {
		checkColumn(&result, index, path, column, required)
	}

	check("source.idColumn", cfg.Source.IDColumn, true)
	if cfg.Source.NameColumn != "" {
		check("source.nameColumn", cfg.Source.NameColumn, false)
	}

	importAs := cfg.DataModel.Items.ImportAs
	mappings := cfg.FieldMappings.For(importAs)
	titleField := TitleField(string(importAs))
	for _, field := range sortedKeys(mappings) {
		m := mappings[field]
		path := "fieldMappings." + string(importAs) + "." + field
		if m.IsTemplate() && !m.IsSingle() {
			for _, col := range m.Sources {
				check(path+".sources", col, m.Required)
			}
			continue
		}
		if m.Source != "" {
			check(path+".source", m.Source, m.Required || field == titleField)
		}
	}

	if cfg.DataModel.Items.Subitems.Enabled {
		check("dataModel.items.subitems.column", cfg.DataModel.Items.Subitems.Column, false)
	}

	if cfg.Links.Enabled {
		for _, col := range cfg.Links.Columns {
			check("links.columns", col, false)
		}
	}

	if cfg.Updates.Enabled {
		if updatesHeaders == nil {
			result.addWarning(Diagnostic{Path: "updates.sheet", Message: fmt.Sprintf("updates sheet %q not found; updates will be skipped", cfg.Updates.Sheet)})
		} else {
			updIndex := newHeaderIndex(updatesHeaders)
			cols := cfg.Updates.Columns
			checkColumn(&result, updIndex, "updates.columns.link", cols.Link, true)
			checkColumn(&result, updIndex, "updates.columns.content", cols.Content, true)
			if cols.Author != "" {
				checkColumn(&result, updIndex, "updates.columns.author", cols.Author, false)
			}
			if cols.Date != "" {
				checkColumn(&result, updIndex, "updates.columns.date", cols.Date, false)
			}
		}
	}

	return result
}

type headerIndex struct {
	exact map[string]bool
	fold  map[string]string
}

func newHeaderIndex(headers []string) headerIndex {
	idx := headerIndex{exact: make(map[string]bool, len(headers)), fold: make(map[string]string, len(headers))}
	for _, h := range headers {
		idx.exact[h] = true
		key := strings.ToLower(strings.TrimSpace(h))
		if _, seen := idx.fold[key]; !seen {
			idx.fold[key] = h
		}
	}
	return idx
}

func checkColumn(result *ValidationResult, index headerIndex, path, column string, required bool) {
	if column == "" {
		return
	}
	if index.exact[column] {
		return
	}
	if actual, ok := index.fold[strings.ToLower(strings.TrimSpace(column))]; ok {
		result.addWarning(Diagnostic{Path: path, Column: column,
			Message: fmt.Sprintf("column %q only matches sheet column %q when ignoring case or spacing", column, actual)})
		return
	}
	d := Diagnostic{Path: path, Column: column, Message: fmt.Sprintf("column %q not found in sheet", column)}
	if required {
		result.addError(d)
	} else {
		result.addWarning(d)
	}
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fmt.Sprint(fe.Value()))
	case "url":
		return fmt.Sprintf("must be a URL, got %q", fmt.Sprint(fe.Value()))
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
