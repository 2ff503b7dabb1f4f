package importcfg

import (
	"fmt"
)

// TransformKind names a single-source transform.
type TransformKind string

const (
	TransformText          TransformKind = "text"
	TransformStatusMap     TransformKind = "statusMap"
	TransformPriorityMap   TransformKind = "priorityMap"
	TransformDate          TransformKind = "date"
	TransformTimelineStart TransformKind = "timelineStart"
	TransformTimelineEnd   TransformKind = "timelineEnd"
	TransformUser          TransformKind = "user"
	TransformLabels        TransformKind = "labels"
	TransformNumber        TransformKind = "number"
)

// Rule is a compiled field mapping. The set of implementations is closed:
// TextRule, StatusMapRule, PriorityMapRule, DateRule, TimelineRule, UserRule,
// LabelsRule, NumberRule and TemplateRule.
type Rule interface {
	// Columns lists the source columns the rule reads.
	Columns() []string
	isRule()
}

// Cell is the common part of single-source rules.
type Cell struct {
	Column string
	// Default replaces an empty or missing cell before the rule runs
	Default    string
	HasDefault bool
}

// Columns implements Rule.
func (c Cell) Columns() []string { return []string{c.Column} }

// TextRule copies the cell verbatim.
type TextRule struct{ Cell }

// StatusMapRule maps the cell through the status table.
type StatusMapRule struct{ Cell }

// PriorityMapRule maps the cell through the priority table.
type PriorityMapRule struct{ Cell }

// DateRule parses the cell as a calendar date.
type DateRule struct{ Cell }

// TimelineRule takes one side of a "start - end" cell.
type TimelineRule struct {
	Cell
	End bool
}

// UserRule keeps the cell as an unresolved user name.
type UserRule struct{ Cell }

// LabelsRule splits the cell into label names.
type LabelsRule struct {
	Cell
	Delimiter string
}

// NumberRule parses the cell as a number.
type NumberRule struct{ Cell }

// TemplateRule renders a template over several columns.
type TemplateRule struct {
	Sources    []string
	Template   string
	Default    string
	HasDefault bool
}

// Columns implements Rule.
func (t TemplateRule) Columns() []string { return t.Sources }

func (TextRule) isRule()        {}
func (StatusMapRule) isRule()   {}
func (PriorityMapRule) isRule() {}
func (DateRule) isRule()        {}
func (TimelineRule) isRule()    {}
func (UserRule) isRule()        {}
func (LabelsRule) isRule()      {}
func (NumberRule) isRule()      {}
func (TemplateRule) isRule()    {}

// Compile turns a document mapping into a typed Rule.
func Compile(m FieldMapping) (Rule, error) {
	single, template := m.IsSingle(), m.IsTemplate()
	switch {
	case single && template:
		return nil, fmt.Errorf("ambiguous mapping: both source/transform and sources/template are set")
	case !single && !template:
		return nil, fmt.Errorf("empty mapping: set either source or sources/template")
	}

	var def string
	hasDef := m.Default != nil
	if hasDef {
		def = string(*m.Default)
	}

	if template {
		if m.Template == "" {
			return nil, fmt.Errorf("template mapping needs a template")
		}
		return TemplateRule{Sources: m.Sources, Template: m.Template, Default: def, HasDefault: hasDef}, nil
	}

	if m.Source == "" {
		return nil, fmt.Errorf("transform %q needs a source column", m.Transform)
	}
	cell := Cell{Column: m.Source, Default: def, HasDefault: hasDef}

	switch TransformKind(m.Transform) {
	case "", TransformText:
		return TextRule{cell}, nil
	case TransformStatusMap:
		return StatusMapRule{cell}, nil
	case TransformPriorityMap:
		return PriorityMapRule{cell}, nil
	case TransformDate:
		return DateRule{cell}, nil
	case TransformTimelineStart:
		return TimelineRule{Cell: cell}, nil
	case TransformTimelineEnd:
		return TimelineRule{Cell: cell, End: true}, nil
	case TransformUser:
		return UserRule{cell}, nil
	case TransformLabels:
		delim := m.Delimiter
		if delim == "" {
			delim = ","
		}
		return LabelsRule{Cell: cell, Delimiter: delim}, nil
	case TransformNumber:
		return NumberRule{cell}, nil
	default:
		return nil, fmt.Errorf("unknown transform %q", m.Transform)
	}
}

// FieldType is the value type of a target field.
type FieldType int

const (
	FieldText FieldType = iota
	FieldTitle
	FieldStatus
	FieldState
	FieldUser
	FieldPriority
	FieldDate
	FieldNumber
	FieldLabels
)

// ProjectFields lists the known project fields.
var ProjectFields = map[string]FieldType{
	"name":        FieldTitle,
	"description": FieldText,
	"content":     FieldText,
	"status":      FieldStatus,
	"lead":        FieldUser,
	"priority":    FieldPriority,
	"startDate":   FieldDate,
	"targetDate":  FieldDate,
	"labels":      FieldLabels,
}

// IssueFields lists the known issue fields.
var IssueFields = map[string]FieldType{
	"title":       FieldTitle,
	"description": FieldText,
	"state":       FieldState,
	"assignee":    FieldUser,
	"priority":    FieldPriority,
	"dueDate":     FieldDate,
	"estimate":    FieldNumber,
	"labels":      FieldLabels,
}

// TitleField returns the name of the title field for an entity type.
func TitleField(importAs string) string {
	if importAs == "project" {
		return "name"
	}
	return "title"
}

// CompiledMappings compiles every known field of one entity type. Unknown
// fields are skipped; the first compile error is returned with its field.
func CompiledMappings(mappings map[string]FieldMapping, known map[string]FieldType) (map[string]Rule, error) {
	rules := make(map[string]Rule, len(mappings))
	for field, m := range mappings {
		if _, ok := known[field]; !ok {
			continue
		}
		rule, err := Compile(m)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field, err)
		}
		rules[field] = rule
	}
	return rules, nil
}
