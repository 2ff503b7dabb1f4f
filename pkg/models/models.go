// Package models defines data structures shared across the application.
package models

import (
	"time"
)

// Row is one normalized spreadsheet row keyed by column header.
type Row struct {
	// Number is the 1-based row number in the source sheet, used in diagnostics
	Number int

	// Headers lists the sheet's column headers in their original order
	Headers []string

	// Cells maps a column header to its raw cell value
	Cells map[string]string
}

// NewRow builds a Row from parallel header and value slices. Missing trailing
// values are treated as empty cells.
func NewRow(number int, headers, values []string) *Row {
	cells := make(map[string]string, len(headers))
	for i, h := range headers {
		if i < len(values) {
			cells[h] = values[i]
		} else {
			cells[h] = ""
		}
	}
	return &Row{Number: number, Headers: headers, Cells: cells}
}

// Get returns the raw value of a column and whether the column exists.
func (r *Row) Get(column string) (string, bool) {
	v, ok := r.Cells[column]
	return v, ok
}

// Value returns the raw value of a column, or "" if the column is absent.
func (r *Row) Value(column string) string {
	return r.Cells[column]
}

// IsEmpty reports whether every cell in the row is blank.
func (r *Row) IsEmpty() bool {
	for _, v := range r.Cells {
		if v != "" {
			return false
		}
	}
	return true
}

// Ref is a reference to a target-system entity that is either still a raw,
// human-readable name or an already resolved identifier.
type Ref struct {
	raw      string
	id       string
	resolved bool
}

// Unresolved wraps a raw name that still has to be looked up.
func Unresolved(raw string) Ref {
	return Ref{raw: raw}
}

// Resolved wraps a target-system identifier.
func Resolved(id string) Ref {
	return Ref{id: id, resolved: true}
}

// Raw returns the original name, empty for refs created with Resolved.
func (r Ref) Raw() string { return r.raw }

// ID returns the identifier of a resolved ref.
func (r Ref) ID() string { return r.id }

// IsResolved reports whether the ref carries an identifier.
func (r Ref) IsResolved() bool { return r.resolved }

// IsZero reports whether the ref holds neither a name nor an identifier.
func (r Ref) IsZero() bool { return r.raw == "" && !r.resolved }

// Link is a hyperlink extracted from a link column.
type Link struct {
	Label string
	URL   string
}

// ItemKind tells whether a transformed item becomes a project or an issue.
type ItemKind string

const (
	// KindProject items are created as Linear projects.
	KindProject ItemKind = "project"
	// KindIssue items are created as Linear issues.
	KindIssue ItemKind = "issue"
)

// Project is a row transformed into a Linear project.
type Project struct {
	// Row is the source row the project was built from
	Row *Row

	// Name is never empty and at most 255 characters
	Name string

	// Description is the short summary, at most 255 characters
	Description string

	// Content is the long markdown body
	Content string

	// Status is the project status name, resolved at creation time
	Status Ref

	// Lead is the lead user's name, resolved at creation time
	Lead Ref

	// Priority is the Linear priority (0-4) or nil when unmapped
	Priority *int

	// StartDate and TargetDate are ISO calendar dates (YYYY-MM-DD) or empty
	StartDate  string
	TargetDate string

	// Labels holds label names until resolved
	Labels []Ref

	// Links are hyperlinks to attach after creation
	Links []Link

	// SourceID is the identifier of the item in the source system
	SourceID string
}

// Issue is a row (or a sub-item of a row) transformed into a Linear issue.
type Issue struct {
	// Row is the source row the issue was built from; sub-items share their parent's row
	Row *Row

	// Title is never empty and at most 255 characters
	Title string

	// Description is the markdown body
	Description string

	// State is the workflow state name, resolved at creation time
	State Ref

	// Assignee is the assignee's name, resolved at creation time
	Assignee Ref

	// Priority is the Linear priority (0-4) or nil when unmapped
	Priority *int

	// DueDate is an ISO calendar date (YYYY-MM-DD) or empty
	DueDate string

	// Estimate is the point estimate or nil
	Estimate *float64

	// Labels holds label names until resolved
	Labels []Ref

	// Links are hyperlinks to attach after creation
	Links []Link

	// SourceID is the identifier of the item in the source system
	SourceID string
}

// Item is the tagged union produced for one row. Exactly one of Project and
// Issue is set, matching Kind.
type Item struct {
	Kind    ItemKind
	Project *Project
	Issue   *Issue

	// Subitems are child issues split out of the row's sub-item column
	Subitems []*Issue
}

// Row returns the source row of the item.
func (i Item) Row() *Row {
	if i.Kind == KindProject && i.Project != nil {
		return i.Project.Row
	}
	if i.Issue != nil {
		return i.Issue.Row
	}
	return nil
}

// Title returns the name of a project or the title of an issue.
func (i Item) Title() string {
	if i.Kind == KindProject && i.Project != nil {
		return i.Project.Name
	}
	if i.Issue != nil {
		return i.Issue.Title
	}
	return ""
}

// SourceID returns the source-system identifier of the item.
func (i Item) SourceID() string {
	if i.Kind == KindProject && i.Project != nil {
		return i.Project.SourceID
	}
	if i.Issue != nil {
		return i.Issue.SourceID
	}
	return ""
}

// Update is one historical comment or status update from the updates sheet.
type Update struct {
	// ItemRef is the source item id or name the update belongs to
	ItemRef string

	// Content is the update body
	Content string

	// Author is the original author's name, possibly empty
	Author string

	// Date is when the update was originally posted, nil if unknown
	Date *time.Time

	// Row is the originating row number in the updates sheet
	Row int
}

// Created describes an entity created in the target system.
type Created struct {
	ID         string
	Identifier string
	URL        string
}

// User is a member of the target workspace.
type User struct {
	ID          string
	Name        string
	DisplayName string
	Email       string
}

// Named is a catalog entry looked up by name: a label, a workflow state or a
// project status.
type Named struct {
	ID   string
	Name string
	// Type is the workflow state type (backlog, started, ...) or the project status type
	Type string
}

// ProjectInput is a fully resolved project creation request.
type ProjectInput struct {
	TeamID      string
	Name        string
	Description string
	Content     string
	StatusID    string
	LeadID      string
	Priority    *int
	StartDate   string
	TargetDate  string
	LabelIDs    []string
}

// IssueInput is a fully resolved issue creation request.
type IssueInput struct {
	TeamID      string
	Title       string
	Description string
	StateID     string
	AssigneeID  string
	Priority    *int
	DueDate     string
	Estimate    *float64
	LabelIDs    []string
	// ParentID makes the issue a sub-issue
	ParentID string
	// ProjectID adds the issue to a project
	ProjectID string
}
