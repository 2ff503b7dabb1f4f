package importer

import (
	"fmt"
	"time"

	"github.com/danielolaszy/monday-import/internal/importcfg"
	"github.com/danielolaszy/monday-import/pkg/models"
)

// Phase names one step of an import run.
type Phase string

const (
	PhaseValidate  Phase = "validate"
	PhaseResolve   Phase = "resolve-reference-data"
	PhaseTransform Phase = "transform-rows"
	PhaseParents   Phase = "create-parent-items"
	PhaseSubitems  Phase = "create-subitems"
	PhaseUpdates   Phase = "create-updates"
	PhaseSummarize Phase = "summarize"
)

// Counts tallies entities per type.
type Counts struct {
	Items    int
	Subitems int
	Comments int
	Labels   int
	Links    int
}

// Skipped tallies units that were intentionally not imported.
type Skipped struct {
	EmptyRows        int
	Subitems         int
	Updates          int
	UnmatchedUpdates int
}

// RowError is one per-unit failure.
type RowError struct {
	Row     int
	Phase   Phase
	Item    string
	Message string
}

func (e RowError) String() string {
	if e.Item == "" {
		return fmt.Sprintf("row %d [%s]: %s", e.Row, e.Phase, e.Message)
	}
	return fmt.Sprintf("row %d [%s] %q: %s", e.Row, e.Phase, e.Item, e.Message)
}

// CreationError is a create call rejected or failed by the target system.
type CreationError struct {
	Op  string
	Row int
	Err error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *CreationError) Unwrap() error { return e.Err }

// Result summarizes an import run. Planned counts are the creation decisions
// and match between a dry run and a live run over the same input; Created
// counts are successful live mutations and stay zero in a dry run.
type Result struct {
	RunID  string
	DryRun bool
	Kind   models.ItemKind

	Rows       int
	Validation importcfg.ValidationResult

	Planned Counts
	Created Counts
	Skipped Skipped

	Errors   []RowError
	Warnings []string

	// Aborted is set when a failure with continue-on-error disabled, or a
	// cancellation, stopped the run early
	Aborted bool

	// Items maps every created parent (and sub-issue in issue mode) to its target id
	Items []MappedItem

	Duration time.Duration
}

// Failed reports whether any unit failed.
func (r *Result) Failed() bool {
	return len(r.Errors) > 0
}

func (r *Result) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}
