// Package importer runs a board import: it validates the mapping against the
// export, loads reference data, transforms every row and creates parents,
// sub-items and historical updates in Linear, in that order.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/danielolaszy/monday-import/internal/importcfg"
	"github.com/danielolaszy/monday-import/internal/logging"
	"github.com/danielolaszy/monday-import/internal/resolver"
	"github.com/danielolaszy/monday-import/internal/sheet"
	"github.com/danielolaszy/monday-import/internal/transform"
	"github.com/danielolaszy/monday-import/pkg/models"
)

const tracerName = "github.com/danielolaszy/monday-import/internal/importer"

// Options control one run.
type Options struct {
	// DryRun runs every decision but replaces mutations with log lines
	DryRun bool
	// Now returns the run date; defaults to time.Now
	Now func() time.Time
}

// Input is the parsed export.
type Input struct {
	Main *sheet.Sheet
	// Updates is the updates sheet, nil when the export has none
	Updates *sheet.Sheet
}

// Importer imports one export with one config.
type Importer struct {
	cfg     *importcfg.ImportConfig
	client  Client
	catalog resolver.Catalog
	opts    Options
}

// New creates an importer. client may be nil for a dry run; catalog may be
// nil, in which case names resolve through the static fallbacks only.
func New(cfg *importcfg.ImportConfig, client Client, catalog resolver.Catalog, opts Options) *Importer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Importer{cfg: cfg, client: client, catalog: catalog, opts: opts}
}

// unit is one transformed row on its way through the creation phases.
type unit struct {
	item     models.Item
	targetID string
}

// run is the state of a single invocation. It is discarded when Run returns.
type run struct {
	cfg     *importcfg.ImportConfig
	kind    models.ItemKind
	creator creator
	res     *resolver.Resolver
	log     *slog.Logger
	tracer  trace.Tracer
	result  *Result
	now     time.Time
	err     error
}

// Run executes the phases in order. Configuration and column problems stop
// the run before any network call and are returned as the error. Per-unit
// failures are recorded in the result; with continue-on-error disabled the
// first one stops the run. A cancelled context stops the run between units
// and returns the partial result with ctx.Err().
func (im *Importer) Run(ctx context.Context, in Input) (*Result, error) {
	if im.cfg == nil {
		return nil, &importcfg.ConfigurationError{Message: "config is missing"}
	}
	if !im.opts.DryRun && im.client == nil {
		return nil, errors.New("a Linear client is required for a live import")
	}
	if in.Main == nil {
		return nil, errors.New("the export has no main sheet")
	}

	start := im.opts.Now()
	r := &run{
		cfg:    im.cfg,
		kind:   im.cfg.DataModel.Items.ImportAs,
		tracer: otel.Tracer(tracerName),
		now:    start,
		result: &Result{
			RunID:  uuid.NewString(),
			DryRun: im.opts.DryRun,
			Kind:   im.cfg.DataModel.Items.ImportAs,
		},
	}
	r.log = logging.WithFields("run_id", r.result.RunID, "dry_run", im.opts.DryRun)
	if im.opts.DryRun {
		r.creator = &dryRunCreator{log: r.log}
	} else {
		r.creator = liveCreator{Client: im.client}
	}

	ctx, span := r.tracer.Start(ctx, "import", trace.WithAttributes(
		attribute.String("run.id", r.result.RunID),
		attribute.Bool("run.dry_run", im.opts.DryRun),
		attribute.String("run.import_as", string(r.kind)),
	))
	defer span.End()

	r.log.Info("starting import", "import_as", r.kind, "team_id", im.cfg.Target.TeamID)

	if err := r.validate(ctx, in); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return r.result, err
	}

	r.res = resolver.New(im.catalog, im.cfg.Target.TeamID, im.cfg.Fallbacks)
	if im.catalog == nil {
		r.result.warn("no Linear catalog available; names resolve through fallbacks only")
	}

	var units []*unit
	mapping := &ItemMapping{}

	ok := r.phase(ctx, PhaseResolve, func(ctx context.Context) bool { return r.loadReferenceData(ctx) }) &&
		r.phase(ctx, PhaseTransform, func(ctx context.Context) bool {
			var ok bool
			units, ok = r.transformRows(ctx, in.Main)
			return ok
		}) &&
		r.phase(ctx, PhaseParents, func(ctx context.Context) bool { return r.createParents(ctx, units, mapping) }) &&
		r.phase(ctx, PhaseSubitems, func(ctx context.Context) bool { return r.createSubitems(ctx, units, mapping) })

	if ok && im.cfg.Updates.Enabled {
		if in.Updates == nil {
			r.result.warn("updates are enabled but no %q sheet was found; updates skipped", im.cfg.Updates.Sheet)
		} else {
			r.phase(ctx, PhaseUpdates, func(ctx context.Context) bool {
				return r.importUpdates(ctx, in.Updates, r.res, mapping)
			})
		}
	}

	r.phase(ctx, PhaseSummarize, func(context.Context) bool {
		r.summarize(mapping)
		return true
	})
	r.result.Duration = im.opts.Now().Sub(start)

	if r.result.Aborted {
		span.SetStatus(codes.Error, "aborted")
	}
	return r.result, r.err
}

// phase wraps one step in a span and logs its outcome.
func (r *run) phase(ctx context.Context, p Phase, fn func(context.Context) bool) bool {
	ctx, span := r.tracer.Start(ctx, string(p))
	defer span.End()

	errorsBefore := len(r.result.Errors)
	ok := fn(ctx)
	failures := len(r.result.Errors) - errorsBefore

	span.SetAttributes(attribute.Int("phase.failures", failures))
	if !ok {
		span.SetStatus(codes.Error, "phase stopped")
	}
	r.log.Debug("phase finished", "phase", p, "failures", failures, "completed", ok)
	return ok
}

func (r *run) validate(ctx context.Context, in Input) error {
	_, span := r.tracer.Start(ctx, string(PhaseValidate))
	defer span.End()

	headers := in.Main.Headers
	r.result.Rows = len(in.Main.Rows)
	var updatesHeaders []string
	if in.Updates != nil {
		updatesHeaders = in.Updates.Headers
	}

	result := importcfg.ValidateConfig(r.cfg)
	if result.Valid {
		result = result.Merge(importcfg.ValidateAgainstColumns(r.cfg, headers, updatesHeaders))
	}
	r.result.Validation = result
	for _, w := range result.Warnings {
		r.result.Warnings = append(r.result.Warnings, w.String())
		r.log.Warn("config warning", "path", w.Path, "message", w.Message)
	}
	if !result.Valid {
		for _, e := range result.Errors {
			r.log.Error("config error", "path", e.Path, "message", e.Message)
		}
		span.SetAttributes(attribute.Int("validation.errors", len(result.Errors)))
		return result.Err()
	}
	return nil
}

// fail records a per-unit failure. It returns false when the run must stop.
func (r *run) fail(p Phase, row int, item string, err error) bool {
	r.result.Errors = append(r.result.Errors, RowError{Row: row, Phase: p, Item: item, Message: err.Error()})
	r.log.Error("import unit failed", "phase", p, "row", row, "item", item, "error", err)
	if !r.cfg.Options.ContinueOnError {
		r.result.Aborted = true
		r.log.Warn("continue-on-error is disabled, stopping the import", "phase", p, "row", row)
		return false
	}
	return true
}

func (r *run) cancel(err error) bool {
	r.result.Aborted = true
	r.err = err
	r.log.Warn("import cancelled", "error", err)
	return false
}

func (r *run) loadReferenceData(ctx context.Context) bool {
	if err := r.res.Load(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return r.cancel(ctxErr)
		}
		return r.fail(PhaseResolve, 0, "", err)
	}
	return true
}

func (r *run) transformRows(ctx context.Context, s *sheet.Sheet) ([]*unit, bool) {
	engine, err := transform.New(r.cfg, r.now)
	if err != nil {
		return nil, r.fail(PhaseTransform, 0, "", err)
	}

	var units []*unit
	for _, row := range s.Rows {
		if err := ctx.Err(); err != nil {
			return units, r.cancel(err)
		}
		if r.cfg.Options.SkipEmptyRows && row.IsEmpty() {
			r.result.Skipped.EmptyRows++
			continue
		}
		item := engine.TransformRow(row)
		r.log.Debug("transformed row", "row", row.Number, "title", item.Title(), "subitems", len(item.Subitems))
		units = append(units, &unit{item: item})
	}
	return units, true
}

func (r *run) createParents(ctx context.Context, units []*unit, mapping *ItemMapping) bool {
	for _, u := range units {
		if err := ctx.Err(); err != nil {
			return r.cancel(err)
		}
		row := u.item.Row()

		r.result.Planned.Items++
		var created models.Created
		var err error
		op := "issueCreate"
		if r.kind == models.KindProject {
			op = "projectCreate"
			created, err = r.creator.CreateProject(ctx, r.projectInput(ctx, u.item.Project))
		} else {
			created, err = r.creator.CreateIssue(ctx, r.issueInput(ctx, u.item.Issue))
		}
		if err != nil {
			if !r.fail(PhaseParents, row.Number, u.item.Title(), &CreationError{Op: op, Row: row.Number, Err: err}) {
				return false
			}
			continue
		}

		u.targetID = created.ID
		if r.creator.live() {
			r.result.Created.Items++
		}
		r.log.Info("created item", "row", row.Number, "title", u.item.Title(), "id", created.ID, "identifier", created.Identifier)

		mapping.Add(MappedItem{
			SourceID: u.item.SourceID(),
			Names:    r.itemNames(u.item),
			TargetID: created.ID,
			Kind:     r.kind,
			Row:      row.Number,
		})

		r.attachLinks(ctx, u)
	}
	return true
}

func (r *run) itemNames(item models.Item) []string {
	names := []string{item.Title()}
	if col := r.cfg.Source.NameColumn; col != "" {
		if raw := strings.TrimSpace(item.Row().Value(col)); raw != "" && raw != item.Title() {
			names = append(names, raw)
		}
	}
	return names
}

// attachLinks adds the item's hyperlinks. Link failures are warnings.
func (r *run) attachLinks(ctx context.Context, u *unit) {
	var links []models.Link
	if r.kind == models.KindProject {
		links = u.item.Project.Links
	} else {
		links = u.item.Issue.Links
	}

	for _, link := range links {
		r.result.Planned.Links++
		var err error
		if r.kind == models.KindProject {
			err = r.creator.CreateProjectLink(ctx, u.targetID, link)
		} else {
			err = r.creator.CreateIssueLink(ctx, u.targetID, link)
		}
		if err != nil {
			r.result.warn("row %d: link %s not attached: %v", u.item.Row().Number, link.URL, err)
			r.log.Warn("failed to attach link", "row", u.item.Row().Number, "url", link.URL, "error", err)
			continue
		}
		if r.creator.live() {
			r.result.Created.Links++
		}
	}
}

func (r *run) createSubitems(ctx context.Context, units []*unit, mapping *ItemMapping) bool {
	for _, u := range units {
		if len(u.item.Subitems) == 0 {
			continue
		}
		if u.targetID == "" {
			r.result.Skipped.Subitems += len(u.item.Subitems)
			r.log.Warn("parent was not created, skipping its sub-items", "row", u.item.Row().Number, "count", len(u.item.Subitems))
			continue
		}

		for _, sub := range u.item.Subitems {
			if err := ctx.Err(); err != nil {
				return r.cancel(err)
			}

			in := models.IssueInput{TeamID: r.cfg.Target.TeamID, Title: sub.Title}
			if r.kind == models.KindProject {
				in.ProjectID = u.targetID
			} else {
				in.ParentID = u.targetID
			}

			r.result.Planned.Subitems++
			created, err := r.creator.CreateIssue(ctx, in)
			if err != nil {
				if !r.fail(PhaseSubitems, sub.Row.Number, sub.Title, &CreationError{Op: "issueCreate", Row: sub.Row.Number, Err: err}) {
					return false
				}
				continue
			}
			if r.creator.live() {
				r.result.Created.Subitems++
			}
			r.log.Info("created sub-item", "row", sub.Row.Number, "title", sub.Title, "parent_id", u.targetID, "id", created.ID)

			if r.kind == models.KindIssue {
				mapping.Add(MappedItem{Names: []string{sub.Title}, TargetID: created.ID, Kind: models.KindIssue, Row: sub.Row.Number})
			}
		}
	}
	return true
}

func (r *run) summarize(mapping *ItemMapping) {
	for _, kind := range []resolver.Kind{resolver.KindUser, resolver.KindState, resolver.KindProjectStatus, resolver.KindLabel} {
		names := r.res.Misses()[kind]
		if len(names) == 0 {
			continue
		}
		verdict := "left unset"
		if kind == resolver.KindLabel {
			verdict = "dropped"
		}
		r.result.warn("%d %s name(s) did not resolve and were %s: %s", len(names), kind, verdict, strings.Join(names, ", "))
	}
	r.result.Items = mapping.Entries()

	r.log.Info("import finished",
		"planned_items", r.result.Planned.Items,
		"created_items", r.result.Created.Items,
		"planned_subitems", r.result.Planned.Subitems,
		"planned_comments", r.result.Planned.Comments,
		"mapped_items", mapping.Len(),
		"errors", len(r.result.Errors),
		"aborted", r.result.Aborted)
}

func (r *run) projectInput(ctx context.Context, p *models.Project) models.ProjectInput {
	row := p.Row.Number
	p.Status = r.resolveRef(p.Status, r.res.ResolveProjectStatusID, "project status", row)
	p.Lead = r.resolveRef(p.Lead, r.res.ResolveUserID, "lead", row)
	p.Labels = r.resolveLabels(ctx, p.Labels, row)

	return models.ProjectInput{
		TeamID:      r.cfg.Target.TeamID,
		Name:        p.Name,
		Description: p.Description,
		Content:     p.Content,
		StatusID:    p.Status.ID(),
		LeadID:      p.Lead.ID(),
		Priority:    p.Priority,
		StartDate:   p.StartDate,
		TargetDate:  p.TargetDate,
		LabelIDs:    refIDs(p.Labels),
	}
}

func (r *run) issueInput(ctx context.Context, is *models.Issue) models.IssueInput {
	row := is.Row.Number
	is.State = r.resolveRef(is.State, r.res.ResolveIssueStateID, "state", row)
	is.Assignee = r.resolveRef(is.Assignee, r.res.ResolveUserID, "assignee", row)
	is.Labels = r.resolveLabels(ctx, is.Labels, row)

	return models.IssueInput{
		TeamID:      r.cfg.Target.TeamID,
		Title:       is.Title,
		Description: is.Description,
		StateID:     is.State.ID(),
		AssigneeID:  is.Assignee.ID(),
		Priority:    is.Priority,
		DueDate:     is.DueDate,
		Estimate:    is.Estimate,
		LabelIDs:    refIDs(is.Labels),
	}
}

// resolveRef turns an unresolved name into a resolved ref. A miss returns the
// zero ref so the field is left unset.
func (r *run) resolveRef(ref models.Ref, lookup func(string) (string, bool), field string, row int) models.Ref {
	if ref.IsResolved() || ref.IsZero() {
		return ref
	}
	id, ok := lookup(ref.Raw())
	if !ok {
		r.log.Debug("name did not resolve", "field", field, "row", row, "name", ref.Raw())
		return models.Ref{}
	}
	return models.Resolved(id)
}

// resolveLabels resolves label names, creating missing ones when the config
// allows it. Labels that stay unresolved are dropped.
func (r *run) resolveLabels(ctx context.Context, refs []models.Ref, row int) []models.Ref {
	var out []models.Ref
	for _, ref := range refs {
		if ref.IsResolved() {
			out = append(out, ref)
			continue
		}
		name := ref.Raw()
		if id, ok := r.res.ResolveLabelID(name); ok {
			out = append(out, models.Resolved(id))
			continue
		}
		if !r.cfg.Options.CreateMissingLabels {
			r.log.Debug("label not found, dropping", "row", row, "label", name)
			continue
		}

		r.result.Planned.Labels++
		created, err := r.creator.CreateLabel(ctx, r.cfg.Target.TeamID, name)
		if err != nil {
			r.result.warn("row %d: label %q could not be created: %v", row, name, err)
			r.log.Warn("failed to create label", "row", row, "label", name, "error", err)
			continue
		}
		if r.creator.live() {
			r.result.Created.Labels++
		}
		r.res.RegisterLabel(name, created.ID)
		out = append(out, models.Resolved(created.ID))
	}
	return out
}

func refIDs(refs []models.Ref) []string {
	if len(refs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref.IsResolved() {
			ids = append(ids, ref.ID())
		}
	}
	return ids
}

// Summary renders a one-line description of the result for logs.
func (r *Result) Summary() string {
	mode := "live"
	if r.DryRun {
		mode = "dry-run"
	}
	return fmt.Sprintf("%s import %s: %d/%d items, %d/%d sub-items, %d/%d updates, %d error(s)",
		mode, r.RunID, r.Created.Items, r.Planned.Items, r.Created.Subitems, r.Planned.Subitems,
		r.Created.Comments, r.Planned.Comments, len(r.Errors))
}
