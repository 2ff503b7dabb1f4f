package importer

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/danielolaszy/monday-import/internal/importcfg"
	"github.com/danielolaszy/monday-import/internal/resolver"
	"github.com/danielolaszy/monday-import/internal/sheet"
	"github.com/danielolaszy/monday-import/internal/transform"
	"github.com/danielolaszy/monday-import/pkg/models"
)

// UpdateDateLayout formats the date line of an imported update.
const UpdateDateLayout = "January 2, 2006"

// ParseUpdates reads the updates sheet. Rows without a link or content are
// dropped; the second return value counts them.
func ParseUpdates(s *sheet.Sheet, cols importcfg.UpdateColumns, base time.Time) ([]models.Update, int) {
	if s == nil {
		return nil, 0
	}
	var updates []models.Update
	dropped := 0
	for _, row := range s.Rows {
		link := strings.TrimSpace(row.Value(cols.Link))
		content := strings.TrimSpace(row.Value(cols.Content))
		if link == "" || content == "" {
			dropped++
			continue
		}
		u := models.Update{
			ItemRef: link,
			Content: content,
			Row:     row.Number,
		}
		if cols.Author != "" {
			u.Author = strings.TrimSpace(row.Value(cols.Author))
		}
		if cols.Date != "" {
			if t, ok := transform.ParseTime(row.Value(cols.Date), base); ok {
				u.Date = &t
			}
		}
		updates = append(updates, u)
	}
	return updates, dropped
}

// SortUpdates orders updates by date, keeping sheet order for ties. Updates
// without a date go last in ascending order and first in descending order.
func SortUpdates(updates []models.Update, order importcfg.SortOrder) {
	desc := order == importcfg.OrderDesc
	sort.SliceStable(updates, func(i, j int) bool {
		a, b := updates[i].Date, updates[j].Date
		switch {
		case a == nil && b == nil:
			return false
		case a == nil:
			return desc
		case b == nil:
			return !desc
		case desc:
			return a.After(*b)
		default:
			return a.Before(*b)
		}
	})
}

// ComposeBody builds the posted text of an update. An author that did not
// resolve to a workspace user gets an "[Originally by X]" marker unless mode
// is skip; a known date is prepended as a bold line.
func ComposeBody(u models.Update, authorResolved bool, mode importcfg.AuthorMode) string {
	body := u.Content

	if u.Author != "" && !authorResolved {
		marker := "[Originally by " + u.Author + "]"
		switch mode {
		case importcfg.AuthorAppend:
			body = body + "\n\n" + marker
		case importcfg.AuthorSkip:
		default:
			body = marker + "\n\n" + body
		}
	}

	if u.Date != nil {
		body = "**" + u.Date.Format(UpdateDateLayout) + "**\n\n" + body
	}
	return body
}

// importUpdates posts the updates sheet against the finished item mapping.
// It returns false when a failure aborted the run.
func (r *run) importUpdates(ctx context.Context, s *sheet.Sheet, res *resolver.Resolver, mapping *ItemMapping) bool {
	cfg := r.cfg.Updates
	updates, dropped := ParseUpdates(s, cfg.Columns, r.now)
	r.result.Skipped.Updates += dropped
	SortUpdates(updates, cfg.Order)

	r.log.Info("importing updates", "count", len(updates), "dropped", dropped, "order", cfg.Order)

	for _, u := range updates {
		if err := ctx.Err(); err != nil {
			return r.cancel(err)
		}

		item, ok := mapping.Lookup(u.ItemRef)
		if !ok {
			r.result.Skipped.UnmatchedUpdates++
			r.log.Warn("no item matches update, skipping", "row", u.Row, "item", u.ItemRef)
			continue
		}

		resolved := false
		if u.Author != "" {
			_, resolved = res.ResolveUserID(u.Author)
		}
		body := ComposeBody(u, resolved, cfg.AuthorFallback)

		r.result.Planned.Comments++
		var err error
		if r.kind == models.KindProject {
			_, err = r.creator.CreateProjectUpdate(ctx, item.TargetID, body)
		} else {
			_, err = r.creator.CreateComment(ctx, item.TargetID, body)
		}
		if err != nil {
			op := "commentCreate"
			if r.kind == models.KindProject {
				op = "projectUpdateCreate"
			}
			if !r.fail(PhaseUpdates, u.Row, u.ItemRef, &CreationError{Op: op, Row: u.Row, Err: err}) {
				return false
			}
			continue
		}
		if r.creator.live() {
			r.result.Created.Comments++
		}
	}
	return true
}
