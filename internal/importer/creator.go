package importer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/danielolaszy/monday-import/pkg/models"
)

// Client is the write side of the target system.
type Client interface {
	CreateProject(ctx context.Context, in models.ProjectInput) (models.Created, error)
	CreateIssue(ctx context.Context, in models.IssueInput) (models.Created, error)
	CreateLabel(ctx context.Context, teamID, name string) (models.Created, error)
	CreateProjectUpdate(ctx context.Context, projectID, body string) (models.Created, error)
	CreateComment(ctx context.Context, issueID, body string) (models.Created, error)
	CreateProjectLink(ctx context.Context, projectID string, link models.Link) error
	CreateIssueLink(ctx context.Context, issueID string, link models.Link) error
}

// creator is where every mutation of a run goes. The live creator calls the
// client; the dry-run creator only logs.
type creator interface {
	Client
	live() bool
}

type liveCreator struct {
	Client
}

func (liveCreator) live() bool { return true }

type dryRunCreator struct {
	log *slog.Logger
	n   int
}

func (d *dryRunCreator) live() bool { return false }

func (d *dryRunCreator) next() models.Created {
	d.n++
	id := fmt.Sprintf("dry-run-%d", d.n)
	return models.Created{ID: id, Identifier: id}
}

func (d *dryRunCreator) CreateProject(_ context.Context, in models.ProjectInput) (models.Created, error) {
	c := d.next()
	d.log.Info("dry-run: would create project", "id", c.ID, "name", in.Name,
		"status_id", in.StatusID, "lead_id", in.LeadID, "labels", len(in.LabelIDs))
	return c, nil
}

func (d *dryRunCreator) CreateIssue(_ context.Context, in models.IssueInput) (models.Created, error) {
	c := d.next()
	d.log.Info("dry-run: would create issue", "id", c.ID, "title", in.Title,
		"state_id", in.StateID, "assignee_id", in.AssigneeID, "parent_id", in.ParentID, "project_id", in.ProjectID)
	return c, nil
}

func (d *dryRunCreator) CreateLabel(_ context.Context, teamID, name string) (models.Created, error) {
	c := d.next()
	d.log.Info("dry-run: would create label", "id", c.ID, "name", name, "team_id", teamID)
	return c, nil
}

func (d *dryRunCreator) CreateProjectUpdate(_ context.Context, projectID, body string) (models.Created, error) {
	c := d.next()
	d.log.Info("dry-run: would post project update", "project_id", projectID, "length", len(body))
	return c, nil
}

func (d *dryRunCreator) CreateComment(_ context.Context, issueID, body string) (models.Created, error) {
	c := d.next()
	d.log.Info("dry-run: would post comment", "issue_id", issueID, "length", len(body))
	return c, nil
}

func (d *dryRunCreator) CreateProjectLink(_ context.Context, projectID string, link models.Link) error {
	d.log.Info("dry-run: would attach link", "project_id", projectID, "url", link.URL)
	return nil
}

func (d *dryRunCreator) CreateIssueLink(_ context.Context, issueID string, link models.Link) error {
	d.log.Info("dry-run: would attach link", "issue_id", issueID, "url", link.URL)
	return nil
}
