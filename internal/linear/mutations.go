package linear

import (
	"context"
	"fmt"
	"math"

	"github.com/danielolaszy/monday-import/internal/logging"
	"github.com/danielolaszy/monday-import/pkg/models"
)

const projectCreateMutation = `mutation ProjectCreate($input: ProjectCreateInput!) {
  projectCreate(input: $input) {
    success
    project { id slugId url }
  }
}`

const issueCreateMutation = `mutation IssueCreate($input: IssueCreateInput!) {
  issueCreate(input: $input) {
    success
    issue { id identifier url }
  }
}`

const labelCreateMutation = `mutation IssueLabelCreate($input: IssueLabelCreateInput!) {
  issueLabelCreate(input: $input) {
    success
    issueLabel { id name }
  }
}`

const projectUpdateCreateMutation = `mutation ProjectUpdateCreate($input: ProjectUpdateCreateInput!) {
  projectUpdateCreate(input: $input) {
    success
    projectUpdate { id url }
  }
}`

const commentCreateMutation = `mutation CommentCreate($input: CommentCreateInput!) {
  commentCreate(input: $input) {
    success
    comment { id url }
  }
}`

const issueLinkMutation = `mutation AttachmentLinkURL($issueId: String!, $url: String!, $title: String) {
  attachmentLinkURL(issueId: $issueId, url: $url, title: $title) {
    success
  }
}`

const projectLinkMutation = `mutation EntityExternalLinkCreate($input: EntityExternalLinkCreateInput!) {
  entityExternalLinkCreate(input: $input) {
    success
  }
}`

type entity struct {
	ID         string `json:"id"`
	Identifier string `json:"identifier"`
	SlugID     string `json:"slugId"`
	URL        string `json:"url"`
}

type payload struct {
	Success bool    `json:"success"`
	Project *entity `json:"project"`
	Issue   *entity `json:"issue"`
	Label   *entity `json:"issueLabel"`
	Update  *entity `json:"projectUpdate"`
	Comment *entity `json:"comment"`
}

func (p payload) created() (models.Created, bool) {
	for _, e := range []*entity{p.Project, p.Issue, p.Label, p.Update, p.Comment} {
		if e == nil || e.ID == "" {
			continue
		}
		identifier := e.Identifier
		if identifier == "" {
			identifier = e.SlugID
		}
		return models.Created{ID: e.ID, Identifier: identifier, URL: e.URL}, true
	}
	return models.Created{}, false
}

// mutate runs a create mutation whose payload is the field named op.
func (c *Client) mutate(ctx context.Context, op, mutation string, variables map[string]any) (models.Created, error) {
	var data map[string]payload
	if err := c.Execute(ctx, mutation, variables, &data); err != nil {
		return models.Created{}, err
	}
	p, ok := data[op]
	if !ok || !p.Success {
		return models.Created{}, fmt.Errorf("%s was not successful", op)
	}
	created, ok := p.created()
	if !ok && op != "attachmentLinkURL" && op != "entityExternalLinkCreate" {
		return models.Created{}, fmt.Errorf("%s returned no entity", op)
	}
	return created, nil
}

// input drops empty values so Linear applies its own defaults.
type input map[string]any

func (in input) str(key, v string) input {
	if v != "" {
		in[key] = v
	}
	return in
}

func (in input) ids(key string, v []string) input {
	if len(v) > 0 {
		in[key] = v
	}
	return in
}

func (in input) priority(v *int) input {
	if v != nil {
		in["priority"] = *v
	}
	return in
}

// CreateProject creates a project owned by the input's team.
func (c *Client) CreateProject(ctx context.Context, p models.ProjectInput) (models.Created, error) {
	vars := input{"name": p.Name, "teamIds": []string{c.team(p.TeamID)}}.
		str("description", p.Description).
		str("content", p.Content).
		str("statusId", p.StatusID).
		str("leadId", p.LeadID).
		str("startDate", p.StartDate).
		str("targetDate", p.TargetDate).
		ids("labelIds", p.LabelIDs).
		priority(p.Priority)

	created, err := c.mutate(ctx, "projectCreate", projectCreateMutation, map[string]any{"input": map[string]any(vars)})
	if err != nil {
		return models.Created{}, fmt.Errorf("failed to create project %q: %w", p.Name, err)
	}
	logging.Debug("created project", "name", p.Name, "id", created.ID)
	return created, nil
}

// CreateIssue creates an issue, a sub-issue when ParentID is set.
func (c *Client) CreateIssue(ctx context.Context, is models.IssueInput) (models.Created, error) {
	vars := input{"title": is.Title, "teamId": c.team(is.TeamID)}.
		str("description", is.Description).
		str("stateId", is.StateID).
		str("assigneeId", is.AssigneeID).
		str("dueDate", is.DueDate).
		str("parentId", is.ParentID).
		str("projectId", is.ProjectID).
		ids("labelIds", is.LabelIDs).
		priority(is.Priority)
	if is.Estimate != nil {
		vars["estimate"] = int(math.Round(*is.Estimate))
	}

	created, err := c.mutate(ctx, "issueCreate", issueCreateMutation, map[string]any{"input": map[string]any(vars)})
	if err != nil {
		return models.Created{}, fmt.Errorf("failed to create issue %q: %w", is.Title, err)
	}
	logging.Debug("created issue", "title", is.Title, "identifier", created.Identifier)
	return created, nil
}

// CreateLabel creates a team label.
func (c *Client) CreateLabel(ctx context.Context, teamID, name string) (models.Created, error) {
	vars := map[string]any{"input": map[string]any{"name": name, "teamId": c.team(teamID)}}
	created, err := c.mutate(ctx, "issueLabelCreate", labelCreateMutation, vars)
	if err != nil {
		return models.Created{}, fmt.Errorf("failed to create label %q: %w", name, err)
	}
	return created, nil
}

// CreateProjectUpdate posts a status update on a project.
func (c *Client) CreateProjectUpdate(ctx context.Context, projectID, body string) (models.Created, error) {
	vars := map[string]any{"input": map[string]any{"projectId": projectID, "body": body}}
	created, err := c.mutate(ctx, "projectUpdateCreate", projectUpdateCreateMutation, vars)
	if err != nil {
		return models.Created{}, fmt.Errorf("failed to post project update: %w", err)
	}
	return created, nil
}

// CreateComment posts a comment on an issue.
func (c *Client) CreateComment(ctx context.Context, issueID, body string) (models.Created, error) {
	vars := map[string]any{"input": map[string]any{"issueId": issueID, "body": body}}
	created, err := c.mutate(ctx, "commentCreate", commentCreateMutation, vars)
	if err != nil {
		return models.Created{}, fmt.Errorf("failed to post comment: %w", err)
	}
	return created, nil
}

// CreateIssueLink attaches a URL to an issue.
func (c *Client) CreateIssueLink(ctx context.Context, issueID string, link models.Link) error {
	vars := map[string]any{"issueId": issueID, "url": link.URL, "title": link.Label}
	if _, err := c.mutate(ctx, "attachmentLinkURL", issueLinkMutation, vars); err != nil {
		return fmt.Errorf("failed to attach %s: %w", link.URL, err)
	}
	return nil
}

// CreateProjectLink adds an external link to a project.
func (c *Client) CreateProjectLink(ctx context.Context, projectID string, link models.Link) error {
	vars := map[string]any{"input": map[string]any{"projectId": projectID, "url": link.URL, "label": link.Label}}
	if _, err := c.mutate(ctx, "entityExternalLinkCreate", projectLinkMutation, vars); err != nil {
		return fmt.Errorf("failed to link %s: %w", link.URL, err)
	}
	return nil
}
