// Package linear provides functionality for interacting with the Linear GraphQL API.
package linear

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/danielolaszy/monday-import/internal/config"
	"github.com/danielolaszy/monday-import/internal/logging"
	"github.com/danielolaszy/monday-import/pkg/models"
)

const (
	// DefaultAPIEndpoint is Linear's public GraphQL endpoint.
	DefaultAPIEndpoint = config.DefaultLinearAPIURL

	defaultTimeout  = 30 * time.Second
	defaultPageSize = 250
	userAgent       = "monday-import/1.0"
)

// Client encapsulates access to one Linear workspace.
type Client struct {
	// APIKey is a personal API key; empty when HTTPClient carries an OAuth token
	APIKey     string
	TeamID     string
	Endpoint   string
	HTTPClient *http.Client

	pageSize int
}

// NewClient creates a client authenticated with a personal API key.
func NewClient(apiKey, teamID string) *Client {
	return &Client{
		APIKey:     apiKey,
		TeamID:     teamID,
		Endpoint:   DefaultAPIEndpoint,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		pageSize:   defaultPageSize,
	}
}

// NewFromConfig creates a client from environment configuration. An OAuth
// token wins over an API key when both are set.
func NewFromConfig(c *config.Config) (*Client, error) {
	if err := config.ValidateLinearConfig(c); err != nil {
		return nil, err
	}
	cfg := c.Linear

	client := NewClient(cfg.APIKey, cfg.TeamID)
	if cfg.APIURL != "" {
		client = client.WithEndpoint(cfg.APIURL)
	}
	if cfg.OAuthToken != "" {
		client = client.WithOAuthToken(cfg.OAuthToken)
	}

	credential := cfg.APIKey
	if cfg.OAuthToken != "" {
		credential = cfg.OAuthToken
	}
	logging.Info("linear configuration",
		"api_url", client.Endpoint,
		"auth", client.authMode(),
		"credential", logging.MaskSensitive(credential))
	return client, nil
}

func (c *Client) clone() *Client {
	cp := *c
	return &cp
}

// WithEndpoint returns a copy of the client that talks to endpoint.
func (c *Client) WithEndpoint(endpoint string) *Client {
	cp := c.clone()
	cp.Endpoint = endpoint
	return cp
}

// WithHTTPClient returns a copy of the client using httpClient.
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	cp := c.clone()
	cp.HTTPClient = httpClient
	return cp
}

// WithOAuthToken returns a copy of the client that sends token as a bearer
// token instead of the API key.
func (c *Client) WithOAuthToken(token string) *Client {
	cp := c.clone()
	cp.APIKey = ""
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	httpClient := oauth2.NewClient(context.Background(), ts)
	httpClient.Timeout = defaultTimeout
	cp.HTTPClient = httpClient
	return cp
}

func (c *Client) authMode() string {
	if c.APIKey != "" {
		return "api_key"
	}
	return "oauth"
}

// APIError is a failed GraphQL call: a non-2xx status or a response carrying errors.
type APIError struct {
	StatusCode int
	Messages   []string
	// Code is the first error's extensions.code, e.g. RATELIMITED
	Code string
}

func (e *APIError) Error() string {
	msg := strings.Join(e.Messages, "; ")
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("linear API error (%d %s): %s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("linear API error (%d): %s", e.StatusCode, msg)
}

// RateLimited reports whether Linear rejected the call for exceeding its rate limit.
func (e *APIError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.Code == "RATELIMITED"
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message    string `json:"message"`
		Extensions struct {
			Code string `json:"code"`
		} `json:"extensions"`
	} `json:"errors"`
}

// Execute runs one GraphQL operation and decodes its data into out. Failed
// calls are returned as they are; the importer decides whether to continue.
func (c *Client) Execute(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	data, err := c.doRequest(ctx, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// doRequest posts one GraphQL body and returns the response's data field.
func (c *Client) doRequest(ctx context.Context, body []byte) (json.RawMessage, error) {
	if c.Endpoint == "" {
		return nil, errors.New("linear endpoint not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.APIKey != "" {
		req.Header.Set("Authorization", c.APIKey)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var gql graphQLResponse
	decodeErr := json.Unmarshal(respBody, &gql)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || len(gql.Errors) > 0 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		for _, e := range gql.Errors {
			apiErr.Messages = append(apiErr.Messages, e.Message)
		}
		if len(gql.Errors) > 0 {
			apiErr.Code = gql.Errors[0].Extensions.Code
		}
		if len(apiErr.Messages) == 0 && len(respBody) > 0 && decodeErr != nil {
			apiErr.Messages = []string{strings.TrimSpace(string(respBody))}
		}
		return nil, apiErr
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode response: %w", decodeErr)
	}
	return gql.Data, nil
}

type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

type connection[T any] struct {
	Nodes    []T      `json:"nodes"`
	PageInfo pageInfo `json:"pageInfo"`
}

// listAll follows the cursor of the connection named field until the last page.
func listAll[T any](ctx context.Context, c *Client, query, field string, variables map[string]any) ([]T, error) {
	vars := map[string]any{"first": c.pageSize}
	for k, v := range variables {
		vars[k] = v
	}

	var all []T
	for {
		var data map[string]connection[T]
		if err := c.Execute(ctx, query, vars, &data); err != nil {
			return nil, err
		}
		page := data[field]
		all = append(all, page.Nodes...)
		if !page.PageInfo.HasNextPage || page.PageInfo.EndCursor == "" {
			return all, nil
		}
		vars["after"] = page.PageInfo.EndCursor
	}
}

const usersQuery = `query Users($first: Int!, $after: String) {
  users(first: $first, after: $after) {
    nodes { id name displayName email }
    pageInfo { hasNextPage endCursor }
  }
}`

const labelsQuery = `query Labels($first: Int!, $after: String, $teamId: ID!) {
  issueLabels(first: $first, after: $after, filter: { or: [{ team: { id: { eq: $teamId } } }, { team: { null: true } }] }) {
    nodes { id name }
    pageInfo { hasNextPage endCursor }
  }
}`

const statesQuery = `query States($first: Int!, $after: String, $teamId: ID!) {
  workflowStates(first: $first, after: $after, filter: { team: { id: { eq: $teamId } } }) {
    nodes { id name type }
    pageInfo { hasNextPage endCursor }
  }
}`

const projectStatusesQuery = `query ProjectStatuses($first: Int!, $after: String) {
  projectStatuses(first: $first, after: $after) {
    nodes { id name type }
    pageInfo { hasNextPage endCursor }
  }
}`

const viewerQuery = `query Viewer { viewer { id name displayName email } }`

// ListUsers returns every workspace member.
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := listAll[models.User](ctx, c, usersQuery, "users", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// ListLabels returns the team's labels and the workspace-wide labels.
func (c *Client) ListLabels(ctx context.Context, teamID string) ([]models.Named, error) {
	labels, err := listAll[models.Named](ctx, c, labelsQuery, "issueLabels", map[string]any{"teamId": c.team(teamID)})
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}
	return labels, nil
}

// ListWorkflowStates returns the team's workflow states.
func (c *Client) ListWorkflowStates(ctx context.Context, teamID string) ([]models.Named, error) {
	states, err := listAll[models.Named](ctx, c, statesQuery, "workflowStates", map[string]any{"teamId": c.team(teamID)})
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow states: %w", err)
	}
	return states, nil
}

// ListProjectStatuses returns the workspace's project statuses.
func (c *Client) ListProjectStatuses(ctx context.Context) ([]models.Named, error) {
	statuses, err := listAll[models.Named](ctx, c, projectStatusesQuery, "projectStatuses", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list project statuses: %w", err)
	}
	return statuses, nil
}

// Viewer returns the authenticated user.
func (c *Client) Viewer(ctx context.Context) (models.User, error) {
	var data struct {
		Viewer models.User `json:"viewer"`
	}
	if err := c.Execute(ctx, viewerQuery, nil, &data); err != nil {
		return models.User{}, fmt.Errorf("failed to query viewer: %w", err)
	}
	return data.Viewer, nil
}

func (c *Client) team(teamID string) string {
	if teamID != "" {
		return teamID
	}
	return c.TeamID
}
