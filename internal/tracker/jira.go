// Package tracker fetches issues from and posts drafts back to Jira
// Cloud over REST v3.
package tracker

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/joescharf/helpdraft/internal/adf"
	"github.com/joescharf/helpdraft/internal/models"
)

// Jira timestamps look like 2024-05-01T10:30:00.000+0000.
const jiraTimeLayout = "2006-01-02T15:04:05.000-0700"

// Client is the tracker surface the pipeline needs.
type Client interface {
	SearchIssues(ctx context.Context, jql string) ([]models.Issue, error)
	GetIssue(ctx context.Context, key string) (*models.Issue, error)
	// PostComment posts an ADF comment, optionally as a reply to
	// parentID. It returns the HTTP status code when one was received.
	PostComment(ctx context.Context, key string, body *adf.Doc, parentID string) (int, error)
}

// JiraClient implements Client against a Jira Cloud site.
type JiraClient struct {
	baseURL   string
	email     string
	apiToken  string
	userAgent string
	http      *http.Client
}

// NewJiraClient creates a tracker client. baseURL is the site root,
// e.g. https://example.atlassian.net.
func NewJiraClient(baseURL, email, apiToken, userAgent string) *JiraClient {
	return &JiraClient{
		baseURL:   baseURL,
		email:     email,
		apiToken:  apiToken,
		userAgent: userAgent,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

// Wire shapes for the issue payload.
type (
	jiraIssue struct {
		Key    string     `json:"key"`
		Fields jiraFields `json:"fields"`
	}

	jiraFields struct {
		Summary     string   `json:"summary"`
		Description *adf.Doc `json:"description"`
		Created     string   `json:"created"`
		Comment     struct {
			Comments []jiraComment `json:"comments"`
		} `json:"comment"`
	}

	jiraComment struct {
		ID     string `json:"id"`
		Author struct {
			DisplayName string `json:"displayName"`
		} `json:"author"`
		Created string   `json:"created"`
		Body    *adf.Doc `json:"body"`
	}
)

const issueFields = "summary,description,created,comment"

// SearchIssues runs a JQL query and returns all matching issues,
// following nextPageToken pagination.
func (c *JiraClient) SearchIssues(ctx context.Context, jql string) ([]models.Issue, error) {
	var issues []models.Issue
	token := ""
	for {
		u, err := url.Parse(c.baseURL + "/rest/api/3/search/jql")
		if err != nil {
			return nil, fmt.Errorf("parse search URL: %w", err)
		}
		q := u.Query()
		q.Set("jql", jql)
		q.Set("fields", issueFields)
		q.Set("maxResults", "100")
		if token != "" {
			q.Set("nextPageToken", token)
		}
		u.RawQuery = q.Encode()

		var page struct {
			Issues        []jiraIssue `json:"issues"`
			NextPageToken string      `json:"nextPageToken"`
			IsLast        bool        `json:"isLast"`
		}
		if err := c.getJSON(ctx, u.String(), &page); err != nil {
			return nil, fmt.Errorf("search issues: %w", err)
		}

		for _, ji := range page.Issues {
			issue, err := toIssue(ji)
			if err != nil {
				return nil, fmt.Errorf("issue %s: %w", ji.Key, err)
			}
			issues = append(issues, issue)
		}

		if page.IsLast || page.NextPageToken == "" {
			break
		}
		token = page.NextPageToken
	}
	return issues, nil
}

// GetIssue fetches a single issue with its comments.
func (c *JiraClient) GetIssue(ctx context.Context, key string) (*models.Issue, error) {
	u := fmt.Sprintf("%s/rest/api/3/issue/%s?fields=%s", c.baseURL, url.PathEscape(key), issueFields)
	var ji jiraIssue
	if err := c.getJSON(ctx, u, &ji); err != nil {
		return nil, fmt.Errorf("get issue %s: %w", key, err)
	}
	issue, err := toIssue(ji)
	if err != nil {
		return nil, fmt.Errorf("issue %s: %w", key, err)
	}
	return &issue, nil
}

// PostComment posts an ADF comment to an issue. A non-empty parentID
// makes it a reply to that comment.
func (c *JiraClient) PostComment(ctx context.Context, key string, body *adf.Doc, parentID string) (int, error) {
	payload := map[string]any{"body": body}
	if parentID != "" {
		payload["parentId"] = parentID
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal comment: %w", err)
	}

	u := fmt.Sprintf("%s/rest/api/3/issue/%s/comment", c.baseURL, url.PathEscape(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("create comment request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("post comment to %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("post comment to %s: status %d: %s", key, resp.StatusCode, respBody)
	}
	return resp.StatusCode, nil
}

// getJSON performs an authenticated GET and decodes the response.
func (c *JiraClient) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("jira request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return fmt.Errorf("not found")
	case http.StatusUnauthorized:
		return fmt.Errorf("unauthorized: check Jira credentials")
	default:
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, respBody)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *JiraClient) setHeaders(req *http.Request) {
	creds := c.email + ":" + c.apiToken
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(creds)))
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
}

// toIssue converts the wire shape to the domain model, flattening ADF
// bodies to plain text.
func toIssue(ji jiraIssue) (models.Issue, error) {
	created, err := parseJiraTime(ji.Fields.Created)
	if err != nil {
		return models.Issue{}, fmt.Errorf("parse created time: %w", err)
	}

	issue := models.Issue{
		Key:         ji.Key,
		Summary:     ji.Fields.Summary,
		Description: adf.Flatten(ji.Fields.Description),
		Created:     created,
	}
	for _, jc := range ji.Fields.Comment.Comments {
		commentCreated, err := parseJiraTime(jc.Created)
		if err != nil {
			return models.Issue{}, fmt.Errorf("comment %s: parse created time: %w", jc.ID, err)
		}
		issue.Comments = append(issue.Comments, models.Comment{
			ID:      jc.ID,
			Author:  jc.Author.DisplayName,
			Created: commentCreated,
			Body:    adf.Flatten(jc.Body),
		})
	}
	return issue, nil
}

func parseJiraTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(jiraTimeLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
