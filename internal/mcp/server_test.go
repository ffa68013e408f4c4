package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/helpdraft/internal/adf"
	"github.com/joescharf/helpdraft/internal/llm"
	"github.com/joescharf/helpdraft/internal/models"
	"github.com/joescharf/helpdraft/internal/pipeline"
	"github.com/joescharf/helpdraft/internal/vecindex"
)

// ---------------------------------------------------------------------------
// Stub collaborators
// ---------------------------------------------------------------------------

type stubTracker struct {
	issues  map[string]models.Issue
	posted  int
	postErr error
}

func (s *stubTracker) SearchIssues(_ context.Context, _ string) ([]models.Issue, error) {
	var out []models.Issue
	for _, issue := range s.issues {
		out = append(out, issue)
	}
	return out, nil
}

func (s *stubTracker) GetIssue(_ context.Context, key string) (*models.Issue, error) {
	issue, ok := s.issues[key]
	if !ok {
		return nil, fmt.Errorf("issue %s: not found", key)
	}
	return &issue, nil
}

func (s *stubTracker) PostComment(_ context.Context, _ string, _ *adf.Doc, _ string) (int, error) {
	s.posted++
	if s.postErr != nil {
		return 400, s.postErr
	}
	return 201, nil
}

type stubCompleter struct {
	response string
}

func (s *stubCompleter) Complete(_ context.Context, _ []llm.Message, _ int64) (string, error) {
	return s.response, nil
}

type stubEmbedder struct{}

func (stubEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (stubEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

type stubIndex struct {
	matches []vecindex.Match
	gotTopK int
}

func (s *stubIndex) Query(_ context.Context, _ []float32, topK int) ([]vecindex.Match, error) {
	s.gotTopK = topK
	return s.matches, nil
}

func docMatch(title, source string) vecindex.Match {
	return vecindex.Match{
		ID:       source,
		Score:    0.9,
		Metadata: vecindex.Metadata{Title: title, Text: "about " + title, Source: source},
	}
}

func newTestServer(t *testing.T) (*Server, *stubTracker, *stubIndex) {
	t.Helper()

	created := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	tc := &stubTracker{issues: map[string]models.Issue{
		"HELP-1": {
			Key:     "HELP-1",
			Summary: "Export dialog",
			Created: created,
			Comments: []models.Comment{
				{ID: "10", Author: "Dana", Created: created, Body: "h2. Online Help\nDocument the delimiter."},
			},
		},
		"HELP-2": {
			Key:      "HELP-2",
			Summary:  "No docs needed",
			Created:  created,
			Comments: []models.Comment{{ID: "20", Author: "Lee", Created: created, Body: "just chatter"}},
		},
	}}

	idx := &stubIndex{matches: []vecindex.Match{
		docMatch("Exporting", "https://help/export"),
		docMatch("Exporting again", "https://help/export"),
		docMatch("Printing", "https://help/print"),
	}}

	log := slog.New(slog.DiscardHandler)
	classifier := pipeline.NewClassifier(&stubCompleter{response: `{"scores": {"10": 0.9}}`}, 0.5, log)
	retriever := pipeline.NewRetriever(stubEmbedder{}, idx, 5)
	drafter := &stubCompleter{response: "The export dialog writes files.\n\nPick a delimiter first."}

	pipe := pipeline.New(tc, classifier, retriever, drafter, nil, pipeline.Options{SystemPrompt: "sys"}, log)
	return NewServer(pipe, stubEmbedder{}, idx, 5), tc, idx
}

func callToolReq(name string, args map[string]any) mcpgo.CallToolRequest {
	return mcpgo.CallToolRequest{
		Params: mcpgo.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// resultText extracts the concatenated text from a CallToolResult.
func resultText(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	var b strings.Builder
	for _, c := range result.Content {
		if tc, ok := c.(mcpgo.TextContent); ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

// resultJSON parses the text result as JSON into the provided target.
func resultJSON(t *testing.T, result *mcpgo.CallToolResult, target any) {
	t.Helper()
	text := resultText(t, result)
	err := json.Unmarshal([]byte(text), target)
	require.NoError(t, err, "failed to parse result JSON: %s", text)
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestNewServer(t *testing.T) {
	srv, _, _ := newTestServer(t)
	require.NotNil(t, srv.MCPServer())
}

func TestHandleDraftIssue(t *testing.T) {
	srv, tc, _ := newTestServer(t)
	ctx := context.Background()

	req := callToolReq("helpdraft_draft_issue", map[string]any{"key": "HELP-1"})
	result, err := srv.handleDraftIssue(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)

	var out struct {
		Issue      string `json:"issue"`
		Status     string `json:"status"`
		Selected   int    `json:"selected"`
		References int    `json:"references"`
		Comment    string `json:"comment"`
	}
	resultJSON(t, result, &out)
	assert.Equal(t, "HELP-1", out.Issue)
	assert.Equal(t, "drafted", out.Status)
	assert.Equal(t, 1, out.Selected)
	assert.Equal(t, 2, out.References)
	assert.Contains(t, out.Comment, "The export dialog writes files.")
	assert.Equal(t, 0, tc.posted, "drafting must not post by default")
}

func TestHandleDraftIssue_Post(t *testing.T) {
	srv, tc, _ := newTestServer(t)
	ctx := context.Background()

	req := callToolReq("helpdraft_draft_issue", map[string]any{"key": "HELP-1", "post": true})
	result, err := srv.handleDraftIssue(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var out struct {
		Status     string `json:"status"`
		PostStatus int    `json:"post_status"`
	}
	resultJSON(t, result, &out)
	assert.Equal(t, "posted", out.Status)
	assert.Equal(t, 201, out.PostStatus)
	assert.Equal(t, 1, tc.posted)
}

func TestHandleDraftIssue_Skipped(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ctx := context.Background()

	req := callToolReq("helpdraft_draft_issue", map[string]any{"key": "HELP-2"})
	result, err := srv.handleDraftIssue(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var out struct {
		Status     string `json:"status"`
		SkipReason string `json:"skip_reason"`
	}
	resultJSON(t, result, &out)
	assert.Equal(t, "skipped", out.Status)
	assert.Equal(t, "no trigger comment", out.SkipReason)
}

func TestHandleDraftIssue_MissingKey(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ctx := context.Background()

	req := callToolReq("helpdraft_draft_issue", nil)
	result, err := srv.handleDraftIssue(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "missing required parameter: key")
}

func TestHandleDraftIssue_NotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ctx := context.Background()

	req := callToolReq("helpdraft_draft_issue", map[string]any{"key": "HELP-404"})
	result, err := srv.handleDraftIssue(ctx, req)
	require.NoError(t, err, "handler should not return Go error; should wrap in result")
	require.NotNil(t, result)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "HELP-404")
}

func TestHandleSearchDocs(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ctx := context.Background()

	req := callToolReq("helpdraft_search_docs", map[string]any{"query": "export"})
	result, err := srv.handleSearchDocs(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)

	var out []struct {
		Title   string `json:"title"`
		Source  string `json:"source"`
		Snippet string `json:"snippet"`
	}
	resultJSON(t, result, &out)
	require.Len(t, out, 2, "duplicate sources should collapse")
	assert.Equal(t, "Exporting", out[0].Title)
	assert.Equal(t, "https://help/export", out[0].Source)
	assert.Equal(t, "about Exporting", out[0].Snippet)
	assert.Equal(t, "Printing", out[1].Title)
}

func TestHandleSearchDocs_TopKOverride(t *testing.T) {
	srv, _, idx := newTestServer(t)
	ctx := context.Background()

	req := callToolReq("helpdraft_search_docs", map[string]any{"query": "export", "top_k": 3})
	result, err := srv.handleSearchDocs(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, 3, idx.gotTopK)
}

func TestHandleSearchDocs_MissingQuery(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ctx := context.Background()

	req := callToolReq("helpdraft_search_docs", nil)
	result, err := srv.handleSearchDocs(ctx, req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "missing required parameter: query")
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", snippet("short"))

	long := strings.Repeat("x", snippetRunes+50)
	got := snippet(long)
	assert.Equal(t, snippetRunes+1, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))
}
