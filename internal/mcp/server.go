// Package mcp exposes the drafting pipeline and the documentation index
// as MCP tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/helpdraft/internal/embedding"
	"github.com/joescharf/helpdraft/internal/models"
	"github.com/joescharf/helpdraft/internal/pipeline"
	"github.com/joescharf/helpdraft/internal/vecindex"
)

const snippetRunes = 200

// Server wraps the pipeline and retrieval collaborators and exposes
// them as MCP tools.
type Server struct {
	pipe     *pipeline.Pipeline
	embedder embedding.Embedder
	index    vecindex.Index
	topK     int
}

// NewServer creates the MCP server wrapper. topK is the default result
// count for document searches.
func NewServer(pipe *pipeline.Pipeline, embedder embedding.Embedder, index vecindex.Index, topK int) *Server {
	return &Server{pipe: pipe, embedder: embedder, index: index, topK: topK}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("helpdraft", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.draftIssueTool())
	srv.AddTool(s.searchDocsTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// helpdraft_draft_issue
func (s *Server) draftIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("helpdraft_draft_issue",
		mcp.WithDescription("Run the drafting pipeline for one Jira issue. Returns JSON with the result status (drafted/posted/skipped/failed), selection counts, and the plain-text draft."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Jira issue key, e.g. HELP-123")),
		mcp.WithBoolean("post", mcp.Description("Post the draft to the issue as a comment (default: false)")),
	)
	return tool, s.handleDraftIssue
}

func (s *Server) handleDraftIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := request.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: key"), nil
	}
	post := request.GetBool("post", false)

	res, rendered := s.pipe.WithPost(post).DraftByKey(ctx, key)
	if res.Status == models.ResultFailed {
		return mcp.NewToolResultError(fmt.Sprintf("draft %s: %s", key, res.Error)), nil
	}

	type draftOut struct {
		Issue      string `json:"issue"`
		Status     string `json:"status"`
		SkipReason string `json:"skip_reason,omitempty"`
		Selected   int    `json:"selected"`
		References int    `json:"references"`
		PostStatus int    `json:"post_status,omitempty"`
		PostError  string `json:"post_error,omitempty"`
		Comment    string `json:"comment,omitempty"`
	}

	out := draftOut{
		Issue:      res.IssueKey,
		Status:     string(res.Status),
		SkipReason: res.SkipReason,
		Selected:   res.Selected,
		References: res.References,
		PostStatus: res.PostStatus,
		PostError:  res.Error,
	}
	if rendered != nil {
		out.Comment = rendered.PlainText
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// helpdraft_search_docs
func (s *Server) searchDocsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("helpdraft_search_docs",
		mcp.WithDescription("Search the help documentation index. Returns a JSON array of references with title, source, and a text snippet, deduplicated by source."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Natural-language search query")),
		mcp.WithNumber("top_k", mcp.Description("Number of index matches to retrieve before deduplication")),
	)
	return tool, s.handleSearchDocs
}

func (s *Server) handleSearchDocs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}
	topK := request.GetInt("top_k", s.topK)

	retriever := pipeline.NewRetriever(s.embedder, s.index, topK)
	refs, err := retriever.Retrieve(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search docs: %v", err)), nil
	}

	type refOut struct {
		Title   string `json:"title"`
		Source  string `json:"source"`
		Snippet string `json:"snippet"`
	}

	out := make([]refOut, len(refs))
	for i, ref := range refs {
		out[i] = refOut{Title: ref.Title, Source: ref.Source, Snippet: snippet(ref.Text)}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal references: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// snippet truncates reference text for tool output.
func snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetRunes {
		return text
	}
	return string(runes[:snippetRunes]) + "…"
}
