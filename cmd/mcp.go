package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/helpdraft/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets an MCP client draft help comments and search the
documentation index natively. Configure with:

  {
    "mcpServers": {
      "helpdraft": { "command": "helpdraft", "args": ["mcp"] }
    }
  }

Available tools: helpdraft_draft_issue, helpdraft_search_docs`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcpRun()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func mcpRun() error {
	ctx := context.Background()

	// Posting stays off unless a tool call asks for it.
	pipe, err := buildPipeline(ctx, false)
	if err != nil {
		return err
	}
	embedder, err := getEmbedder()
	if err != nil {
		return err
	}
	index, err := getIndex(ctx)
	if err != nil {
		return err
	}

	srv := mcp.NewServer(pipe, embedder, index, viper.GetInt("pipeline.top_k"))
	logger.Info("starting MCP server on stdio")
	return srv.ServeStdio(ctx)
}
