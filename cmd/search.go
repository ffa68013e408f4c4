package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/helpdraft/internal/output"
)

var searchTopK int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the documentation index",
	Long: `Embed a query and show the nearest documents in the vector index,
with their similarity scores. Useful for checking what the drafting
pipeline would retrieve for a topic.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return searchRun(args[0])
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchTopK, "top-k", 0, "Number of matches to return (default pipeline.top_k)")
	rootCmd.AddCommand(searchCmd)
}

func searchRun(query string) error {
	ctx := context.Background()

	embedder, err := getEmbedder()
	if err != nil {
		return err
	}
	index, err := getIndex(ctx)
	if err != nil {
		return err
	}

	topK := searchTopK
	if topK <= 0 {
		topK = viper.GetInt("pipeline.top_k")
	}

	vector, err := embedder.EmbedQuery(ctx, query)
	if err != nil {
		return err
	}
	matches, err := index.Query(ctx, vector, topK)
	if err != nil {
		return err
	}

	if len(matches) == 0 {
		ui.Info("No matches.")
		return nil
	}

	table := ui.Table([]string{"Score", "Title", "Source"})
	for _, m := range matches {
		_ = table.Append([]string{
			output.ScoreColor(m.Score),
			m.Metadata.Title,
			m.Metadata.Source,
		})
	}
	_ = table.Render()
	return nil
}
