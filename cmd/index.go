package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/helpdraft/internal/docs"
	"github.com/joescharf/helpdraft/internal/vecindex"
)

const embedBatchSize = 64

var indexBaseURL string

var indexCmd = &cobra.Command{
	Use:   "index <dir>",
	Short: "Index help documentation into the local vector store",
	Long: `Walk a directory of help content (.md, .htm, .html), embed each page,
and upsert it into the local vector index so the drafting pipeline can
retrieve it. Requires index.backend=local.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return indexRun(args[0])
	},
}

func init() {
	indexCmd.Flags().StringVar(&indexBaseURL, "base-url", "", "Published site URL to prefix document sources with")
	rootCmd.AddCommand(indexCmd)
}

func indexRun(dir string) error {
	ctx := context.Background()

	local, err := getLocalIndex(ctx)
	if err != nil {
		return err
	}
	embedder, err := getEmbedder()
	if err != nil {
		return err
	}

	paths, err := docs.Find(dir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		ui.Info("No documentation files found in %s.", dir)
		return nil
	}

	var loaded []docs.Document
	for _, rel := range paths {
		doc, err := docs.Load(dir, rel)
		if err != nil {
			ui.Warning("Skipping %s: %v", rel, err)
			continue
		}
		if doc.Text == "" {
			ui.VerboseLog("Skipping %s: no text content", rel)
			continue
		}
		loaded = append(loaded, doc)
	}
	if len(loaded) == 0 {
		ui.Info("Nothing to index in %s.", dir)
		return nil
	}

	if dryRun {
		ui.DryRunMsg("Would index %d documents from %s", len(loaded), dir)
		return nil
	}

	for start := 0; start < len(loaded); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(loaded) {
			end = len(loaded)
		}
		batch := loaded[start:end]

		texts := make([]string, len(batch))
		for i, doc := range batch {
			texts[i] = doc.Text
		}
		vectors, err := embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch: %w", err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("embed batch: got %d vectors for %d documents", len(vectors), len(batch))
		}

		for i, doc := range batch {
			meta := vecindex.Metadata{Title: doc.Title, Text: doc.Text, Source: docSource(doc.Path)}
			if err := local.Upsert(ctx, doc.Path, vectors[i], meta); err != nil {
				return fmt.Errorf("upsert %s: %w", doc.Path, err)
			}
		}
		ui.VerboseLog("Indexed %d/%d", end, len(loaded))
	}

	ui.Success("Indexed %d documents (%d in store)", len(loaded), local.Count())
	return nil
}

// docSource builds the source identifier stored with a document. With
// --base-url the relative path becomes a link into the published site,
// which the references table can render directly.
func docSource(rel string) string {
	if indexBaseURL == "" {
		return rel
	}
	return strings.TrimSuffix(indexBaseURL, "/") + "/" + rel
}
