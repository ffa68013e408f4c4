package pipeline

import (
	"context"
	"fmt"

	"github.com/joescharf/helpdraft/internal/embedding"
	"github.com/joescharf/helpdraft/internal/models"
	"github.com/joescharf/helpdraft/internal/vecindex"
)

const defaultTopK = 10

// Retriever turns a natural-language query into ranked, deduplicated
// reference documents from the vector index.
type Retriever struct {
	embedder embedding.Embedder
	index    vecindex.Index
	topK     int
}

// NewRetriever creates a retriever. A non-positive topK falls back to
// the default of 10.
func NewRetriever(embedder embedding.Embedder, index vecindex.Index, topK int) *Retriever {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Retriever{embedder: embedder, index: index, topK: topK}
}

// Retrieve embeds the query, runs the similarity search, and maps the
// matches to references. Every match must carry title, text, and source
// metadata.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]models.Reference, error) {
	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := r.index.Query(ctx, vec, r.topK)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	refs := make([]models.Reference, 0, len(matches))
	for _, m := range matches {
		ref, err := toReference(m)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return DedupeReferences(refs), nil
}

func toReference(m vecindex.Match) (models.Reference, error) {
	switch {
	case m.Metadata.Title == "":
		return models.Reference{}, fmt.Errorf("match %s: missing metadata field %q", m.ID, "title")
	case m.Metadata.Text == "":
		return models.Reference{}, fmt.Errorf("match %s: missing metadata field %q", m.ID, "text")
	case m.Metadata.Source == "":
		return models.Reference{}, fmt.Errorf("match %s: missing metadata field %q", m.ID, "source")
	}
	return models.Reference{
		Title:  m.Metadata.Title,
		Text:   m.Metadata.Text,
		Source: m.Metadata.Source,
	}, nil
}

// DedupeReferences keeps the first occurrence per source, preserving
// input order. Input order is ranking order, so the best-scored entry
// for each source survives.
func DedupeReferences(refs []models.Reference) []models.Reference {
	seen := make(map[string]bool, len(refs))
	out := make([]models.Reference, 0, len(refs))
	for _, ref := range refs {
		if seen[ref.Source] {
			continue
		}
		seen[ref.Source] = true
		out = append(out, ref)
	}
	return out
}
