// Package vecindex provides the vector index the pipeline retrieves
// reference documents from: a Pinecone data-plane client and a local
// SQLite implementation for air-gapped use and tests.
package vecindex

import "context"

// Metadata is the document payload stored alongside each vector. All
// three fields are required; the retriever rejects matches with any
// field missing.
type Metadata struct {
	Title  string `json:"title"`
	Text   string `json:"text"`
	Source string `json:"source"`
}

// Match is one scored result from an index query.
type Match struct {
	ID       string
	Score    float64
	Metadata Metadata
}

// Index answers nearest-neighbor queries, best match first.
type Index interface {
	Query(ctx context.Context, vector []float32, topK int) ([]Match, error)
}
