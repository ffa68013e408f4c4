package vecindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const controlPlaneURL = "https://api.pinecone.io"

// Pinecone queries a Pinecone index over its data-plane REST API.
type Pinecone struct {
	apiKey    string
	host      string
	namespace string
	http      *http.Client
}

type pineconeQuery struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	Namespace       string    `json:"namespace,omitempty"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type pineconeResponse struct {
	Matches []struct {
		ID       string   `json:"id"`
		Score    float64  `json:"score"`
		Metadata Metadata `json:"metadata"`
	} `json:"matches"`
}

// NewPinecone creates a client for the index living at host. The host
// comes from config or from ResolveHost; a bare hostname is accepted.
func NewPinecone(apiKey, host, namespace string) *Pinecone {
	if host != "" && !strings.HasPrefix(host, "http") {
		host = "https://" + host
	}
	return &Pinecone{
		apiKey:    apiKey,
		host:      strings.TrimSuffix(host, "/"),
		namespace: namespace,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

// ResolveHost looks up an index's data-plane host via the control plane.
// An empty controlPlane selects the public Pinecone API.
func ResolveHost(ctx context.Context, apiKey, indexName, controlPlane string) (string, error) {
	if controlPlane == "" {
		controlPlane = controlPlaneURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(controlPlane, "/")+"/indexes/"+indexName, nil)
	if err != nil {
		return "", fmt.Errorf("create describe request: %w", err)
	}
	req.Header.Set("Api-Key", apiKey)

	resp, err := (&http.Client{Timeout: 15 * time.Second}).Do(req)
	if err != nil {
		return "", fmt.Errorf("describe index %s: %w", indexName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("describe index %s: status %d: %s", indexName, resp.StatusCode, body)
	}

	var desc struct {
		Host string `json:"host"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&desc); err != nil {
		return "", fmt.Errorf("decode index description: %w", err)
	}
	if desc.Host == "" {
		return "", fmt.Errorf("index %s has no host", indexName)
	}
	return desc.Host, nil
}

// Query implements Index.
func (p *Pinecone) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	if p.host == "" {
		return nil, fmt.Errorf("pinecone host not configured")
	}

	body, err := json.Marshal(pineconeQuery{
		Vector:          vector,
		TopK:            topK,
		Namespace:       p.namespace,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+"/query", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create query request: %w", err)
	}
	req.Header.Set("Api-Key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pinecone query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("pinecone query: status %d: %s", resp.StatusCode, respBody)
	}

	var parsed pineconeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode query response: %w", err)
	}

	matches := make([]Match, 0, len(parsed.Matches))
	for _, m := range parsed.Matches {
		matches = append(matches, Match{ID: m.ID, Score: m.Score, Metadata: m.Metadata})
	}
	return matches, nil
}
