package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedQuery(t *testing.T) {
	var gotAuth string
	var gotReq embedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"embedding": []float32{0.1, 0.2, 0.3}, "index": 0},
			},
		})
	}))
	defer srv.Close()

	c := NewClient("sk-test", srv.URL, "text-embedding-3-large")
	vec, err := c.EmbedQuery(context.Background(), "how do I export a report")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "text-embedding-3-large", gotReq.Model)
	assert.Equal(t, []string{"how do I export a report"}, gotReq.Input)
}

func TestEmbedDocumentsReordersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Deliberately out of order.
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"embedding": []float32{2}, "index": 1},
				{"embedding": []float32{1}, "index": 0},
			},
		})
	}))
	defer srv.Close()

	c := NewClient("sk-test", srv.URL, "m")
	vecs, err := c.EmbedDocuments(context.Background(), []string{"a", "b"})

	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{1}, vecs[0])
	assert.Equal(t, []float32{2}, vecs[1])
}

func TestEmbedErrors(t *testing.T) {
	t.Run("client error is not retried", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "invalid model"},
			})
		}))
		defer srv.Close()

		c := NewClient("sk-test", srv.URL, "nope")
		_, err := c.EmbedQuery(context.Background(), "q")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid model")
		assert.Equal(t, 1, calls)
	})

	t.Run("missing API key", func(t *testing.T) {
		c := NewClient("", "http://localhost:1", "m")
		_, err := c.EmbedQuery(context.Background(), "q")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "API key")
	})

	t.Run("empty input", func(t *testing.T) {
		c := NewClient("sk-test", "http://localhost:1", "m")
		_, err := c.EmbedDocuments(context.Background(), nil)
		require.Error(t, err)
	})

	t.Run("count mismatch", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{{"embedding": []float32{1}, "index": 0}},
			})
		}))
		defer srv.Close()

		c := NewClient("sk-test", srv.URL, "m")
		_, err := c.EmbedDocuments(context.Background(), []string{"a", "b"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected 2 embeddings")
	})
}

func TestEmbedRetries(t *testing.T) {
	t.Run("rate limit retried until success", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{{"embedding": []float32{1}, "index": 0}},
			})
		}))
		defer srv.Close()

		c := NewClient("sk-test", srv.URL, "m")
		c.retryDelay = time.Millisecond
		vec, err := c.EmbedQuery(context.Background(), "q")

		require.NoError(t, err)
		assert.Equal(t, []float32{1}, vec)
		assert.Equal(t, 2, calls)
	})

	t.Run("server errors exhaust retries", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			http.Error(w, "upstream down", http.StatusBadGateway)
		}))
		defer srv.Close()

		c := NewClient("sk-test", srv.URL, "m")
		c.retryDelay = time.Millisecond
		_, err := c.EmbedQuery(context.Background(), "q")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "retries exhausted")
		assert.Contains(t, err.Error(), "502")
		assert.Equal(t, maxRetries, calls)
	})

	t.Run("cancellation cuts the backoff short", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			cancel()
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := NewClient("sk-test", srv.URL, "m")
		// A delay this long only passes if cancellation aborts it.
		c.retryDelay = time.Minute
		_, err := c.EmbedQuery(ctx, "q")

		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}
