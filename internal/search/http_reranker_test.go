package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdocs/askdocs/internal/config"
)

func fakeRerankService(t *testing.T, healthy bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			if !healthy {
				w.WriteHeader(http.StatusServiceUnavailable)
			}
		case "/rerank":
			var req rerankRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

			// Score documents by reverse input position.
			results := make([]map[string]any, len(req.Documents))
			for i := range req.Documents {
				results[i] = map[string]any{
					"index": i,
					"score": float64(len(req.Documents)-i) / 10.0,
				}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"results": results})
		default:
			http.NotFound(w, r)
		}
	}))
}

func rerankerFor(url string) *HTTPReranker {
	return NewHTTPReranker(config.RerankerConfig{
		Endpoint: url,
		Model:    "reranker-small",
		Timeout:  5 * time.Second,
	})
}

func TestHTTPReranker_ScoresDocuments(t *testing.T) {
	srv := fakeRerankService(t, true)
	defer srv.Close()

	r := rerankerFor(srv.URL)
	defer func() { _ = r.Close() }()

	results, err := r.Rerank(context.Background(), "pool hours", []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, 0, results[0].Index)
	assert.InDelta(t, 0.3, results[0].Score, 1e-9)
}

func TestHTTPReranker_EmptyDocuments(t *testing.T) {
	srv := fakeRerankService(t, true)
	defer srv.Close()

	r := rerankerFor(srv.URL)
	defer func() { _ = r.Close() }()

	results, err := r.Rerank(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHTTPReranker_Available(t *testing.T) {
	healthy := fakeRerankService(t, true)
	defer healthy.Close()
	unhealthy := fakeRerankService(t, false)
	defer unhealthy.Close()

	up := rerankerFor(healthy.URL)
	defer func() { _ = up.Close() }()
	down := rerankerFor(unhealthy.URL)
	defer func() { _ = down.Close() }()

	assert.True(t, up.Available(context.Background()))
	assert.False(t, down.Available(context.Background()))

	require.NoError(t, up.Close())
	assert.False(t, up.Available(context.Background()), "closed reranker reports unavailable")
}

func TestNoOpReranker_PreservesOrder(t *testing.T) {
	r := &NoOpReranker{}
	results, err := r.Rerank(context.Background(), "q", []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i := 1; i < len(results); i++ {
		assert.Equal(t, i, results[i].Index)
		assert.Greater(t, results[i-1].Score, results[i].Score)
	}
	assert.True(t, r.Available(context.Background()))
	assert.NoError(t, r.Close())
}
