package rerank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRerank(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "jina-reranker-v2-base-multilingual", req["model"])
		assert.Equal(t, "paracetamol liều dùng", req["query"])
		assert.Len(t, req["documents"], 2)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{
				{"index": 1, "relevance_score": 0.92},
				{"index": 0, "relevance_score": 0.31},
			},
		})
	}))
	defer server.Close()

	r := NewJinaReranker("test-key", server.URL, "")

	scored, err := r.Rerank(context.Background(), "paracetamol liều dùng", []string{"doc một", "doc hai"}, 2)
	require.NoError(t, err)

	require.Len(t, scored, 2)
	assert.Equal(t, ScoredDocument{Index: 1, Score: 0.92}, scored[0])
	assert.Equal(t, ScoredDocument{Index: 0, Score: 0.31}, scored[1])
}

func TestRerankEmptyDocuments(t *testing.T) {
	r := NewJinaReranker("k", "http://unused.invalid", "")

	scored, err := r.Rerank(context.Background(), "q", nil, 3)
	require.NoError(t, err)
	assert.Nil(t, scored)
}

func TestRerankAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": "invalid api key"}`))
	}))
	defer server.Close()

	r := NewJinaReranker("bad-key", server.URL, "")
	_, err := r.Rerank(context.Background(), "q", []string{"doc"}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestRerankErrorPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"message": "model overloaded"},
		})
	}))
	defer server.Close()

	r := NewJinaReranker("k", server.URL, "")
	_, err := r.Rerank(context.Background(), "q", []string{"doc"}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}
