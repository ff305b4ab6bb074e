package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeVector(t *testing.T) {
	got := normalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, got[0], 1e-6)
	assert.InDelta(t, 0.8, got[1], 1e-6)

	var magnitude float64
	for _, v := range got {
		magnitude += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(magnitude), 1e-6)
}

func TestNormalizeVectorZero(t *testing.T) {
	got := normalizeVector([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, got)
}

func TestOllamaGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req["model"])
		assert.Equal(t, "thuốc paracetamol", req["prompt"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"embedding": []float64{3, 4},
		})
	}))
	defer server.Close()

	p := NewOllamaProvider(server.URL, "nomic-embed-text")

	resp, err := p.Generate(context.Background(), "thuốc paracetamol", "RETRIEVAL_QUERY")
	require.NoError(t, err)

	// Vectors come back unit length for cosine similarity in pgvector.
	require.Len(t, resp.Embedding.Values, 2)
	assert.InDelta(t, 0.6, resp.Embedding.Values[0], 1e-6)
	assert.InDelta(t, 0.8, resp.Embedding.Values[1], 1e-6)
}
