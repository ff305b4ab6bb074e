package intent

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drug-agentic-be/internal/constant"
	"drug-agentic-be/internal/entity"
	"drug-agentic-be/internal/repository/contract"
	"drug-agentic-be/internal/repository/specification"
	"drug-agentic-be/pkg/embedding"
)

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	resp := &embedding.EmbeddingResponse{}
	resp.Embedding.Values = []float32{0.1, 0.2, 0.3}
	return resp, nil
}

type fakeExampleRepo struct {
	neighbours []*contract.ScoredIntentExample
	err        error
	limit      int
}

func (f *fakeExampleRepo) Create(ctx context.Context, example *entity.IntentExample) error {
	return nil
}

func (f *fakeExampleRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.IntentExample, error) {
	return nil, nil
}

func (f *fakeExampleRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(f.neighbours)), nil
}

func (f *fakeExampleRepo) CreateBulkSkipDuplicates(ctx context.Context, examples []*entity.IntentExample) (int64, error) {
	return 0, nil
}

func (f *fakeExampleRepo) SearchSimilar(ctx context.Context, emb []float32, limit int) ([]*contract.ScoredIntentExample, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	if len(f.neighbours) > limit {
		return f.neighbours[:limit], nil
	}
	return f.neighbours, nil
}

func scored(labels ...string) []*contract.ScoredIntentExample {
	out := make([]*contract.ScoredIntentExample, len(labels))
	for i, label := range labels {
		out[i] = &contract.ScoredIntentExample{
			Example:    &entity.IntentExample{Label: label},
			Similarity: 1 - float64(i)*0.1,
		}
	}
	return out
}

func discard() *log.Logger { return log.New(io.Discard, "", 0) }

func TestClassifyMajorityVote(t *testing.T) {
	tests := []struct {
		name           string
		neighbours     []*contract.ScoredIntentExample
		wantLabel      string
		wantConfidence float64
	}{
		{
			name:           "clear majority",
			neighbours:     scored("medical", "medical", "medical", "general", "medical"),
			wantLabel:      constant.IntentMedical,
			wantConfidence: 0.8,
		},
		{
			name:           "unanimous",
			neighbours:     scored("general", "general", "general", "general", "general"),
			wantLabel:      constant.IntentGeneral,
			wantConfidence: 1.0,
		},
		{
			name:           "tie breaks lexicographically",
			neighbours:     scored("medical", "general", "medical", "general"),
			wantLabel:      constant.IntentGeneral,
			wantConfidence: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeExampleRepo{neighbours: tt.neighbours}
			c := NewClassifier(&fakeEmbedder{}, repo, 5, discard())

			label, confidence, err := c.Classify(context.Background(), "thuốc đau đầu")
			require.NoError(t, err)
			assert.Equal(t, tt.wantLabel, label)
			assert.InDelta(t, tt.wantConfidence, confidence, 1e-9)
		})
	}
}

func TestClassifyUsesVoteK(t *testing.T) {
	repo := &fakeExampleRepo{neighbours: scored("medical", "medical", "medical")}
	c := NewClassifier(&fakeEmbedder{}, repo, 7, discard())

	_, _, err := c.Classify(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, 7, repo.limit)
}

func TestClassifyErrors(t *testing.T) {
	t.Run("embedder failure", func(t *testing.T) {
		c := NewClassifier(&fakeEmbedder{err: errors.New("embed api down")}, &fakeExampleRepo{}, 5, discard())
		_, _, err := c.Classify(context.Background(), "q")
		require.Error(t, err)
	})

	t.Run("search failure", func(t *testing.T) {
		c := NewClassifier(&fakeEmbedder{}, &fakeExampleRepo{err: errors.New("db down")}, 5, discard())
		_, _, err := c.Classify(context.Background(), "q")
		require.Error(t, err)
	})

	t.Run("empty example table", func(t *testing.T) {
		c := NewClassifier(&fakeEmbedder{}, &fakeExampleRepo{}, 5, discard())
		_, _, err := c.Classify(context.Background(), "q")
		require.Error(t, err)
	})
}
