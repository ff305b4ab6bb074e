package retrieval

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drug-agentic-be/pkg/store"
	"drug-agentic-be/pkg/workflow"
)

type stubSource struct {
	name  string
	items []store.EvidenceItem
	err   error
	delay time.Duration

	mu      sync.Mutex
	queries []string
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Search(ctx context.Context, subQuery string) ([]store.EvidenceItem, error) {
	s.mu.Lock()
	s.queries = append(s.queries, subQuery)
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	out := make([]store.EvidenceItem, len(s.items))
	copy(out, s.items)
	return out, nil
}

type failureCounts struct {
	mu     sync.Mutex
	counts map[string]int
}

func (f *failureCounts) IncSourceFailure(source string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts == nil {
		f.counts = map[string]int{}
	}
	f.counts[source]++
}

func discard() *log.Logger { return log.New(io.Discard, "", 0) }

func subQueries(texts ...string) []store.SubQuery {
	out := make([]store.SubQuery, len(texts))
	for i, t := range texts {
		out[i] = store.SubQuery{Text: t}
	}
	return out
}

func TestRetrieveCombinesAllSources(t *testing.T) {
	kb := &stubSource{name: "knowledge_base", items: []store.EvidenceItem{
		{Source: store.SourceKnowledgeBase, SourceID: "chunk-1", Content: "kb"},
	}}
	web := &stubSource{name: "web", items: []store.EvidenceItem{
		{Source: store.SourceWeb, SourceID: "https://vinmec.com/a", Content: "web"},
	}}
	c := NewCoordinator([]Source{kb, web}, time.Second, nil, discard())

	items, err := c.Retrieve(context.Background(), subQueries("q1", "q2"))
	require.NoError(t, err)

	// Two sub-queries against two sources.
	assert.Len(t, items, 4)
	assert.Len(t, kb.queries, 2)
	assert.Len(t, web.queries, 2)
}

func TestRetrieveAssemblyOrderIsDeterministic(t *testing.T) {
	// The slower source still lands in its slot, ahead of faster later slots.
	slow := &stubSource{name: "knowledge_base", delay: 30 * time.Millisecond, items: []store.EvidenceItem{
		{SourceID: "slow"},
	}}
	fast := &stubSource{name: "web", items: []store.EvidenceItem{
		{SourceID: "fast"},
	}}
	c := NewCoordinator([]Source{slow, fast}, time.Second, nil, discard())

	items, err := c.Retrieve(context.Background(), subQueries("q"))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "slow", items[0].SourceID)
	assert.Equal(t, "fast", items[1].SourceID)
}

func TestRetrievePartialFailure(t *testing.T) {
	kb := &stubSource{name: "knowledge_base", items: []store.EvidenceItem{{SourceID: "chunk-1"}}}
	web := &stubSource{name: "web", err: errors.New("search engine 502")}
	failures := &failureCounts{}
	c := NewCoordinator([]Source{kb, web}, time.Second, failures, discard())

	items, err := c.Retrieve(context.Background(), subQueries("q"))
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, failures.counts["web"])
}

func TestRetrieveAllSourcesFailed(t *testing.T) {
	kb := &stubSource{name: "knowledge_base", err: errors.New("db down")}
	web := &stubSource{name: "web", err: errors.New("network down")}
	c := NewCoordinator([]Source{kb, web}, time.Second, nil, discard())

	_, err := c.Retrieve(context.Background(), subQueries("q1", "q2"))
	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrAllSourcesFailed)
}

func TestRetrieveTimeoutCountsAsFailure(t *testing.T) {
	hung := &stubSource{name: "web", delay: time.Second, items: []store.EvidenceItem{{SourceID: "late"}}}
	kb := &stubSource{name: "knowledge_base", items: []store.EvidenceItem{{SourceID: "chunk-1"}}}
	c := NewCoordinator([]Source{kb, hung}, 20*time.Millisecond, nil, discard())

	items, err := c.Retrieve(context.Background(), subQueries("q"))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "chunk-1", items[0].SourceID)
}

func TestRetrieveNoSubQueries(t *testing.T) {
	c := NewCoordinator([]Source{&stubSource{name: "knowledge_base"}}, time.Second, nil, discard())

	items, err := c.Retrieve(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}
