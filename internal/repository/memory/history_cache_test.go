package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"drug-agentic-be/pkg/store"
)

func TestHistoryCacheRoundTrip(t *testing.T) {
	c := NewHistoryCache()

	turns := []store.Turn{
		{Index: 0, Query: "q1", Answer: "a1"},
		{Index: 1, Query: "q2", Answer: "a2"},
	}
	c.Save("u1", "c1", turns)

	got, found := c.Get("u1", "c1")
	assert.True(t, found)
	assert.Equal(t, turns, got)

	// Keys are scoped per user and conversation.
	_, found = c.Get("u1", "other")
	assert.False(t, found)
	_, found = c.Get("other", "c1")
	assert.False(t, found)
}

func TestHistoryCacheInvalidate(t *testing.T) {
	c := NewHistoryCache()
	c.Save("u1", "c1", []store.Turn{{Index: 0, Query: "q", Answer: "a"}})

	c.Invalidate("u1", "c1")

	_, found := c.Get("u1", "c1")
	assert.False(t, found)
}
