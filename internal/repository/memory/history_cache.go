package memory

import (
	"fmt"
	"time"

	"drug-agentic-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// HistoryCache keeps recently loaded conversation histories in memory so the
// answer stage does not hit the database on every turn of an active chat.
type HistoryCache struct {
	cache *cache.Cache
}

func NewHistoryCache() *HistoryCache {
	// Entries expire after 30 minutes, expired items are purged every 10.
	c := cache.New(30*time.Minute, 10*time.Minute)
	return &HistoryCache{
		cache: c,
	}
}

func historyKey(userID, conversationID string) string {
	return fmt.Sprintf("%s/%s", userID, conversationID)
}

func (h *HistoryCache) Save(userID, conversationID string, turns []store.Turn) {
	h.cache.Set(historyKey(userID, conversationID), turns, cache.DefaultExpiration)
}

func (h *HistoryCache) Get(userID, conversationID string) ([]store.Turn, bool) {
	if x, found := h.cache.Get(historyKey(userID, conversationID)); found {
		return x.([]store.Turn), true
	}
	return nil, false
}

// Invalidate drops the cached history after a new turn is persisted.
func (h *HistoryCache) Invalidate(userID, conversationID string) {
	h.cache.Delete(historyKey(userID, conversationID))
}
