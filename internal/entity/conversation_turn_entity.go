package entity

import (
	"time"

	"github.com/google/uuid"
)

// ConversationTurn is one completed exchange in a conversation. Append-only:
// a turn is written exactly once and never updated.
type ConversationTurn struct {
	Id             uuid.UUID
	UserId         string
	ConversationId string
	TurnIndex      int
	Query          string
	Intent         string
	Answer         string
	ContextSummary []ContextItemSummary
	Status         string // "ok", "degraded", "cancelled"
	LatencyMs      int64
	CreatedAt      time.Time
}

// ContextItemSummary records what evidence an answer was grounded in,
// enough to audit the turn without storing full snippets.
type ContextItemSummary struct {
	Source   string  `json:"source"`
	SourceID string  `json:"source_id"`
	Score    float64 `json:"score"`
}
