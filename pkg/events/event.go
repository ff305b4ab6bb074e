package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "CHAT_TURN_SAVED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the common implementation every concrete event embeds.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewChatTurnSaved marks one conversation turn as durably written.
func NewChatTurnSaved(userId, conversationId string, turnIndex int, status string) Event {
	return BaseEvent{
		Type: "CHAT_TURN_SAVED",
		Data: map[string]interface{}{
			"user_id":         userId,
			"conversation_id": conversationId,
			"turn_index":      turnIndex,
			"status":          status,
		},
		OccurredAt: time.Now(),
	}
}

// NewIndexingCompleted marks one bulk indexing run as finished.
func NewIndexingCompleted(indexType string, indexedCount, skippedCount int64) Event {
	return BaseEvent{
		Type: "INDEXING_COMPLETED",
		Data: map[string]interface{}{
			"index_type":    indexType,
			"indexed_count": indexedCount,
			"skipped_count": skippedCount,
		},
		OccurredAt: time.Now(),
	}
}
