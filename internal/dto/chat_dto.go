package dto

import (
	"time"

	"drug-agentic-be/pkg/store"
)

type ResolveChatRequest struct {
	UserId         string `json:"user_id" validate:"required"`
	ConversationId string `json:"conversation_id"`
	Query          string `json:"query" validate:"required"`
	Language       string `json:"language"`
}

type ResolveChatResponse struct {
	ConversationId string      `json:"conversation_id"`
	Answer         string      `json:"answer"`
	Intent         string      `json:"intent"`
	Degraded       bool        `json:"degraded"`
	Iterations     int         `json:"iterations"`
	Sources        []SourceDTO `json:"sources,omitempty"`
	Model          string      `json:"model,omitempty"`
	LatencyMs      int64       `json:"latency_ms"`
}

type SourceDTO struct {
	Source   string  `json:"source"`
	SourceId string  `json:"source_id"`
	Score    float64 `json:"score"`
}

type GetHistoryResponse struct {
	ConversationId string    `json:"conversation_id"`
	Turns          []TurnDTO `json:"turns"`
}

type TurnDTO struct {
	TurnIndex int         `json:"turn_index"`
	Query     string      `json:"query"`
	Answer    string      `json:"answer"`
	Intent    string      `json:"intent"`
	Status    string      `json:"status"`
	Sources   []SourceDTO `json:"sources,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// StreamChatRequest is the first frame a websocket client sends.
type StreamChatRequest struct {
	UserId         string `json:"user_id" validate:"required"`
	ConversationId string `json:"conversation_id"`
	Query          string `json:"query" validate:"required"`
	Language       string `json:"language"`
}

// StreamChatFrame is one websocket frame of a streamed answer.
type StreamChatFrame struct {
	Type           string `json:"type"` // "fragment" | "done" | "error"
	Content        string `json:"content,omitempty"`
	ConversationId string `json:"conversation_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

// PublishTurnMessage is the queue payload dispatched after each resolved
// turn, consumed by the turn writer.
type PublishTurnMessage struct {
	UserId         string                   `json:"user_id"`
	ConversationId string                   `json:"conversation_id"`
	Query          string                   `json:"query"`
	Intent         string                   `json:"intent"`
	Answer         string                   `json:"answer"`
	Context        []PublishTurnContextItem `json:"context,omitempty"`
	Status         string                   `json:"status"`
	Iterations     int                      `json:"iterations"`
	LatencyMs      int64                    `json:"latency_ms"`
}

type PublishTurnContextItem struct {
	Source   string  `json:"source"`
	SourceId string  `json:"source_id"`
	Score    float64 `json:"score"`
}

// SourcesFromContext flattens a ranked context into response source DTOs.
func SourcesFromContext(rc *store.RankedContext) []SourceDTO {
	if rc == nil {
		return nil
	}
	sources := make([]SourceDTO, len(rc.Items))
	for i, item := range rc.Items {
		sources[i] = SourceDTO{
			Source:   string(item.Source),
			SourceId: item.SourceID,
			Score:    item.Unified,
		}
	}
	return sources
}
