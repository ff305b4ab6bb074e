package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ConversationTurn struct {
	Id             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId         string         `gorm:"type:varchar(64);not null;index:idx_conv_turn,priority:1"`
	ConversationId string         `gorm:"type:varchar(64);not null;index:idx_conv_turn,priority:2"`
	TurnIndex      int            `gorm:"not null;index:idx_conv_turn,priority:3"`
	Query          string         `gorm:"type:text;not null"`
	Intent         string         `gorm:"type:varchar(16)"`
	Answer         string         `gorm:"type:text"`
	ContextSummary datatypes.JSON `gorm:"type:jsonb"`
	Status         string         `gorm:"type:varchar(16);default:'ok'"`
	LatencyMs      int64          `gorm:"default:0"`
	CreatedAt      time.Time      `gorm:"autoCreateTime"`
}

func (ConversationTurn) TableName() string {
	return "conversation_turns"
}
