package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

type IntentExample struct {
	Id             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Query          string          `gorm:"type:text;not null"`
	Checksum       string          `gorm:"type:char(64);not null;uniqueIndex"`
	Label          string          `gorm:"type:varchar(16);not null"`
	EmbeddingValue pgvector.Vector `gorm:"type:vector(768)"`
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
}

func (IntentExample) TableName() string {
	return "intent_examples"
}
