package entity

import (
	"time"

	"github.com/google/uuid"
)

// KnowledgeChunk is one indexed unit of the curated drug knowledge base:
// a composed text chunk, its PGx metadata and its embedding.
type KnowledgeChunk struct {
	Id             uuid.UUID
	Content        string
	Checksum       string // sha256 of Content, enforces indexing idempotence
	Category       string
	Recommendation string
	Description    string
	EmbeddingValue []float32
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}
