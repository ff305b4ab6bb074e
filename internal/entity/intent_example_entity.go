package entity

import (
	"time"

	"github.com/google/uuid"
)

// IntentExample is a labelled reference query the intent classifier votes
// over by embedding similarity.
type IntentExample struct {
	Id             uuid.UUID
	Query          string
	Checksum       string
	Label          string // constant.IntentMedical or constant.IntentGeneral
	EmbeddingValue []float32
	CreatedAt      time.Time
}
