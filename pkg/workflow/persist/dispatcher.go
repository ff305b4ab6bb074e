package persist

import (
	"encoding/json"
	"fmt"

	"drug-agentic-be/internal/dto"
	"drug-agentic-be/pkg/workflow"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Dispatcher implements workflow.TurnRecorder by handing turn records to
// the in-process queue. The actual database write happens in the turn
// writer consumer, so answer delivery never waits on storage.
type Dispatcher struct {
	publisher message.Publisher
	topic     string
}

func NewDispatcher(publisher message.Publisher, topic string) *Dispatcher {
	return &Dispatcher{publisher: publisher, topic: topic}
}

func (d *Dispatcher) Record(record workflow.TurnRecord) error {
	payload := dto.PublishTurnMessage{
		UserId:         record.UserId,
		ConversationId: record.ConversationId,
		Query:          record.Query,
		Intent:         record.Intent,
		Answer:         record.Answer,
		Status:         record.Status,
		Iterations:     record.Iterations,
		LatencyMs:      record.LatencyMs,
	}
	if record.Context != nil {
		payload.Context = make([]dto.PublishTurnContextItem, len(record.Context.Items))
		for i, item := range record.Context.Items {
			payload.Context[i] = dto.PublishTurnContextItem{
				Source:   string(item.Source),
				SourceId: item.SourceID,
				Score:    item.Unified,
			}
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal turn record: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	if err := d.publisher.Publish(d.topic, msg); err != nil {
		return fmt.Errorf("publish turn record: %w", err)
	}
	return nil
}
