package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/domain"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/ports"
)

var _ ports.EventPublisher = (*EventPublisher)(nil)

// Producer is the keyed topic writer events go through.
type Producer interface {
	Publish(ctx context.Context, key string, value any, headers map[string]string) error
}

// envelope is the record value on the topic.
type envelope struct {
	Name       string       `json:"name"`
	OccurredAt time.Time    `json:"occurredAt"`
	Payload    domain.Event `json:"payload"`
}

// EventPublisher writes domain events keyed by pet id, so every event of one pet lands on one partition.
type EventPublisher struct {
	producer Producer
}

func NewEventPublisher(producer Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func (p *EventPublisher) Publish(ctx context.Context, event domain.Event) error {
	if event == nil {
		return nil
	}
	record := envelope{Name: event.EventName(), OccurredAt: event.OccurredAt().UTC(), Payload: event}
	headers := map[string]string{"event-name": event.EventName()}
	if err := p.producer.Publish(ctx, event.PartitionKey(), record, headers); err != nil {
		return fmt.Errorf("publish %s: %w", event.EventName(), err)
	}
	return nil
}
