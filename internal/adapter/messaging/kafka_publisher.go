package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/rl1809/store-inventory/internal/core/domain"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes inventory events keyed by store owner, so all events
// of one store land on the same partition in write order.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		MaxAttempts:            3,
		WriteTimeout:           10 * time.Second,
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event domain.InventoryEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	owner := domain.Owner{UserID: event.UserID, Email: event.Email}
	msg := kafka.Message{
		Key:   []byte(owner.Key()),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
			{Key: "event-id", Value: []byte(event.EventID)},
			{Key: "store-version", Value: []byte(strconv.FormatInt(event.Version, 10))},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write event %s: %w", event.EventID, err)
	}

	log.Debug().
		Str("event_type", string(event.Type)).
		Str("event_id", event.EventID).
		Str("sku", event.SKU).
		Msg("Published inventory event")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
