// README: Dispatch event publishing to Kafka for the offline training pipeline.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// DispatchEvent describes one finished dispatch attempt.
type DispatchEvent struct {
	EventID     string    `json:"event_id"`
	OrderID     string    `json:"order_id"`
	Status      string    `json:"status"`
	Reason      string    `json:"reason,omitempty"`
	DriverID    string    `json:"driver_id,omitempty"`
	Probability float64   `json:"prob_accept,omitempty"`
	Rank        int       `json:"rank"`
	Candidates  int       `json:"candidates"`
	Demand60m   float64   `json:"h3_demand_60m"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev DispatchEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher writes to topic on the given brokers. Messages are keyed
// by driver (or order when unassigned) so one driver's history stays ordered.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev DispatchEvent) error {
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode dispatch event: %w", err)
	}
	key := ev.DriverID
	if key == "" {
		key = ev.OrderID
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(ev.EventID)},
		},
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops events; used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, DispatchEvent) error { return nil }
func (NopPublisher) Close() error { return nil }
