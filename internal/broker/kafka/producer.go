package kafka

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"github.com/vprep/preparator-backend-go/internal/broker/messages"
)

type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Producer struct {
	w     writer
	topic string
}

func NewProducer(brokers []string, topic string) *Producer {
	return newProducerWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}, topic)
}

func newProducerWithWriter(w writer, topic string) *Producer {
	return &Producer{w: w, topic: topic}
}

func (p *Producer) Publish(ctx context.Context, key, value []byte) error {
	if err := p.w.WriteMessages(ctx, kafka.Message{
		Topic: p.topic,
		Key:   key,
		Value: value,
	}); err != nil {
		return errors.Wrap(err, "kafka publish")
	}
	return nil
}

// PublishAlertDispatched keys by idempotency key so replays of one alert land
// on the same partition.
func (p *Producer) PublishAlertDispatched(ctx context.Context, msg messages.AlertDispatched) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "marshal alert dispatched")
	}
	return p.Publish(ctx, []byte(msg.IdempotencyKey), value)
}

func (p *Producer) Close() error {
	if c, ok := p.w.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
