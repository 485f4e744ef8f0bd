package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-checkout-saga/internal/saga"
)

// Producer publishes saga envelopes. Publish returns only after the brokers
// acknowledged the write, so a handler never acks an event whose follow-up
// was lost.
type Producer struct {
	w               *kafka.Writer
	deadLetterTopic string
}

func NewProducer(brokers []string, deadLetterTopic string, log *slog.Logger) *Producer {
	if deadLetterTopic == "" {
		deadLetterTopic = saga.TopicDeadLetter
	}
	return &Producer{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
			ErrorLogger:            errorLogger(log, "kafka writer"),
		},
		deadLetterTopic: deadLetterTopic,
	}
}

func (p *Producer) Publish(ctx context.Context, topic string, env saga.Envelope) error {
	m, err := EncodeMessage(topic, env)
	if err != nil {
		return err
	}
	if err := p.w.WriteMessages(ctx, m); err != nil {
		return fmt.Errorf("publish %s to %s: %w", env.Type, topic, err)
	}
	return nil
}

func (p *Producer) DeadLetter(ctx context.Context, raw []byte, reason error) error {
	if err := p.w.WriteMessages(ctx, deadLetterMessage(p.deadLetterTopic, raw, reason)); err != nil {
		return fmt.Errorf("dead-letter to %s: %w", p.deadLetterTopic, err)
	}
	return nil
}

func (p *Producer) Close() error { return p.w.Close() }

func errorLogger(log *slog.Logger, component string) kafka.Logger {
	if log == nil {
		log = slog.Default()
	}
	return kafka.LoggerFunc(func(msg string, args ...interface{}) {
		log.Error(fmt.Sprintf(msg, args...), "component", component)
	})
}
