package kafka

import (
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-checkout-saga/internal/saga"
)

const (
	HeaderEventType        = "x-event-type"
	HeaderEventVersion     = "x-event-version"
	HeaderSagaID           = "x-saga-id"
	HeaderDeadLetterReason = "x-dead-letter-reason"
)

// EncodeMessage keys the message by saga id so one checkout stays on one
// partition.
func EncodeMessage(topic string, env saga.Envelope) (kafka.Message, error) {
	b, err := env.Marshal()
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Topic: topic,
		Key:   saga.PartitionKey(env.SagaID),
		Value: b,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(env.Type)},
			{Key: HeaderEventVersion, Value: []byte(strconv.Itoa(env.Version))},
			{Key: HeaderSagaID, Value: []byte(env.SagaID)},
		},
	}, nil
}

// deadLetterMessage keeps the original bytes untouched. Routing headers are
// added when the bytes still parse.
func deadLetterMessage(topic string, raw []byte, reason error) kafka.Message {
	m := kafka.Message{
		Topic:   topic,
		Value:   raw,
		Time:    time.Now(),
		Headers: []kafka.Header{{Key: HeaderDeadLetterReason, Value: []byte(reason.Error())}},
	}
	if env, err := saga.Parse(raw); err == nil {
		m.Key = saga.PartitionKey(env.SagaID)
		m.Headers = append(m.Headers,
			kafka.Header{Key: HeaderEventType, Value: []byte(env.Type)},
			kafka.Header{Key: HeaderSagaID, Value: []byte(env.SagaID)},
		)
	}
	return m
}

func Header(m kafka.Message, key string) (string, bool) {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value), true
		}
	}
	return "", false
}
