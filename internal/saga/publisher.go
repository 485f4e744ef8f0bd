package saga

import "context"

// Publisher sends an envelope to a topic, keyed by its saga id.
type Publisher interface {
	Publish(ctx context.Context, topic string, env Envelope) error
}

// DeadLetterer parks a message that can never be processed.
type DeadLetterer interface {
	DeadLetter(ctx context.Context, raw []byte, reason error) error
}

// Emit builds an envelope and publishes it in one step.
func Emit(ctx context.Context, p Publisher, topic string, t EventType, sagaID, producer string, payload any) error {
	env, err := NewEnvelope(t, sagaID, producer, payload)
	if err != nil {
		return err
	}
	return p.Publish(ctx, topic, env)
}
