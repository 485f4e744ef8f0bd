package saga

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const EnvelopeVersion = 1

// Envelope is the wire shape shared by every participant. SagaID is the
// correlation id and the partition key.
type Envelope struct {
	EventID    string          `json:"event_id"`
	Type       EventType       `json:"type"`
	Version    int             `json:"version"`
	SagaID     string          `json:"saga_id"`
	Producer   string          `json:"producer"`
	ProducedAt time.Time       `json:"produced_at"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEnvelope wraps payload in a fresh envelope stamped with now.
func NewEnvelope(t EventType, sagaID, producer string, payload any) (Envelope, error) {
	if sagaID == "" {
		return Envelope{}, fmt.Errorf("%w: empty saga id for %s", ErrMalformed, t)
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", t, err)
	}
	return Envelope{
		EventID:    uuid.NewString(),
		Type:       t,
		Version:    EnvelopeVersion,
		SagaID:     sagaID,
		Producer:   producer,
		ProducedAt: time.Now().UTC(),
		Payload:    b,
	}, nil
}

func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Parse decodes raw bytes into an envelope. Anything that cannot be routed
// (no type, no saga id) is reported as ErrMalformed.
func Parse(b []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(b, &e); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if e.Type == "" || e.SagaID == "" {
		return Envelope{}, fmt.Errorf("%w: missing type or saga_id", ErrMalformed)
	}
	return e, nil
}

// Decode unwraps the payload of env into T.
func Decode[T any](env Envelope) (T, error) {
	var t T
	if err := json.Unmarshal(env.Payload, &t); err != nil {
		return t, fmt.Errorf("%w: decode %s payload: %v", ErrMalformed, env.Type, err)
	}
	return t, nil
}
