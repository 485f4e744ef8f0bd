package saga

import (
	"context"
	"fmt"
	"sync"
)

// Bus is an in-process stand-in for the broker. Deliveries are FIFO across
// all topics, which keeps per-saga publication order for every subscriber.
type Bus struct {
	mu        sync.Mutex
	subs      map[string][]subscriber
	queue     []delivery
	published []Published
	parked    []Parked
}

type subscriber struct {
	name   string
	handle func(ctx context.Context, raw []byte) error
}

type delivery struct {
	topic string
	raw   []byte
}

type Published struct {
	Topic    string
	Envelope Envelope
}

type Parked struct {
	Raw    []byte
	Reason string
}

const maxBusSteps = 10000

func NewBus() *Bus {
	return &Bus{subs: map[string][]subscriber{}}
}

// Subscribe attaches a consumer group named name to topic.
func (b *Bus) Subscribe(topic, name string, h func(ctx context.Context, raw []byte) error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[topic] = append(b.subs[topic], subscriber{name: name, handle: h})
}

func (b *Bus) Publish(_ context.Context, topic string, env Envelope) error {
	raw, err := env.Marshal()
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue = append(b.queue, delivery{topic: topic, raw: raw})
	b.published = append(b.published, Published{Topic: topic, Envelope: env})
	return nil
}

// Redeliver enqueues env again without recording a new publication.
func (b *Bus) Redeliver(topic string, env Envelope) error {
	raw, err := env.Marshal()
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue = append(b.queue, delivery{topic: topic, raw: raw})
	return nil
}

func (b *Bus) DeadLetter(_ context.Context, raw []byte, reason error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.parked = append(b.parked, Parked{Raw: append([]byte(nil), raw...), Reason: reason.Error()})
	return nil
}

// Drain delivers queued messages until the queue is empty. A handler error
// stops the drain; the failed message stays at the head of the queue.
func (b *Bus) Drain(ctx context.Context) error {
	for steps := 0; ; steps++ {
		if steps > maxBusSteps {
			return fmt.Errorf("bus: gave up after %d deliveries", maxBusSteps)
		}
		b.mu.Lock()
		if len(b.queue) == 0 {
			b.mu.Unlock()
			return nil
		}
		d := b.queue[0]
		subs := append([]subscriber(nil), b.subs[d.topic]...)
		b.mu.Unlock()

		for _, s := range subs {
			if err := s.handle(ctx, d.raw); err != nil {
				return fmt.Errorf("bus: %s on %s: %w", s.name, d.topic, err)
			}
		}

		b.mu.Lock()
		b.queue = b.queue[1:]
		b.mu.Unlock()
	}
}

func (b *Bus) Published() []Published {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Published(nil), b.published...)
}

// Events returns published envelopes of type t for sagaID, in order.
func (b *Bus) Events(sagaID string, t EventType) []Envelope {
	var out []Envelope
	for _, p := range b.Published() {
		if p.Envelope.SagaID == sagaID && p.Envelope.Type == t {
			out = append(out, p.Envelope)
		}
	}
	return out
}

func (b *Bus) Parked() []Parked {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Parked(nil), b.parked...)
}
