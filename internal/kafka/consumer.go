package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-checkout-saga/internal/saga"
)

// Handler must return nil only when the message may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

// InboxHandler feeds message values to a saga inbox.
func InboxHandler(in *saga.Inbox) Handler {
	return func(ctx context.Context, m kafka.Message) error {
		return in.Handle(ctx, m.Value)
	}
}

type Consumer struct {
	r       *kafka.Reader
	workers int
	log     *slog.Logger

	// MaxRetryInterval caps the backoff between attempts on one message.
	MaxRetryInterval time.Duration
}

func NewConsumer(brokers []string, group, topic string, workers int, log *slog.Logger) *Consumer {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("topic", topic, "group", group)
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
		ErrorLogger:    errorLogger(log, "kafka reader"),
	})
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, workers: workers, log: log, MaxRetryInterval: 10 * time.Second}
}

// Start fetches until ctx is done. Messages of one partition always go to
// the same worker, and a worker retries a message until it succeeds, so
// per-saga order holds and offsets are committed in order.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	shards := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range shards {
		shards[i] = make(chan kafka.Message, 64)
		wg.Add(1)
		go func(jobs <-chan kafka.Message) {
			defer wg.Done()
			for m := range jobs {
				if ctx.Err() != nil {
					return
				}
				if err := c.process(ctx, h, m); err != nil {
					return
				}
			}
		}(shards[i])
	}
	stop := func() {
		for _, s := range shards {
			close(s)
		}
		wg.Wait()
	}

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			stop()
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case shards[shardFor(m.Partition, c.workers)] <- m:
		case <-ctx.Done():
			stop()
			return nil
		}
	}
}

// process returns an error only when ctx ends before m succeeded; m is
// then left uncommitted for the next owner of the partition.
func (c *Consumer) process(ctx context.Context, h Handler, m kafka.Message) error {
	attempt := 0
	op := func() error {
		attempt++
		err := h(ctx, m)
		if err != nil {
			c.log.Warn("handler failed, retrying",
				"partition", m.Partition, "offset", m.Offset, "attempt", attempt, "err", err)
		}
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(newBackOff(c.MaxRetryInterval), ctx)); err != nil {
		return err
	}
	for {
		err := c.r.CommitMessages(ctx, m)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return err
		}
		c.log.Error("commit failed", "partition", m.Partition, "offset", m.Offset, "err", err)
		select {
		case <-time.After(200 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func newBackOff(max time.Duration) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = max
	b.MaxElapsedTime = 0 // never give up; shutdown ends the loop
	b.Reset()
	return b
}

func shardFor(partition, workers int) int {
	if workers <= 1 {
		return 0
	}
	return partition % workers
}
