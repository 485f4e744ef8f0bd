package saga

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrInFlight is returned while another delivery of the same event holds
// the dedup claim. The consumer retries it.
var ErrInFlight = errors.New("event is being processed elsewhere")

const DefaultHandlerTimeout = 10 * time.Second

// Inbox is the single delivery entry point of a component: decode, dedup,
// dispatch, and dead-letter what can never succeed.
type Inbox struct {
	Registry   *Registry
	Dedup      Dedup        // optional
	DeadLetter DeadLetterer // optional, permanent failures are only logged without it
	Timeout    time.Duration
	Log        *slog.Logger
}

// Handle returns nil when the message may be acknowledged and an error when
// it must be redelivered.
func (in *Inbox) Handle(ctx context.Context, raw []byte) error {
	log := in.logger()

	env, err := Parse(raw)
	if err != nil {
		return in.park(ctx, raw, err)
	}
	log = log.With("saga_id", env.SagaID, "event", env.Type, "event_id", env.EventID)

	timeout := in.Timeout
	if timeout <= 0 {
		timeout = DefaultHandlerTimeout
	}

	key := DedupKey(in.Registry.Component(), env)
	if in.Dedup != nil {
		res, err := in.Dedup.Claim(ctx, key, 2*timeout)
		if err != nil {
			return fmt.Errorf("dedup claim %s: %w", key, err)
		}
		switch res {
		case Done:
			log.Debug("duplicate delivery skipped")
			return nil
		case InFlight:
			return fmt.Errorf("%w: %s", ErrInFlight, key)
		}
	}

	err = in.deliver(ctx, env, timeout)
	switch {
	case err == nil:
		in.complete(ctx, key, log)
		return nil
	case IsPermanent(err):
		log.Error("event dead-lettered", "err", err)
		if perr := in.park(ctx, raw, err); perr != nil {
			in.release(ctx, key, log)
			return perr
		}
		in.complete(ctx, key, log)
		return nil
	default:
		log.Warn("event will be redelivered", "err", err)
		in.release(ctx, key, log)
		return err
	}
}

func (in *Inbox) deliver(ctx context.Context, env Envelope, timeout time.Duration) (err error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errPanic, r)
		}
	}()
	return in.Registry.Deliver(ctx, env)
}

func (in *Inbox) park(ctx context.Context, raw []byte, reason error) error {
	if in.DeadLetter == nil {
		in.logger().Error("permanent failure, no dead-letter sink", "err", reason)
		return nil
	}
	if err := in.DeadLetter.DeadLetter(ctx, raw, reason); err != nil {
		return fmt.Errorf("dead-letter: %w", err)
	}
	return nil
}

func (in *Inbox) complete(ctx context.Context, key string, log *slog.Logger) {
	if in.Dedup == nil {
		return
	}
	// a lost marker only costs an idempotent re-run
	if err := in.Dedup.Complete(ctx, key); err != nil {
		log.Warn("dedup complete failed", "err", err)
	}
}

func (in *Inbox) release(ctx context.Context, key string, log *slog.Logger) {
	if in.Dedup == nil {
		return
	}
	if err := in.Dedup.Release(ctx, key); err != nil {
		log.Warn("dedup release failed", "err", err)
	}
}

func (in *Inbox) logger() *slog.Logger {
	if in.Log != nil {
		return in.Log.With("component", in.Registry.Component())
	}
	return slog.Default().With("component", in.Registry.Component())
}
