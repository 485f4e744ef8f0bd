// Package app holds the process lifecycle shared by the service binaries.
package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	kafkax "github.com/ariefcatur/go-checkout-saga/internal/kafka"
	"github.com/ariefcatur/go-checkout-saga/internal/saga"
)

// Subscription binds one consumer to the inbox that handles its messages.
type Subscription struct {
	Consumer *kafkax.Consumer
	Inbox    *saga.Inbox
}

// Run serves srv (if any) and every subscription until SIGINT/SIGTERM or
// the first fatal error, then shuts the server down gracefully.
func Run(log *slog.Logger, srv *http.Server, subs ...Subscription) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	if srv != nil {
		g.Go(func() error {
			log.Info("http listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	for _, s := range subs {
		g.Go(func() error {
			log.Info("consumer started", "component", s.Inbox.Registry.Component(), "handles", s.Inbox.Registry.Handles())
			return s.Consumer.Start(ctx, kafkax.InboxHandler(s.Inbox))
		})
	}

	err := g.Wait()
	log.Info("shut down", "err", err)
	return err
}
