package main

import (
	"context"
	"math/rand/v2"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-checkout-saga/internal/app"
	"github.com/ariefcatur/go-checkout-saga/internal/compensation"
	"github.com/ariefcatur/go-checkout-saga/internal/config"
	"github.com/ariefcatur/go-checkout-saga/internal/httpx"
	kafkax "github.com/ariefcatur/go-checkout-saga/internal/kafka"
	"github.com/ariefcatur/go-checkout-saga/internal/logx"
	"github.com/ariefcatur/go-checkout-saga/internal/payment"
	"github.com/ariefcatur/go-checkout-saga/internal/postgres"
	"github.com/ariefcatur/go-checkout-saga/internal/redisx"
	"github.com/ariefcatur/go-checkout-saga/internal/refund"
	"github.com/ariefcatur/go-checkout-saga/internal/saga"
	"github.com/ariefcatur/go-checkout-saga/internal/wallet"
)

// The refund binary runs both halves of compensation: the tracker that
// turns failed orders into refund commands, and the refund step itself.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logx.New("refund", "info").Error("config", "err", err)
		os.Exit(1)
	}
	log := logx.New(cfg.ServiceName, cfg.LogLevel)
	ctx := context.Background()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Error("db migrate", "err", err)
		os.Exit(1)
	}

	rdb, err := redisx.Connect(ctx, cfg.RedisAddr)
	if err != nil {
		log.Error("redis connect", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	prod := kafkax.NewProducer(cfg.KafkaBrokers, cfg.DeadLetterTopic, log)
	defer prod.Close()

	var settler refund.Settler
	switch cfg.RefundSettlement {
	case "wallet":
		settler = refund.WalletSettler{Crediter: wallet.NewClient(cfg.WalletURL)}
	default:
		seed := uint64(time.Now().UnixNano())
		settler = refund.GatewaySettler{Decider: payment.NewRandom(rand.New(rand.NewPCG(seed, seed>>1)), cfg.RefundSuccessRate)}
	}
	svc := refund.NewService(&refund.Repo{DB: db}, settler)
	svc.Log = log
	step := &refund.Step{Service: svc, Publisher: prod, Producer: cfg.ServiceName, Topic: cfg.CheckoutTopic}

	tracker := &compensation.Tracker{
		Store:       &redisx.SagaStore{RDB: rdb},
		Publisher:   prod,
		Producer:    cfg.ServiceName,
		RefundTopic: cfg.RefundTopic,
		Log:         log,
	}

	router := httpx.NewRouter(func(ctx context.Context) map[string]string { return postgres.Health(ctx, db) })
	(&httpx.RefundsHandler{Step: step}).Register(router)

	dedup := &redisx.Dedup{RDB: rdb}
	subs := []app.Subscription{
		{
			Consumer: kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ConsumerGroup+"-compensation", cfg.CheckoutTopic, cfg.ConsumerWorkers, log),
			Inbox:    &saga.Inbox{Registry: tracker.Registry(), Dedup: dedup, DeadLetter: prod, Timeout: cfg.HandlerTimeout, Log: log},
		},
		{
			Consumer: kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ConsumerGroup, cfg.RefundTopic, cfg.ConsumerWorkers, log),
			Inbox:    &saga.Inbox{Registry: step.Registry(), Dedup: dedup, DeadLetter: prod, Timeout: cfg.HandlerTimeout, Log: log},
		},
	}
	if err := app.Run(log, &http.Server{Addr: cfg.HTTPAddr, Handler: router}, subs...); err != nil {
		log.Error("exit", "err", err)
		os.Exit(1)
	}
}
