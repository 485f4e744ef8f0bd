package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-checkout-saga/internal/app"
	"github.com/ariefcatur/go-checkout-saga/internal/config"
	"github.com/ariefcatur/go-checkout-saga/internal/httpx"
	kafkax "github.com/ariefcatur/go-checkout-saga/internal/kafka"
	"github.com/ariefcatur/go-checkout-saga/internal/logx"
	"github.com/ariefcatur/go-checkout-saga/internal/orders"
	"github.com/ariefcatur/go-checkout-saga/internal/postgres"
	"github.com/ariefcatur/go-checkout-saga/internal/redisx"
	"github.com/ariefcatur/go-checkout-saga/internal/saga"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logx.New("orders", "info").Error("config", "err", err)
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

	svc := orders.NewService(&orders.Repo{DB: db})
	svc.Cache = &redisx.StatusCache{RDB: rdb}
	svc.Log = log
	step := &orders.Step{Service: svc, Publisher: prod, Producer: cfg.ServiceName, Topic: cfg.CheckoutTopic}

	router := httpx.NewRouter(func(ctx context.Context) map[string]string { return postgres.Health(ctx, db) })
	(&httpx.OrdersHandler{Service: svc}).Register(router)

	sub := app.Subscription{
		Consumer: kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ConsumerGroup, cfg.CheckoutTopic, cfg.ConsumerWorkers, log),
		Inbox: &saga.Inbox{
			Registry:   step.Registry(),
			Dedup:      &redisx.Dedup{RDB: rdb},
			DeadLetter: prod,
			Timeout:    cfg.HandlerTimeout,
			Log:        log,
		},
	}
	if err := app.Run(log, &http.Server{Addr: cfg.HTTPAddr, Handler: router}, sub); err != nil {
		log.Error("exit", "err", err)
		os.Exit(1)
	}
}
