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
	"github.com/ariefcatur/go-checkout-saga/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logx.New("checkout-api", "info").Error("config", "err", err)
		os.Exit(1)
	}
	log := logx.New(cfg.ServiceName, cfg.LogLevel)

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	prod := kafkax.NewProducer(cfg.KafkaBrokers, cfg.DeadLetterTopic, log)
	defer prod.Close()

	router := httpx.NewRouter(func(ctx context.Context) map[string]string {
		if err := rdb.Ping(ctx).Err(); err != nil {
			return map[string]string{"status": "down", "error": err.Error()}
		}
		return map[string]string{"status": "up"}
	})
	(&httpx.CheckoutHandler{
		Publisher: prod,
		Keys:      &redisx.CheckoutKeys{RDB: rdb},
		Topic:     cfg.CheckoutTopic,
		Service:   cfg.ServiceName,
	}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	if err := app.Run(log, srv); err != nil {
		log.Error("exit", "err", err)
		os.Exit(1)
	}
}
