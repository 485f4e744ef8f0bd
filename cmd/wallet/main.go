package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-checkout-saga/internal/app"
	"github.com/ariefcatur/go-checkout-saga/internal/config"
	"github.com/ariefcatur/go-checkout-saga/internal/httpx"
	"github.com/ariefcatur/go-checkout-saga/internal/logx"
	"github.com/ariefcatur/go-checkout-saga/internal/postgres"
	"github.com/ariefcatur/go-checkout-saga/internal/wallet"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logx.New("wallet", "info").Error("config", "err", err)
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

	router := httpx.NewRouter(func(ctx context.Context) map[string]string { return postgres.Health(ctx, db) })
	(&httpx.WalletsHandler{Ledger: wallet.NewLedger(&wallet.Repo{DB: db})}).Register(router)

	if err := app.Run(log, &http.Server{Addr: cfg.HTTPAddr, Handler: router}); err != nil {
		log.Error("exit", "err", err)
		os.Exit(1)
	}
}
