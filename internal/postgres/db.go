package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 8
	cfg.MinConns = 1
	cfg.HealthCheckPeriod = 30 * time.Second
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Health reports pool statistics for /healthz. A failed ping marks the
// database down.
func Health(ctx context.Context, pool *pgxpool.Pool) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	stats := map[string]string{}
	if err := pool.Ping(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}
	s := pool.Stat()
	stats["status"] = "up"
	stats["total_conns"] = strconv.Itoa(int(s.TotalConns()))
	stats["idle_conns"] = strconv.Itoa(int(s.IdleConns()))
	stats["acquired_conns"] = strconv.Itoa(int(s.AcquiredConns()))
	stats["empty_acquire_count"] = strconv.FormatInt(s.EmptyAcquireCount(), 10)
	if s.AcquiredConns() >= s.MaxConns() {
		stats["message"] = "connection pool exhausted"
	}
	return stats
}
