package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/m3rciful/sheetsbot/core/logger"
)

const (
	connectTimeout   = 5 * time.Second
	defaultPoolSize  = 4
	readyPollBackoff = 2 * time.Second
)

// Connect opens the Postgres pool and verifies it with a ping.
func Connect(cfg Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	target := []slog.Attr{
		slog.String("host", cfg.Host),
		slog.String("port", cfg.Port),
		slog.String("db", cfg.Name),
	}

	start := time.Now()
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
	if err != nil {
		logger.Error(ctx, "db", "db.connect", append(target,
			slog.String("status", logger.StatusFail),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)...)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	pool := cfg.MaxConnections
	if pool <= 0 {
		pool = defaultPoolSize
	}
	db.SetMaxOpenConns(pool)
	db.SetMaxIdleConns(pool)

	logger.Info(ctx, "db", "db.connect", append(target,
		slog.String("status", logger.StatusOK),
		slog.Int("pool_open", pool),
		slog.Duration("duration", logger.Took(start)),
	)...)
	return db, nil
}

// WaitForPostgres polls dsn until the server accepts connections or timeout elapses.
func WaitForPostgres(dsn string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for attempt := 1; ; attempt++ {
		db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
		if err == nil {
			return db.Close()
		}
		logger.Debug(ctx, "db", "db.wait",
			slog.String("status", logger.StatusRetry),
			slog.Int("attempt", attempt),
			slog.String("err", err.Error()),
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout reached waiting for database: %w", err)
		case <-time.After(readyPollBackoff):
		}
	}
}
