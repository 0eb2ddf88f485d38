package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/sheetsbot/core/logger"
	"github.com/m3rciful/sheetsbot/internal/config"
	"github.com/m3rciful/sheetsbot/internal/kv"
	"github.com/m3rciful/sheetsbot/internal/kv/memstore"
	"github.com/m3rciful/sheetsbot/internal/kv/pgstore"
	"github.com/m3rciful/sheetsbot/internal/kv/redisstore"
)

// openStore builds the category store selected by cache.backend.
// The returned closer is nil when the store owns no connection of its own.
func openStore(ctx context.Context, cfg config.CacheConfig, db *sqlx.DB) (kv.Store, io.Closer, error) {
	switch cfg.Backend {
	case kv.BackendRedis:
		s, err := redisstore.Open(ctx, cfg.RedisDSN)
		if err != nil {
			return nil, nil, err
		}
		logger.Info(ctx, "cache", "cache.store", slog.String("source", kv.BackendRedis))
		return s, s, nil
	case kv.BackendPostgres:
		if db == nil {
			return nil, nil, fmt.Errorf("app: postgres cache backend without a database connection")
		}
		logger.Info(ctx, "cache", "cache.store", slog.String("source", kv.BackendPostgres))
		return pgstore.New(db), nil, nil
	case kv.BackendMemory:
		logger.Warn(ctx, "cache", "cache.store",
			slog.String("source", kv.BackendMemory),
			slog.String("reason", "categories are lost on restart"),
		)
		return memstore.New(), nil, nil
	default:
		return nil, nil, fmt.Errorf("app: unknown cache backend %q", cfg.Backend)
	}
}
