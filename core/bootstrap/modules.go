package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/sheetsbot/core/logger"
)

// Seeder loads reference data into backing stores before the bot starts serving.
type Seeder interface {
	Seed(ctx context.Context) error
}

// SeederFunc adapts a bare function to the Seeder interface.
type SeederFunc func(ctx context.Context) error

// Seed executes the underlying function.
func (f SeederFunc) Seed(ctx context.Context) error {
	return f(ctx)
}

// NamedSeeder attaches a name used in seed logs.
type NamedSeeder struct {
	Name   string
	Seeder Seeder
}

// Seed runs every seeder in order. Failures are logged and counted but do not stop
// the remaining seeders: stores that stay cold are populated lazily on first use.
func Seed(ctx context.Context, seeders ...NamedSeeder) int {
	failed := 0
	for _, s := range seeders {
		if s.Seeder == nil {
			continue
		}
		start := time.Now()
		err := s.Seeder.Seed(ctx)
		attrs := []slog.Attr{
			slog.String("status", logger.Status(err)),
			slog.String("operation", s.Name),
			slog.Duration("duration", logger.Took(start)),
		}
		if err != nil {
			failed++
			attrs = append(attrs, slog.String("err", err.Error()))
			logger.Warn(ctx, "seed", "seed.run", attrs...)
			continue
		}
		logger.Info(ctx, "seed", "seed.run", attrs...)
	}
	return failed
}
