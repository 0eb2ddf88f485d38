// Package logger provides the structured logger shared by every component of the bot.
//
// Lines are written as JSON or key=value pairs with a stable key order, and carry the
// update correlation fields stored in the context by the Telegram middleware.
package logger

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/sheetsbot/core/buildinfo"
	coreconfig "github.com/m3rciful/sheetsbot/core/config"
)

var (
	initOnce sync.Once
	stopOnce sync.Once

	out     *sink
	closers []io.Closer

	levelVar     slog.LevelVar
	debugSampler sampler
	traceAll     bool

	// L is the base logger. It stays nil until InitLogger runs; the package
	// helpers below are no-ops until then.
	L *slog.Logger

	// DB logs database events.
	DB *slog.Logger
	// TG logs Telegram transport events.
	TG *slog.Logger
	// MIG logs schema migrations.
	MIG *slog.Logger
)

// InitLogger configures the global logger. Calls after the first are ignored.
func InitLogger(cfg *coreconfig.Config) error {
	initOnce.Do(func() {
		if cfg == nil {
			cfg = &coreconfig.Config{}
		}
		levelVar.Set(selectLevel(cfg))
		num, den := debugSampleRatio(cfg.Logging.DebugSample)
		debugSampler.Set(num, den)
		traceAll = isTruthy(os.Getenv("LOG_TRACE"))

		writers := []io.Writer{os.Stdout}
		if f := openLogFile(cfg.Logging); f != nil {
			writers = append(writers, f)
			closers = append(closers, f)
		}
		out = newSink(writers, 256)

		L = slog.New(newLineHandler(&levelVar, out, selectFormat(cfg), selectKeyOrder(cfg)))
		slog.SetDefault(L)
		DB = Component("db")
		TG = Component("tg")
		MIG = Component("db.migrate")

		Info(context.Background(), "app", "startup",
			slog.String("go_version", runtime.Version()),
			slog.String("build_version", buildinfo.Version),
			slog.String("build_commit", buildinfo.Commit),
			slog.String("build_time", buildinfo.Date),
			slog.String("profile", selectProfile(cfg)),
		)
	})
	return nil
}

// Shutdown writes out queued lines and closes the log file.
func Shutdown() error {
	var err error
	stopOnce.Do(func() {
		var errs []error
		if out != nil {
			errs = append(errs, out.Close())
		}
		for _, c := range closers {
			errs = append(errs, c.Close())
		}
		err = errors.Join(errs...)
	})
	return err
}

func openLogFile(cfg coreconfig.LoggingConfig) *os.File {
	dir := strings.TrimSpace(cfg.Dir)
	name := strings.TrimSpace(cfg.BotFile)
	if dir == "" || name == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("logger: create log dir %s: %v", dir, err)
		return nil
	}
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("logger: open log file %s: %v", path, err)
		return nil
	}
	return f
}

func selectFormat(cfg *coreconfig.Config) logFormat {
	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Format)) {
	case "kv", "text", "pretty":
		return formatKV
	case "json":
		return formatJSON
	}
	if p := selectProfile(cfg); p == "debug" || p == "dev" {
		return formatKV
	}
	return formatJSON
}

func selectKeyOrder(cfg *coreconfig.Config) []string {
	raw := strings.TrimSpace(cfg.Logging.KeysOrder)
	if raw == "" || raw == "default" {
		return defaultKeyOrder
	}
	var order []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			order = append(order, k)
		}
	}
	if len(order) == 0 {
		return defaultKeyOrder
	}
	return order
}

func selectLevel(cfg *coreconfig.Config) slog.Level {
	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func selectProfile(cfg *coreconfig.Config) string {
	if p := strings.TrimSpace(cfg.Logging.Profile); p != "" {
		return strings.ToLower(p)
	}
	return "prod"
}

// debugSampleRatio defaults to logging one in fifty sampled debug events.
func debugSampleRatio(raw string) (int, int) {
	if strings.TrimSpace(raw) == "" {
		return 1, 50
	}
	num, den, ok := parseRatio(raw)
	if !ok {
		return 1, 50
	}
	return num, den
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// ShouldSampleDebug reports whether a high-volume debug event should be logged.
// LOG_TRACE=1 lets every event through.
func ShouldSampleDebug() bool {
	return traceAll || debugSampler.Allow()
}
