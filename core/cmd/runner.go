// Package cmd holds the process entry point shared by bot binaries: configuration
// loading, bootstrap, signal handling and logger shutdown.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	coreconfig "github.com/m3rciful/sheetsbot/core/config"
	"github.com/m3rciful/sheetsbot/core/logger"
	coretelegram "github.com/m3rciful/sheetsbot/core/telegram"
)

// ConfigCarrier exposes the core part of an application's configuration.
type ConfigCarrier interface {
	CoreConfig() *coreconfig.Config
}

// TelegramApp builds the options the Telegram runtime starts with.
type TelegramApp interface {
	TelegramRunOptions() (coretelegram.RunOptions, error)
}

const (
	// DefaultConfigPath is used when neither the environment nor Options name a config file.
	// A missing file is fine: every setting can come from the environment.
	DefaultConfigPath = "config.yaml"
	// DefaultConfigEnvVar names the variable holding the config file path.
	DefaultConfigEnvVar = "CONFIG_PATH"
)

// Options describe how to load configuration, bootstrap the app and run the bot.
// LoadConfig and Bootstrap are required; the rest have defaults.
type Options struct {
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig func(path string) (ConfigCarrier, error)
	Bootstrap  func(cfg ConfigCarrier) (TelegramApp, error)

	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error

	// Context is the parent of the run context; SIGINT and SIGTERM cancel it as well.
	Context context.Context
}

// Run loads configuration, bootstraps the app and blocks until the bot stops.
func Run(opts Options) error {
	if opts.LoadConfig == nil || opts.Bootstrap == nil {
		return errors.New("cmd: LoadConfig and Bootstrap are required")
	}

	path := configPath(opts)
	log.Printf("loading config: %s", path)
	cfg, err := opts.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}
	if cfg.CoreConfig() == nil {
		return errors.New("cmd: loaded config is missing core configuration")
	}

	startedAt := time.Now()
	application, err := opts.Bootstrap(cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}
	defer shutdownLogger(opts.ShutdownLogger)

	runOpts, err := application.TelegramRunOptions()
	if err != nil {
		return fmt.Errorf("cmd: telegram options build failed: %w", err)
	}
	withLifecycleLogs(&runOpts, startedAt)

	parent := opts.Context
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	run := opts.RunTelegram
	if run == nil {
		run = coretelegram.RunTelegram
	}
	return run(ctx, runOpts)
}

// configPath picks the config file: the environment first, then Options, then DefaultConfigPath.
func configPath(opts Options) string {
	env := opts.ConfigEnvVar
	if env == "" {
		env = DefaultConfigEnvVar
	}
	for _, p := range []string{os.Getenv(env), opts.DefaultConfigPath} {
		if p != "" {
			return p
		}
	}
	return DefaultConfigPath
}

func shutdownLogger(fn func() error) {
	if fn == nil {
		fn = logger.Shutdown
	}
	if err := fn(); err != nil {
		log.Printf("logger shutdown error: %v", err)
	}
}

// withLifecycleLogs wraps the start and stop hooks with "ready" and "shutdown" events.
func withLifecycleLogs(opts *coretelegram.RunOptions, startedAt time.Time) {
	onStart, onStop := opts.OnStart, opts.OnStop

	opts.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if onStart != nil {
			if err := onStart(ctx, rt); err != nil {
				return err
			}
		}
		logger.Info(ctx, "app", "ready",
			slog.String("mode", rt.RunMode),
			slog.Duration("startup_duration", logger.Took(startedAt)),
		)
		return nil
	}
	opts.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		logger.Info(ctx, "app", "shutdown")
		if onStop != nil {
			return onStop(ctx, rt)
		}
		return nil
	}
}
