package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	coreconfig "github.com/m3rciful/sheetsbot/core/config"
	"github.com/m3rciful/sheetsbot/core/logger"
	tghelpers "github.com/m3rciful/sheetsbot/core/telegram/helpers"
	"github.com/m3rciful/sheetsbot/core/telegram/netutil"
	tgsender "github.com/m3rciful/sheetsbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Middleware is a named bot-wide middleware installed with bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route binds a handler to an endpoint accepted by tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	DispatcherOptions tgsender.Options
	Dispatcher        *tgsender.Dispatcher

	Middlewares []Middleware
	Routes      []Route

	DisableWebhookCleanup   bool
	DisableHelperDispatcher bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
	RunMode    string
}

// RunTelegram builds the bot, wires middleware and routes, and serves updates
// until ctx is cancelled or the poller stops. Cancellation is not an error.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return errors.New("telegram: nil config provided")
	}
	cfg := opts.Config
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}

	poller := BuildPoller(PollerOptions{
		RunMode:                cfg.Telegram.RunMode,
		LongPollTimeoutSeconds: cfg.Telegram.LongPollTimeoutSeconds,
		Webhook: WebhookOptions{
			PublicURL:   cfg.Webhook.PublicURL(),
			SecretToken: cfg.Webhook.SecretToken,
		},
	})

	start := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		Token:   cfg.Telegram.Token,
		Poller:  poller,
		Client:  BuildHTTPClient(),
		OnError: logBotError,
	})
	if err != nil {
		return fmt.Errorf("telegram: bot initialization failed: %s", netutil.Redact(err))
	}
	webhook, isWebhook := poller.(*WebhookPoller)
	logMode(ctx, cfg, webhook, logger.Took(start))
	if !isWebhook && !opts.DisableWebhookCleanup {
		removeWebhook(ctx, bot)
	}

	wire(bot, opts)

	dispatcher := opts.Dispatcher
	if dispatcher == nil {
		dispatcher = tgsender.NewDispatcher(opts.DispatcherOptions)
	}
	if !opts.DisableHelperDispatcher {
		tghelpers.SetDispatcher(dispatcher)
	}
	defer func() {
		dispatcher.Close()
		if !opts.DisableHelperDispatcher {
			tghelpers.SetDispatcher(nil)
		}
	}()

	rt := Runtime{Dispatcher: dispatcher, Registry: opts.Registry, RunMode: cfg.Telegram.RunMode}
	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			return err
		}
	}

	var server *webhookServer
	if isWebhook {
		server, err = startWebhookServer(webhookAddr(cfg), NewWebhookMux(cfg.Webhook.Path, webhook))
		if err != nil {
			return err
		}
	}

	runErr := serve(ctx, bot)

	if server != nil {
		if err := server.shutdown(); err != nil {
			logger.Warn(context.WithoutCancel(ctx), "tg", "webhook.shutdown",
				slog.String("status", logger.StatusFail),
				slog.String("err", err.Error()),
			)
		}
	}
	if opts.OnStop != nil {
		if err := opts.OnStop(context.WithoutCancel(ctx), rt); err != nil {
			return err
		}
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

// serve runs the poller until it returns on its own or ctx is done.
func serve(ctx context.Context, bot *tele.Bot) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		bot.Start()
	}()

	select {
	case <-ctx.Done():
		bot.Stop()
		<-done
		return ctx.Err()
	case <-done:
		return nil
	}
}

func wire(bot *tele.Bot, opts RunOptions) {
	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	for _, route := range opts.Routes {
		if route.Endpoint != nil && route.Handler != nil {
			bot.Handle(route.Endpoint, route.Handler)
		}
	}
	InitBotCommands(bot, opts.Registry)
}

func webhookAddr(cfg *coreconfig.Config) string {
	return net.JoinHostPort(cfg.Webhook.Listen, strconv.Itoa(cfg.Webhook.Port))
}

func logMode(ctx context.Context, cfg *coreconfig.Config, webhook *WebhookPoller, took time.Duration) {
	if webhook != nil {
		logger.Info(ctx, "tg", "mode",
			slog.String("mode", coreconfig.RunModeWebhook),
			slog.String("listen", webhookAddr(cfg)),
			slog.String("path", cfg.Webhook.Path),
			slog.String("public_url", webhook.Webhook.Endpoint.PublicURL),
			slog.Duration("duration", took),
		)
		return
	}
	timeout := cfg.Telegram.LongPollTimeoutSeconds
	if timeout <= 0 {
		timeout = defaultLongPollTimeout
	}
	logger.Info(ctx, "tg", "mode",
		slog.String("mode", coreconfig.RunModeLongpoll),
		slog.Int("timeout_seconds", timeout),
		slog.Duration("duration", took),
	)
}

// removeWebhook clears a webhook left over from a previous webhook deployment;
// Telegram refuses getUpdates while one is set. Pending updates are kept.
func removeWebhook(ctx context.Context, bot *tele.Bot) {
	if err := bot.RemoveWebhook(false); err != nil {
		logger.Warn(ctx, "tg", "delete_webhook",
			slog.String("status", logger.StatusFail),
			slog.String("err", netutil.Redact(err)),
		)
		return
	}
	logger.Debug(ctx, "tg", "delete_webhook", slog.String("status", logger.StatusOK))
}

// logBotError reports errors that telebot could not hand back to a caller.
func logBotError(err error, c tele.Context) {
	if err == nil {
		return
	}
	ctx := context.Background()
	if c != nil {
		ctx = tghelpers.BuildContext(c)
	}
	logger.Error(ctx, "tg", "bot.error",
		slog.String("status", logger.StatusFail),
		slog.String("err", netutil.Redact(err)),
		slog.String("error_kind", netutil.Classify(err)),
	)
}
