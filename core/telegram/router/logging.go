package router

import (
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/sheetsbot/core/logger"
	tghelpers "github.com/m3rciful/sheetsbot/core/telegram/helpers"
	"github.com/m3rciful/sheetsbot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

// summarize runs fn as handler name and logs one handler.handled line for it.
func summarize(c tele.Context, name string, fn func() error) error {
	start := time.Now()
	tghelpers.WithHandler(c, name)
	err := fn()
	logSummary(c, name, start, "", err)
	return err
}

func logSummary(c tele.Context, name string, start time.Time, status string, err error) {
	ctx := tghelpers.WithHandler(c, name)
	replies, keyboard := tghelpers.Replies(c)
	if status == "" {
		status = logger.Status(err)
	}

	attrs := []slog.Attr{
		slog.String("status", status),
		slog.Int("replies", replies),
		slog.Bool("keyboard", keyboard),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	}
	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelWarn
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(netutil.Redact(err), 256)),
			slog.String("error_kind", netutil.Classify(err)),
		)
	}
	logger.LogEvent(ctx, logger.Component("tg"), level, "handler.handled", attrs...)
}

// handlerName turns "/start" or "New Entry" into "start" or "new_entry".
func handlerName(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if name == "" {
		return "unknown"
	}
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}
