package middleware

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/m3rciful/sheetsbot/core/logger"
	tghelpers "github.com/m3rciful/sheetsbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// LoggerMiddleware attaches the update's logging context and logs one sampled
// receipt line per update. When the middleware runs twice for the same update
// (bot level and route level) only the outer pass logs.
//
// Message text is never logged: users type amounts and descriptions of their
// expenses. Only its length, or the command name, is recorded.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		scope, fresh := tghelpers.BeginUpdate(c)
		if fresh && logger.ShouldSampleDebug() {
			logger.Debug(scope.Context(), "tg", "update.received", receiptAttrs(c)...)
		}
		return next(c)
	}
}

func receiptAttrs(c tele.Context) []slog.Attr {
	attrs := []slog.Attr{slog.String("status", logger.StatusOK)}
	if chat := c.Chat(); chat != nil {
		attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
	}
	if user := c.Sender(); user != nil && user.Username != "" {
		attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
	}
	text := c.Text()
	switch {
	case strings.HasPrefix(text, "/"):
		cmd, _, _ := strings.Cut(text, " ")
		attrs = append(attrs, slog.String("command", logger.SanitizeLimit(cmd, 64)))
	case text != "":
		attrs = append(attrs, slog.Int("text_len", utf8.RuneCountInString(text)))
	}
	return attrs
}
