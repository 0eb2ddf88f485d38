package middleware

import (
	"log/slog"

	"github.com/m3rciful/sheetsbot/core/logger"
	tghelpers "github.com/m3rciful/sheetsbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AdminOptions defines how admin-only checks should behave. AdminID 0 disables the check.
type AdminOptions struct {
	AdminID  int64
	OnReject tele.HandlerFunc
}

// AdminOnlyMiddleware ensures that only the admin user can invoke downstream handlers.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if opts.AdminID != 0 && (c.Sender() == nil || c.Sender().ID != opts.AdminID) {
				if opts.OnReject != nil {
					return opts.OnReject(c)
				}
				return nil
			}
			return next(c)
		}
	}
}

// LogRejected records an update that was dropped by the owner check. The sender gets no reply.
func LogRejected(c tele.Context) error {
	logger.Warn(tghelpers.BuildContext(c), "tg", "access.reject",
		slog.String("status", logger.StatusSkip),
	)
	return nil
}
