package router

import (
	"time"

	"github.com/m3rciful/sheetsbot/core/logger"
	tg "github.com/m3rciful/sheetsbot/core/telegram"
	"github.com/m3rciful/sheetsbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// FSM defines the minimal interface for an FSM manager.
type FSM interface {
	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}

// TextOptions controls fallback behaviour for text updates.
type TextOptions struct {
	UnknownText tele.HandlerFunc
}

// TextRoutes builds the text handler. Users with an active conversation are routed to the
// FSM; everyone else falls through to text commands and then opts.UnknownText.
// Without UnknownText such text is logged as skipped and dropped.
func TextRoutes(fsmMgr FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		if user := c.Sender(); fsmMgr != nil && user != nil && fsmMgr.InProgress(user.ID) {
			return summarize(c, "fsm", func() error { return fsmMgr.ManagerHandler(c) })
		}

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(c.Text()); ok && cmd.Handler != nil {
				return summarize(c, handlerName(key), func() error { return cmd.Handler(c) })
			}
		}

		if opts.UnknownText != nil {
			return summarize(c, "unknown_text", func() error { return opts.UnknownText(c) })
		}

		logSummary(c, "unknown_text", time.Now(), logger.StatusSkip, nil)
		return nil
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
		},
	}
}
