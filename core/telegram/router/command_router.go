// Package router turns registry entries and the conversation manager into telebot routes.
package router

import (
	"context"
	"log/slog"

	"github.com/m3rciful/sheetsbot/core/logger"
	tg "github.com/m3rciful/sheetsbot/core/telegram"
	"github.com/m3rciful/sheetsbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures the owner check applied to admin-only commands.
type CommandRouteOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes returns one route per registered command. telebot matches
// commands before OnText, so they work whatever step the user is on.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}
	ownerOnly := middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	})

	cmds := reg.Commands()
	routes := make([]tg.Route, 0, len(cmds))
	for endpoint, cmd := range cmds {
		h := commandHandler(handlerName(endpoint), cmd.Handler)
		if cmd.AdminOnly {
			h = ownerOnly(h)
		}
		routes = append(routes, tg.Route{Endpoint: endpoint, Handler: h})
	}

	logger.Info(context.Background(), "tg.wire", "complete", slog.Int("commands", len(routes)))
	return routes
}

func commandHandler(name string, inner tele.HandlerFunc) tele.HandlerFunc {
	h := func(c tele.Context) error {
		return summarize(c, name, func() error { return inner(c) })
	}
	return middleware.LoggerMiddleware(middleware.RecoverMiddleware(h))
}
