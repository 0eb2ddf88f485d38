package telegram

import (
	"strings"
	"time"

	coreconfig "github.com/m3rciful/sheetsbot/core/config"
	"github.com/m3rciful/sheetsbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// DefaultMiddlewares returns the bot-wide chain, outermost first: panic recovery,
// the owner check (when telegram.admin_id is set), the rate limit (when
// rate_limit.interval_ms is set) and update logging.
func DefaultMiddlewares(cfg *coreconfig.Config, onLimited func(tele.Context) error) []Middleware {
	mws := []Middleware{{Name: "recover", Use: middleware.RecoverMiddleware}}
	if cfg == nil {
		return append(mws, Middleware{Name: "logger", Use: middleware.LoggerMiddleware})
	}

	if cfg.Telegram.AdminID != 0 {
		mws = append(mws, Middleware{
			Name: "owner_only",
			Use: middleware.AdminOnlyMiddleware(middleware.AdminOptions{
				AdminID:  cfg.Telegram.AdminID,
				OnReject: middleware.LogRejected,
			}),
		})
	}
	if rl, ok := rateLimitOptions(cfg.RateLimit, onLimited); ok {
		mws = append(mws, Middleware{Name: "rate_limit", Use: middleware.RateLimitMiddleware(rl)})
	}
	return append(mws, Middleware{Name: "logger", Use: middleware.LoggerMiddleware})
}

func rateLimitOptions(cfg coreconfig.RateLimitConfig, onLimited func(tele.Context) error) (middleware.RateLimitOptions, bool) {
	interval := time.Duration(cfg.IntervalMS) * time.Millisecond
	if interval <= 0 {
		return middleware.RateLimitOptions{}, false
	}
	exclude := make(map[string]struct{}, len(cfg.ExcludeUpdates))
	for _, kind := range cfg.ExcludeUpdates {
		exclude[strings.ToLower(strings.TrimSpace(kind))] = struct{}{}
	}
	return middleware.RateLimitOptions{
		Interval:  interval,
		Exclude:   exclude,
		OnLimited: onLimited,
	}, true
}
