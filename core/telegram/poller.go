package telegram

import (
	"strings"
	"time"

	coreconfig "github.com/m3rciful/sheetsbot/core/config"

	tele "gopkg.in/telebot.v4"
)

const defaultLongPollTimeout = 10

// WebhookOptions declares webhook registration settings.
type WebhookOptions struct {
	// PublicURL is the full URL registered with Telegram, path included.
	PublicURL   string
	SecretToken string
}

// PollerOptions configures BuildPoller. An empty RunMode selects long polling.
type PollerOptions struct {
	RunMode                string
	LongPollTimeoutSeconds int
	Webhook                WebhookOptions
}

// BuildPoller returns the poller for the configured run mode. The webhook poller
// does not listen itself: RunTelegram mounts it on a mux so that updates are
// accepted only on the configured path.
func BuildPoller(opts PollerOptions) tele.Poller {
	if strings.EqualFold(strings.TrimSpace(opts.RunMode), coreconfig.RunModeWebhook) {
		return NewWebhookPoller(&tele.Webhook{
			SecretToken: opts.Webhook.SecretToken,
			Endpoint:    &tele.WebhookEndpoint{PublicURL: opts.Webhook.PublicURL},
		})
	}

	timeout := opts.LongPollTimeoutSeconds
	if timeout <= 0 {
		timeout = defaultLongPollTimeout
	}
	return &tele.LongPoller{Timeout: time.Duration(timeout) * time.Second}
}
