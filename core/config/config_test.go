package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeWebhookDefaults(t *testing.T) {
	cfg := &Config{
		Telegram: TelegramConfig{Token: "t"},
		Webhook:  WebhookConfig{URL: "https://bot.example.com/", Port: 8443},
	}
	require.NoError(t, Normalize(cfg))

	assert.Equal(t, RunModeWebhook, cfg.Telegram.RunMode)
	assert.Equal(t, DefaultWebhookPath, cfg.Webhook.Path)
	assert.Equal(t, DefaultWebhookListen, cfg.Webhook.Listen)
	assert.Equal(t, "https://bot.example.com/webhook", cfg.Webhook.PublicURL())
}

func TestNormalizeWebhookPathGetsSlash(t *testing.T) {
	cfg := &Config{
		Telegram: TelegramConfig{Token: "t"},
		Webhook:  WebhookConfig{URL: "https://bot.example.com", Port: 80, Path: "hook"},
	}
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, "/hook", cfg.Webhook.Path)
}

func TestNormalizeErrors(t *testing.T) {
	cases := map[string]*Config{
		"missing token":    {},
		"missing url":      {Telegram: TelegramConfig{Token: "t"}, Webhook: WebhookConfig{Port: 80}},
		"missing port":     {Telegram: TelegramConfig{Token: "t"}, Webhook: WebhookConfig{URL: "https://x"}},
		"bad run mode":     {Telegram: TelegramConfig{Token: "t", RunMode: "smoke"}},
		"negative timeout": {Telegram: TelegramConfig{Token: "t", RunMode: "longpoll", LongPollTimeoutSeconds: -1}},
		"bad exclusion": {
			Telegram:  TelegramConfig{Token: "t", RunMode: "polling"},
			RateLimit: RateLimitConfig{ExcludeUpdates: []string{"sticker"}},
		},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, Normalize(cfg))
		})
	}
}

func TestNormalizePollingAlias(t *testing.T) {
	cfg := &Config{
		Telegram:  TelegramConfig{Token: "t", RunMode: " Polling "},
		RateLimit: RateLimitConfig{ExcludeUpdates: []string{" Callback "}},
	}
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, []string{"callback"}, cfg.RateLimit.ExcludeUpdates)
}
