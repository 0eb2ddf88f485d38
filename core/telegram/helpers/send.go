// Package helpers carries per-update state between middleware and handlers and
// sends replies through the background dispatcher.
package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/sheetsbot/core/logger"
	"github.com/m3rciful/sheetsbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher installs the dispatcher used by SendText. With nil, replies are sent inline.
func SetDispatcher(d *sender.Dispatcher) {
	dispatcher.Store(d)
}

// enqueue hands run to the dispatcher. When the queue is full or already closed
// the reply is sent inline so that it is not lost.
func enqueue(c tele.Context, action, endpoint string, keyboard bool, run func() error) error {
	if s := scopeOf(c); s != nil {
		s.recordReply(keyboard)
	}
	d := dispatcher.Load()
	if d == nil {
		return run()
	}

	ctx := BuildContext(c)
	err := d.Enqueue(ctx, action, endpoint, run)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			slog.String("err", err.Error()),
		)
		return run()
	}
	return err
}

// SendText sends plain text (no parse mode) to the chat of the current update.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	var sendOpts *tele.SendOptions
	if len(opts) > 0 && opts[0] != nil {
		sendOpts = opts[0]
	}
	return enqueue(c, "send.text", "sendMessage", sendOpts != nil && sendOpts.ReplyMarkup != nil, func() error {
		if sendOpts == nil {
			return c.Send(text)
		}
		return c.Send(text, sendOpts)
	})
}

// SendWithMarkup sends text with a reply keyboard or a keyboard removal.
func SendWithMarkup(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	return SendText(c, text, &tele.SendOptions{ReplyMarkup: markup})
}
