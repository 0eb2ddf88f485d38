// Package bot binds the conversation to Telegram.
package bot

import (
	"context"

	tg "github.com/m3rciful/sheetsbot/core/telegram"
	"github.com/m3rciful/sheetsbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/sheetsbot/core/telegram/helpers"
	"github.com/m3rciful/sheetsbot/core/telegram/keyboard"
	"github.com/m3rciful/sheetsbot/core/telegram/state"
	"github.com/m3rciful/sheetsbot/internal/conversation"

	tele "gopkg.in/telebot.v4"
)

// StartCommand begins a new entry from any step.
const StartCommand = "/start"

// Handlers adapts Telegram updates to the wizard.
type Handlers struct {
	wizard *conversation.Wizard
}

// New returns handlers for w.
func New(w *conversation.Wizard) *Handlers {
	return &Handlers{wizard: w}
}

// Register adds /start to the command registry and binds every conversation step to the FSM.
func (h *Handlers) Register(reg *tg.Registry, fsm state.Manager) {
	reg.RegisterCommand(StartCommand, commands.Command{
		Handler:     h.Start,
		Description: "Новая запись",
	})
	for _, st := range conversation.States() {
		fsm.Handle(st, h.Text)
	}
}

// Start handles /start.
func (h *Handlers) Start(c tele.Context) error {
	return h.wizard.Start(tghelpers.BuildContext(c), request(c), replier{c: c})
}

// Text handles a message from a user with an active conversation.
func (h *Handlers) Text(c tele.Context) error {
	return h.wizard.Dispatch(tghelpers.BuildContext(c), request(c), replier{c: c})
}

func request(c tele.Context) conversation.Request {
	var id int64
	if u := c.Sender(); u != nil {
		id = u.ID
	}
	return conversation.Request{SenderID: id, Text: c.Text()}
}

type replier struct {
	c tele.Context
}

func (r replier) Reply(_ context.Context, text string, markup *conversation.Markup) error {
	switch {
	case markup == nil:
		return tghelpers.SendText(r.c, text)
	case markup.Remove:
		return tghelpers.SendWithMarkup(r.c, text, keyboard.RemoveKeyboard())
	case len(markup.Rows) == 0:
		return tghelpers.SendText(r.c, text)
	default:
		return tghelpers.SendWithMarkup(r.c, text, keyboard.ReplyButtons(markup.Rows...))
	}
}
