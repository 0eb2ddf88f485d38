package helpers

import (
	"context"
	"sync"

	"github.com/m3rciful/sheetsbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const scopeKey = "sheetsbot.scope"

// Scope is the per-update state shared by middleware, handlers and the send helpers.
type Scope struct {
	mu       sync.Mutex
	ctx      context.Context
	replies  int
	keyboard bool
}

// Context returns the logging context of the update.
func (s *Scope) Context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// Replies reports how many replies were queued and whether any carried a keyboard.
func (s *Scope) Replies() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replies, s.keyboard
}

func (s *Scope) recordReply(keyboard bool) {
	s.mu.Lock()
	s.replies++
	s.keyboard = s.keyboard || keyboard
	s.mu.Unlock()
}

func scopeOf(c tele.Context) *Scope {
	if c == nil {
		return nil
	}
	s, _ := c.Get(scopeKey).(*Scope)
	return s
}

// BeginUpdate attaches a Scope to c. fresh is false when an outer middleware
// already did so, in which case the existing Scope is returned.
func BeginUpdate(c tele.Context) (scope *Scope, fresh bool) {
	if s := scopeOf(c); s != nil {
		return s, false
	}

	var chatID, userID int64
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	if user := c.Sender(); user != nil {
		userID = user.ID
	}
	updateID := c.Update().ID

	ctx := logger.WithRID(context.Background(), logger.BuildRID(updateID, chatID, userID))
	ctx = logger.WithUpdateMeta(ctx, updateID, userID, chatID)
	ctx = logger.WithLogger(ctx, logger.Component("tg"))

	s := &Scope{ctx: ctx}
	c.Set(scopeKey, s)
	return s, true
}

// BuildContext returns the logging context of the update carried by c.
func BuildContext(c tele.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	s, _ := BeginUpdate(c)
	return s.Context()
}

// WithHandler records the handler name on the update's context and returns it.
func WithHandler(c tele.Context, handler string) context.Context {
	s, _ := BeginUpdate(c)
	if handler == "" {
		return s.Context()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = logger.WithHandler(s.ctx, handler)
	return s.ctx
}

// Replies reports the reply counters of the update carried by c.
func Replies(c tele.Context) (int, bool) {
	if s := scopeOf(c); s != nil {
		return s.Replies()
	}
	return 0, false
}
