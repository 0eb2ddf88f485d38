package helpers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/sheetsbot/core/logger"
)

type fakeContext struct {
	tele.Context
	store map[string]interface{}
	sent  []interface{}
	err   error
}

func newFakeContext() *fakeContext {
	return &fakeContext{store: map[string]interface{}{}}
}

func (f *fakeContext) Sender() *tele.User            { return &tele.User{ID: 7} }
func (f *fakeContext) Chat() *tele.Chat              { return &tele.Chat{ID: 9} }
func (f *fakeContext) Update() tele.Update           { return tele.Update{ID: 42} }
func (f *fakeContext) Get(key string) interface{}    { return f.store[key] }
func (f *fakeContext) Set(key string, v interface{}) { f.store[key] = v }

func (f *fakeContext) Send(what interface{}, opts ...interface{}) error {
	f.sent = append(f.sent, what)
	return f.err
}

func TestBeginUpdateOnce(t *testing.T) {
	c := newFakeContext()

	first, fresh := BeginUpdate(c)
	require.True(t, fresh)
	second, fresh := BeginUpdate(c)
	assert.False(t, fresh)
	assert.Same(t, first, second)

	ctx := BuildContext(c)
	assert.Equal(t, "42:9:7", logger.RIDFrom(ctx))
	assert.Equal(t, int64(9), logger.ChatIDFrom(ctx))
	assert.Equal(t, int64(7), logger.UserIDFrom(ctx))
}

func TestWithHandlerUpdatesScope(t *testing.T) {
	c := newFakeContext()
	WithHandler(c, "fsm")
	assert.Equal(t, "fsm", logger.HandlerFrom(BuildContext(c)))

	WithHandler(c, "")
	assert.Equal(t, "fsm", logger.HandlerFrom(BuildContext(c)))
}

func TestSendCountsReplies(t *testing.T) {
	SetDispatcher(nil)
	c := newFakeContext()
	BeginUpdate(c)

	require.NoError(t, SendText(c, "plain"))
	require.NoError(t, SendWithMarkup(c, "with keyboard", &tele.ReplyMarkup{}))

	n, kb := Replies(c)
	assert.Equal(t, 2, n)
	assert.True(t, kb)
	assert.Equal(t, []interface{}{"plain", "with keyboard"}, c.sent)
}

func TestSendReturnsErrorWithoutDispatcher(t *testing.T) {
	SetDispatcher(nil)
	c := newFakeContext()
	c.err = errors.New("blocked")

	assert.EqualError(t, SendText(c, "hi"), "blocked")
	n, _ := Replies(c)
	assert.Zero(t, n, "no scope, nothing counted")
}
