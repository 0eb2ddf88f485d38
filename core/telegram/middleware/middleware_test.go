package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tghelpers "github.com/m3rciful/sheetsbot/core/telegram/helpers"
)

type fakeContext struct {
	tele.Context
	userID int64
	text   string
	store  map[string]interface{}
}

func newFakeContext(userID int64, text string) *fakeContext {
	return &fakeContext{userID: userID, text: text, store: map[string]interface{}{}}
}

func (f *fakeContext) Sender() *tele.User {
	if f.userID == 0 {
		return nil
	}
	return &tele.User{ID: f.userID}
}
func (f *fakeContext) Chat() *tele.Chat { return &tele.Chat{ID: f.userID, Type: tele.ChatPrivate} }
func (f *fakeContext) Update() tele.Update {
	return tele.Update{ID: 1, Message: &tele.Message{Text: f.text}}
}
func (f *fakeContext) Text() string                  { return f.text }
func (f *fakeContext) Get(key string) interface{}    { return f.store[key] }
func (f *fakeContext) Set(key string, v interface{}) { f.store[key] = v }

func counting(n *int) tele.HandlerFunc {
	return func(tele.Context) error {
		*n++
		return nil
	}
}

func TestAdminOnly(t *testing.T) {
	var calls, rejected int
	mw := AdminOnlyMiddleware(AdminOptions{AdminID: 7, OnReject: counting(&rejected)})
	h := mw(counting(&calls))

	require.NoError(t, h(newFakeContext(7, "hi")))
	require.NoError(t, h(newFakeContext(8, "hi")))
	require.NoError(t, h(newFakeContext(0, "hi")))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, rejected)

	open := AdminOnlyMiddleware(AdminOptions{})(counting(&calls))
	require.NoError(t, open(newFakeContext(8, "hi")))
	assert.Equal(t, 2, calls, "zero admin id disables the check")
}

func TestLogRejectedDoesNotReply(t *testing.T) {
	assert.NoError(t, LogRejected(newFakeContext(8, "hi")))
}

func TestRateLimit(t *testing.T) {
	var calls, limited int
	mw := RateLimitMiddleware(RateLimitOptions{Interval: time.Hour, OnLimited: counting(&limited)})
	h := mw(counting(&calls))

	require.NoError(t, h(newFakeContext(1, "a")))
	require.NoError(t, h(newFakeContext(1, "b")))
	require.NoError(t, h(newFakeContext(2, "c")))
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, limited)
}

func TestRateLimitExcludedKind(t *testing.T) {
	var calls int
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval: time.Hour,
		Exclude:  map[string]struct{}{"message": {}},
	})
	h := mw(counting(&calls))
	for i := 0; i < 3; i++ {
		require.NoError(t, h(newFakeContext(1, "a")))
	}
	assert.Equal(t, 3, calls)
}

func TestRecoverSwallowsPanic(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	assert.NotPanics(t, func() {
		assert.NoError(t, h(newFakeContext(1, "x")))
	})
}

func TestLoggerMiddlewareAttachesScope(t *testing.T) {
	c := newFakeContext(5, "/start now")
	var inner bool
	h := LoggerMiddleware(LoggerMiddleware(func(c tele.Context) error {
		_, fresh := tghelpers.BeginUpdate(c)
		inner = !fresh
		return nil
	}))
	require.NoError(t, h(c))
	assert.True(t, inner, "scope created by the outer pass")

	attrs := receiptAttrs(c)
	var keys []string
	for _, a := range attrs {
		keys = append(keys, a.Key)
	}
	assert.Contains(t, keys, "command")
	assert.NotContains(t, keys, "text_len")
}
