package state

import tele "gopkg.in/telebot.v4"

// State names a conversation step.
type State string

// StateIdle means the user has no conversation in progress.
const StateIdle State = "idle"

// Session is a user's current step plus values the steps hand to each other.
type Session struct {
	State    State
	TempData map[string]interface{}
}

// Manager keeps sessions keyed by Telegram user ID and routes text updates to
// the handler bound to the sender's current state.
type Manager interface {
	SetTemp(userID int64, key string, value interface{})
	GetTemp(userID int64, key string) (interface{}, bool)
	ClearTemp(userID int64, key string)

	SetState(userID int64, st State)
	GetState(userID int64) State
	InProgress(userID int64) bool

	Handle(st State, h tele.HandlerFunc)
	ManagerHandler(c tele.Context) error
}
