package state

import (
	"log/slog"
	"sync"

	"github.com/m3rciful/sheetsbot/core/logger"
	tghelpers "github.com/m3rciful/sheetsbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

type memoryManager struct {
	mu       sync.RWMutex
	sessions map[int64]*Session

	hmu      sync.RWMutex
	handlers map[State]tele.HandlerFunc
}

// NewMemoryManager returns a Manager backed by process memory.
func NewMemoryManager() Manager {
	return &memoryManager{
		sessions: make(map[int64]*Session),
		handlers: make(map[State]tele.HandlerFunc),
	}
}

// update runs fn on the user's session, creating an idle one first if needed.
func (m *memoryManager) update(userID int64, fn func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[userID]
	if !ok {
		sess = &Session{State: StateIdle, TempData: make(map[string]interface{})}
		m.sessions[userID] = sess
	}
	fn(sess)
}

// view runs fn on the user's session if one exists and reports whether it did.
func (m *memoryManager) view(userID int64, fn func(*Session)) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[userID]
	if ok {
		fn(sess)
	}
	return ok
}

func (m *memoryManager) SetTemp(userID int64, key string, value interface{}) {
	m.update(userID, func(s *Session) { s.TempData[key] = value })
}

func (m *memoryManager) GetTemp(userID int64, key string) (val interface{}, ok bool) {
	m.view(userID, func(s *Session) { val, ok = s.TempData[key] })
	return val, ok
}

func (m *memoryManager) ClearTemp(userID int64, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		delete(s.TempData, key)
	}
}

func (m *memoryManager) SetState(userID int64, st State) {
	m.update(userID, func(s *Session) { s.State = st })
}

func (m *memoryManager) GetState(userID int64) State {
	st := StateIdle
	m.view(userID, func(s *Session) { st = s.State })
	return st
}

func (m *memoryManager) InProgress(userID int64) bool {
	return m.GetState(userID) != StateIdle
}

// Handle binds h to st. A nil handler is ignored.
func (m *memoryManager) Handle(st State, h tele.HandlerFunc) {
	if h == nil {
		return
	}
	m.hmu.Lock()
	defer m.hmu.Unlock()
	m.handlers[st] = h
}

// ManagerHandler runs the handler bound to the sender's state. Updates in a
// state without a handler are dropped.
func (m *memoryManager) ManagerHandler(c tele.Context) error {
	current := m.GetState(c.Sender().ID)

	m.hmu.RLock()
	h, ok := m.handlers[current]
	m.hmu.RUnlock()

	status := logger.StatusOK
	if !ok {
		status = logger.StatusSkip
	}
	logger.Debug(tghelpers.BuildContext(c), "tg", "fsm.dispatch",
		slog.String("status", status),
		slog.String("state", string(current)),
	)
	if !ok {
		return nil
	}
	return h(c)
}
