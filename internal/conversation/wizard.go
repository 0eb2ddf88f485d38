// Package conversation drives the per-user dialog that collects one transaction at a time.
package conversation

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/m3rciful/sheetsbot/core/logger"
	"github.com/m3rciful/sheetsbot/core/telegram/state"
	"github.com/m3rciful/sheetsbot/internal/ledger"
)

const transactionKey = "transaction"

// Request is a single incoming text message.
type Request struct {
	SenderID int64
	Text     string
}

// Markup describes the keyboard attached to a reply. A nil *Markup leaves the keyboard as is.
type Markup struct {
	Rows   [][]string
	Remove bool
}

// Replier sends a message back to the sender of the current request.
type Replier interface {
	Reply(ctx context.Context, text string, markup *Markup) error
}

// ReplierFunc adapts a function to Replier.
type ReplierFunc func(ctx context.Context, text string, markup *Markup) error

// Reply calls f.
func (f ReplierFunc) Reply(ctx context.Context, text string, markup *Markup) error {
	return f(ctx, text, markup)
}

// Sessions stores the step and the draft transaction of each user.
type Sessions interface {
	SetState(userID int64, st state.State)
	GetState(userID int64) state.State
	SetTemp(userID int64, key string, value interface{})
	GetTemp(userID int64, key string) (interface{}, bool)
	ClearTemp(userID int64, key string)
}

// Ledger receives completed transactions.
type Ledger interface {
	AddTransaction(ctx context.Context, tx ledger.Transaction) error
}

// Categories provides the category keyboard and learns new categories.
type Categories interface {
	Keyboard(ctx context.Context) ([][]string, error)
	Register(ctx context.Context, name string) (bool, error)
}

type stepFunc func(ctx context.Context, req Request, tx *ledger.Transaction, reply Replier) (state.State, error)

// Wizard runs the conversation. Messages of one user are handled one at a time.
type Wizard struct {
	sessions   Sessions
	ledger     Ledger
	categories Categories
	steps      map[state.State]stepFunc

	locksMu sync.Mutex
	locks   map[int64]*userLock
}

// New wires a wizard to its collaborators.
func New(sessions Sessions, l Ledger, c Categories) *Wizard {
	w := &Wizard{
		sessions:   sessions,
		ledger:     l,
		categories: c,
		locks:      make(map[int64]*userLock),
	}
	w.steps = map[state.State]stepFunc{
		StateType:        w.handleType,
		StateCategory:    w.handleCategory,
		StateAmount:      w.handleAmount,
		StateDescription: w.handleDescription,
	}
	return w
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// lock serializes work for userID. The entry is dropped once no caller holds or waits on it.
func (w *Wizard) lock(userID int64) func() {
	w.locksMu.Lock()
	l, ok := w.locks[userID]
	if !ok {
		l = &userLock{}
		w.locks[userID] = l
	}
	l.refs++
	w.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		w.locksMu.Lock()
		if l.refs--; l.refs == 0 {
			delete(w.locks, userID)
		}
		w.locksMu.Unlock()
	}
}

func (w *Wizard) transaction(userID int64) ledger.Transaction {
	if v, ok := w.sessions.GetTemp(userID, transactionKey); ok {
		if tx, ok := v.(ledger.Transaction); ok {
			return tx
		}
	}
	return ledger.Transaction{}
}

// saveDraft stores tx, or drops the entry once the draft has been reset.
func (w *Wizard) saveDraft(userID int64, tx ledger.Transaction) {
	if tx == (ledger.Transaction{}) {
		w.sessions.ClearTemp(userID, transactionKey)
		return
	}
	w.sessions.SetTemp(userID, transactionKey, tx)
}

// Start discards any draft, moves the user to the type step and asks for the type.
func (w *Wizard) Start(ctx context.Context, req Request, reply Replier) error {
	defer w.lock(req.SenderID)()

	w.sessions.ClearTemp(req.SenderID, transactionKey)
	prev := w.sessions.GetState(req.SenderID)
	w.sessions.SetState(req.SenderID, StateType)
	logTransition(ctx, req.SenderID, prev, StateType)
	return reply.Reply(ctx, PromptType, &Markup{Rows: TypeKeyboard()})
}

// Dispatch runs the step the sender is currently in. Senders without an active
// conversation are ignored.
func (w *Wizard) Dispatch(ctx context.Context, req Request, reply Replier) error {
	defer w.lock(req.SenderID)()

	current := w.sessions.GetState(req.SenderID)
	step, ok := w.steps[current]
	if !ok {
		logger.Debug(ctx, "conversation", "conversation.skip",
			slog.Int64("user_id", req.SenderID),
			slog.String("state", string(current)),
		)
		return nil
	}

	tx := w.transaction(req.SenderID)
	next, err := step(ctx, req, &tx, reply)
	w.saveDraft(req.SenderID, tx)
	// A failed reply does not undo a step that already took effect.
	if next != current {
		w.sessions.SetState(req.SenderID, next)
		logTransition(ctx, req.SenderID, current, next)
	}
	return err
}

func (w *Wizard) handleType(ctx context.Context, req Request, tx *ledger.Transaction, reply Replier) (state.State, error) {
	isExpense := ledger.IsExpenseLabel(req.Text)
	tx.IsExpense = &isExpense

	var markup *Markup
	rows, err := w.categories.Keyboard(ctx)
	if err != nil {
		logger.Warn(ctx, "conversation", "conversation.keyboard",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	} else {
		markup = &Markup{Rows: rows}
	}
	return StateCategory, reply.Reply(ctx, PromptCategory, markup)
}

func (w *Wizard) handleCategory(ctx context.Context, req Request, tx *ledger.Transaction, reply Replier) (state.State, error) {
	category := req.Text
	tx.Category = &category
	if category != "" {
		if _, err := w.categories.Register(ctx, category); err != nil {
			logger.Warn(ctx, "conversation", "conversation.register",
				slog.String("status", "fail"),
				slog.String("category", category),
				slog.String("err", err.Error()),
			)
		}
	}
	return StateAmount, reply.Reply(ctx, PromptAmount, &Markup{Remove: true})
}

func (w *Wizard) handleAmount(ctx context.Context, req Request, tx *ledger.Transaction, reply Replier) (state.State, error) {
	amount, ok := ParseAmount(req.Text)
	if !ok {
		logger.Debug(ctx, "conversation", "conversation.amount",
			slog.String("status", "skip"),
			slog.String("reason", "invalid"),
		)
		return StateAmount, reply.Reply(ctx, PromptAmount, nil)
	}
	tx.Amount = &amount
	return StateDescription, reply.Reply(ctx, PromptDescription, nil)
}

func (w *Wizard) handleDescription(ctx context.Context, req Request, tx *ledger.Transaction, reply Replier) (state.State, error) {
	description := req.Text
	tx.Description = &description
	if w.ledger == nil {
		return StateDescription, errors.New("conversation: no ledger configured")
	}
	if err := w.ledger.AddTransaction(ctx, *tx); err != nil {
		return StateDescription, err
	}
	tx.Reset()
	return StateType, reply.Reply(ctx, PromptType, &Markup{Rows: TypeKeyboard()})
}

// ParseAmount accepts a non-empty string of ASCII digits.
func ParseAmount(text string) (decimal.Decimal, bool) {
	if text == "" {
		return decimal.Decimal{}, false
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return decimal.Decimal{}, false
		}
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

func logTransition(ctx context.Context, userID int64, from, to state.State) {
	logger.Info(ctx, "conversation", "conversation.transition",
		slog.Int64("user_id", userID),
		slog.String("state", string(from)),
		slog.String("next_state", string(to)),
	)
}
