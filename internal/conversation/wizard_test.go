package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/sheetsbot/core/telegram/state"
	"github.com/m3rciful/sheetsbot/internal/categories"
	"github.com/m3rciful/sheetsbot/internal/kv/memstore"
	"github.com/m3rciful/sheetsbot/internal/ledger"
)

type sent struct {
	Text   string
	Markup *Markup
}

type recorder struct {
	mu   sync.Mutex
	msgs []sent
}

func (r *recorder) Reply(_ context.Context, text string, markup *Markup) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, sent{Text: text, Markup: markup})
	return nil
}

func (r *recorder) last() sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.msgs[len(r.msgs)-1]
}

type fakeLedger struct {
	mu     sync.Mutex
	got    []ledger.Transaction
	err    error
	writes int
}

func (l *fakeLedger) AddTransaction(_ context.Context, tx ledger.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.got = append(l.got, tx)
	if l.err != nil {
		return l.err
	}
	if tx.Expense() {
		l.writes++
	}
	return nil
}

type harness struct {
	wizard   *Wizard
	sessions state.Manager
	ledger   *fakeLedger
	cache    *categories.Cache
	store    *memstore.Store
	reply    *recorder
}

func newHarness(known ...string) *harness {
	store := memstore.New()
	source := categories.SourceFunc(func(context.Context) ([]string, error) { return known, nil })
	h := &harness{
		sessions: state.NewMemoryManager(),
		ledger:   &fakeLedger{},
		cache:    categories.New(store, source, ""),
		store:    store,
		reply:    &recorder{},
	}
	h.wizard = New(h.sessions, h.ledger, h.cache)
	return h
}

func (h *harness) say(t *testing.T, userID int64, text string) {
	t.Helper()
	require.NoError(t, h.wizard.Dispatch(context.Background(), Request{SenderID: userID, Text: text}, h.reply))
}

func (h *harness) start(t *testing.T, userID int64) {
	t.Helper()
	require.NoError(t, h.wizard.Start(context.Background(), Request{SenderID: userID, Text: "/start"}, h.reply))
}

func TestStartPromptsForType(t *testing.T) {
	h := newHarness()
	h.start(t, 1)

	assert.Equal(t, StateType, h.sessions.GetState(1))
	assert.Equal(t, sent{Text: PromptType, Markup: &Markup{Rows: [][]string{{"Income", "Expense"}}}}, h.reply.last())
}

func TestTypeStepSetsExpenseOnlyForExactLabel(t *testing.T) {
	cases := map[string]bool{"Expense": true, "Income": false, "expense": false, "anything": false, "": false}
	for text, want := range cases {
		h := newHarness("Food")
		h.start(t, 1)
		h.say(t, 1, text)

		assert.Equal(t, StateCategory, h.sessions.GetState(1), "text %q", text)
		tx := h.wizard.transaction(1)
		require.NotNil(t, tx.IsExpense)
		assert.Equal(t, want, *tx.IsExpense, "text %q", text)
	}
}

func TestTypeStepShowsCategoryKeyboard(t *testing.T) {
	h := newHarness("Food", "Taxi", "Rent", "Gym")
	h.start(t, 1)
	h.say(t, 1, "Expense")

	assert.Equal(t, sent{
		Text:   PromptCategory,
		Markup: &Markup{Rows: [][]string{{"Food", "Taxi", "Rent"}, {"Gym"}}},
	}, h.reply.last())
}

func TestTypeStepAdvancesWhenKeyboardFails(t *testing.T) {
	h := newHarness()
	h.wizard = New(h.sessions, h.ledger, categories.New(nil, nil, ""))
	h.start(t, 1)
	h.say(t, 1, "Expense")

	assert.Equal(t, StateCategory, h.sessions.GetState(1))
	assert.Equal(t, sent{Text: PromptCategory}, h.reply.last())
}

func TestCategoryStepRegistersAndRemovesKeyboard(t *testing.T) {
	h := newHarness("Food")
	h.start(t, 1)
	h.say(t, 1, "Expense")
	h.say(t, 1, "Books")

	assert.Equal(t, StateAmount, h.sessions.GetState(1))
	assert.Equal(t, sent{Text: PromptAmount, Markup: &Markup{Remove: true}}, h.reply.last())
	assert.Equal(t, []string{"Food", "Books"}, h.cache.Items())
}

func TestCategoryStepAdvancesWhenRegisterFails(t *testing.T) {
	h := newHarness("Food")
	h.start(t, 1)
	h.say(t, 1, "Expense")

	h.store.SetHook = func(string, string) error { return errors.New("redis down") }
	h.say(t, 1, "Books")

	assert.Equal(t, StateAmount, h.sessions.GetState(1))
	assert.Equal(t, []string{"Food"}, h.cache.Items())
	tx := h.wizard.transaction(1)
	require.NotNil(t, tx.Category)
	assert.Equal(t, "Books", *tx.Category)
}

func TestAmountValidation(t *testing.T) {
	for _, bad := range []string{"12a", "", "-5", "3.5", " 7", "١٢"} {
		h := newHarness("Food")
		h.start(t, 1)
		h.say(t, 1, "Expense")
		h.say(t, 1, "Food")
		h.say(t, 1, bad)

		assert.Equal(t, StateAmount, h.sessions.GetState(1), "input %q", bad)
		assert.Equal(t, sent{Text: PromptAmount}, h.reply.last(), "input %q", bad)
		assert.Nil(t, h.wizard.transaction(1).Amount, "input %q", bad)
	}

	h := newHarness("Food")
	h.start(t, 1)
	h.say(t, 1, "Expense")
	h.say(t, 1, "Food")
	h.say(t, 1, "0042")
	assert.Equal(t, StateDescription, h.sessions.GetState(1))
	assert.Equal(t, sent{Text: PromptDescription}, h.reply.last())
	amount := h.wizard.transaction(1).Amount
	require.NotNil(t, amount)
	assert.True(t, amount.Equal(decimal.NewFromInt(42)))
}

func TestExpenseCycle(t *testing.T) {
	h := newHarness()
	h.start(t, 7)
	for _, text := range []string{"Expense", "Food", "250", "Lunch"} {
		h.say(t, 7, text)
	}

	require.Len(t, h.ledger.got, 1)
	tx := h.ledger.got[0]
	assert.True(t, *tx.IsExpense)
	assert.Equal(t, "Food", *tx.Category)
	assert.True(t, tx.Amount.Equal(decimal.NewFromFloat(250.0)))
	assert.Equal(t, "Lunch", *tx.Description)
	assert.Equal(t, 1, h.ledger.writes)

	assert.Contains(t, h.cache.Items(), "Food")
	assert.Equal(t, StateType, h.sessions.GetState(7))
	assert.Equal(t, ledger.Transaction{}, h.wizard.transaction(7), "fields reset after the write")
	assert.Equal(t, PromptType, h.reply.last().Text)
}

func TestIncomeCycleWritesNothing(t *testing.T) {
	h := newHarness()
	h.start(t, 7)
	for _, text := range []string{"Income", "Salary", "100", "desc"} {
		h.say(t, 7, text)
	}

	require.Len(t, h.ledger.got, 1)
	assert.False(t, *h.ledger.got[0].IsExpense)
	assert.Zero(t, h.ledger.writes)
	assert.Equal(t, StateType, h.sessions.GetState(7))
}

type sheetStub struct {
	columns map[int][]string
	writes  int
}

func (s *sheetStub) OpenSheet(context.Context, string) (ledger.Worksheet, error) { return s, nil }

func (s *sheetStub) ColumnValues(_ context.Context, col int) ([]string, error) {
	return s.columns[col], nil
}

func (s *sheetStub) UpdateCell(context.Context, int, int, any) error {
	s.writes++
	return nil
}

func TestIncomeCycleWithEmptyIncomeColumn(t *testing.T) {
	sheet := &sheetStub{columns: map[int][]string{ledger.DefaultTransactionsColumn: {"h1", "h2", "Food"}}}
	l := ledger.New(sheet, ledger.Config{Location: time.UTC})
	sessions := state.NewMemoryManager()
	cache := categories.New(memstore.New(), l, "")
	w := New(sessions, l, cache)
	reply := &recorder{}
	ctx := context.Background()

	require.NoError(t, w.Start(ctx, Request{SenderID: 5}, reply))
	for _, text := range []string{"Income", "Salary", "100", "desc"} {
		require.NoError(t, w.Dispatch(ctx, Request{SenderID: 5, Text: text}, reply))
	}

	assert.Zero(t, sheet.writes)
	assert.Equal(t, StateType, sessions.GetState(5))
	assert.Equal(t, PromptType, reply.last().Text)
}

func TestLedgerFailureKeepsDescriptionStep(t *testing.T) {
	h := newHarness()
	h.ledger.err = ledger.ErrWorksheetNotFound
	h.start(t, 3)
	for _, text := range []string{"Expense", "Food", "10"} {
		h.say(t, 3, text)
	}
	replies := len(h.reply.msgs)

	err := h.wizard.Dispatch(context.Background(), Request{SenderID: 3, Text: "Lunch"}, h.reply)
	assert.ErrorIs(t, err, ledger.ErrWorksheetNotFound)
	assert.Equal(t, StateDescription, h.sessions.GetState(3))
	assert.Len(t, h.reply.msgs, replies, "no message on a failed write")

	h.ledger.err = nil
	h.say(t, 3, "Lunch")
	assert.Equal(t, StateType, h.sessions.GetState(3))
	assert.Equal(t, 1, h.ledger.writes)
}

func TestIdleSenderIsIgnored(t *testing.T) {
	h := newHarness()
	h.say(t, 9, "hello")
	assert.Empty(t, h.reply.msgs)
	assert.Equal(t, state.StateIdle, h.sessions.GetState(9))
}

func TestStartResetsDraftMidway(t *testing.T) {
	h := newHarness()
	h.start(t, 1)
	h.say(t, 1, "Expense")
	h.say(t, 1, "Food")
	h.start(t, 1)

	assert.Equal(t, StateType, h.sessions.GetState(1))
	assert.Equal(t, ledger.Transaction{}, h.wizard.transaction(1))
}

func TestUsersAreIndependent(t *testing.T) {
	h := newHarness()
	h.start(t, 1)
	h.start(t, 2)
	h.say(t, 1, "Expense")

	assert.Equal(t, StateCategory, h.sessions.GetState(1))
	assert.Equal(t, StateType, h.sessions.GetState(2))
}

func TestConcurrentUsers(t *testing.T) {
	h := newHarness()
	var wg sync.WaitGroup
	for id := int64(1); id <= 20; id++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			ctx := context.Background()
			_ = h.wizard.Start(ctx, Request{SenderID: id}, h.reply)
			for _, text := range []string{"Expense", "Food", "5", "x"} {
				assert.NoError(t, h.wizard.Dispatch(ctx, Request{SenderID: id, Text: text}, h.reply))
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 20, h.ledger.writes)
	assert.Equal(t, []string{"Food"}, h.cache.Items())
	assert.Empty(t, h.wizard.locks, "per-user locks are released")
}

func TestUserLockIsReleased(t *testing.T) {
	h := newHarness()
	unlock := h.wizard.lock(4)
	assert.Len(t, h.wizard.locks, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.wizard.lock(4)()
	}()
	unlock()
	<-done

	assert.Empty(t, h.wizard.locks)
}

func TestParseAmount(t *testing.T) {
	d, ok := ParseAmount("250")
	require.True(t, ok)
	assert.Equal(t, "250", d.String())

	_, ok = ParseAmount("2,50")
	assert.False(t, ok)
}

func TestStatesOrder(t *testing.T) {
	assert.Equal(t, []state.State{"type", "category", "amount", "description"}, States())
}
