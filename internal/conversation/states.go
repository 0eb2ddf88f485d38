package conversation

import (
	"github.com/m3rciful/sheetsbot/core/telegram/state"
	"github.com/m3rciful/sheetsbot/internal/ledger"
)

// Conversation steps. They always advance in this order and wrap around after a write.
const (
	StateType        state.State = "type"
	StateCategory    state.State = "category"
	StateAmount      state.State = "amount"
	StateDescription state.State = "description"
)

// Prompts sent to the user.
const (
	PromptType        = "Выберите тип"
	PromptCategory    = "Выберите категорию"
	PromptAmount      = "Введите сумму"
	PromptDescription = "Введите описание"
)

// States lists every step in order.
func States() []state.State {
	return []state.State{StateType, StateCategory, StateAmount, StateDescription}
}

// TypeKeyboard is the fixed keyboard shown with PromptType.
func TypeKeyboard() [][]string {
	return [][]string{{ledger.IncomeLabel, ledger.ExpenseLabel}}
}
