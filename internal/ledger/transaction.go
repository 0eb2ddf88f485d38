package ledger

import "github.com/shopspring/decimal"

const (
	// ExpenseLabel is the type button that marks a transaction as an expense.
	ExpenseLabel = "Expense"
	// IncomeLabel is the other type button. Any text other than ExpenseLabel means income.
	IncomeLabel = "Income"
)

// Transaction is one entry collected by the conversation. Nil fields have not been entered yet.
type Transaction struct {
	IsExpense   *bool
	Category    *string
	Amount      *decimal.Decimal
	Description *string
}

// Reset clears every field so the value can be reused for the next entry.
func (t *Transaction) Reset() {
	*t = Transaction{}
}

// Expense reports whether the transaction is known to be an expense.
func (t Transaction) Expense() bool {
	return t.IsExpense != nil && *t.IsExpense
}

// IsExpenseLabel reports whether text selects the expense type. The comparison is exact.
func IsExpenseLabel(text string) bool {
	return text == ExpenseLabel
}
