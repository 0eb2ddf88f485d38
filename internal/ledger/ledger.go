package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/sheetsbot/core/logger"
)

const (
	// DefaultTransactionsColumn is column G of the monthly worksheet.
	DefaultTransactionsColumn = 7
	// DefaultIncomeColumn is column A of the monthly worksheet.
	DefaultIncomeColumn = 1
	// DefaultHeaderRows are skipped when reading categories.
	DefaultHeaderRows = 2
	// UnknownCategory is written when a transaction has no category.
	UnknownCategory = "Unknown"
)

// Config controls where transactions land in the worksheet.
type Config struct {
	TransactionsColumn int
	IncomeColumn       int
	// HeaderRows defaults to DefaultHeaderRows when nil. An explicit 0 reads from the first row.
	HeaderRows *int
	// RowOffset is added to the column count to get the target row.
	RowOffset int
	Location  *time.Location
}

func (c Config) withDefaults() Config {
	if c.TransactionsColumn <= 0 {
		c.TransactionsColumn = DefaultTransactionsColumn
	}
	if c.IncomeColumn <= 0 {
		c.IncomeColumn = DefaultIncomeColumn
	}
	switch {
	case c.HeaderRows == nil:
		c.HeaderRows = ptr(DefaultHeaderRows)
	case *c.HeaderRows < 0:
		c.HeaderRows = ptr(0)
	}
	if c.Location == nil {
		c.Location = time.Local
	}
	return c
}

func ptr[T any](v T) *T { return &v }

// Ledger writes transactions to and reads categories from the monthly worksheet.
type Ledger struct {
	store Store
	cfg   Config
	now   func() time.Time
}

// Option customizes a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source used to pick the monthly worksheet.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// New returns a Ledger backed by store.
func New(store Store, cfg Config, opts ...Option) *Ledger {
	l := &Ledger{store: store, cfg: cfg.withDefaults(), now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CurrentWorksheet returns the title of the worksheet used right now.
func (l *Ledger) CurrentWorksheet() string {
	return WorksheetName(l.now().In(l.cfg.Location))
}

func (l *Ledger) open(ctx context.Context) (Worksheet, string, error) {
	if l == nil || l.store == nil {
		return nil, "", errors.New("ledger: no store configured")
	}
	name := l.CurrentWorksheet()
	ws, err := l.store.OpenSheet(ctx, name)
	if err != nil {
		return nil, name, fmt.Errorf("ledger: open %q: %w", name, err)
	}
	return ws, name, nil
}

// AddTransaction appends an expense to the current month's worksheet.
// The target row is the number of values already present in the target column plus RowOffset.
// Income transactions are accepted but not written.
func (l *Ledger) AddTransaction(ctx context.Context, tx Transaction) error {
	start := time.Now()
	ws, name, err := l.open(ctx)
	if err != nil {
		logger.Error(ctx, "ledger", "ledger.write",
			slog.String("status", "fail"),
			slog.String("sheet", name),
			slog.String("err", err.Error()),
		)
		return err
	}

	col := l.cfg.IncomeColumn
	if tx.Expense() {
		col = l.cfg.TransactionsColumn
	}
	values, err := ws.ColumnValues(ctx, col)
	if err != nil {
		return fmt.Errorf("ledger: read column %d of %q: %w", col, name, err)
	}
	row := len(values) + l.cfg.RowOffset

	if !tx.Expense() {
		logger.Info(ctx, "ledger", "ledger.write",
			slog.String("status", "skip"),
			slog.String("reason", "income"),
			slog.String("sheet", name),
			slog.Int("row", row),
		)
		return nil
	}
	if row < 1 {
		return fmt.Errorf("ledger: computed row %d in %q is out of range", row, name)
	}

	category := UnknownCategory
	if tx.Category != nil {
		category = *tx.Category
	}
	var amount float64
	if tx.Amount != nil {
		amount = tx.Amount.InexactFloat64()
	}
	description := ""
	if tx.Description != nil {
		description = *tx.Description
	}

	cells := []any{category, amount, description}
	for i, v := range cells {
		if err := ws.UpdateCell(ctx, row, col+i, v); err != nil {
			return fmt.Errorf("ledger: write row %d column %d of %q: %w", row, col+i, name, err)
		}
	}

	logger.Info(ctx, "ledger", "ledger.write",
		slog.String("status", "ok"),
		slog.String("sheet", name),
		slog.Int("row", row),
		slog.Int("column", col),
		slog.String("category", category),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return nil
}

// Categories returns the distinct non-blank values of the transactions column below the
// header rows, in first-seen order.
func (l *Ledger) Categories(ctx context.Context) ([]string, error) {
	ws, name, err := l.open(ctx)
	if err != nil {
		return nil, err
	}
	values, err := ws.ColumnValues(ctx, l.cfg.TransactionsColumn)
	if err != nil {
		return nil, fmt.Errorf("ledger: read categories from %q: %w", name, err)
	}
	skip := *l.cfg.HeaderRows
	if len(values) <= skip {
		return nil, nil
	}

	seen := make(map[string]struct{})
	var out []string
	for _, v := range values[skip:] {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	logger.Debug(ctx, "ledger", "ledger.categories",
		slog.String("sheet", name),
		slog.Int("items", len(out)),
	)
	return out, nil
}
