package report

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// Overview computes income, expense and balance totals for the resolved
// period. The three aggregates are independent read-only queries and run
// concurrently; the result composes only after all of them finish.
func (e *Engine) Overview(ctx context.Context, userID string, filters core.Filters) (Overview, error) {
	rng := core.ResolveRange(e.now(), filters)
	base := e.baseFilter(userID, rng, filters)
	base.CategoryID = filters.CategoryID

	var (
		income  store.AmountTotal
		expense store.AmountTotal
		total   int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		f := base
		f.Type = core.Income
		var err error
		if income, err = e.transactions.TotalAmount(gctx, f); err != nil {
			return fmt.Errorf("sum income: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		f := base
		f.Type = core.Expense
		var err error
		if expense, err = e.transactions.TotalAmount(gctx, f); err != nil {
			return fmt.Errorf("sum expense: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if total, err = e.transactions.CountTransactions(gctx, base); err != nil {
			return fmt.Errorf("count transactions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}

	return Overview{
		Period: rng,
		Summary: OverviewSummary{
			TotalIncome:       income.Sum,
			TotalExpense:      expense.Sum,
			Balance:           income.Sum.Sub(expense.Sum),
			TotalTransactions: total,
			IncomeCount:       income.Count,
			ExpenseCount:      expense.Count,
		},
	}, nil
}
