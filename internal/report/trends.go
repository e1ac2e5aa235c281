package report

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// maxTrendMonths bounds the fan-out: each month costs two aggregate
// queries, so an uncapped value would let a single request spawn an
// arbitrary number of store calls.
const maxTrendMonths = 120

// MonthlyTrends returns exactly months entries, oldest first, ending at
// the current calendar month. Unlike the other aggregators each month is
// a closed interval with a hard upper bound: the last instant of the
// month, both ends inclusive.
func (e *Engine) MonthlyTrends(ctx context.Context, userID string, months int) ([]MonthlyTrend, error) {
	if months < 1 || months > maxTrendMonths {
		return nil, core.ErrInvalidMonths
	}

	now := e.now()
	trends := make([]MonthlyTrend, months)

	// The per-month income and expense sums are all independent; fan
	// them out and compose once every query finished.
	g, gctx := errgroup.WithContext(ctx)
	for i := months - 1; i >= 0; i-- {
		start, end := core.MonthBounds(now, i)
		idx := months - 1 - i
		g.Go(func() error {
			var income, expense store.AmountTotal

			mg, mctx := errgroup.WithContext(gctx)
			mg.Go(func() error {
				var err error
				income, err = e.transactions.TotalAmount(mctx, store.TransactionFilter{
					UserID: userID, Type: core.Income, From: start, To: end,
				})
				return err
			})
			mg.Go(func() error {
				var err error
				expense, err = e.transactions.TotalAmount(mctx, store.TransactionFilter{
					UserID: userID, Type: core.Expense, From: start, To: end,
				})
				return err
			})
			if err := mg.Wait(); err != nil {
				return fmt.Errorf("aggregate month %s: %w", start.Format("2006-01"), err)
			}

			trends[idx] = MonthlyTrend{
				Month:   start.Format("2006-01"),
				Income:  income.Sum,
				Expense: expense.Sum,
				Balance: income.Sum.Sub(expense.Sum),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return trends, nil
}
