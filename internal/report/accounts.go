package report

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// AccountBalances lists every account the user owns together with its
// month-to-date signed change and lifetime transaction count.
//
// The month change sums transactions dated on or after the first day of
// the current calendar month with no upper bound, so future-dated
// transactions count too; this is a current-trend view, not a closed
// period. The change is never validated against the stored balance —
// divergence is expected when balances were adjusted out-of-band.
// TotalBalance sums stored balances, not recomputed history.
func (e *Engine) AccountBalances(ctx context.Context, userID string) (AccountBalances, error) {
	accounts, err := e.accounts.ListAccounts(ctx, userID)
	if err != nil {
		return AccountBalances{}, fmt.Errorf("list accounts: %w", err)
	}

	startOfMonth := core.StartOfMonth(e.now())
	rows := make([]AccountRow, len(accounts))

	// Per-account sub-computations are independent and run concurrently.
	// Any single failure fails the whole request; partial results are
	// never returned.
	g, gctx := errgroup.WithContext(ctx)
	for i, account := range accounts {
		g.Go(func() error {
			change, err := e.transactions.SignedSum(gctx, store.TransactionFilter{
				UserID:    userID,
				AccountID: account.ID,
				From:      startOfMonth,
			})
			if err != nil {
				return fmt.Errorf("month change for account %s: %w", account.ID, err)
			}
			lifetime, err := e.transactions.CountTransactions(gctx, store.TransactionFilter{
				UserID:    userID,
				AccountID: account.ID,
			})
			if err != nil {
				return fmt.Errorf("transaction count for account %s: %w", account.ID, err)
			}
			rows[i] = AccountRow{
				Account:          account,
				MonthChange:      change,
				TransactionCount: lifetime,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return AccountBalances{}, err
	}

	totalBalance := decimal.Zero
	totalChange := decimal.Zero
	for _, row := range rows {
		totalBalance = totalBalance.Add(row.Balance)
		totalChange = totalChange.Add(row.MonthChange)
	}

	return AccountBalances{
		Accounts: rows,
		Summary: AccountSummary{
			TotalBalance:     totalBalance,
			TotalMonthChange: totalChange,
			AccountCount:     len(rows),
		},
	}, nil
}
