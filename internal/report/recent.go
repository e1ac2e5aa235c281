package report

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

const defaultRecentLimit = 10

// RecentTransactions returns the user's newest transactions with category
// and account metadata attached. A limit of zero means the default of 10;
// negative limits are a client-input error. Dangling references resolve
// to nil metadata.
func (e *Engine) RecentTransactions(ctx context.Context, userID string, limit int) ([]TransactionDetail, error) {
	if limit < 0 {
		return nil, core.ErrInvalidLimit
	}
	if limit == 0 {
		limit = defaultRecentLimit
	}

	transactions, err := e.transactions.RecentTransactions(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}

	seen := map[string]bool{}
	var categoryIDs []string
	for _, t := range transactions {
		if t.CategoryID != nil && !seen[*t.CategoryID] {
			seen[*t.CategoryID] = true
			categoryIDs = append(categoryIDs, *t.CategoryID)
		}
	}
	categories := map[string]core.Category{}
	if len(categoryIDs) > 0 {
		resolved, err := e.categories.GetCategoriesByIDs(ctx, userID, categoryIDs)
		if err != nil {
			return nil, fmt.Errorf("resolve categories: %w", err)
		}
		for _, c := range resolved {
			categories[c.ID] = c
		}
	}
	accounts := map[string]core.Account{}

	details := make([]TransactionDetail, 0, len(transactions))
	for _, t := range transactions {
		d := TransactionDetail{Transaction: t}
		if t.CategoryID != nil {
			if c, ok := categories[*t.CategoryID]; ok {
				cat := c
				d.Category = &cat
			}
		}
		if t.AccountID != nil {
			if a, ok := accounts[*t.AccountID]; ok {
				acc := a
				d.Account = &acc
			} else {
				acc, err := e.accounts.GetAccount(ctx, userID, *t.AccountID)
				switch {
				case err == nil:
					accounts[*t.AccountID] = acc
					d.Account = &acc
				case errors.Is(err, store.ErrNotFound):
					// Dangling reference; keep nil metadata.
				default:
					return nil, fmt.Errorf("resolve account: %w", err)
				}
			}
		}
		details = append(details, d)
	}
	return details, nil
}

// Summary fans out the month overview, the account balances and the
// five most recent transactions, then composes the combined dashboard
// payload with quick stats. The three branches run concurrently and the
// response waits for all of them.
func (e *Engine) Summary(ctx context.Context, userID string) (Summary, error) {
	var (
		overview Overview
		balances AccountBalances
		recent   []TransactionDetail
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		overview, err = e.Overview(gctx, userID, core.Filters{Period: core.PeriodMonth})
		return err
	})
	g.Go(func() error {
		var err error
		balances, err = e.AccountBalances(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = e.RecentTransactions(gctx, userID, 5)
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	return Summary{
		Overview:           overview,
		Accounts:           balances.Summary,
		RecentTransactions: recent,
		QuickStats: QuickStats{
			TotalAccounts:     balances.Summary.AccountCount,
			TotalTransactions: overview.Summary.TotalTransactions,
			NetWorth:          balances.Summary.TotalBalance,
			MonthlyChange:     balances.Summary.TotalMonthChange,
		},
	}, nil
}
