package report

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// BalanceHistory produces the running-balance series for an explicit
// window. The range always resolves with custom semantics: callers
// supply bounds, or get the month-equivalent fallback.
//
// Transactions group by their exact date value; each group's signed sum
// is the day's net change. The cumulative balance is a plain prefix sum
// starting from zero before the first entry — it is a relative series
// within the window, not an absolute account balance, and does not seed
// from any prior-period closing balance.
func (e *Engine) BalanceHistory(ctx context.Context, userID string, filters core.Filters) (BalanceHistory, error) {
	filters.Period = core.PeriodCustom
	rng := core.ResolveRange(e.now(), filters)

	groups, err := e.transactions.GroupByDate(ctx, e.baseFilter(userID, rng, filters))
	if err != nil {
		return BalanceHistory{}, fmt.Errorf("group by date: %w", err)
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].Date.Before(groups[j].Date) })

	balances := make([]BalancePoint, 0, len(groups))
	running := decimal.Zero
	for _, g := range groups {
		running = running.Add(g.Sum)
		balances = append(balances, BalancePoint{
			Date:              g.Date,
			DailyChange:       g.Sum,
			CumulativeBalance: running,
		})
	}

	return BalanceHistory{Period: rng, Balances: balances}, nil
}
