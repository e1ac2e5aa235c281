// Package report implements the dashboard aggregation engine: overview
// summaries, category breakdowns, account balance snapshots, balance
// history series and monthly trends, all computed from the transaction
// store through its aggregate query capability.
//
// Every operation is stateless, read-only and scoped to a single user id
// passed explicitly; there is no ambient request context and no cache in
// this package. Independent sub-queries within one operation fan out
// concurrently and the composed result waits for all of them.
package report

import (
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

type (
	Engine struct {
		transactions store.TransactionStore
		accounts     store.AccountStore
		categories   store.CategoryStore

		now func() time.Time
	}

	Overview struct {
		Period  core.DateRange  `json:"period"`
		Summary OverviewSummary `json:"summary"`
	}

	OverviewSummary struct {
		TotalIncome       decimal.Decimal `json:"totalIncome"`
		TotalExpense      decimal.Decimal `json:"totalExpense"`
		Balance           decimal.Decimal `json:"balance"`
		TotalTransactions int64           `json:"totalTransactions"`
		IncomeCount       int64           `json:"incomeCount"`
		ExpenseCount      int64           `json:"expenseCount"`
	}

	// CategoryRow is one breakdown entry. Category stays nil for
	// uncategorized transactions and for dangling category references.
	CategoryRow struct {
		CategoryID *string         `json:"categoryId"`
		Category   *core.Category  `json:"category"`
		Amount     decimal.Decimal `json:"amount"`
		Count      int64           `json:"count"`
	}

	Breakdown struct {
		Period   core.DateRange `json:"period"`
		Expenses []CategoryRow  `json:"expenses"`
		Income   []CategoryRow  `json:"income"`
	}

	// AccountRow extends the stored account with the month-to-date
	// signed change and the lifetime transaction count. MonthChange is
	// deliberately not reconciled against Balance; the two can diverge
	// when the stored balance was adjusted out-of-band.
	AccountRow struct {
		core.Account
		MonthChange      decimal.Decimal `json:"monthChange"`
		TransactionCount int64           `json:"transactionCount"`
	}

	AccountSummary struct {
		TotalBalance     decimal.Decimal `json:"totalBalance"`
		TotalMonthChange decimal.Decimal `json:"totalMonthChange"`
		AccountCount     int             `json:"accountCount"`
	}

	AccountBalances struct {
		Accounts []AccountRow   `json:"accounts"`
		Summary  AccountSummary `json:"summary"`
	}

	BalancePoint struct {
		Date              time.Time       `json:"date"`
		DailyChange       decimal.Decimal `json:"dailyChange"`
		CumulativeBalance decimal.Decimal `json:"cumulativeBalance"`
	}

	BalanceHistory struct {
		Period   core.DateRange `json:"period"`
		Balances []BalancePoint `json:"balances"`
	}

	MonthlyTrend struct {
		Month   string          `json:"month"` // YYYY-MM
		Income  decimal.Decimal `json:"income"`
		Expense decimal.Decimal `json:"expense"`
		Balance decimal.Decimal `json:"balance"`
	}

	// TransactionDetail is a transaction with its category and account
	// metadata resolved; either stays nil when the reference dangles.
	TransactionDetail struct {
		core.Transaction
		Category *core.Category `json:"category"`
		Account  *core.Account  `json:"account"`
	}

	QuickStats struct {
		TotalAccounts     int             `json:"totalAccounts"`
		TotalTransactions int64           `json:"totalTransactions"`
		NetWorth          decimal.Decimal `json:"netWorth"`
		MonthlyChange     decimal.Decimal `json:"monthlyChange"`
	}

	Summary struct {
		Overview           Overview            `json:"overview"`
		Accounts           AccountSummary      `json:"accounts"`
		RecentTransactions []TransactionDetail `json:"recentTransactions"`
		QuickStats         QuickStats          `json:"quickStats"`
	}
)

func NewEngine(tx store.TransactionStore, accounts store.AccountStore, categories store.CategoryStore) *Engine {
	return &Engine{
		transactions: tx,
		accounts:     accounts,
		categories:   categories,
		now:          time.Now,
	}
}

// baseFilter builds the shared predicate: owner, resolved date range and
// the optional account filter. Category filtering is added per operation
// because the breakdown must not apply it.
func (e *Engine) baseFilter(userID string, rng core.DateRange, f core.Filters) store.TransactionFilter {
	return store.TransactionFilter{
		UserID:    userID,
		From:      rng.Start,
		To:        rng.End,
		AccountID: f.AccountID,
	}
}
