package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/store"
	"fintrack/internal/store/memory"
)

var testNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

func newTestEngine(s *memory.Store) *Engine {
	e := NewEngine(s, s, s)
	e.now = func() time.Time { return testNow }
	return e
}

func amount(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func strPtr(s string) *string { return &s }

// seedMarch loads the shared fixture: user u1 with two accounts, two
// categories, three March transactions (one uncategorized), one February
// transaction, plus an unrelated user's transaction.
func seedMarch(t *testing.T, s *memory.Store) {
	t.Helper()
	ctx := context.Background()

	accounts := []core.Account{
		{ID: "acc1", UserID: "u1", Name: "Checking", Type: core.Checking, Balance: amount("500"),
			CreatedAt: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "acc2", UserID: "u1", Name: "Savings", Type: core.Savings, Balance: amount("1000"),
			CreatedAt: time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)},
	}
	for _, a := range accounts {
		if err := s.CreateAccount(ctx, a); err != nil {
			t.Fatalf("seed account: %v", err)
		}
	}

	categories := []core.Category{
		{ID: "cat-food", UserID: "u1", Name: "Food", Type: core.Expense},
		{ID: "cat-salary", UserID: "u1", Name: "Salary", Type: core.Income},
	}
	for _, c := range categories {
		if err := s.CreateCategory(ctx, c); err != nil {
			t.Fatalf("seed category: %v", err)
		}
	}

	transactions := []core.Transaction{
		{ID: "t1", UserID: "u1", Title: "salary", Amount: amount("2500"), Type: core.Income,
			Date:       time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
			CategoryID: strPtr("cat-salary"), AccountID: strPtr("acc1")},
		{ID: "t2", UserID: "u1", Title: "rent", Amount: amount("800"), Type: core.Expense,
			Date:       time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC),
			CategoryID: strPtr("cat-food"), AccountID: strPtr("acc1")},
		{ID: "t3", UserID: "u1", Title: "groceries", Amount: amount("150.50"), Type: core.Expense,
			Date:      time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
			AccountID: strPtr("acc1")},
		{ID: "t4", UserID: "u1", Title: "old bill", Amount: amount("999"), Type: core.Expense,
			Date:       time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC),
			CategoryID: strPtr("cat-food"), AccountID: strPtr("acc1")},
		{ID: "x1", UserID: "u2", Title: "not yours", Amount: amount("5000"), Type: core.Income,
			Date: time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)},
	}
	for _, tr := range transactions {
		if err := s.CreateTransaction(ctx, tr); err != nil {
			t.Fatalf("seed transaction: %v", err)
		}
	}
}

func TestOverviewCurrentMonth(t *testing.T) {
	s := memory.New()
	seedMarch(t, s)
	e := newTestEngine(s)

	ov, err := e.Overview(context.Background(), "u1", core.Filters{Period: core.PeriodMonth})
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}

	if !ov.Summary.TotalIncome.Equal(amount("2500")) {
		t.Fatalf("totalIncome expected 2500, got %s", ov.Summary.TotalIncome)
	}
	if !ov.Summary.TotalExpense.Equal(amount("950.50")) {
		t.Fatalf("totalExpense expected 950.50, got %s", ov.Summary.TotalExpense)
	}
	if !ov.Summary.Balance.Equal(amount("1549.50")) {
		t.Fatalf("balance expected 1549.50, got %s", ov.Summary.Balance)
	}
	if ov.Summary.TotalTransactions != 3 || ov.Summary.IncomeCount != 1 || ov.Summary.ExpenseCount != 2 {
		t.Fatalf("counts expected 3/1/2, got %d/%d/%d",
			ov.Summary.TotalTransactions, ov.Summary.IncomeCount, ov.Summary.ExpenseCount)
	}
	if wantStart := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC); !ov.Period.Start.Equal(wantStart) {
		t.Fatalf("period start expected %s, got %s", wantStart, ov.Period.Start)
	}
	if !ov.Period.End.Equal(testNow) {
		t.Fatalf("period end expected now, got %s", ov.Period.End)
	}
}

func TestOverviewEmptyStore(t *testing.T) {
	e := newTestEngine(memory.New())

	ov, err := e.Overview(context.Background(), "u1", core.Filters{})
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if !ov.Summary.TotalIncome.IsZero() || !ov.Summary.TotalExpense.IsZero() || !ov.Summary.Balance.IsZero() {
		t.Fatalf("expected all-zero summary, got %+v", ov.Summary)
	}
	if ov.Summary.TotalTransactions != 0 {
		t.Fatalf("expected zero transactions, got %d", ov.Summary.TotalTransactions)
	}
}

func TestOverviewAccountFilter(t *testing.T) {
	s := memory.New()
	seedMarch(t, s)
	e := newTestEngine(s)

	// No March transaction references acc2, so the filtered overview is
	// all zeros even though the user has data.
	ov, err := e.Overview(context.Background(), "u1", core.Filters{Period: core.PeriodMonth, AccountID: "acc2"})
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if !ov.Summary.Balance.IsZero() || ov.Summary.TotalTransactions != 0 {
		t.Fatalf("expected empty overview for acc2, got %+v", ov.Summary)
	}
}

func TestOverviewDeterministic(t *testing.T) {
	s := memory.New()
	seedMarch(t, s)
	e := newTestEngine(s)

	first, err := e.Overview(context.Background(), "u1", core.Filters{Period: core.PeriodYear})
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := e.Overview(context.Background(), "u1", core.Filters{Period: core.PeriodYear})
		if err != nil {
			t.Fatalf("Overview: %v", err)
		}
		if !again.Summary.Balance.Equal(first.Summary.Balance) ||
			again.Summary.TotalTransactions != first.Summary.TotalTransactions {
			t.Fatalf("repeat call diverged: %+v vs %+v", again.Summary, first.Summary)
		}
	}
}

func TestCategoryBreakdown(t *testing.T) {
	s := memory.New()
	seedMarch(t, s)
	e := newTestEngine(s)

	b, err := e.CategoryBreakdown(context.Background(), "u1", core.Filters{Period: core.PeriodMonth})
	if err != nil {
		t.Fatalf("CategoryBreakdown: %v", err)
	}

	if len(b.Expenses) != 2 {
		t.Fatalf("expected 2 expense rows, got %d", len(b.Expenses))
	}
	// Rows sort by amount descending; rent (800) above uncategorized
	// groceries (150.50).
	if b.Expenses[0].CategoryID == nil || *b.Expenses[0].CategoryID != "cat-food" {
		t.Fatalf("first expense row expected cat-food, got %+v", b.Expenses[0])
	}
	if b.Expenses[0].Category == nil || b.Expenses[0].Category.Name != "Food" {
		t.Fatalf("expected resolved Food metadata, got %+v", b.Expenses[0].Category)
	}
	if b.Expenses[1].CategoryID != nil {
		t.Fatalf("second expense row expected uncategorized, got %+v", b.Expenses[1])
	}
	if !b.Expenses[1].Amount.Equal(amount("150.50")) || b.Expenses[1].Count != 1 {
		t.Fatalf("uncategorized row expected 150.50/1, got %s/%d", b.Expenses[1].Amount, b.Expenses[1].Count)
	}

	if len(b.Income) != 1 || b.Income[0].Category == nil || b.Income[0].Category.Name != "Salary" {
		t.Fatalf("income rows expected one Salary entry, got %+v", b.Income)
	}

	// The expense rows must add up to the overview's expense total.
	sum := decimal.Zero
	for _, row := range b.Expenses {
		sum = sum.Add(row.Amount)
	}
	ov, err := e.Overview(context.Background(), "u1", core.Filters{Period: core.PeriodMonth})
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if !sum.Equal(ov.Summary.TotalExpense) {
		t.Fatalf("breakdown sum %s != overview expense %s", sum, ov.Summary.TotalExpense)
	}
}

func TestCategoryBreakdownDanglingReference(t *testing.T) {
	s := memory.New()
	e := newTestEngine(s)
	ctx := context.Background()

	tr := core.Transaction{ID: "t1", UserID: "u1", Title: "orphan", Amount: amount("10"),
		Type: core.Expense, Date: testNow, CategoryID: strPtr("ghost")}
	if err := s.CreateTransaction(ctx, tr); err != nil {
		t.Fatalf("seed: %v", err)
	}

	b, err := e.CategoryBreakdown(ctx, "u1", core.Filters{Period: core.PeriodMonth})
	if err != nil {
		t.Fatalf("CategoryBreakdown: %v", err)
	}
	if len(b.Expenses) != 1 {
		t.Fatalf("expected 1 row, got %d", len(b.Expenses))
	}
	row := b.Expenses[0]
	if row.CategoryID == nil || *row.CategoryID != "ghost" {
		t.Fatalf("expected preserved category id, got %+v", row)
	}
	if row.Category != nil {
		t.Fatalf("dangling reference should yield nil metadata, got %+v", row.Category)
	}
}

func TestAccountBalances(t *testing.T) {
	s := memory.New()
	seedMarch(t, s)
	e := newTestEngine(s)

	ab, err := e.AccountBalances(context.Background(), "u1")
	if err != nil {
		t.Fatalf("AccountBalances: %v", err)
	}
	if len(ab.Accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(ab.Accounts))
	}

	rows := map[string]AccountRow{}
	for _, row := range ab.Accounts {
		rows[row.ID] = row
	}

	// acc1 month-to-date: +2500 -800 -150.50; lifetime count includes
	// the February transaction.
	checking := rows["acc1"]
	if !checking.MonthChange.Equal(amount("1549.50")) {
		t.Fatalf("acc1 monthChange expected 1549.50, got %s", checking.MonthChange)
	}
	if checking.TransactionCount != 4 {
		t.Fatalf("acc1 transactionCount expected 4, got %d", checking.TransactionCount)
	}

	// acc2 has a stored balance but no transactions at all.
	savings := rows["acc2"]
	if !savings.MonthChange.IsZero() || savings.TransactionCount != 0 {
		t.Fatalf("acc2 expected zero change and count, got %s/%d", savings.MonthChange, savings.TransactionCount)
	}
	if !savings.Balance.Equal(amount("1000")) {
		t.Fatalf("acc2 balance expected 1000, got %s", savings.Balance)
	}

	if !ab.Summary.TotalBalance.Equal(amount("1500")) {
		t.Fatalf("totalBalance expected 1500, got %s", ab.Summary.TotalBalance)
	}
	if !ab.Summary.TotalMonthChange.Equal(amount("1549.50")) {
		t.Fatalf("totalMonthChange expected 1549.50, got %s", ab.Summary.TotalMonthChange)
	}
	if ab.Summary.AccountCount != 2 {
		t.Fatalf("accountCount expected 2, got %d", ab.Summary.AccountCount)
	}
}

func TestBalanceHistoryPrefixSum(t *testing.T) {
	s := memory.New()
	e := newTestEngine(s)
	ctx := context.Background()

	day1 := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC)
	seed := []core.Transaction{
		{ID: "t1", UserID: "u1", Title: "in", Amount: amount("60"), Type: core.Income, Date: day1},
		{ID: "t2", UserID: "u1", Title: "out", Amount: amount("20"), Type: core.Expense, Date: day2},
	}
	for _, tr := range seed {
		if err := s.CreateTransaction(ctx, tr); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	start := day1
	end := time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)
	h, err := e.BalanceHistory(ctx, "u1", core.Filters{StartDate: &start, EndDate: &end})
	if err != nil {
		t.Fatalf("BalanceHistory: %v", err)
	}

	if len(h.Balances) != 2 {
		t.Fatalf("expected 2 points, got %d", len(h.Balances))
	}
	if !h.Balances[0].DailyChange.Equal(amount("60")) || !h.Balances[0].CumulativeBalance.Equal(amount("60")) {
		t.Fatalf("point 0 expected 60/60, got %s/%s", h.Balances[0].DailyChange, h.Balances[0].CumulativeBalance)
	}
	if !h.Balances[1].DailyChange.Equal(amount("-20")) || !h.Balances[1].CumulativeBalance.Equal(amount("40")) {
		t.Fatalf("point 1 expected -20/40, got %s/%s", h.Balances[1].DailyChange, h.Balances[1].CumulativeBalance)
	}
	if !h.Period.Start.Equal(start) || !h.Period.End.Equal(end) {
		t.Fatalf("period expected [%s, %s], got [%s, %s]", start, end, h.Period.Start, h.Period.End)
	}
}

func TestBalanceHistoryGroupsSameDay(t *testing.T) {
	s := memory.New()
	e := newTestEngine(s)
	ctx := context.Background()

	day := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	seed := []core.Transaction{
		{ID: "t1", UserID: "u1", Title: "a", Amount: amount("100"), Type: core.Income, Date: day},
		{ID: "t2", UserID: "u1", Title: "b", Amount: amount("30"), Type: core.Expense, Date: day},
	}
	for _, tr := range seed {
		if err := s.CreateTransaction(ctx, tr); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	h, err := e.BalanceHistory(ctx, "u1", core.Filters{})
	if err != nil {
		t.Fatalf("BalanceHistory: %v", err)
	}
	if len(h.Balances) != 1 {
		t.Fatalf("same-day transactions should form one point, got %d", len(h.Balances))
	}
	if !h.Balances[0].DailyChange.Equal(amount("70")) {
		t.Fatalf("net change expected 70, got %s", h.Balances[0].DailyChange)
	}
}

func TestBalanceHistoryEmpty(t *testing.T) {
	e := newTestEngine(memory.New())
	h, err := e.BalanceHistory(context.Background(), "u1", core.Filters{})
	if err != nil {
		t.Fatalf("BalanceHistory: %v", err)
	}
	if len(h.Balances) != 0 {
		t.Fatalf("expected empty series, got %d points", len(h.Balances))
	}
}

func TestMonthlyTrends(t *testing.T) {
	s := memory.New()
	seedMarch(t, s)
	e := newTestEngine(s)

	trends, err := e.MonthlyTrends(context.Background(), "u1", 3)
	if err != nil {
		t.Fatalf("MonthlyTrends: %v", err)
	}
	if len(trends) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(trends))
	}

	// Oldest first, ending at the current month.
	if trends[0].Month != "2024-01" || trends[1].Month != "2024-02" || trends[2].Month != "2024-03" {
		t.Fatalf("months expected 2024-01..2024-03, got %s %s %s",
			trends[0].Month, trends[1].Month, trends[2].Month)
	}

	if !trends[0].Income.IsZero() || !trends[0].Expense.IsZero() {
		t.Fatalf("january expected zeros, got %+v", trends[0])
	}
	if !trends[1].Expense.Equal(amount("999")) || !trends[1].Balance.Equal(amount("-999")) {
		t.Fatalf("february expected expense 999, balance -999, got %+v", trends[1])
	}
	if !trends[2].Income.Equal(amount("2500")) || !trends[2].Expense.Equal(amount("950.50")) {
		t.Fatalf("march expected 2500/950.50, got %+v", trends[2])
	}
	if !trends[2].Balance.Equal(amount("1549.50")) {
		t.Fatalf("march balance expected 1549.50, got %s", trends[2].Balance)
	}
}

func TestMonthlyTrendsSingleMonth(t *testing.T) {
	s := memory.New()
	seedMarch(t, s)
	e := newTestEngine(s)

	trends, err := e.MonthlyTrends(context.Background(), "u1", 1)
	if err != nil {
		t.Fatalf("MonthlyTrends: %v", err)
	}
	if len(trends) != 1 || trends[0].Month != "2024-03" {
		t.Fatalf("expected only the current month, got %+v", trends)
	}
}

func TestMonthlyTrendsInvalidMonths(t *testing.T) {
	e := newTestEngine(memory.New())
	for _, months := range []int{0, -1, 121, 100000} {
		if _, err := e.MonthlyTrends(context.Background(), "u1", months); !errors.Is(err, core.ErrInvalidMonths) {
			t.Fatalf("months=%d expected ErrInvalidMonths, got %v", months, err)
		}
	}
}

func TestRecentTransactions(t *testing.T) {
	s := memory.New()
	seedMarch(t, s)
	e := newTestEngine(s)
	ctx := context.Background()

	recent, err := e.RecentTransactions(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("RecentTransactions: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(recent))
	}
	// Newest first: groceries (Mar 10) then rent (Mar 2).
	if recent[0].ID != "t3" || recent[1].ID != "t2" {
		t.Fatalf("order expected t3, t2; got %s, %s", recent[0].ID, recent[1].ID)
	}

	// t3 is uncategorized: nil category, resolved account.
	if recent[0].Category != nil {
		t.Fatalf("t3 expected nil category, got %+v", recent[0].Category)
	}
	if recent[0].Account == nil || recent[0].Account.Name != "Checking" {
		t.Fatalf("t3 expected resolved Checking account, got %+v", recent[0].Account)
	}
	if recent[1].Category == nil || recent[1].Category.Name != "Food" {
		t.Fatalf("t2 expected Food category, got %+v", recent[1].Category)
	}

	// Limit zero falls back to the default and returns everything here.
	all, err := e.RecentTransactions(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("RecentTransactions: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("default limit expected 4 entries, got %d", len(all))
	}

	if _, err := e.RecentTransactions(ctx, "u1", -1); !errors.Is(err, core.ErrInvalidLimit) {
		t.Fatalf("negative limit expected ErrInvalidLimit, got %v", err)
	}
}

// faultyAccountStore fails every account lookup with a fixed error.
type faultyAccountStore struct {
	*memory.Store
	err error
}

func (f faultyAccountStore) GetAccount(ctx context.Context, userID, id string) (core.Account, error) {
	return core.Account{}, f.err
}

func TestRecentTransactionsAccountLookupFailure(t *testing.T) {
	s := memory.New()
	seedMarch(t, s)
	ctx := context.Background()

	// A store-layer failure must surface, not degrade to nil metadata.
	broken := faultyAccountStore{Store: s, err: errors.New("connection refused")}
	e := NewEngine(s, broken, s)
	e.now = func() time.Time { return testNow }
	if _, err := e.RecentTransactions(ctx, "u1", 2); err == nil {
		t.Fatal("expected account lookup failure to propagate")
	}

	// A missing account is a dangling reference and stays nil.
	dangling := faultyAccountStore{Store: s, err: store.ErrNotFound}
	e = NewEngine(s, dangling, s)
	e.now = func() time.Time { return testNow }
	recent, err := e.RecentTransactions(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("RecentTransactions: %v", err)
	}
	for _, d := range recent {
		if d.Account != nil {
			t.Fatalf("expected nil account for dangling reference, got %+v", d.Account)
		}
	}
}

func TestSummaryComposition(t *testing.T) {
	s := memory.New()
	seedMarch(t, s)
	e := newTestEngine(s)

	sum, err := e.Summary(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}

	if !sum.Overview.Summary.Balance.Equal(amount("1549.50")) {
		t.Fatalf("overview balance expected 1549.50, got %s", sum.Overview.Summary.Balance)
	}
	if sum.QuickStats.TotalAccounts != 2 {
		t.Fatalf("totalAccounts expected 2, got %d", sum.QuickStats.TotalAccounts)
	}
	if sum.QuickStats.TotalTransactions != sum.Overview.Summary.TotalTransactions {
		t.Fatalf("quick stats transaction count diverges from overview")
	}
	if !sum.QuickStats.NetWorth.Equal(amount("1500")) {
		t.Fatalf("netWorth expected 1500, got %s", sum.QuickStats.NetWorth)
	}
	if !sum.QuickStats.MonthlyChange.Equal(sum.Accounts.TotalMonthChange) {
		t.Fatalf("monthlyChange diverges from account summary")
	}
	if len(sum.RecentTransactions) != 4 {
		t.Fatalf("recent expected 4 entries, got %d", len(sum.RecentTransactions))
	}
}

func TestOwnershipIsolation(t *testing.T) {
	s := memory.New()
	seedMarch(t, s)
	e := newTestEngine(s)

	ov, err := e.Overview(context.Background(), "u2", core.Filters{Period: core.PeriodYear})
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if !ov.Summary.TotalIncome.Equal(amount("5000")) || ov.Summary.TotalTransactions != 1 {
		t.Fatalf("u2 should see only its own transaction, got %+v", ov.Summary)
	}
}
