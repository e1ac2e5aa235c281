package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func mustCreateTransaction(t *testing.T, repo *SQLiteRepository, tr core.Transaction) {
	t.Helper()
	if tr.CreatedAt.IsZero() {
		tr.CreatedAt = time.Now().UTC()
	}
	if err := repo.CreateTransaction(context.Background(), tr); err != nil {
		t.Fatalf("CreateTransaction(%s): %v", tr.ID, err)
	}
}

func TestTransactionRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	catID := "cat1"
	tr := core.Transaction{
		ID:          "t1",
		UserID:      "u1",
		Title:       "groceries",
		Description: "weekly shop",
		Amount:      decimal.RequireFromString("42.75"),
		Type:        core.Expense,
		Date:        time.Date(2024, time.March, 5, 10, 30, 0, 0, time.UTC),
		CategoryID:  &catID,
		CreatedAt:   time.Date(2024, time.March, 5, 10, 31, 0, 0, time.UTC),
	}
	mustCreateTransaction(t, repo, tr)

	got, err := repo.GetTransaction(ctx, "u1", "t1")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if !got.Amount.Equal(tr.Amount) {
		t.Fatalf("amount expected %s, got %s", tr.Amount, got.Amount)
	}
	if !got.Date.Equal(tr.Date) || !got.CreatedAt.Equal(tr.CreatedAt) {
		t.Fatalf("times mangled: %+v", got)
	}
	if got.CategoryID == nil || *got.CategoryID != "cat1" {
		t.Fatalf("category id expected cat1, got %v", got.CategoryID)
	}
	if got.AccountID != nil {
		t.Fatalf("account id expected nil, got %v", got.AccountID)
	}

	// Wrong owner looks exactly like a missing row.
	if _, err := repo.GetTransaction(ctx, "u2", "t1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("cross-user get expected ErrNotFound, got %v", err)
	}

	got.Title = "monthly groceries"
	got.Amount = decimal.RequireFromString("50")
	if err := repo.UpdateTransaction(ctx, got); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	updated, err := repo.GetTransaction(ctx, "u1", "t1")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if updated.Title != "monthly groceries" || !updated.Amount.Equal(decimal.RequireFromString("50")) {
		t.Fatalf("update not applied: %+v", updated)
	}

	if err := repo.DeleteTransaction(ctx, "u1", "t1"); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if err := repo.DeleteTransaction(ctx, "u1", "t1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second delete expected ErrNotFound, got %v", err)
	}
}

func TestTransactionDuplicateID(t *testing.T) {
	repo := newTestRepo(t)

	tr := core.Transaction{
		ID: "dup", UserID: "u1", Title: "first",
		Amount: decimal.RequireFromString("1"), Type: core.Expense,
		Date: time.Now().UTC(), CreatedAt: time.Now().UTC(),
	}
	mustCreateTransaction(t, repo, tr)

	err := repo.CreateTransaction(context.Background(), tr)
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func seedAggregationFixture(t *testing.T, repo *SQLiteRepository) {
	t.Helper()
	catFood := "cat-food"
	base := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	rows := []core.Transaction{
		{ID: "t1", UserID: "u1", Title: "salary", Amount: decimal.RequireFromString("2500"),
			Type: core.Income, Date: base},
		{ID: "t2", UserID: "u1", Title: "rent", Amount: decimal.RequireFromString("800"),
			Type: core.Expense, Date: base.AddDate(0, 0, 1), CategoryID: &catFood},
		{ID: "t3", UserID: "u1", Title: "groceries", Amount: decimal.RequireFromString("150.50"),
			Type: core.Expense, Date: base.AddDate(0, 0, 9)},
		{ID: "x1", UserID: "u2", Title: "other", Amount: decimal.RequireFromString("5"),
			Type: core.Expense, Date: base},
	}
	for _, tr := range rows {
		mustCreateTransaction(t, repo, tr)
	}
}

func TestAggregates(t *testing.T) {
	repo := newTestRepo(t)
	seedAggregationFixture(t, repo)
	ctx := context.Background()

	total, err := repo.TotalAmount(ctx, store.TransactionFilter{UserID: "u1", Type: core.Expense})
	if err != nil {
		t.Fatalf("TotalAmount: %v", err)
	}
	if !total.Sum.Equal(decimal.RequireFromString("950.50")) || total.Count != 2 {
		t.Fatalf("expense total expected 950.50/2, got %s/%d", total.Sum, total.Count)
	}

	count, err := repo.CountTransactions(ctx, store.TransactionFilter{UserID: "u1"})
	if err != nil {
		t.Fatalf("CountTransactions: %v", err)
	}
	if count != 3 {
		t.Fatalf("count expected 3, got %d", count)
	}

	signed, err := repo.SignedSum(ctx, store.TransactionFilter{UserID: "u1"})
	if err != nil {
		t.Fatalf("SignedSum: %v", err)
	}
	if !signed.Equal(decimal.RequireFromString("1549.50")) {
		t.Fatalf("signed sum expected 1549.50, got %s", signed)
	}

	// Empty result sets sum to zero, not error.
	empty, err := repo.SignedSum(ctx, store.TransactionFilter{UserID: "nobody"})
	if err != nil {
		t.Fatalf("SignedSum: %v", err)
	}
	if !empty.IsZero() {
		t.Fatalf("empty signed sum expected 0, got %s", empty)
	}

	users, err := repo.UserIDs(ctx)
	if err != nil {
		t.Fatalf("UserIDs: %v", err)
	}
	if len(users) != 2 || users[0] != "u1" || users[1] != "u2" {
		t.Fatalf("user ids expected [u1 u2], got %v", users)
	}
}

func TestGroupByCategoryOrdering(t *testing.T) {
	repo := newTestRepo(t)
	seedAggregationFixture(t, repo)

	groups, err := repo.GroupByCategory(context.Background(),
		store.TransactionFilter{UserID: "u1", Type: core.Expense})
	if err != nil {
		t.Fatalf("GroupByCategory: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	// Largest sum first; the uncategorized bucket keeps a nil id.
	if groups[0].CategoryID == nil || *groups[0].CategoryID != "cat-food" {
		t.Fatalf("first group expected cat-food, got %+v", groups[0])
	}
	if !groups[0].Sum.Equal(decimal.RequireFromString("800")) {
		t.Fatalf("cat-food sum expected 800, got %s", groups[0].Sum)
	}
	if groups[1].CategoryID != nil {
		t.Fatalf("second group expected uncategorized, got %+v", groups[1])
	}
}

func TestGroupByDate(t *testing.T) {
	repo := newTestRepo(t)
	seedAggregationFixture(t, repo)

	groups, err := repo.GroupByDate(context.Background(), store.TransactionFilter{UserID: "u1"})
	if err != nil {
		t.Fatalf("GroupByDate: %v", err)
	}
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	for i := 1; i < len(groups); i++ {
		if !groups[i-1].Date.Before(groups[i].Date) {
			t.Fatalf("groups out of order: %v then %v", groups[i-1].Date, groups[i].Date)
		}
	}
	if !groups[0].Sum.Equal(decimal.RequireFromString("2500")) {
		t.Fatalf("first day net expected 2500, got %s", groups[0].Sum)
	}
	if !groups[1].Sum.Equal(decimal.RequireFromString("-800")) {
		t.Fatalf("second day net expected -800, got %s", groups[1].Sum)
	}
}

func TestTransactionDateRangeFilter(t *testing.T) {
	repo := newTestRepo(t)
	seedAggregationFixture(t, repo)

	from := time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	list, err := repo.ListTransactions(context.Background(),
		store.TransactionFilter{UserID: "u1", From: from, To: to})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	// Both bounds are inclusive: t2 sits on From, t3 on To.
	if len(list) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(list))
	}
	if list[0].ID != "t3" || list[1].ID != "t2" {
		t.Fatalf("order expected t3, t2; got %s, %s", list[0].ID, list[1].ID)
	}
}

func TestTransactionFractionalSecondDates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	day := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)
	mustCreateTransaction(t, repo, core.Transaction{
		ID: "whole", UserID: "u1", Title: "on the second",
		Amount: decimal.RequireFromString("10"), Type: core.Expense, Date: day,
	})
	mustCreateTransaction(t, repo, core.Transaction{
		ID: "frac", UserID: "u1", Title: "half a second later",
		Amount: decimal.RequireFromString("5"), Type: core.Expense,
		Date: day.Add(500 * time.Millisecond),
	})

	// The stored text is fixed width, so a sub-second timestamp still
	// falls inside a whole-second range predicate.
	total, err := repo.TotalAmount(ctx, store.TransactionFilter{
		UserID: "u1", From: day, To: day.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("TotalAmount: %v", err)
	}
	if total.Count != 2 || !total.Sum.Equal(decimal.RequireFromString("15")) {
		t.Fatalf("expected both rows (sum 15), got count %d sum %s", total.Count, total.Sum)
	}

	groups, err := repo.GroupByDate(ctx, store.TransactionFilter{UserID: "u1"})
	if err != nil {
		t.Fatalf("GroupByDate: %v", err)
	}
	if len(groups) != 2 || !groups[0].Date.Equal(day) || !groups[1].Date.Equal(day.Add(500*time.Millisecond)) {
		t.Fatalf("expected whole second before fractional, got %+v", groups)
	}

	got, err := repo.GetTransaction(ctx, "u1", "frac")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if !got.Date.Equal(day.Add(500 * time.Millisecond)) {
		t.Fatalf("fractional date mangled: %s", got.Date)
	}
}

func TestAccountCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := core.Account{
		ID: "a1", UserID: "u1", Name: "Checking", Type: core.Checking,
		Balance:   decimal.RequireFromString("-12.50"),
		Color:     "#00ff00",
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.CreateAccount(ctx, a); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	got, err := repo.GetAccount(ctx, "u1", "a1")
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if !got.Balance.Equal(a.Balance) || got.Name != "Checking" {
		t.Fatalf("account mangled: %+v", got)
	}

	got.Balance = decimal.RequireFromString("100")
	if err := repo.UpdateAccount(ctx, got); err != nil {
		t.Fatalf("UpdateAccount: %v", err)
	}

	list, err := repo.ListAccounts(ctx, "u1")
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	if len(list) != 1 || !list[0].Balance.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("list unexpected: %+v", list)
	}

	if err := repo.DeleteAccount(ctx, "u2", "a1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("cross-user delete expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteAccount(ctx, "u1", "a1"); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
}

func TestCategoriesByIDs(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, c := range []core.Category{
		{ID: "c1", UserID: "u1", Name: "Food", Type: core.Expense},
		{ID: "c2", UserID: "u1", Name: "Salary", Type: core.Income},
		{ID: "c3", UserID: "u2", Name: "Other", Type: core.Expense},
	} {
		if err := repo.CreateCategory(ctx, c); err != nil {
			t.Fatalf("CreateCategory: %v", err)
		}
	}

	// Missing ids and other users' ids are silently absent.
	got, err := repo.GetCategoriesByIDs(ctx, "u1", []string{"c1", "c3", "ghost"})
	if err != nil {
		t.Fatalf("GetCategoriesByIDs: %v", err)
	}
	if len(got) != 1 || got[0].ID != "c1" {
		t.Fatalf("expected only c1, got %+v", got)
	}

	none, err := repo.GetCategoriesByIDs(ctx, "u1", nil)
	if err != nil {
		t.Fatalf("GetCategoriesByIDs(nil): %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected empty result, got %+v", none)
	}
}

func TestSettingUniquePerUser(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	s := core.Setting{UserID: "u1", Key: "currency", Value: "EUR", UpdatedAt: time.Now().UTC()}
	if err := repo.CreateSetting(ctx, s); err != nil {
		t.Fatalf("CreateSetting: %v", err)
	}
	if err := repo.CreateSetting(ctx, s); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("duplicate key expected ErrDuplicate, got %v", err)
	}

	// Same key under a different user is a separate row.
	other := s
	other.UserID = "u2"
	if err := repo.CreateSetting(ctx, other); err != nil {
		t.Fatalf("CreateSetting for u2: %v", err)
	}

	s.Value = "USD"
	if err := repo.UpdateSetting(ctx, s); err != nil {
		t.Fatalf("UpdateSetting: %v", err)
	}
	got, err := repo.GetSetting(ctx, "u1", "currency")
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if got.Value != "USD" {
		t.Fatalf("value expected USD, got %q", got.Value)
	}
}

func TestReportsByType(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	reports := []core.Report{
		{ID: "r1", UserID: "u1", Name: "Snapshot", Type: "monthly-trends",
			Data: []byte(`[{"month":"2024-03"}]`), CreatedAt: now, UpdatedAt: now},
		{ID: "r2", UserID: "u1", Name: "Custom", Type: "custom",
			Filters: []byte(`{"period":"month"}`), CreatedAt: now.Add(time.Second), UpdatedAt: now},
	}
	for _, rep := range reports {
		if err := repo.CreateReport(ctx, rep); err != nil {
			t.Fatalf("CreateReport(%s): %v", rep.ID, err)
		}
	}

	byType, err := repo.ListReportsByType(ctx, "u1", "monthly-trends")
	if err != nil {
		t.Fatalf("ListReportsByType: %v", err)
	}
	if len(byType) != 1 || byType[0].ID != "r1" {
		t.Fatalf("expected only r1, got %+v", byType)
	}
	if string(byType[0].Data) != `[{"month":"2024-03"}]` {
		t.Fatalf("data mangled: %s", byType[0].Data)
	}

	all, err := repo.ListReports(ctx, "u1")
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	// Newest first.
	if len(all) != 2 || all[0].ID != "r2" {
		t.Fatalf("list order unexpected: %+v", all)
	}
}
