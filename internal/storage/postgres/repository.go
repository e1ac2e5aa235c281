// Package postgres provides the PostgreSQL persistence backend. It mirrors
// the SQLite backend's contract: integer cents for exact aggregation,
// TIMESTAMPTZ timestamps normalized to UTC on read.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(dsn string) (*Repository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func nullStr(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func strPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	s := n.String
	return &s
}

func mapWriteErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return store.ErrDuplicate
	}
	return err
}

// transactionWhere builds a numbered-placeholder WHERE clause for a
// transaction filter.
func transactionWhere(f store.TransactionFilter) (string, []any) {
	clauses := []string{"user_id = $1"}
	args := []any{f.UserID}

	add := func(column, op string, v any) {
		args = append(args, v)
		clauses = append(clauses, column+" "+op+" $"+strconv.Itoa(len(args)))
	}

	if !f.From.IsZero() {
		add("date", ">=", f.From.UTC())
	}
	if !f.To.IsZero() {
		add("date", "<=", f.To.UTC())
	}
	if f.AccountID != "" {
		add("account_id", "=", f.AccountID)
	}
	if f.CategoryID != "" {
		add("category_id", "=", f.CategoryID)
	}
	if f.Type != "" {
		add("type", "=", string(f.Type))
	}

	return strings.Join(clauses, " AND "), args
}

const transactionColumns = "id, user_id, title, description, amount_cents, type, date, category_id, account_id, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t          core.Transaction
		cents      int64
		typ        string
		categoryID sql.NullString
		accountID  sql.NullString
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &cents, &typ, &t.Date, &categoryID, &accountID, &t.CreatedAt); err != nil {
		return core.Transaction{}, err
	}

	t.Amount = core.FromCents(cents)
	t.Type = core.TransactionType(typ)
	t.CategoryID = strPtr(categoryID)
	t.AccountID = strPtr(accountID)
	t.Date = t.Date.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}

func (r *Repository) CreateTransaction(ctx context.Context, t core.Transaction) error {
	cents, err := core.Cents(t.Amount)
	if err != nil {
		return fmt.Errorf("amount to cents: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.UserID, t.Title, t.Description, cents, string(t.Type),
		t.Date.UTC(), nullStr(t.CategoryID), nullStr(t.AccountID), t.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert transaction: %w", mapWriteErr(err))
	}
	return nil
}

func (r *Repository) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = $1 AND id = $2`, userID, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, store.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (r *Repository) ListTransactions(ctx context.Context, f store.TransactionFilter) ([]core.Transaction, error) {
	where, args := transactionWhere(f)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE `+where+
			` ORDER BY date DESC, created_at DESC, id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (r *Repository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	cents, err := core.Cents(t.Amount)
	if err != nil {
		return fmt.Errorf("amount to cents: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions
		 SET title = $1, description = $2, amount_cents = $3, type = $4, date = $5, category_id = $6, account_id = $7
		 WHERE user_id = $8 AND id = $9`,
		t.Title, t.Description, cents, string(t.Type), t.Date.UTC(),
		nullStr(t.CategoryID), nullStr(t.AccountID), t.UserID, t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireRow(res)
}

func (r *Repository) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireRow(res)
}

func (r *Repository) RecentTransactions(ctx context.Context, userID string, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = $1
		 ORDER BY date DESC, created_at DESC, id ASC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repository) TotalAmount(ctx context.Context, f store.TransactionFilter) (store.AmountTotal, error) {
	where, args := transactionWhere(f)

	var (
		cents int64
		count int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0), COUNT(*) FROM transactions WHERE `+where, args...).
		Scan(&cents, &count)
	if err != nil {
		return store.AmountTotal{}, fmt.Errorf("total amount: %w", err)
	}
	return store.AmountTotal{Sum: core.FromCents(cents), Count: count}, nil
}

func (r *Repository) CountTransactions(ctx context.Context, f store.TransactionFilter) (int64, error) {
	where, args := transactionWhere(f)

	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE `+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return count, nil
}

func (r *Repository) SignedSum(ctx context.Context, f store.TransactionFilter) (decimal.Decimal, error) {
	where, args := transactionWhere(f)

	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CASE WHEN type = 'INCOME' THEN amount_cents ELSE -amount_cents END), 0)
		 FROM transactions WHERE `+where, args...).Scan(&cents)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("signed sum: %w", err)
	}
	return core.FromCents(cents), nil
}

func (r *Repository) GroupByCategory(ctx context.Context, f store.TransactionFilter) ([]store.CategoryGroup, error) {
	where, args := transactionWhere(f)
	rows, err := r.db.QueryContext(ctx,
		`SELECT category_id, SUM(amount_cents), COUNT(*) FROM transactions
		 WHERE `+where+`
		 GROUP BY category_id
		 ORDER BY SUM(amount_cents) DESC, category_id ASC NULLS LAST`, args...)
	if err != nil {
		return nil, fmt.Errorf("group by category: %w", err)
	}
	defer rows.Close()

	var out []store.CategoryGroup
	for rows.Next() {
		var (
			id    sql.NullString
			cents int64
			count int64
		)
		if err := rows.Scan(&id, &cents, &count); err != nil {
			return nil, fmt.Errorf("scan category group: %w", err)
		}
		out = append(out, store.CategoryGroup{
			CategoryID: strPtr(id),
			Sum:        core.FromCents(cents),
			Count:      count,
		})
	}
	return out, rows.Err()
}

func (r *Repository) GroupByDate(ctx context.Context, f store.TransactionFilter) ([]store.DateGroup, error) {
	where, args := transactionWhere(f)
	rows, err := r.db.QueryContext(ctx,
		`SELECT date, SUM(CASE WHEN type = 'INCOME' THEN amount_cents ELSE -amount_cents END)
		 FROM transactions WHERE `+where+`
		 GROUP BY date ORDER BY date ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("group by date: %w", err)
	}
	defer rows.Close()

	var out []store.DateGroup
	for rows.Next() {
		var (
			date  time.Time
			cents int64
		)
		if err := rows.Scan(&date, &cents); err != nil {
			return nil, fmt.Errorf("scan date group: %w", err)
		}
		out = append(out, store.DateGroup{Date: date.UTC(), Sum: core.FromCents(cents)})
	}
	return out, rows.Err()
}

func (r *Repository) UserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM transactions ORDER BY user_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
