// Package storage provides the SQLite persistence backend. Amounts are
// stored as integer cents so SQL aggregation stays exact; dates are stored
// as fixed-width UTC text so lexicographic order matches chronological
// order.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/store"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// timeLayout is fixed width: nanoseconds padded to nine digits and the
// offset always "Z" because every stored time is UTC. RFC3339Nano would
// trim trailing zeros, making "10:00:00.5Z" sort before "10:00:00Z" as
// text even though it is later in time.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t.UTC(), nil
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
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrDuplicate
	}
	return err
}

// transactionWhere builds the WHERE clause for a transaction filter.
// The date column holds fixed-width UTC text, so range bounds compare
// as plain strings.
func transactionWhere(f store.TransactionFilter) (string, []any) {
	clauses := []string{"user_id = ?"}
	args := []any{f.UserID}

	if !f.From.IsZero() {
		clauses = append(clauses, "date >= ?")
		args = append(args, fmtTime(f.From))
	}
	if !f.To.IsZero() {
		clauses = append(clauses, "date <= ?")
		args = append(args, fmtTime(f.To))
	}
	if f.AccountID != "" {
		clauses = append(clauses, "account_id = ?")
		args = append(args, f.AccountID)
	}
	if f.CategoryID != "" {
		clauses = append(clauses, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.Type != "" {
		clauses = append(clauses, "type = ?")
		args = append(args, string(f.Type))
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
		date       string
		createdAt  string
		categoryID sql.NullString
		accountID  sql.NullString
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &cents, &typ, &date, &categoryID, &accountID, &createdAt); err != nil {
		return core.Transaction{}, err
	}

	t.Amount = core.FromCents(cents)
	t.Type = core.TransactionType(typ)
	t.CategoryID = strPtr(categoryID)
	t.AccountID = strPtr(accountID)

	var err error
	if t.Date, err = parseTime(date); err != nil {
		return core.Transaction{}, err
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) error {
	cents, err := core.Cents(t.Amount)
	if err != nil {
		return fmt.Errorf("amount to cents: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Title, t.Description, cents, string(t.Type),
		fmtTime(t.Date), nullStr(t.CategoryID), nullStr(t.AccountID), fmtTime(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", mapWriteErr(err))
	}
	return nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? AND id = ?`, userID, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, store.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, f store.TransactionFilter) ([]core.Transaction, error) {
	where, args := transactionWhere(f)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE `+where+
			` ORDER BY date DESC, created_at DESC, id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

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

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	cents, err := core.Cents(t.Amount)
	if err != nil {
		return fmt.Errorf("amount to cents: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions
		 SET title = ?, description = ?, amount_cents = ?, type = ?, date = ?, category_id = ?, account_id = ?
		 WHERE user_id = ? AND id = ?`,
		t.Title, t.Description, cents, string(t.Type), fmtTime(t.Date),
		nullStr(t.CategoryID), nullStr(t.AccountID), t.UserID, t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) RecentTransactions(ctx context.Context, userID string, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ?
		 ORDER BY date DESC, created_at DESC, id ASC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}
	defer rows.Close()

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

func (r *SQLiteRepository) TotalAmount(ctx context.Context, f store.TransactionFilter) (store.AmountTotal, error) {
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

func (r *SQLiteRepository) CountTransactions(ctx context.Context, f store.TransactionFilter) (int64, error) {
	where, args := transactionWhere(f)

	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE `+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return count, nil
}

func (r *SQLiteRepository) SignedSum(ctx context.Context, f store.TransactionFilter) (decimal.Decimal, error) {
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

func (r *SQLiteRepository) GroupByCategory(ctx context.Context, f store.TransactionFilter) ([]store.CategoryGroup, error) {
	where, args := transactionWhere(f)
	rows, err := r.db.QueryContext(ctx,
		`SELECT category_id, SUM(amount_cents), COUNT(*) FROM transactions
		 WHERE `+where+`
		 GROUP BY category_id
		 ORDER BY SUM(amount_cents) DESC, category_id IS NULL, category_id ASC`, args...)
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

func (r *SQLiteRepository) GroupByDate(ctx context.Context, f store.TransactionFilter) ([]store.DateGroup, error) {
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
			date  string
			cents int64
		)
		if err := rows.Scan(&date, &cents); err != nil {
			return nil, fmt.Errorf("scan date group: %w", err)
		}
		d, err := parseTime(date)
		if err != nil {
			return nil, err
		}
		out = append(out, store.DateGroup{Date: d, Sum: core.FromCents(cents)})
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UserIDs(ctx context.Context) ([]string, error) {
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
