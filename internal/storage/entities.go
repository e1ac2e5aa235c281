package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) error {
	cents, err := core.Cents(a.Balance)
	if err != nil {
		return fmt.Errorf("balance to cents: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, user_id, name, type, balance_cents, color, icon, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Name, string(a.Type), cents, a.Color, a.Icon, fmtTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert account: %w", mapWriteErr(err))
	}
	return nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, userID, id string) (core.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, type, balance_cents, color, icon, created_at
		 FROM accounts WHERE user_id = ? AND id = ?`, userID, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, store.ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, type, balance_cents, color, icon, created_at
		 FROM accounts WHERE user_id = ? ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateAccount(ctx context.Context, a core.Account) error {
	cents, err := core.Cents(a.Balance)
	if err != nil {
		return fmt.Errorf("balance to cents: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET name = ?, type = ?, balance_cents = ?, color = ?, icon = ?
		 WHERE user_id = ? AND id = ?`,
		a.Name, string(a.Type), cents, a.Color, a.Icon, a.UserID, a.ID)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteAccount(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM accounts WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return requireRow(res)
}

func scanAccount(row rowScanner) (core.Account, error) {
	var (
		a         core.Account
		typ       string
		cents     int64
		createdAt string
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.Name, &typ, &cents, &a.Color, &a.Icon, &createdAt); err != nil {
		return core.Account{}, err
	}
	a.Type = core.AccountType(typ)
	a.Balance = core.FromCents(cents)

	var err error
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Account{}, err
	}
	return a, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, user_id, name, type, color, icon) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, string(c.Type), c.Color, c.Icon)
	if err != nil {
		return fmt.Errorf("insert category: %w", mapWriteErr(err))
	}
	return nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, userID, id string) (core.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, type, color, icon FROM categories WHERE user_id = ? AND id = ?`,
		userID, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, store.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, type, color, icon FROM categories
		 WHERE user_id = ? ORDER BY name ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()
	return collectCategories(rows)
}

func (r *SQLiteRepository) GetCategoriesByIDs(ctx context.Context, userID string, ids []string) ([]core.Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?, ", len(ids)-1) + "?"
	args := make([]any, 0, len(ids)+1)
	args = append(args, userID)
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, type, color, icon FROM categories
		 WHERE user_id = ? AND id IN (`+placeholders+`) ORDER BY id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("get categories by ids: %w", err)
	}
	defer rows.Close()
	return collectCategories(rows)
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, type = ?, color = ?, icon = ? WHERE user_id = ? AND id = ?`,
		c.Name, string(c.Type), c.Color, c.Icon, c.UserID, c.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM categories WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireRow(res)
}

func scanCategory(row rowScanner) (core.Category, error) {
	var (
		c   core.Category
		typ string
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &typ, &c.Color, &c.Icon); err != nil {
		return core.Category{}, err
	}
	c.Type = core.TransactionType(typ)
	return c, nil
}

func collectCategories(rows *sql.Rows) ([]core.Category, error) {
	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateSetting(ctx context.Context, s core.Setting) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settings (user_id, key, value, updated_at) VALUES (?, ?, ?, ?)`,
		s.UserID, s.Key, s.Value, fmtTime(s.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert setting: %w", mapWriteErr(err))
	}
	return nil
}

func (r *SQLiteRepository) GetSetting(ctx context.Context, userID, key string) (core.Setting, error) {
	var (
		s         core.Setting
		updatedAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, key, value, updated_at FROM settings WHERE user_id = ? AND key = ?`,
		userID, key).Scan(&s.UserID, &s.Key, &s.Value, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Setting{}, store.ErrNotFound
	}
	if err != nil {
		return core.Setting{}, fmt.Errorf("get setting: %w", err)
	}
	if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return core.Setting{}, err
	}
	return s, nil
}

func (r *SQLiteRepository) ListSettings(ctx context.Context, userID string) ([]core.Setting, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, key, value, updated_at FROM settings WHERE user_id = ? ORDER BY key ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var out []core.Setting
	for rows.Next() {
		var (
			s         core.Setting
			updatedAt string
		)
		if err := rows.Scan(&s.UserID, &s.Key, &s.Value, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateSetting(ctx context.Context, s core.Setting) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE settings SET value = ?, updated_at = ? WHERE user_id = ? AND key = ?`,
		s.Value, fmtTime(s.UpdatedAt), s.UserID, s.Key)
	if err != nil {
		return fmt.Errorf("update setting: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteSetting(ctx context.Context, userID, key string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM settings WHERE user_id = ? AND key = ?`, userID, key)
	if err != nil {
		return fmt.Errorf("delete setting: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) CreateReport(ctx context.Context, rep core.Report) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reports (id, user_id, name, description, type, filters, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rep.ID, rep.UserID, rep.Name, rep.Description, rep.Type,
		rawJSON(rep.Filters), nullRawJSON(rep.Data), fmtTime(rep.CreatedAt), fmtTime(rep.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert report: %w", mapWriteErr(err))
	}
	return nil
}

func (r *SQLiteRepository) GetReport(ctx context.Context, userID, id string) (core.Report, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, description, type, filters, data, created_at, updated_at
		 FROM reports WHERE user_id = ? AND id = ?`, userID, id)
	rep, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Report{}, store.ErrNotFound
	}
	if err != nil {
		return core.Report{}, fmt.Errorf("get report: %w", err)
	}
	return rep, nil
}

func (r *SQLiteRepository) ListReports(ctx context.Context, userID string) ([]core.Report, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, description, type, filters, data, created_at, updated_at
		 FROM reports WHERE user_id = ? ORDER BY created_at DESC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()
	return collectReports(rows)
}

func (r *SQLiteRepository) ListReportsByType(ctx context.Context, userID, reportType string) ([]core.Report, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, description, type, filters, data, created_at, updated_at
		 FROM reports WHERE user_id = ? AND type = ? ORDER BY created_at DESC, id ASC`,
		userID, reportType)
	if err != nil {
		return nil, fmt.Errorf("list reports by type: %w", err)
	}
	defer rows.Close()
	return collectReports(rows)
}

func (r *SQLiteRepository) UpdateReport(ctx context.Context, rep core.Report) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reports SET name = ?, description = ?, type = ?, filters = ?, data = ?, updated_at = ?
		 WHERE user_id = ? AND id = ?`,
		rep.Name, rep.Description, rep.Type, rawJSON(rep.Filters), nullRawJSON(rep.Data),
		fmtTime(rep.UpdatedAt), rep.UserID, rep.ID)
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteReport(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM reports WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	return requireRow(res)
}

func scanReport(row rowScanner) (core.Report, error) {
	var (
		rep       core.Report
		filters   string
		data      sql.NullString
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&rep.ID, &rep.UserID, &rep.Name, &rep.Description, &rep.Type,
		&filters, &data, &createdAt, &updatedAt); err != nil {
		return core.Report{}, err
	}
	rep.Filters = json.RawMessage(filters)
	if data.Valid {
		rep.Data = json.RawMessage(data.String)
	}

	var err error
	if rep.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Report{}, err
	}
	if rep.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return core.Report{}, err
	}
	return rep, nil
}

func collectReports(rows *sql.Rows) ([]core.Report, error) {
	var out []core.Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func rawJSON(m json.RawMessage) string {
	if len(m) == 0 {
		return "{}"
	}
	return string(m)
}

func nullRawJSON(m json.RawMessage) sql.NullString {
	if len(m) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(m), Valid: true}
}
