package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

func (r *Repository) CreateAccount(ctx context.Context, a core.Account) error {
	cents, err := core.Cents(a.Balance)
	if err != nil {
		return fmt.Errorf("balance to cents: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, user_id, name, type, balance_cents, color, icon, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.UserID, a.Name, string(a.Type), cents, a.Color, a.Icon, a.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert account: %w", mapWriteErr(err))
	}
	return nil
}

func (r *Repository) GetAccount(ctx context.Context, userID, id string) (core.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, type, balance_cents, color, icon, created_at
		 FROM accounts WHERE user_id = $1 AND id = $2`, userID, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, store.ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (r *Repository) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, type, balance_cents, color, icon, created_at
		 FROM accounts WHERE user_id = $1 ORDER BY created_at ASC, id ASC`, userID)
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

func (r *Repository) UpdateAccount(ctx context.Context, a core.Account) error {
	cents, err := core.Cents(a.Balance)
	if err != nil {
		return fmt.Errorf("balance to cents: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET name = $1, type = $2, balance_cents = $3, color = $4, icon = $5
		 WHERE user_id = $6 AND id = $7`,
		a.Name, string(a.Type), cents, a.Color, a.Icon, a.UserID, a.ID)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return requireRow(res)
}

func (r *Repository) DeleteAccount(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM accounts WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return requireRow(res)
}

func scanAccount(row rowScanner) (core.Account, error) {
	var (
		a     core.Account
		typ   string
		cents int64
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.Name, &typ, &cents, &a.Color, &a.Icon, &a.CreatedAt); err != nil {
		return core.Account{}, err
	}
	a.Type = core.AccountType(typ)
	a.Balance = core.FromCents(cents)
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

func (r *Repository) CreateCategory(ctx context.Context, c core.Category) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, user_id, name, type, color, icon) VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.UserID, c.Name, string(c.Type), c.Color, c.Icon)
	if err != nil {
		return fmt.Errorf("insert category: %w", mapWriteErr(err))
	}
	return nil
}

func (r *Repository) GetCategory(ctx context.Context, userID, id string) (core.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, type, color, icon FROM categories WHERE user_id = $1 AND id = $2`,
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

func (r *Repository) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, type, color, icon FROM categories
		 WHERE user_id = $1 ORDER BY name ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()
	return collectCategories(rows)
}

func (r *Repository) GetCategoriesByIDs(ctx context.Context, userID string, ids []string) ([]core.Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, type, color, icon FROM categories
		 WHERE user_id = $1 AND id = ANY($2) ORDER BY id ASC`, userID, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get categories by ids: %w", err)
	}
	defer rows.Close()
	return collectCategories(rows)
}

func (r *Repository) UpdateCategory(ctx context.Context, c core.Category) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = $1, type = $2, color = $3, icon = $4 WHERE user_id = $5 AND id = $6`,
		c.Name, string(c.Type), c.Color, c.Icon, c.UserID, c.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return requireRow(res)
}

func (r *Repository) DeleteCategory(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM categories WHERE user_id = $1 AND id = $2`, userID, id)
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

func (r *Repository) CreateSetting(ctx context.Context, s core.Setting) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settings (user_id, key, value, updated_at) VALUES ($1, $2, $3, $4)`,
		s.UserID, s.Key, s.Value, s.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert setting: %w", mapWriteErr(err))
	}
	return nil
}

func (r *Repository) GetSetting(ctx context.Context, userID, key string) (core.Setting, error) {
	var s core.Setting
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, key, value, updated_at FROM settings WHERE user_id = $1 AND key = $2`,
		userID, key).Scan(&s.UserID, &s.Key, &s.Value, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Setting{}, store.ErrNotFound
	}
	if err != nil {
		return core.Setting{}, fmt.Errorf("get setting: %w", err)
	}
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}

func (r *Repository) ListSettings(ctx context.Context, userID string) ([]core.Setting, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, key, value, updated_at FROM settings WHERE user_id = $1 ORDER BY key ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var out []core.Setting
	for rows.Next() {
		var s core.Setting
		if err := rows.Scan(&s.UserID, &s.Key, &s.Value, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		s.UpdatedAt = s.UpdatedAt.UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateSetting(ctx context.Context, s core.Setting) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE settings SET value = $1, updated_at = $2 WHERE user_id = $3 AND key = $4`,
		s.Value, s.UpdatedAt.UTC(), s.UserID, s.Key)
	if err != nil {
		return fmt.Errorf("update setting: %w", err)
	}
	return requireRow(res)
}

func (r *Repository) DeleteSetting(ctx context.Context, userID, key string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM settings WHERE user_id = $1 AND key = $2`, userID, key)
	if err != nil {
		return fmt.Errorf("delete setting: %w", err)
	}
	return requireRow(res)
}

func (r *Repository) CreateReport(ctx context.Context, rep core.Report) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reports (id, user_id, name, description, type, filters, data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rep.ID, rep.UserID, rep.Name, rep.Description, rep.Type,
		rawJSON(rep.Filters), nullRawJSON(rep.Data), rep.CreatedAt.UTC(), rep.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert report: %w", mapWriteErr(err))
	}
	return nil
}

func (r *Repository) GetReport(ctx context.Context, userID, id string) (core.Report, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, description, type, filters, data, created_at, updated_at
		 FROM reports WHERE user_id = $1 AND id = $2`, userID, id)
	rep, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Report{}, store.ErrNotFound
	}
	if err != nil {
		return core.Report{}, fmt.Errorf("get report: %w", err)
	}
	return rep, nil
}

func (r *Repository) ListReports(ctx context.Context, userID string) ([]core.Report, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, description, type, filters, data, created_at, updated_at
		 FROM reports WHERE user_id = $1 ORDER BY created_at DESC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()
	return collectReports(rows)
}

func (r *Repository) ListReportsByType(ctx context.Context, userID, reportType string) ([]core.Report, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, description, type, filters, data, created_at, updated_at
		 FROM reports WHERE user_id = $1 AND type = $2 ORDER BY created_at DESC, id ASC`,
		userID, reportType)
	if err != nil {
		return nil, fmt.Errorf("list reports by type: %w", err)
	}
	defer rows.Close()
	return collectReports(rows)
}

func (r *Repository) UpdateReport(ctx context.Context, rep core.Report) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reports SET name = $1, description = $2, type = $3, filters = $4, data = $5, updated_at = $6
		 WHERE user_id = $7 AND id = $8`,
		rep.Name, rep.Description, rep.Type, rawJSON(rep.Filters), nullRawJSON(rep.Data),
		rep.UpdatedAt.UTC(), rep.UserID, rep.ID)
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	return requireRow(res)
}

func (r *Repository) DeleteReport(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM reports WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	return requireRow(res)
}

func scanReport(row rowScanner) (core.Report, error) {
	var (
		rep     core.Report
		filters []byte
		data    []byte
	)
	if err := row.Scan(&rep.ID, &rep.UserID, &rep.Name, &rep.Description, &rep.Type,
		&filters, &data, &rep.CreatedAt, &rep.UpdatedAt); err != nil {
		return core.Report{}, err
	}
	rep.Filters = json.RawMessage(filters)
	if len(data) > 0 {
		rep.Data = json.RawMessage(data)
	}
	rep.CreatedAt = rep.CreatedAt.UTC()
	rep.UpdatedAt = rep.UpdatedAt.UTC()
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

func rawJSON(m json.RawMessage) []byte {
	if len(m) == 0 {
		return []byte("{}")
	}
	return []byte(m)
}

func nullRawJSON(m json.RawMessage) any {
	if len(m) == 0 {
		return nil
	}
	return []byte(m)
}
