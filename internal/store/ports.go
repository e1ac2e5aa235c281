// Package store defines the persistence ports the aggregation engine and
// the CRUD services depend on. Any backend (SQLite, Postgres, in-memory)
// satisfies the same contract: filter predicates plus sum / count /
// group-by aggregate capability. Every filter carries a mandatory UserID;
// implementations must never return rows owned by another user.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

var (
	// ErrNotFound is returned when an entity does not exist or is owned
	// by a different user. Callers cannot distinguish the two cases, on
	// purpose.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a uniqueness constraint is violated
	// (for example a setting key that already exists for the user).
	ErrDuplicate = errors.New("already exists")
)

type (
	// TransactionFilter is the base predicate for transaction queries.
	// Zero-valued fields are not applied; UserID is always applied.
	TransactionFilter struct {
		UserID     string
		From       time.Time // inclusive; zero = unbounded
		To         time.Time // inclusive; zero = unbounded
		AccountID  string
		CategoryID string
		Type       core.TransactionType // "" = any
	}

	// AmountTotal is an unsigned sum plus row count over matching
	// transactions. An empty match yields an exact zero sum.
	AmountTotal struct {
		Sum   decimal.Decimal
		Count int64
	}

	// CategoryGroup is one per-category aggregation row. A nil
	// CategoryID groups the uncategorized transactions.
	CategoryGroup struct {
		CategoryID *string
		Sum        decimal.Decimal
		Count      int64
	}

	// DateGroup is the signed net change for one distinct date value.
	DateGroup struct {
		Date time.Time
		Sum  decimal.Decimal
	}
)

// TransactionStore combines transaction CRUD with the aggregate query
// capability the reporting engine folds over.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, t core.Transaction) error
	GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error)
	ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error)
	UpdateTransaction(ctx context.Context, t core.Transaction) error
	DeleteTransaction(ctx context.Context, userID, id string) error

	// RecentTransactions returns up to limit transactions, newest first.
	RecentTransactions(ctx context.Context, userID string, limit int) ([]core.Transaction, error)

	// TotalAmount sums unsigned amounts and counts matching rows.
	TotalAmount(ctx context.Context, f TransactionFilter) (AmountTotal, error)
	// CountTransactions counts matching rows regardless of type.
	CountTransactions(ctx context.Context, f TransactionFilter) (int64, error)
	// SignedSum sums income positively and expense negatively.
	SignedSum(ctx context.Context, f TransactionFilter) (decimal.Decimal, error)
	// GroupByCategory aggregates unsigned amounts per category id,
	// ordered by sum descending. Uncategorized rows group under nil.
	GroupByCategory(ctx context.Context, f TransactionFilter) ([]CategoryGroup, error)
	// GroupByDate aggregates signed amounts per distinct date value,
	// ordered by date ascending.
	GroupByDate(ctx context.Context, f TransactionFilter) ([]DateGroup, error)

	// UserIDs lists every distinct owner with at least one transaction.
	UserIDs(ctx context.Context) ([]string, error)
}

type AccountStore interface {
	CreateAccount(ctx context.Context, a core.Account) error
	GetAccount(ctx context.Context, userID, id string) (core.Account, error)
	ListAccounts(ctx context.Context, userID string) ([]core.Account, error)
	UpdateAccount(ctx context.Context, a core.Account) error
	DeleteAccount(ctx context.Context, userID, id string) error
}

type CategoryStore interface {
	CreateCategory(ctx context.Context, c core.Category) error
	GetCategory(ctx context.Context, userID, id string) (core.Category, error)
	ListCategories(ctx context.Context, userID string) ([]core.Category, error)
	UpdateCategory(ctx context.Context, c core.Category) error
	DeleteCategory(ctx context.Context, userID, id string) error

	// GetCategoriesByIDs batch-resolves category metadata. Missing ids
	// are simply absent from the result; a dangling reference is not an
	// error.
	GetCategoriesByIDs(ctx context.Context, userID string, ids []string) ([]core.Category, error)
}

type SettingStore interface {
	CreateSetting(ctx context.Context, s core.Setting) error
	GetSetting(ctx context.Context, userID, key string) (core.Setting, error)
	ListSettings(ctx context.Context, userID string) ([]core.Setting, error)
	UpdateSetting(ctx context.Context, s core.Setting) error
	DeleteSetting(ctx context.Context, userID, key string) error
}

// GroupStore persists shared groups and their memberships. Groups have
// no owning user; the membership rows are the access control surface and
// the service layer enforces the admin-only rules on top of them.
type GroupStore interface {
	CreateGroup(ctx context.Context, g core.Group) error
	GetGroup(ctx context.Context, id string) (core.Group, error)
	// ListGroupsByMember returns every group the user belongs to,
	// oldest first.
	ListGroupsByMember(ctx context.Context, userID string) ([]core.Group, error)
	UpdateGroup(ctx context.Context, g core.Group) error
	// DeleteGroup removes the group and all its membership rows.
	DeleteGroup(ctx context.Context, id string) error

	// AddGroupMember fails with ErrDuplicate when the user is already a
	// member of the group.
	AddGroupMember(ctx context.Context, m core.GroupMember) error
	GetGroupMember(ctx context.Context, groupID, userID string) (core.GroupMember, error)
	ListGroupMembers(ctx context.Context, groupID string) ([]core.GroupMember, error)
	RemoveGroupMember(ctx context.Context, groupID, userID string) error
}

type ReportStore interface {
	CreateReport(ctx context.Context, r core.Report) error
	GetReport(ctx context.Context, userID, id string) (core.Report, error)
	ListReports(ctx context.Context, userID string) ([]core.Report, error)
	ListReportsByType(ctx context.Context, userID, reportType string) ([]core.Report, error)
	UpdateReport(ctx context.Context, r core.Report) error
	DeleteReport(ctx context.Context, userID, id string) error
}

// Backend is the full persistence surface a single storage implementation
// provides.
type Backend interface {
	TransactionStore
	AccountStore
	CategoryStore
	SettingStore
	GroupStore
	ReportStore
}
