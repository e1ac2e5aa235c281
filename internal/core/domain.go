package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

const (
	Checking   AccountType = "CHECKING"
	Savings    AccountType = "SAVINGS"
	Credit     AccountType = "CREDIT"
	Cash       AccountType = "CASH"
	Investment AccountType = "INVESTMENT"
)

const (
	RoleAdmin  GroupRole = "ADMIN"
	RoleMember GroupRole = "MEMBER"
)

type (
	TransactionType string

	AccountType string

	// Transaction is an owned, immutable-once-settled money movement.
	// Amount is always non-negative; the sign of its contribution to a
	// balance is derived from Type, never stored.
	Transaction struct {
		ID          string          `json:"id"`
		UserID      string          `json:"userId"`
		Title       string          `json:"title"`
		Description string          `json:"description,omitempty"`
		Amount      decimal.Decimal `json:"amount"`
		Type        TransactionType `json:"type"`
		Date        time.Time       `json:"date"`
		CategoryID  *string         `json:"categoryId"`
		AccountID   *string         `json:"accountId"`
		CreatedAt   time.Time       `json:"createdAt"`
	}

	// Account balance is a snapshot maintained by account CRUD, not
	// recomputed from transaction history.
	Account struct {
		ID        string          `json:"id"`
		UserID    string          `json:"userId"`
		Name      string          `json:"name"`
		Type      AccountType     `json:"type"`
		Balance   decimal.Decimal `json:"balance"`
		Color     string          `json:"color"`
		Icon      string          `json:"icon"`
		CreatedAt time.Time       `json:"createdAt"`
	}

	Category struct {
		ID     string          `json:"id"`
		UserID string          `json:"userId"`
		Name   string          `json:"name"`
		Type   TransactionType `json:"type"`
		Color  string          `json:"color"`
		Icon   string          `json:"icon"`
	}

	// Setting is a per-user key/value preference. Key is unique per user.
	Setting struct {
		UserID    string    `json:"userId"`
		Key       string    `json:"key"`
		Value     string    `json:"value"`
		UpdatedAt time.Time `json:"updatedAt"`
	}

	GroupRole string

	// Group is a shared container of users. Unlike every other entity it
	// carries no owning user id; access is mediated by membership, with
	// mutations restricted to ADMIN members.
	Group struct {
		ID          string    `json:"id"`
		Name        string    `json:"name"`
		Description string    `json:"description,omitempty"`
		CreatedAt   time.Time `json:"createdAt"`
	}

	// GroupMember links a user to a group. Identity is external, so a
	// member is just the opaque user id plus its role.
	GroupMember struct {
		GroupID string    `json:"groupId"`
		UserID  string    `json:"userId"`
		Role    GroupRole `json:"role"`
		AddedAt time.Time `json:"addedAt"`
	}

	// Report holds saved report metadata. Filters is the caller-supplied
	// report definition; Data is filled by the snapshot worker for
	// materialized reports and is empty otherwise.
	Report struct {
		ID          string          `json:"id"`
		UserID      string          `json:"userId"`
		Name        string          `json:"name"`
		Description string          `json:"description,omitempty"`
		Type        string          `json:"type"`
		Filters     json.RawMessage `json:"filters,omitempty"`
		Data        json.RawMessage `json:"data,omitempty"`
		CreatedAt   time.Time       `json:"createdAt"`
		UpdatedAt   time.Time       `json:"updatedAt"`
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrInvalidAccountType = errors.New("invalid account type")
	ErrInvalidDate        = errors.New("invalid date")
	ErrEmptyTitle         = errors.New("empty title")
	ErrTitleTooLong       = errors.New("title too long (max 200 characters)")
	ErrEmptyName          = errors.New("empty name")
	ErrEmptyKey           = errors.New("empty key")
	ErrInvalidMonths      = errors.New("months must be between 1 and 120")
	ErrInvalidLimit       = errors.New("limit must not be negative")
	ErrEmptyUserID        = errors.New("empty user id")
	ErrInvalidRole        = errors.New("invalid group role")
)

func (t TransactionType) IsValid() bool {
	switch t {
	case Income, Expense:
		return true
	default:
		return false
	}
}

func (a AccountType) IsValid() bool {
	switch a {
	case Checking, Savings, Credit, Cash, Investment:
		return true
	default:
		return false
	}
}

// Signed returns the amount's contribution to a balance: positive for
// income, negative for expense.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

func (t Transaction) Validate() error {
	if len(strings.TrimSpace(t.Title)) == 0 {
		return ErrEmptyTitle
	}
	if len(t.Title) > 200 {
		return ErrTitleTooLong
	}
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	return ValidateAmount(t.Amount)
}

func (a Account) Validate() error {
	if len(strings.TrimSpace(a.Name)) == 0 {
		return ErrEmptyName
	}
	if !a.Type.IsValid() {
		return ErrInvalidAccountType
	}
	// Stored balances may legitimately be negative (credit accounts).
	if !a.Balance.Shift(2).IsInteger() {
		return ErrInvalidAmount
	}
	return nil
}

func (c Category) Validate() error {
	if len(strings.TrimSpace(c.Name)) == 0 {
		return ErrEmptyName
	}
	if !c.Type.IsValid() {
		return ErrInvalidType
	}
	return nil
}

func (s Setting) Validate() error {
	if len(strings.TrimSpace(s.Key)) == 0 {
		return ErrEmptyKey
	}
	return nil
}

func (r GroupRole) IsValid() bool {
	switch r {
	case RoleAdmin, RoleMember:
		return true
	default:
		return false
	}
}

func (g Group) Validate() error {
	if len(strings.TrimSpace(g.Name)) == 0 {
		return ErrEmptyName
	}
	return nil
}

func (m GroupMember) Validate() error {
	if len(strings.TrimSpace(m.UserID)) == 0 {
		return ErrEmptyUserID
	}
	if !m.Role.IsValid() {
		return ErrInvalidRole
	}
	return nil
}

func (r Report) Validate() error {
	if len(strings.TrimSpace(r.Name)) == 0 {
		return ErrEmptyName
	}
	return nil
}
