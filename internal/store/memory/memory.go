// Package memory provides an in-process implementation of the store
// ports. It backs the tests and the "memory" backend; all aggregation is
// done with exact decimal folds so its results are bit-identical to the
// SQL backends'.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// Store holds everything behind one RWMutex; the workloads this backend
// serves (tests, demos) never contend enough to justify finer locking.
type Store struct {
	mu           sync.RWMutex
	transactions map[string]core.Transaction
	accounts     map[string]core.Account
	categories   map[string]core.Category
	settings     map[string]core.Setting
	groups       map[string]core.Group
	members      map[string]core.GroupMember
	reports      map[string]core.Report
}

func New() *Store {
	return &Store{
		transactions: make(map[string]core.Transaction),
		accounts:     make(map[string]core.Account),
		categories:   make(map[string]core.Category),
		settings:     make(map[string]core.Setting),
		groups:       make(map[string]core.Group),
		members:      make(map[string]core.GroupMember),
		reports:      make(map[string]core.Report),
	}
}

func matches(f store.TransactionFilter, t core.Transaction) bool {
	if t.UserID != f.UserID {
		return false
	}
	if !f.From.IsZero() && t.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.Date.After(f.To) {
		return false
	}
	if f.AccountID != "" && (t.AccountID == nil || *t.AccountID != f.AccountID) {
		return false
	}
	if f.CategoryID != "" && (t.CategoryID == nil || *t.CategoryID != f.CategoryID) {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	return true
}

func (s *Store) CreateTransaction(ctx context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[t.ID] = t
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transactions[id]
	if !ok || t.UserID != userID {
		return core.Transaction{}, store.ErrNotFound
	}
	return t, nil
}

func (s *Store) ListTransactions(ctx context.Context, f store.TransactionFilter) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Transaction
	for _, t := range s.transactions {
		if matches(f, t) {
			out = append(out, t)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.transactions[t.ID]
	if !ok || existing.UserID != t.UserID {
		return store.ErrNotFound
	}
	s.transactions[t.ID] = t
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok || t.UserID != userID {
		return store.ErrNotFound
	}
	delete(s.transactions, id)
	return nil
}

func (s *Store) RecentTransactions(ctx context.Context, userID string, limit int) ([]core.Transaction, error) {
	all, _ := s.ListTransactions(ctx, store.TransactionFilter{UserID: userID})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *Store) TotalAmount(ctx context.Context, f store.TransactionFilter) (store.AmountTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := store.AmountTotal{Sum: decimal.Zero}
	for _, t := range s.transactions {
		if matches(f, t) {
			total.Sum = total.Sum.Add(t.Amount)
			total.Count++
		}
	}
	return total, nil
}

func (s *Store) CountTransactions(ctx context.Context, f store.TransactionFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, t := range s.transactions {
		if matches(f, t) {
			n++
		}
	}
	return n, nil
}

func (s *Store) SignedSum(ctx context.Context, f store.TransactionFilter) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := decimal.Zero
	for _, t := range s.transactions {
		if matches(f, t) {
			sum = sum.Add(t.Signed())
		}
	}
	return sum, nil
}

func (s *Store) GroupByCategory(ctx context.Context, f store.TransactionFilter) ([]store.CategoryGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type agg struct {
		id    *string
		sum   decimal.Decimal
		count int64
	}
	const nilKey = "\x00"
	groups := map[string]*agg{}
	for _, t := range s.transactions {
		if !matches(f, t) {
			continue
		}
		key := nilKey
		var id *string
		if t.CategoryID != nil {
			key = *t.CategoryID
			v := *t.CategoryID
			id = &v
		}
		g, ok := groups[key]
		if !ok {
			g = &agg{id: id, sum: decimal.Zero}
			groups[key] = g
		}
		g.sum = g.sum.Add(t.Amount)
		g.count++
	}

	out := make([]store.CategoryGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, store.CategoryGroup{CategoryID: g.id, Sum: g.sum, Count: g.count})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Sum.Equal(out[j].Sum) {
			return out[i].Sum.GreaterThan(out[j].Sum)
		}
		return groupKey(out[i].CategoryID) < groupKey(out[j].CategoryID)
	})
	return out, nil
}

func (s *Store) GroupByDate(ctx context.Context, f store.TransactionFilter) ([]store.DateGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sums := map[time.Time]decimal.Decimal{}
	for _, t := range s.transactions {
		if matches(f, t) {
			key := t.Date.UTC()
			sums[key] = sums[key].Add(t.Signed())
		}
	}
	out := make([]store.DateGroup, 0, len(sums))
	for date, sum := range sums {
		out = append(out, store.DateGroup{Date: date, Sum: sum})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) UserIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]bool{}
	var ids []string
	for _, t := range s.transactions {
		if !seen[t.UserID] {
			seen[t.UserID] = true
			ids = append(ids, t.UserID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func groupKey(id *string) string {
	if id == nil {
		return "\xff"
	}
	return *id
}

func sortNewestFirst(ts []core.Transaction) {
	sort.Slice(ts, func(i, j int) bool {
		if !ts[i].Date.Equal(ts[j].Date) {
			return ts[i].Date.After(ts[j].Date)
		}
		if !ts[i].CreatedAt.Equal(ts[j].CreatedAt) {
			return ts[i].CreatedAt.After(ts[j].CreatedAt)
		}
		return ts[i].ID < ts[j].ID
	})
}
