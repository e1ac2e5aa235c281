package report

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// CategoryBreakdown groups the period's expenses and income by category.
// The category filter is never applied here: the breakdown produces the
// per-category split. Uncategorized transactions form their own row with
// a nil category id rather than being dropped, and a category deleted
// after its transactions were recorded yields nil metadata, not an error.
func (e *Engine) CategoryBreakdown(ctx context.Context, userID string, filters core.Filters) (Breakdown, error) {
	rng := core.ResolveRange(e.now(), filters)
	base := e.baseFilter(userID, rng, filters)

	var expenseGroups, incomeGroups []store.CategoryGroup

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		f := base
		f.Type = core.Expense
		var err error
		if expenseGroups, err = e.transactions.GroupByCategory(gctx, f); err != nil {
			return fmt.Errorf("group expenses: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		f := base
		f.Type = core.Income
		var err error
		if incomeGroups, err = e.transactions.GroupByCategory(gctx, f); err != nil {
			return fmt.Errorf("group income: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Breakdown{}, err
	}

	// One batched metadata lookup for all distinct non-nil category ids
	// across both groupings.
	ids := distinctCategoryIDs(expenseGroups, incomeGroups)
	meta := map[string]core.Category{}
	if len(ids) > 0 {
		categories, err := e.categories.GetCategoriesByIDs(ctx, userID, ids)
		if err != nil {
			return Breakdown{}, fmt.Errorf("resolve categories: %w", err)
		}
		for _, c := range categories {
			meta[c.ID] = c
		}
	}

	return Breakdown{
		Period:   rng,
		Expenses: buildRows(expenseGroups, meta),
		Income:   buildRows(incomeGroups, meta),
	}, nil
}

func distinctCategoryIDs(groups ...[]store.CategoryGroup) []string {
	seen := map[string]bool{}
	var ids []string
	for _, gs := range groups {
		for _, g := range gs {
			if g.CategoryID == nil || seen[*g.CategoryID] {
				continue
			}
			seen[*g.CategoryID] = true
			ids = append(ids, *g.CategoryID)
		}
	}
	return ids
}

// buildRows attaches metadata and fixes the ordering: amount descending,
// category id as tie-break, uncategorized last among equals. Sorting here
// keeps responses byte-identical across backends and repeat calls.
func buildRows(groups []store.CategoryGroup, meta map[string]core.Category) []CategoryRow {
	rows := make([]CategoryRow, 0, len(groups))
	for _, g := range groups {
		row := CategoryRow{
			CategoryID: g.CategoryID,
			Amount:     g.Sum,
			Count:      g.Count,
		}
		if g.CategoryID != nil {
			if c, ok := meta[*g.CategoryID]; ok {
				cat := c
				row.Category = &cat
			}
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Amount.Equal(rows[j].Amount) {
			return rows[i].Amount.GreaterThan(rows[j].Amount)
		}
		return categoryKey(rows[i].CategoryID) < categoryKey(rows[j].CategoryID)
	})
	return rows
}

func categoryKey(id *string) string {
	if id == nil {
		return "\xff" // uncategorized sorts after any uuid
	}
	return *id
}
