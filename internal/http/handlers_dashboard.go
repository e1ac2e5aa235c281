package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
)

// parseDate accepts a date-only value or a full RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD or RFC 3339", s)
	}
	return t.UTC(), nil
}

// parseDashboardFilters reads the shared dashboard query parameters. An
// unknown period falls back to month; a malformed date is a client error.
func parseDashboardFilters(r *http.Request) (core.Filters, error) {
	q := r.URL.Query()

	f := core.Filters{
		Period:     core.ParsePeriod(q.Get("period")),
		AccountID:  strings.TrimSpace(q.Get("accountId")),
		CategoryID: strings.TrimSpace(q.Get("categoryId")),
	}

	if v := strings.TrimSpace(q.Get("startDate")); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return core.Filters{}, err
		}
		f.StartDate = &t
	}
	if v := strings.TrimSpace(q.Get("endDate")); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return core.Filters{}, err
		}
		f.EndDate = &t
	}

	return f, nil
}

// serveCached answers from the per-user dashboard cache when possible and
// computes (with a bounded context) otherwise.
func (s *Server) serveCached(w http.ResponseWriter, r *http.Request, compute func(ctx context.Context) (any, error)) {
	key := s.dashCacheKey(r)
	if data, found := s.dashCache.Get(key); found {
		slog.DebugContext(r.Context(), "Dashboard cache hit", "key", key)
		writeJSON(w, http.StatusOK, data)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	data, err := compute(ctx)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.dashCache.Set(key, data)
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	filters, err := parseDashboardFilters(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.serveCached(w, r, func(ctx context.Context) (any, error) {
		return s.engine.Overview(ctx, userID(r), filters)
	})
}

func (s *Server) handleCategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	filters, err := parseDashboardFilters(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.serveCached(w, r, func(ctx context.Context) (any, error) {
		return s.engine.CategoryBreakdown(ctx, userID(r), filters)
	})
}

func (s *Server) handleAccountBalances(w http.ResponseWriter, r *http.Request) {
	s.serveCached(w, r, func(ctx context.Context) (any, error) {
		return s.engine.AccountBalances(ctx, userID(r))
	})
}

func (s *Server) handleBalanceHistory(w http.ResponseWriter, r *http.Request) {
	filters, err := parseDashboardFilters(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.serveCached(w, r, func(ctx context.Context) (any, error) {
		return s.engine.BalanceHistory(ctx, userID(r), filters)
	})
}

func (s *Server) handleMonthlyTrends(w http.ResponseWriter, r *http.Request) {
	months := 6
	if v := strings.TrimSpace(r.URL.Query().Get("months")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid months: must be an integer")
			return
		}
		months = n
	}

	s.serveCached(w, r, func(ctx context.Context) (any, error) {
		return s.engine.MonthlyTrends(ctx, userID(r), months)
	})
}

func (s *Server) handleRecentTransactions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit: must be an integer")
			return
		}
		limit = n
	}

	s.serveCached(w, r, func(ctx context.Context) (any, error) {
		return s.engine.RecentTransactions(ctx, userID(r), limit)
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	s.serveCached(w, r, func(ctx context.Context) (any, error) {
		return s.engine.Summary(ctx, userID(r))
	})
}
