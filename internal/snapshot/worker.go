// Package snapshot materializes monthly trend reports on a schedule so
// dashboard clients can read a precomputed snapshot instead of recomputing
// the aggregation on every request.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/report"
	"fintrack/internal/store"
)

// ReportTypeMonthlyTrends tags the materialized report rows this worker owns.
const ReportTypeMonthlyTrends = "monthly-trends"

// Worker recomputes monthly trend snapshots for every known user. It runs
// on a cron schedule and, when an event consumer is attached, also reacts
// to transaction change events for single users.
type Worker struct {
	backend store.Backend
	engine  *report.Engine
	months  int

	cron     *cron.Cron
	consumer *events.Client
}

func NewWorker(backend store.Backend, engine *report.Engine, months int, consumer *events.Client) *Worker {
	return &Worker{
		backend:  backend,
		engine:   engine,
		months:   months,
		consumer: consumer,
	}
}

// Start schedules periodic refreshes and, if a consumer is configured,
// begins reacting to transaction events. It returns immediately; work runs
// in background goroutines until ctx is canceled.
func (w *Worker) Start(ctx context.Context, schedule string) error {
	w.cron = cron.New()
	_, err := w.cron.AddFunc(schedule, func() {
		refreshCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()

		if err := w.RefreshAll(refreshCtx); err != nil {
			slog.ErrorContext(refreshCtx, "Scheduled snapshot refresh failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule snapshot refresh: %w", err)
	}
	w.cron.Start()

	slog.InfoContext(ctx, "Snapshot worker started",
		"schedule", schedule,
		"months", w.months,
		"event_driven", w.consumer != nil)

	if w.consumer != nil {
		go func() {
			err := w.consumer.ConsumeTransactionEvents(ctx, func(event *events.TransactionEvent) error {
				refreshCtx, cancel := context.WithTimeout(ctx, time.Minute)
				defer cancel()
				return w.RefreshUser(refreshCtx, event.UserID)
			})
			if err != nil && ctx.Err() == nil {
				slog.ErrorContext(ctx, "Event consumption stopped", "error", err)
			}
		}()
	}

	return nil
}

// Stop halts the cron scheduler and waits for a running job to finish.
func (w *Worker) Stop() {
	if w.cron != nil {
		<-w.cron.Stop().Done()
	}
}

// RefreshAll recomputes the snapshot for every user with transactions.
// Per-user failures are logged and skipped so one bad user does not stall
// the rest.
func (w *Worker) RefreshAll(ctx context.Context) error {
	userIDs, err := w.backend.UserIDs(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	refreshed := 0
	for _, userID := range userIDs {
		if err := w.RefreshUser(ctx, userID); err != nil {
			slog.ErrorContext(ctx, "Failed to refresh snapshot",
				"user_id", userID,
				"error", err)
			continue
		}
		refreshed++
	}

	slog.InfoContext(ctx, "Snapshot refresh completed",
		"users", len(userIDs),
		"refreshed", refreshed)
	return nil
}

// RefreshUser recomputes and stores the monthly trends snapshot for one
// user. The snapshot lives in a single report row per user, created on
// first refresh and updated in place afterwards.
func (w *Worker) RefreshUser(ctx context.Context, userID string) error {
	trends, err := w.engine.MonthlyTrends(ctx, userID, w.months)
	if err != nil {
		return fmt.Errorf("compute monthly trends: %w", err)
	}

	data, err := json.Marshal(trends)
	if err != nil {
		return fmt.Errorf("marshal trends: %w", err)
	}

	now := time.Now().UTC()

	existing, err := w.backend.ListReportsByType(ctx, userID, ReportTypeMonthlyTrends)
	if err != nil {
		return fmt.Errorf("list snapshot reports: %w", err)
	}

	if len(existing) > 0 {
		rep := existing[0]
		rep.Data = data
		rep.UpdatedAt = now
		if err := w.backend.UpdateReport(ctx, rep); err != nil {
			return fmt.Errorf("update snapshot report: %w", err)
		}
		return nil
	}

	rep := core.Report{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      "Monthly trends",
		Type:      ReportTypeMonthlyTrends,
		Filters:   json.RawMessage(fmt.Sprintf(`{"months":%d}`, w.months)),
		Data:      data,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := w.backend.CreateReport(ctx, rep); err != nil {
		return fmt.Errorf("create snapshot report: %w", err)
	}
	return nil
}
