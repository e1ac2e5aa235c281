package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// ReportService handles saved report definitions. The Data field is owned
// by the snapshot worker and is never writable through this service.
type ReportService struct {
	store store.ReportStore
}

func NewReportService(st store.ReportStore) *ReportService {
	return &ReportService{store: st}
}

func (s *ReportService) Create(ctx context.Context, r core.Report) (core.Report, error) {
	r.ID = uuid.NewString()
	r.Data = nil
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	if err := r.Validate(); err != nil {
		return core.Report{}, err
	}

	if err := s.store.CreateReport(ctx, r); err != nil {
		return core.Report{}, fmt.Errorf("create report: %w", err)
	}
	return r, nil
}

func (s *ReportService) Get(ctx context.Context, userID, id string) (core.Report, error) {
	return s.store.GetReport(ctx, userID, id)
}

func (s *ReportService) List(ctx context.Context, userID string) ([]core.Report, error) {
	return s.store.ListReports(ctx, userID)
}

func (s *ReportService) Update(ctx context.Context, r core.Report) (core.Report, error) {
	existing, err := s.store.GetReport(ctx, r.UserID, r.ID)
	if err != nil {
		return core.Report{}, err
	}
	r.Data = existing.Data
	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = time.Now().UTC()

	if err := r.Validate(); err != nil {
		return core.Report{}, err
	}

	if err := s.store.UpdateReport(ctx, r); err != nil {
		return core.Report{}, fmt.Errorf("update report: %w", err)
	}
	return r, nil
}

func (s *ReportService) Delete(ctx context.Context, userID, id string) error {
	return s.store.DeleteReport(ctx, userID, id)
}
