package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// SettingService handles per-user key/value preferences. Put upserts: the
// first write for a key creates it, later writes replace the value.
type SettingService struct {
	store store.SettingStore
}

func NewSettingService(st store.SettingStore) *SettingService {
	return &SettingService{store: st}
}

func (s *SettingService) Put(ctx context.Context, setting core.Setting) (core.Setting, error) {
	setting.UpdatedAt = time.Now().UTC()

	if err := setting.Validate(); err != nil {
		return core.Setting{}, err
	}

	err := s.store.CreateSetting(ctx, setting)
	if errors.Is(err, store.ErrDuplicate) {
		err = s.store.UpdateSetting(ctx, setting)
	}
	if err != nil {
		return core.Setting{}, fmt.Errorf("put setting: %w", err)
	}
	return setting, nil
}

// Create writes a new key and fails with store.ErrDuplicate when the
// key already exists, unlike Put which replaces it.
func (s *SettingService) Create(ctx context.Context, setting core.Setting) (core.Setting, error) {
	setting.UpdatedAt = time.Now().UTC()

	if err := setting.Validate(); err != nil {
		return core.Setting{}, err
	}

	if err := s.store.CreateSetting(ctx, setting); err != nil {
		return core.Setting{}, fmt.Errorf("create setting: %w", err)
	}
	return setting, nil
}

func (s *SettingService) Get(ctx context.Context, userID, key string) (core.Setting, error) {
	return s.store.GetSetting(ctx, userID, key)
}

func (s *SettingService) List(ctx context.Context, userID string) ([]core.Setting, error) {
	return s.store.ListSettings(ctx, userID)
}

func (s *SettingService) Delete(ctx context.Context, userID, key string) error {
	return s.store.DeleteSetting(ctx, userID, key)
}
