package memory

import (
	"context"
	"sort"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

func settingKey(userID, key string) string { return userID + "\x00" + key }

func (s *Store) CreateAccount(ctx context.Context, a core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = a
	return nil
}

func (s *Store) GetAccount(ctx context.Context, userID, id string) (core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok || a.UserID != userID {
		return core.Account{}, store.ErrNotFound
	}
	return a, nil
}

func (s *Store) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Account
	for _, a := range s.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateAccount(ctx context.Context, a core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.accounts[a.ID]
	if !ok || existing.UserID != a.UserID {
		return store.ErrNotFound
	}
	s.accounts[a.ID] = a
	return nil
}

func (s *Store) DeleteAccount(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok || a.UserID != userID {
		return store.ErrNotFound
	}
	delete(s.accounts, id)
	return nil
}

func (s *Store) CreateCategory(ctx context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[c.ID] = c
	return nil
}

func (s *Store) GetCategory(ctx context.Context, userID, id string) (core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok || c.UserID != userID {
		return core.Category{}, store.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Category
	for _, c := range s.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateCategory(ctx context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.categories[c.ID]
	if !ok || existing.UserID != c.UserID {
		return store.ErrNotFound
	}
	s.categories[c.ID] = c
	return nil
}

func (s *Store) DeleteCategory(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok || c.UserID != userID {
		return store.ErrNotFound
	}
	delete(s.categories, id)
	return nil
}

func (s *Store) GetCategoriesByIDs(ctx context.Context, userID string, ids []string) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Category
	for _, id := range ids {
		if c, ok := s.categories[id]; ok && c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) CreateSetting(ctx context.Context, st core.Setting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := settingKey(st.UserID, st.Key)
	if _, ok := s.settings[key]; ok {
		return store.ErrDuplicate
	}
	s.settings[key] = st
	return nil
}

func (s *Store) GetSetting(ctx context.Context, userID, key string) (core.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.settings[settingKey(userID, key)]
	if !ok {
		return core.Setting{}, store.ErrNotFound
	}
	return st, nil
}

func (s *Store) ListSettings(ctx context.Context, userID string) ([]core.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Setting
	for _, st := range s.settings {
		if st.UserID == userID {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Store) UpdateSetting(ctx context.Context, st core.Setting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := settingKey(st.UserID, st.Key)
	if _, ok := s.settings[key]; !ok {
		return store.ErrNotFound
	}
	s.settings[key] = st
	return nil
}

func (s *Store) DeleteSetting(ctx context.Context, userID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := settingKey(userID, key)
	if _, ok := s.settings[k]; !ok {
		return store.ErrNotFound
	}
	delete(s.settings, k)
	return nil
}

func (s *Store) CreateReport(ctx context.Context, r core.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[r.ID] = r
	return nil
}

func (s *Store) GetReport(ctx context.Context, userID, id string) (core.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	if !ok || r.UserID != userID {
		return core.Report{}, store.ErrNotFound
	}
	return r, nil
}

func (s *Store) ListReports(ctx context.Context, userID string) ([]core.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Report
	for _, r := range s.reports {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sortReports(out)
	return out, nil
}

func (s *Store) ListReportsByType(ctx context.Context, userID, reportType string) ([]core.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Report
	for _, r := range s.reports {
		if r.UserID == userID && r.Type == reportType {
			out = append(out, r)
		}
	}
	sortReports(out)
	return out, nil
}

func (s *Store) UpdateReport(ctx context.Context, r core.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.reports[r.ID]
	if !ok || existing.UserID != r.UserID {
		return store.ErrNotFound
	}
	s.reports[r.ID] = r
	return nil
}

func (s *Store) DeleteReport(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok || r.UserID != userID {
		return store.ErrNotFound
	}
	delete(s.reports, id)
	return nil
}

func sortReports(rs []core.Report) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].CreatedAt.After(rs[j].CreatedAt)
		}
		return rs[i].ID < rs[j].ID
	})
}
