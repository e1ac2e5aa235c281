package memory

import (
	"context"
	"sort"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

func memberKey(groupID, userID string) string { return groupID + "\x00" + userID }

func (s *Store) CreateGroup(ctx context.Context, g core.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[g.ID]; ok {
		return store.ErrDuplicate
	}
	s.groups[g.ID] = g
	return nil
}

func (s *Store) GetGroup(ctx context.Context, id string) (core.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[id]
	if !ok {
		return core.Group{}, store.ErrNotFound
	}
	return g, nil
}

func (s *Store) ListGroupsByMember(ctx context.Context, userID string) ([]core.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Group
	for _, m := range s.members {
		if m.UserID != userID {
			continue
		}
		if g, ok := s.groups[m.GroupID]; ok {
			out = append(out, g)
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

func (s *Store) UpdateGroup(ctx context.Context, g core.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[g.ID]; !ok {
		return store.ErrNotFound
	}
	s.groups[g.ID] = g
	return nil
}

func (s *Store) DeleteGroup(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.groups, id)
	for key, m := range s.members {
		if m.GroupID == id {
			delete(s.members, key)
		}
	}
	return nil
}

func (s *Store) AddGroupMember(ctx context.Context, m core.GroupMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memberKey(m.GroupID, m.UserID)
	if _, ok := s.members[key]; ok {
		return store.ErrDuplicate
	}
	s.members[key] = m
	return nil
}

func (s *Store) GetGroupMember(ctx context.Context, groupID, userID string) (core.GroupMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[memberKey(groupID, userID)]
	if !ok {
		return core.GroupMember{}, store.ErrNotFound
	}
	return m, nil
}

func (s *Store) ListGroupMembers(ctx context.Context, groupID string) ([]core.GroupMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.GroupMember
	for _, m := range s.members {
		if m.GroupID == groupID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].AddedAt.Before(out[j].AddedAt)
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func (s *Store) RemoveGroupMember(ctx context.Context, groupID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memberKey(groupID, userID)
	if _, ok := s.members[key]; !ok {
		return store.ErrNotFound
	}
	delete(s.members, key)
	return nil
}
