package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// ErrForbidden is returned when a member attempts a mutation reserved
// for group admins.
var ErrForbidden = errors.New("admins only")

// GroupDetail is a group together with its membership rows.
type GroupDetail struct {
	core.Group
	Members []core.GroupMember `json:"members"`
}

// GroupService handles shared groups. The creator becomes an ADMIN
// member; updating, deleting and membership changes require the ADMIN
// role, reading requires membership.
type GroupService struct {
	store store.GroupStore
}

func NewGroupService(st store.GroupStore) *GroupService {
	return &GroupService{store: st}
}

func (s *GroupService) Create(ctx context.Context, userID string, g core.Group) (core.Group, error) {
	g.ID = uuid.NewString()
	g.CreatedAt = time.Now().UTC()

	if err := g.Validate(); err != nil {
		return core.Group{}, err
	}

	if err := s.store.CreateGroup(ctx, g); err != nil {
		return core.Group{}, fmt.Errorf("create group: %w", err)
	}
	if err := s.store.AddGroupMember(ctx, core.GroupMember{
		GroupID: g.ID,
		UserID:  userID,
		Role:    core.RoleAdmin,
		AddedAt: g.CreatedAt,
	}); err != nil {
		return core.Group{}, fmt.Errorf("add group creator: %w", err)
	}
	return g, nil
}

func (s *GroupService) List(ctx context.Context, userID string) ([]GroupDetail, error) {
	groups, err := s.store.ListGroupsByMember(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}

	out := make([]GroupDetail, 0, len(groups))
	for _, g := range groups {
		members, err := s.store.ListGroupMembers(ctx, g.ID)
		if err != nil {
			return nil, fmt.Errorf("list group members: %w", err)
		}
		out = append(out, GroupDetail{Group: g, Members: members})
	}
	return out, nil
}

// Get returns the group with its members. Non-members get ErrNotFound,
// not ErrForbidden, so group ids cannot be probed.
func (s *GroupService) Get(ctx context.Context, userID, id string) (GroupDetail, error) {
	if _, err := s.store.GetGroupMember(ctx, id, userID); err != nil {
		return GroupDetail{}, err
	}

	g, err := s.store.GetGroup(ctx, id)
	if err != nil {
		return GroupDetail{}, err
	}
	members, err := s.store.ListGroupMembers(ctx, id)
	if err != nil {
		return GroupDetail{}, fmt.Errorf("list group members: %w", err)
	}
	return GroupDetail{Group: g, Members: members}, nil
}

func (s *GroupService) Update(ctx context.Context, userID string, g core.Group) (core.Group, error) {
	existing, err := s.requireAdmin(ctx, g.ID, userID)
	if err != nil {
		return core.Group{}, err
	}
	g.CreatedAt = existing.CreatedAt

	if err := g.Validate(); err != nil {
		return core.Group{}, err
	}

	if err := s.store.UpdateGroup(ctx, g); err != nil {
		return core.Group{}, fmt.Errorf("update group: %w", err)
	}
	return g, nil
}

func (s *GroupService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.requireAdmin(ctx, id, userID); err != nil {
		return err
	}
	return s.store.DeleteGroup(ctx, id)
}

// AddMember adds a user to the group. An empty role defaults to MEMBER;
// adding an existing member fails with store.ErrDuplicate.
func (s *GroupService) AddMember(ctx context.Context, adminID, groupID string, m core.GroupMember) (core.GroupMember, error) {
	if _, err := s.requireAdmin(ctx, groupID, adminID); err != nil {
		return core.GroupMember{}, err
	}

	m.GroupID = groupID
	m.AddedAt = time.Now().UTC()
	if m.Role == "" {
		m.Role = core.RoleMember
	}
	if err := m.Validate(); err != nil {
		return core.GroupMember{}, err
	}

	if err := s.store.AddGroupMember(ctx, m); err != nil {
		return core.GroupMember{}, fmt.Errorf("add group member: %w", err)
	}
	return m, nil
}

func (s *GroupService) RemoveMember(ctx context.Context, adminID, groupID, userID string) error {
	if _, err := s.requireAdmin(ctx, groupID, adminID); err != nil {
		return err
	}
	return s.store.RemoveGroupMember(ctx, groupID, userID)
}

// requireAdmin resolves the group, then checks that userID holds the
// ADMIN role in it. A missing group is ErrNotFound; an existing group
// where the caller is absent or a plain member is ErrForbidden.
func (s *GroupService) requireAdmin(ctx context.Context, groupID, userID string) (core.Group, error) {
	g, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return core.Group{}, err
	}

	m, err := s.store.GetGroupMember(ctx, groupID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return core.Group{}, ErrForbidden
	}
	if err != nil {
		return core.Group{}, fmt.Errorf("get group member: %w", err)
	}
	if m.Role != core.RoleAdmin {
		return core.Group{}, ErrForbidden
	}
	return g, nil
}
