package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

func TestGroupMembership(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)
	g := core.Group{ID: "g1", Name: "household", Description: "shared bills", CreatedAt: created}
	if err := repo.CreateGroup(ctx, g); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if err := repo.AddGroupMember(ctx, core.GroupMember{
		GroupID: "g1", UserID: "alice", Role: core.RoleAdmin, AddedAt: created,
	}); err != nil {
		t.Fatalf("AddGroupMember: %v", err)
	}
	if err := repo.AddGroupMember(ctx, core.GroupMember{
		GroupID: "g1", UserID: "bob", Role: core.RoleMember, AddedAt: created.Add(time.Minute),
	}); err != nil {
		t.Fatalf("AddGroupMember: %v", err)
	}

	err := repo.AddGroupMember(ctx, core.GroupMember{
		GroupID: "g1", UserID: "bob", Role: core.RoleMember, AddedAt: created,
	})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("duplicate member expected ErrDuplicate, got %v", err)
	}

	got, err := repo.GetGroup(ctx, "g1")
	if err != nil {
		t.Fatalf("GetGroup: %v", err)
	}
	if got.Name != "household" || !got.CreatedAt.Equal(created) {
		t.Fatalf("group mangled: %+v", got)
	}

	members, err := repo.ListGroupMembers(ctx, "g1")
	if err != nil {
		t.Fatalf("ListGroupMembers: %v", err)
	}
	if len(members) != 2 || members[0].UserID != "alice" || members[1].UserID != "bob" {
		t.Fatalf("expected alice then bob, got %+v", members)
	}
	if members[0].Role != core.RoleAdmin {
		t.Fatalf("alice expected ADMIN, got %s", members[0].Role)
	}

	mine, err := repo.ListGroupsByMember(ctx, "bob")
	if err != nil {
		t.Fatalf("ListGroupsByMember: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != "g1" {
		t.Fatalf("bob expected [g1], got %+v", mine)
	}
	none, err := repo.ListGroupsByMember(ctx, "carol")
	if err != nil {
		t.Fatalf("ListGroupsByMember: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("carol expected no groups, got %+v", none)
	}

	g.Name = "flatmates"
	if err := repo.UpdateGroup(ctx, g); err != nil {
		t.Fatalf("UpdateGroup: %v", err)
	}
	got, err = repo.GetGroup(ctx, "g1")
	if err != nil {
		t.Fatalf("GetGroup: %v", err)
	}
	if got.Name != "flatmates" {
		t.Fatalf("update not applied: %+v", got)
	}

	if err := repo.RemoveGroupMember(ctx, "g1", "bob"); err != nil {
		t.Fatalf("RemoveGroupMember: %v", err)
	}
	if err := repo.RemoveGroupMember(ctx, "g1", "bob"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second removal expected ErrNotFound, got %v", err)
	}

	if err := repo.DeleteGroup(ctx, "g1"); err != nil {
		t.Fatalf("DeleteGroup: %v", err)
	}
	if _, err := repo.GetGroup(ctx, "g1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("deleted group expected ErrNotFound, got %v", err)
	}
	// Deleting the group clears the remaining membership rows too.
	if _, err := repo.GetGroupMember(ctx, "g1", "alice"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("membership should be gone, got %v", err)
	}
}
