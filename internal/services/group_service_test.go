package services

import (
	"context"
	"errors"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/store"
	"fintrack/internal/store/memory"
)

func newGroup(t *testing.T, svc *GroupService, creator, name string) core.Group {
	t.Helper()
	g, err := svc.Create(context.Background(), creator, core.Group{Name: name})
	if err != nil {
		t.Fatalf("Create(%s): %v", name, err)
	}
	return g
}

func TestGroupServiceCreateMakesCreatorAdmin(t *testing.T) {
	svc := NewGroupService(memory.New())
	ctx := context.Background()

	g := newGroup(t, svc, "alice", "household")
	if g.ID == "" || g.CreatedAt.IsZero() {
		t.Fatalf("id and createdAt not assigned: %+v", g)
	}

	detail, err := svc.Get(ctx, "alice", g.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(detail.Members) != 1 || detail.Members[0].UserID != "alice" || detail.Members[0].Role != core.RoleAdmin {
		t.Fatalf("creator expected as sole ADMIN, got %+v", detail.Members)
	}

	if _, err := svc.Create(ctx, "alice", core.Group{Name: " "}); !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
}

func TestGroupServiceAdminOnlyMutations(t *testing.T) {
	svc := NewGroupService(memory.New())
	ctx := context.Background()

	g := newGroup(t, svc, "alice", "household")
	if _, err := svc.AddMember(ctx, "alice", g.ID, core.GroupMember{UserID: "bob"}); err != nil {
		t.Fatalf("AddMember: %v", err)
	}

	g.Name = "flatmates"
	if _, err := svc.Update(ctx, "bob", g); !errors.Is(err, ErrForbidden) {
		t.Fatalf("member update expected ErrForbidden, got %v", err)
	}
	if _, err := svc.Update(ctx, "carol", g); !errors.Is(err, ErrForbidden) {
		t.Fatalf("outsider update expected ErrForbidden, got %v", err)
	}
	if err := svc.Delete(ctx, "bob", g.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("member delete expected ErrForbidden, got %v", err)
	}
	if _, err := svc.AddMember(ctx, "bob", g.ID, core.GroupMember{UserID: "carol"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("member adding expected ErrForbidden, got %v", err)
	}

	updated, err := svc.Update(ctx, "alice", g)
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if updated.Name != "flatmates" || !updated.CreatedAt.Equal(g.CreatedAt) {
		t.Fatalf("update mangled: %+v", updated)
	}

	g.ID = "missing"
	if _, err := svc.Update(ctx, "alice", g); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing group expected ErrNotFound, got %v", err)
	}
}

func TestGroupServiceMembership(t *testing.T) {
	svc := NewGroupService(memory.New())
	ctx := context.Background()

	g := newGroup(t, svc, "alice", "household")

	added, err := svc.AddMember(ctx, "alice", g.ID, core.GroupMember{UserID: "bob"})
	if err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if added.Role != core.RoleMember {
		t.Fatalf("empty role expected MEMBER default, got %s", added.Role)
	}

	if _, err := svc.AddMember(ctx, "alice", g.ID, core.GroupMember{UserID: "bob"}); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("duplicate member expected ErrDuplicate, got %v", err)
	}
	if _, err := svc.AddMember(ctx, "alice", g.ID, core.GroupMember{UserID: "carol", Role: "OWNER"}); !errors.Is(err, core.ErrInvalidRole) {
		t.Fatalf("bad role expected ErrInvalidRole, got %v", err)
	}

	// Non-members cannot see the group at all.
	if _, err := svc.Get(ctx, "carol", g.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("outsider get expected ErrNotFound, got %v", err)
	}

	mine, err := svc.List(ctx, "bob")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(mine) != 1 || len(mine[0].Members) != 2 {
		t.Fatalf("bob expected 1 group with 2 members, got %+v", mine)
	}

	if err := svc.RemoveMember(ctx, "alice", g.ID, "bob"); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	if err := svc.RemoveMember(ctx, "alice", g.ID, "bob"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second removal expected ErrNotFound, got %v", err)
	}

	if err := svc.Delete(ctx, "alice", g.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, "alice", g.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("deleted group expected ErrNotFound, got %v", err)
	}
}
