package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

func (r *Repository) CreateGroup(ctx context.Context, g core.Group) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO groups (id, name, description, created_at)
		 VALUES ($1, $2, $3, $4)`,
		g.ID, g.Name, g.Description, g.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert group: %w", mapWriteErr(err))
	}
	return nil
}

func (r *Repository) GetGroup(ctx context.Context, id string) (core.Group, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, created_at FROM groups WHERE id = $1`, id)
	g, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Group{}, store.ErrNotFound
	}
	if err != nil {
		return core.Group{}, fmt.Errorf("get group: %w", err)
	}
	return g, nil
}

func (r *Repository) ListGroupsByMember(ctx context.Context, userID string) ([]core.Group, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT g.id, g.name, g.description, g.created_at
		 FROM groups g
		 JOIN group_members m ON m.group_id = g.id
		 WHERE m.user_id = $1
		 ORDER BY g.created_at ASC, g.id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var out []core.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateGroup(ctx context.Context, g core.Group) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE groups SET name = $1, description = $2 WHERE id = $3`,
		g.Name, g.Description, g.ID)
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	return requireRow(res)
}

func (r *Repository) DeleteGroup(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return requireRow(res)
}

func (r *Repository) AddGroupMember(ctx context.Context, m core.GroupMember) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO group_members (group_id, user_id, role, added_at)
		 VALUES ($1, $2, $3, $4)`,
		m.GroupID, m.UserID, string(m.Role), m.AddedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert group member: %w", mapWriteErr(err))
	}
	return nil
}

func (r *Repository) GetGroupMember(ctx context.Context, groupID, userID string) (core.GroupMember, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT group_id, user_id, role, added_at
		 FROM group_members WHERE group_id = $1 AND user_id = $2`, groupID, userID)
	m, err := scanGroupMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.GroupMember{}, store.ErrNotFound
	}
	if err != nil {
		return core.GroupMember{}, fmt.Errorf("get group member: %w", err)
	}
	return m, nil
}

func (r *Repository) ListGroupMembers(ctx context.Context, groupID string) ([]core.GroupMember, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT group_id, user_id, role, added_at
		 FROM group_members WHERE group_id = $1
		 ORDER BY added_at ASC, user_id ASC`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	defer rows.Close()

	var out []core.GroupMember
	for rows.Next() {
		m, err := scanGroupMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan group member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Repository) RemoveGroupMember(ctx context.Context, groupID, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`, groupID, userID)
	if err != nil {
		return fmt.Errorf("remove group member: %w", err)
	}
	return requireRow(res)
}

func scanGroup(row rowScanner) (core.Group, error) {
	var g core.Group
	if err := row.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedAt); err != nil {
		return core.Group{}, err
	}
	g.CreatedAt = g.CreatedAt.UTC()
	return g, nil
}

func scanGroupMember(row rowScanner) (core.GroupMember, error) {
	var (
		m    core.GroupMember
		role string
	)
	if err := row.Scan(&m.GroupID, &m.UserID, &role, &m.AddedAt); err != nil {
		return core.GroupMember{}, err
	}
	m.Role = core.GroupRole(role)
	m.AddedAt = m.AddedAt.UTC()
	return m, nil
}
