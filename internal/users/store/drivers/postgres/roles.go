package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/quizverse/quizverse/internal/users/domain"
	"github.com/quizverse/quizverse/internal/users/store"
)

type rolesRepo struct {
	q querier
}

func (r *rolesRepo) FindRoleByName(ctx context.Context, name string) (domain.Role, bool, error) {
	var role domain.Role
	err := r.q.QueryRow(ctx,
		`SELECT id, name, created_at FROM roles WHERE name = $1`, name,
	).Scan(&role.ID, &role.Name, &role.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Role{}, false, nil
	}
	if err != nil {
		return domain.Role{}, false, err
	}
	return role, true, nil
}

func (r *rolesRepo) ListRoles(ctx context.Context) ([]domain.Role, error) {
	rows, err := r.q.Query(ctx, `SELECT id, name, created_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var out []domain.Role
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

func (r *rolesRepo) AssignRole(ctx context.Context, userID, roleName string) error {
	var roleID string
	err := r.q.QueryRow(ctx, `SELECT id FROM roles WHERE name = $1`, roleName).Scan(&roleID)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}

	_, err = r.q.Exec(ctx,
		`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, roleID,
	)
	if err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	return nil
}

func (r *rolesRepo) RoleNames(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.q.Query(ctx, `
SELECT r.name FROM user_roles ur
JOIN roles r ON r.id = ur.role_id
WHERE ur.user_id = $1
ORDER BY r.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("role names: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
