package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/quizverse/quizverse/internal/users/domain"
	"github.com/quizverse/quizverse/internal/users/store"
)

type rolesRepo struct {
	db dbtx
}

func (r *rolesRepo) FindRoleByName(ctx context.Context, name string) (domain.Role, bool, error) {
	var role domain.Role
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM roles WHERE name = ?`, name,
	).Scan(&role.ID, &role.Name, timestamp{&role.CreatedAt})
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Role{}, false, nil
	}
	if err != nil {
		return domain.Role{}, false, err
	}
	return role, true, nil
}

func (r *rolesRepo) ListRoles(ctx context.Context) ([]domain.Role, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, created_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Role
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.ID, &role.Name, timestamp{&role.CreatedAt}); err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

func (r *rolesRepo) AssignRole(ctx context.Context, userID, roleName string) error {
	res, err := r.db.ExecContext(ctx, `
INSERT INTO user_roles (user_id, role_id)
SELECT ?, id FROM roles WHERE name = ?
ON CONFLICT (user_id, role_id) DO NOTHING`,
		userID, roleName,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either already held or the role is unknown.
		if _, found, err := r.FindRoleByName(ctx, roleName); err != nil {
			return err
		} else if !found {
			return store.ErrNotFound
		}
	}
	return nil
}

func (r *rolesRepo) RoleNames(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT r.name FROM user_roles ur
JOIN roles r ON r.id = ur.role_id
WHERE ur.user_id = ?
ORDER BY r.name`, userID)
	if err != nil {
		return nil, err
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
