package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/quizverse/quizverse/internal/users/domain"
)

type usersRepo struct {
	q   querier
	now func() time.Time
}

const selectUser = `
SELECT u.id, u.username, u.email, u.password_hash, u.is_verified, u.created_at, u.updated_at,
       COALESCE(array_agg(r.name ORDER BY r.name) FILTER (WHERE r.name IS NOT NULL), '{}') AS roles
FROM users u
LEFT JOIN user_roles ur ON ur.user_id = u.id
LEFT JOIN roles r ON r.id = ur.role_id`

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.q.Exec(ctx, `
INSERT INTO users (id, username, email, password_hash, is_verified, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.IsVerified, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return mapConflict(err)
	}
	return nil
}

func (r *usersRepo) FindUserByID(ctx context.Context, id string) (domain.User, bool, error) {
	return r.findOne(ctx, selectUser+` WHERE u.id = $1 GROUP BY u.id`, id)
}

func (r *usersRepo) FindUserByUsername(ctx context.Context, username string) (domain.User, bool, error) {
	return r.findOne(ctx, selectUser+` WHERE u.username = $1 GROUP BY u.id`, username)
}

func (r *usersRepo) FindUserByEmail(ctx context.Context, email string) (domain.User, bool, error) {
	return r.findOne(ctx, selectUser+` WHERE u.email = $1 GROUP BY u.id`, email)
}

func (r *usersRepo) FindUserByLogin(ctx context.Context, identifier string) (domain.User, bool, error) {
	return r.findOne(ctx, selectUser+` WHERE u.username = $1 OR u.email = $1 GROUP BY u.id LIMIT 1`, identifier)
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.q.Query(ctx, selectUser+` GROUP BY u.id ORDER BY u.created_at, u.id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *usersRepo) MarkVerified(ctx context.Context, userID string) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE users SET is_verified = TRUE, updated_at = $1 WHERE id = $2`,
		r.now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	return requireRow(tag)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`,
		newHash, r.now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	return requireRow(tag)
}

func (r *usersRepo) findOne(ctx context.Context, query string, arg any) (domain.User, bool, error) {
	u, err := scanUser(r.q.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, err
	}
	return u, true, nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsVerified,
		&u.CreatedAt, &u.UpdatedAt, &u.Roles,
	)
	if u.Roles == nil {
		u.Roles = []string{}
	}
	return u, err
}
