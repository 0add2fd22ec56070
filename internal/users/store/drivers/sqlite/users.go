package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/quizverse/quizverse/internal/users/domain"
)

type usersRepo struct {
	db  dbtx
	now func() time.Time
}

const selectUser = `
SELECT u.id, u.username, u.email, u.password_hash, u.is_verified,
       u.created_at, u.updated_at,
       COALESCE(GROUP_CONCAT(r.name, ','), '')
FROM users u
LEFT JOIN user_roles ur ON ur.user_id = u.id
LEFT JOIN roles r ON r.id = ur.role_id
`

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO users (id, username, email, password_hash, is_verified, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.IsVerified, utc(u.CreatedAt), utc(u.UpdatedAt),
	)
	return mapConflict(err)
}

func (r *usersRepo) FindUserByID(ctx context.Context, id string) (domain.User, bool, error) {
	return r.findOne(ctx, selectUser+`WHERE u.id = ? GROUP BY u.id`, id)
}

func (r *usersRepo) FindUserByUsername(ctx context.Context, username string) (domain.User, bool, error) {
	return r.findOne(ctx, selectUser+`WHERE u.username = ? GROUP BY u.id`, username)
}

func (r *usersRepo) FindUserByEmail(ctx context.Context, email string) (domain.User, bool, error) {
	return r.findOne(ctx, selectUser+`WHERE u.email = ? GROUP BY u.id`, email)
}

func (r *usersRepo) FindUserByLogin(ctx context.Context, identifier string) (domain.User, bool, error) {
	return r.findOne(ctx, selectUser+`WHERE u.username = ?1 OR u.email = ?1 GROUP BY u.id LIMIT 1`, identifier)
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, selectUser+`GROUP BY u.id ORDER BY u.created_at, u.id`)
	if err != nil {
		return nil, err
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
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_verified = 1, updated_at = ? WHERE id = ?`,
		utc(r.now()), userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, utc(r.now()), userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) findOne(ctx context.Context, query string, arg any) (domain.User, bool, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, err
	}
	return u, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (domain.User, error) {
	var (
		u     domain.User
		roles string
	)
	if err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsVerified,
		timestamp{&u.CreatedAt}, timestamp{&u.UpdatedAt}, &roles,
	); err != nil {
		return domain.User{}, err
	}
	u.Roles = splitRoles(roles)
	return u, nil
}

func splitRoles(s string) []string {
	if s == "" {
		return []string{}
	}
	names := strings.Split(s, ",")
	slices.Sort(names)
	return names
}
