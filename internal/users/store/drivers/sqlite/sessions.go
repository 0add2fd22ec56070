package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/quizverse/quizverse/internal/users/domain"
)

type sessionsRepo struct {
	db  dbtx
	now func() time.Time
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO sessions (id, user_id, refresh_digest, access_digest, expires_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.RefreshDigest, s.AccessDigest,
		utc(s.ExpiresAt), utc(s.CreatedAt), utc(s.UpdatedAt),
	)
	return mapConflict(err)
}

func (r *sessionsRepo) FindSessionByRefresh(ctx context.Context, refreshDigest string) (domain.Session, bool, error) {
	var s domain.Session
	err := r.db.QueryRowContext(ctx, `
SELECT id, user_id, refresh_digest, access_digest, expires_at, created_at, updated_at
FROM sessions WHERE refresh_digest = ?`, refreshDigest,
	).Scan(
		&s.ID, &s.UserID, &s.RefreshDigest, &s.AccessDigest,
		timestamp{&s.ExpiresAt}, timestamp{&s.CreatedAt}, timestamp{&s.UpdatedAt},
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, err
	}
	return s, true, nil
}

func (r *sessionsRepo) UpdateSessionAccess(ctx context.Context, id, accessDigest string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET access_digest = ?, updated_at = ? WHERE id = ?`,
		accessDigest, utc(r.now()), id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *sessionsRepo) DeleteSession(ctx context.Context, userID, accessDigest string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE user_id = ? AND access_digest = ?`, userID, accessDigest,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, utc(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
