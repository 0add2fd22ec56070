package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/quizverse/quizverse/internal/users/domain"
)

type sessionsRepo struct {
	q   querier
	now func() time.Time
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := r.q.Exec(ctx, `
INSERT INTO sessions (id, user_id, refresh_digest, access_digest, expires_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.UserID, s.RefreshDigest, s.AccessDigest, s.ExpiresAt, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return mapConflict(err)
	}
	return nil
}

func (r *sessionsRepo) FindSessionByRefresh(ctx context.Context, refreshDigest string) (domain.Session, bool, error) {
	var s domain.Session
	err := r.q.QueryRow(ctx, `
SELECT id, user_id, refresh_digest, access_digest, expires_at, created_at, updated_at
FROM sessions WHERE refresh_digest = $1`, refreshDigest,
	).Scan(&s.ID, &s.UserID, &s.RefreshDigest, &s.AccessDigest, &s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, err
	}
	return s, true, nil
}

func (r *sessionsRepo) UpdateSessionAccess(ctx context.Context, id, accessDigest string) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE sessions SET access_digest = $1, updated_at = $2 WHERE id = $3`,
		accessDigest, r.now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update session access: %w", err)
	}
	return requireRow(tag)
}

func (r *sessionsRepo) DeleteSession(ctx context.Context, userID, accessDigest string) (int64, error) {
	tag, err := r.q.Exec(ctx,
		`DELETE FROM sessions WHERE user_id = $1 AND access_digest = $2`, userID, accessDigest,
	)
	if err != nil {
		return 0, fmt.Errorf("delete session: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
