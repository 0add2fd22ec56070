package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/quizverse/quizverse/internal/users/domain"
)

type codesRepo struct {
	q querier
}

func (r *codesRepo) CreateCode(ctx context.Context, c domain.OneTimeCode) error {
	_, err := r.q.Exec(ctx, `
INSERT INTO one_time_codes (id, user_id, kind, digest, created_at)
VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.UserID, string(c.Kind), c.Digest, c.CreatedAt,
	)
	if err != nil {
		return mapConflict(err)
	}
	return nil
}

func (r *codesRepo) DeleteCodes(ctx context.Context, userID string, kind domain.CodeKind) (int64, error) {
	tag, err := r.q.Exec(ctx,
		`DELETE FROM one_time_codes WHERE user_id = $1 AND kind = $2`, userID, string(kind),
	)
	if err != nil {
		return 0, fmt.Errorf("delete codes: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *codesRepo) FindCode(ctx context.Context, userID, digest string, kind domain.CodeKind) (domain.OneTimeCode, bool, error) {
	row := r.q.QueryRow(ctx, `
SELECT id, user_id, kind, digest, created_at
FROM one_time_codes
WHERE digest = $1 AND ($2::text = '' OR user_id = $2)
ORDER BY (kind = $3) DESC, created_at DESC, id DESC
LIMIT 1`, digest, userID, string(kind))
	return scanCode(row)
}

func (r *codesRepo) TakeCode(ctx context.Context, id string, kind domain.CodeKind) (domain.OneTimeCode, bool, error) {
	row := r.q.QueryRow(ctx, `
DELETE FROM one_time_codes
WHERE id = $1 AND kind = $2
RETURNING id, user_id, kind, digest, created_at`, id, string(kind))
	return scanCode(row)
}

func (r *codesRepo) DeleteCodesBefore(ctx context.Context, kind domain.CodeKind, cutoff time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx,
		`DELETE FROM one_time_codes WHERE kind = $1 AND created_at < $2`, string(kind), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("delete stale codes: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanCode(row pgx.Row) (domain.OneTimeCode, bool, error) {
	var (
		c    domain.OneTimeCode
		kind string
	)
	err := row.Scan(&c.ID, &c.UserID, &kind, &c.Digest, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.OneTimeCode{}, false, nil
	}
	if err != nil {
		return domain.OneTimeCode{}, false, err
	}
	if c.Kind, err = domain.ParseCodeKind(kind); err != nil {
		return domain.OneTimeCode{}, false, err
	}
	return c, true, nil
}
