package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/quizverse/quizverse/internal/users/domain"
)

type codesRepo struct {
	db dbtx
}

func (r *codesRepo) CreateCode(ctx context.Context, c domain.OneTimeCode) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO one_time_codes (id, user_id, kind, digest, created_at)
VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.UserID, string(c.Kind), c.Digest, utc(c.CreatedAt),
	)
	return mapConflict(err)
}

func (r *codesRepo) DeleteCodes(ctx context.Context, userID string, kind domain.CodeKind) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM one_time_codes WHERE user_id = ? AND kind = ?`, userID, string(kind),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *codesRepo) FindCode(ctx context.Context, userID, digest string, kind domain.CodeKind) (domain.OneTimeCode, bool, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, kind, digest, created_at
FROM one_time_codes
WHERE digest = ?1 AND (?2 = '' OR user_id = ?2)
ORDER BY (kind = ?3) DESC, created_at DESC, id DESC
LIMIT 1`, digest, userID, string(kind))
	return scanCodeRow(row)
}

func (r *codesRepo) TakeCode(ctx context.Context, id string, kind domain.CodeKind) (domain.OneTimeCode, bool, error) {
	row := r.db.QueryRowContext(ctx, `
DELETE FROM one_time_codes
WHERE id = ? AND kind = ?
RETURNING id, user_id, kind, digest, created_at`, id, string(kind))
	return scanCodeRow(row)
}

func (r *codesRepo) DeleteCodesBefore(ctx context.Context, kind domain.CodeKind, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM one_time_codes WHERE kind = ? AND created_at < ?`, string(kind), utc(cutoff),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanCodeRow(row *sql.Row) (domain.OneTimeCode, bool, error) {
	var (
		c    domain.OneTimeCode
		kind string
	)
	err := row.Scan(&c.ID, &c.UserID, &kind, &c.Digest, timestamp{&c.CreatedAt})
	if errors.Is(err, sql.ErrNoRows) {
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
