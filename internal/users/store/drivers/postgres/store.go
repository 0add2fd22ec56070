package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizverse/quizverse/internal/users/store"
)

// querier is the subset of pgx shared by pools, transactions and pgxmock.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool is what the store needs from *pgxpool.Pool.
type Pool interface {
	querier
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

type Store struct {
	pool Pool
	dsn  string
	now  func() time.Time
}

type Option func(*Store)

// WithClock overrides the clock used for updated_at columns.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore connects a pgx pool to dsn.
func NewStore(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return New(pool, dsn, opts...), nil
}

// New wraps an existing pool. dsn is only used for migrations.
func New(pool Pool, dsn string, opts ...Option) *Store {
	s := &Store{pool: pool, dsn: dsn, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &txStore{ctx: ctx, tx: tx, now: s.now}, nil
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Users() store.Users       { return &usersRepo{q: s.pool, now: s.now} }
func (s *Store) Roles() store.Roles       { return &rolesRepo{q: s.pool} }
func (s *Store) Codes() store.Codes       { return &codesRepo{q: s.pool} }
func (s *Store) Sessions() store.Sessions { return &sessionsRepo{q: s.pool, now: s.now} }

type txStore struct {
	ctx context.Context
	tx  pgx.Tx
	now func() time.Time
}

func (t *txStore) Commit() error   { return t.tx.Commit(t.ctx) }
func (t *txStore) Rollback() error { return t.tx.Rollback(t.ctx) }

func (t *txStore) Close() error                   { return nil }
func (t *txStore) Ping(ctx context.Context) error { return nil }
func (t *txStore) ApplyMigrations() error         { return nil }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	return nil, pgx.ErrTxClosed
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return pgx.ErrTxClosed
}

func (t *txStore) Users() store.Users       { return &usersRepo{q: t.tx, now: t.now} }
func (t *txStore) Roles() store.Roles       { return &rolesRepo{q: t.tx} }
func (t *txStore) Codes() store.Codes       { return &codesRepo{q: t.tx} }
func (t *txStore) Sessions() store.Sessions { return &sessionsRepo{q: t.tx, now: t.now} }

// mapConflict turns SQLSTATE 23505 into *store.ConflictError. The field comes
// from the constraint name, e.g. users_email_key.
func mapConflict(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != "23505" {
			return err
		}
		return &store.ConflictError{Field: fieldFromConstraint(pgErr.ConstraintName)}
	}
	if strings.Contains(err.Error(), "23505") {
		return &store.ConflictError{Field: fieldFromConstraint(err.Error())}
	}
	return err
}

func fieldFromConstraint(s string) string {
	switch {
	case strings.Contains(s, "users_username_key"):
		return "username"
	case strings.Contains(s, "users_email_key"):
		return "email"
	case strings.Contains(s, "refresh_digest"):
		return "refresh_digest"
	default:
		return "id"
	}
}

func requireRow(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
