package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/quizverse/quizverse/internal/users/domain"
	"github.com/quizverse/quizverse/internal/users/store"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return New(mock, "postgres://test", WithClock(func() time.Time { return fixedNow })), mock
}

func sampleUser() domain.User {
	return domain.User{
		ID:           "01JUSER0000000000000000001",
		Username:     "alice",
		Email:        "alice@example.edu",
		PasswordHash: "$argon2id$dummy",
		CreatedAt:    fixedNow,
		UpdatedAt:    fixedNow,
	}
}

func userColumns() []string {
	return []string{"id", "username", "email", "password_hash", "is_verified", "created_at", "updated_at", "roles"}
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	u := sampleUser()

	t.Run("inserts", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec("INSERT INTO users").
			WithArgs(u.ID, u.Username, u.Email, u.PasswordHash, false, u.CreatedAt, u.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, s.Users().CreateUser(ctx, u))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate email", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec("INSERT INTO users").
			WithArgs(u.ID, u.Username, u.Email, u.PasswordHash, false, u.CreatedAt, u.UpdatedAt).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

		err := s.Users().CreateUser(ctx, u)
		require.ErrorIs(t, err, store.ErrAlreadyExists)
		var conflict *store.ConflictError
		require.ErrorAs(t, err, &conflict)
		require.Equal(t, "email", conflict.Field)
	})

	t.Run("duplicate username from plain error text", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec("INSERT INTO users").
			WithArgs(u.ID, u.Username, u.Email, u.PasswordHash, false, u.CreatedAt, u.UpdatedAt).
			WillReturnError(errors.New(`ERROR: duplicate key value violates unique constraint "users_username_key" (SQLSTATE 23505)`))

		var conflict *store.ConflictError
		require.ErrorAs(t, s.Users().CreateUser(ctx, u), &conflict)
		require.Equal(t, "username", conflict.Field)
	})
}

func TestFindUserByLogin(t *testing.T) {
	ctx := context.Background()
	u := sampleUser()

	t.Run("found", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT .+ FROM users u .+ WHERE u.username = \$1 OR u.email = \$1`).
			WithArgs("alice@example.edu").
			WillReturnRows(pgxmock.NewRows(userColumns()).AddRow(
				u.ID, u.Username, u.Email, u.PasswordHash, true, u.CreatedAt, u.UpdatedAt, []string{"Student"},
			))

		got, found, err := s.Users().FindUserByLogin(ctx, "alice@example.edu")
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, u.ID, got.ID)
		require.True(t, got.IsVerified)
		require.Equal(t, []string{"Student"}, got.Roles)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing is not an error", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT .+ FROM users u`).
			WithArgs("nobody").
			WillReturnError(pgx.ErrNoRows)

		_, found, err := s.Users().FindUserByLogin(ctx, "nobody")
		require.NoError(t, err)
		require.False(t, found)
	})
}

func TestMarkVerifiedNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("UPDATE users SET is_verified").
		WithArgs(fixedNow, "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.ErrorIs(t, s.Users().MarkVerified(context.Background(), "missing"), store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignRole(t *testing.T) {
	ctx := context.Background()

	t.Run("grants", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery("SELECT id FROM roles").
			WithArgs("Admin").
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("01JA0000000000000000000ADM"))
		mock.ExpectExec("INSERT INTO user_roles").
			WithArgs("u1", "01JA0000000000000000000ADM").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, s.Roles().AssignRole(ctx, "u1", "Admin"))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown role", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery("SELECT id FROM roles").
			WithArgs("Janitor").
			WillReturnError(pgx.ErrNoRows)

		require.ErrorIs(t, s.Roles().AssignRole(ctx, "u1", "Janitor"), store.ErrNotFound)
	})
}

func TestTakeCode(t *testing.T) {
	ctx := context.Background()
	cols := []string{"id", "user_id", "kind", "digest", "created_at"}

	t.Run("returns deleted row", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(`DELETE FROM one_time_codes .+ RETURNING`).
			WithArgs("c1", "verify").
			WillReturnRows(pgxmock.NewRows(cols).AddRow("c1", "u1", "verify", "digest", fixedNow))

		c, found, err := s.Codes().TakeCode(ctx, "c1", domain.CodeVerify)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, domain.CodeVerify, c.Kind)
		require.Equal(t, fixedNow, c.CreatedAt)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already taken", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(`DELETE FROM one_time_codes`).
			WithArgs("c1", "verify").
			WillReturnError(pgx.ErrNoRows)

		_, found, err := s.Codes().TakeCode(ctx, "c1", domain.CodeVerify)
		require.NoError(t, err)
		require.False(t, found)
	})
}

func TestFindCodeUnscoped(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT .+ FROM one_time_codes .+ ORDER BY \(kind = \$3\) DESC`).
		WithArgs("digest", "", "forgot").
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "kind", "digest", "created_at"}).
			AddRow("c2", "u1", "forgot", "digest", fixedNow))

	c, found, err := s.Codes().FindCode(context.Background(), "", "digest", domain.CodeForgot)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, domain.CodeForgot, c.Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteSession(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("DELETE FROM sessions WHERE user_id").
		WithArgs("u1", "access-digest").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	n, err := s.Sessions().DeleteSession(context.Background(), "u1", "access-digest")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commits", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE users SET password_hash").
			WithArgs("new-hash", fixedNow, "u1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		err := s.WithTx(ctx, func(tx store.Tx) error {
			return tx.Users().UpdatePasswordHash(ctx, "u1", "new-hash")
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		require.ErrorIs(t, s.WithTx(ctx, func(store.Tx) error { return boom }), boom)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMigrateURL(t *testing.T) {
	require.Equal(t, "pgx5://u:p@db:5432/users?sslmode=disable", migrateURL("postgres://u:p@db:5432/users?sslmode=disable"))
	require.Equal(t, "pgx5://db/users", migrateURL("postgresql://db/users"))
	require.Equal(t, "pgx5://db/users", migrateURL("pgx5://db/users"))
}
