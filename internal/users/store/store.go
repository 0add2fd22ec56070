package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quizverse/quizverse/internal/users/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// ConflictError names the unique column a write collided on. It matches
// ErrAlreadyExists under errors.Is.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("store: %s already exists", e.Field)
}

func (e *ConflictError) Is(target error) bool { return target == ErrAlreadyExists }

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement it and hand out the sub-repositories. A Tx-scoped Store refuses to
// start another transaction.
type Store interface {
	Users() Users
	Roles() Roles
	Codes() Codes
	Sessions() Sessions

	ApplyMigrations() error

	// Tx starts a read/write transaction. The caller MUST call Commit() or
	// Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, rolling back when fn returns an error
	// and committing otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transactional store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Users lookups report absence through the found flag, never through an error.
type Users interface {
	// CreateUser inserts a user row. Roles are attached separately through
	// Roles.AssignRole. A duplicate username or email yields *ConflictError.
	CreateUser(ctx context.Context, u domain.User) error

	FindUserByID(ctx context.Context, id string) (domain.User, bool, error)
	FindUserByUsername(ctx context.Context, username string) (domain.User, bool, error)
	FindUserByEmail(ctx context.Context, email string) (domain.User, bool, error)

	// FindUserByLogin matches the identifier against username or email in a
	// single query.
	FindUserByLogin(ctx context.Context, identifier string) (domain.User, bool, error)

	// ListUsers returns every user ordered by creation, oldest first.
	ListUsers(ctx context.Context) ([]domain.User, error)

	// MarkVerified sets is_verified. ErrNotFound when no such user.
	MarkVerified(ctx context.Context, userID string) error

	// UpdatePasswordHash replaces the argon2 hash. ErrNotFound when no such user.
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error
}

type Roles interface {
	FindRoleByName(ctx context.Context, name string) (domain.Role, bool, error)
	ListRoles(ctx context.Context) ([]domain.Role, error)

	// AssignRole grants a role by name. Granting a held role is a no-op.
	// ErrNotFound when the role does not exist.
	AssignRole(ctx context.Context, userID, roleName string) error

	// RoleNames returns the user's role names sorted.
	RoleNames(ctx context.Context, userID string) ([]string, error)
}

// Codes holds OTPs and reset form tokens by fingerprint.
type Codes interface {
	CreateCode(ctx context.Context, c domain.OneTimeCode) error

	// DeleteCodes removes every code of a kind held by the user.
	DeleteCodes(ctx context.Context, userID string, kind domain.CodeKind) (int64, error)

	// FindCode returns the most recently created code with the digest,
	// preferring codes of kind. A code of another kind is returned only when
	// none of kind matches. An empty userID matches any owner.
	FindCode(ctx context.Context, userID, digest string, kind domain.CodeKind) (domain.OneTimeCode, bool, error)

	// TakeCode deletes the code only if it still exists with the given kind
	// and returns it. found is true only for the caller that removed it.
	TakeCode(ctx context.Context, id string, kind domain.CodeKind) (domain.OneTimeCode, bool, error)

	// DeleteCodesBefore removes codes of a kind created before cutoff.
	DeleteCodesBefore(ctx context.Context, kind domain.CodeKind, cutoff time.Time) (int64, error)
}

type Sessions interface {
	CreateSession(ctx context.Context, s domain.Session) error
	FindSessionByRefresh(ctx context.Context, refreshDigest string) (domain.Session, bool, error)

	// UpdateSessionAccess rebinds the session to a new access token.
	// ErrNotFound when the session is gone.
	UpdateSessionAccess(ctx context.Context, id, accessDigest string) error

	// DeleteSession removes the user's session bound to the access token.
	DeleteSession(ctx context.Context, userID, accessDigest string) (int64, error)

	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}
