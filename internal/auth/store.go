package auth

import (
	"context"
	"time"
)

// RevocationStore is the token denylist. Append-only apart from
// pruning; a lookup must observe revocations committed by concurrent
// requests.
type RevocationStore interface {
	Revoke(ctx context.Context, t RevokedToken) error
	IsRevoked(ctx context.Context, token string) (bool, error)
	// PruneBefore deletes entries revoked before cutoff and returns the
	// number removed. A revoked token need not be retained past its own
	// expiry.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Store describes persistence required by the auth subsystem. User
// lookups eagerly resolve roles and permissions in the same fetch.
type Store interface {
	CreateUser(ctx context.Context, u *User) error
	FindUserByID(ctx context.Context, id int64) (*User, error)
	FindUserByUsername(ctx context.Context, username string) (*User, error)
	UpdateUserPassword(ctx context.Context, userID int64, passwordHash string) error

	CreatePermission(ctx context.Context, p *Permission) error
	ListPermissions(ctx context.Context) ([]Permission, error)
	// EnsurePermissions inserts any of perms that do not exist yet;
	// existing names are left untouched.
	EnsurePermissions(ctx context.Context, perms []Permission) error

	CreateRole(ctx context.Context, r *Role) error

	// Grant and assignment operations append; granting something already
	// held is not an error.
	GrantUserPermissions(ctx context.Context, userID int64, permissionIDs []int64) error
	GrantRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error
	AssignUserRoles(ctx context.Context, userID int64, roleIDs []int64) error
	RemoveUserRole(ctx context.Context, userID, roleID int64) error

	RevokedTokens() RevocationStore
}
