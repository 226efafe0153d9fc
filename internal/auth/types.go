package auth

import "time"

// User is an account holder. Store lookups return users with direct
// permissions and roles (including each role's permissions) already
// loaded, so authorization checks never go back to storage.
type User struct {
	ID           int64        `json:"id"`
	Username     string       `json:"username"`
	PasswordHash string       `json:"-"`
	Bio          string       `json:"bio,omitempty"`
	Department   string       `json:"department"`
	IsStaff      bool         `json:"is_staff"`
	IsSuperuser  bool         `json:"is_superuser"`
	Permissions  []Permission `json:"permissions"`
	Roles        []Role       `json:"roles"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Permission is a fine-grained capability identified by name.
type Permission struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Role is a named bundle of permissions. Assigning a role grants the
// user every permission in the bundle; adding a permission to a role
// later reaches existing holders on their next check.
type Role struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Permissions []Permission `json:"permissions"`
}

// RevokedToken is a single denylist entry. Presence alone rejects the
// token regardless of its own expiry claim.
type RevokedToken struct {
	Token     string
	RevokedAt time.Time
}

// EffectivePermissions unions the user's direct grants with every grant
// inherited through assigned roles. The set is recomputed on each call
// and never materialized at rest; role membership can change between
// checks.
func (u *User) EffectivePermissions() map[string]struct{} {
	set := make(map[string]struct{}, len(u.Permissions))
	for _, p := range u.Permissions {
		set[p.Name] = struct{}{}
	}
	for _, r := range u.Roles {
		for _, p := range r.Permissions {
			set[p.Name] = struct{}{}
		}
	}
	return set
}

// HasPermission reports whether the user's effective permission set
// contains name. A user with no grants and no roles always gets false.
func (u *User) HasPermission(name string) bool {
	_, ok := u.EffectivePermissions()[name]
	return ok
}
