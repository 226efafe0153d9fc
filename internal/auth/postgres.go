package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) CreateUser(ctx context.Context, u *User) error {
	row := s.db.QueryRowContext(ctx, `
		insert into users (username, password_hash, bio, department, is_staff, is_superuser)
		values ($1, $2, $3, $4, $5, $6)
		returning id, created_at
	`, u.Username, u.PasswordHash, nullIfEmpty(u.Bio), u.Department, u.IsStaff, u.IsSuperuser)
	if err := row.Scan(&u.ID, &u.CreatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return ErrUsernameTaken
		}
		return err
	}
	return nil
}

func (s *PGStore) FindUserByID(ctx context.Context, id int64) (*User, error) {
	return s.findUser(ctx, `
		select id, username, password_hash, coalesce(bio, ''), department, is_staff, is_superuser, created_at
		from users where id = $1
	`, id)
}

func (s *PGStore) FindUserByUsername(ctx context.Context, username string) (*User, error) {
	return s.findUser(ctx, `
		select id, username, password_hash, coalesce(bio, ''), department, is_staff, is_superuser, created_at
		from users where username = $1
	`, username)
}

// findUser loads the user row and eagerly resolves direct permissions,
// roles, and each role's permissions: every downstream authorization
// check needs the whole graph immediately.
func (s *PGStore) findUser(ctx context.Context, query string, arg any) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Bio, &u.Department, &u.IsStaff, &u.IsSuperuser, &u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	perms, err := s.userPermissions(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.Permissions = perms

	roles, err := s.userRoles(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	for i := range roles {
		rolePerms, err := s.rolePermissions(ctx, roles[i].ID)
		if err != nil {
			return nil, err
		}
		roles[i].Permissions = rolePerms
	}
	u.Roles = roles
	return &u, nil
}

func (s *PGStore) userPermissions(ctx context.Context, userID int64) ([]Permission, error) {
	rows, err := s.db.QueryContext(ctx, `
		select p.id, p.name, p.description
		from permissions p
		join user_permissions up on up.permission_id = p.id
		where up.user_id = $1
		order by p.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPermissions(rows)
}

func (s *PGStore) userRoles(ctx context.Context, userID int64) ([]Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		select r.id, r.name
		from roles r
		join user_roles ur on ur.role_id = r.id
		where ur.user_id = $1
		order by r.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var r Role
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

func (s *PGStore) rolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	rows, err := s.db.QueryContext(ctx, `
		select p.id, p.name, p.description
		from permissions p
		join role_permissions rp on rp.permission_id = p.id
		where rp.role_id = $1
		order by p.name
	`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPermissions(rows)
}

func (s *PGStore) UpdateUserPassword(ctx context.Context, userID int64, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`update users set password_hash = $1 where id = $2`, passwordHash, userID)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) CreatePermission(ctx context.Context, p *Permission) error {
	row := s.db.QueryRowContext(ctx,
		`insert into permissions (name, description) values ($1, $2) returning id`,
		p.Name, p.Description)
	if err := row.Scan(&p.ID); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (s *PGStore) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, name, description from permissions order by name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPermissions(rows)
}

func (s *PGStore) EnsurePermissions(ctx context.Context, perms []Permission) error {
	for _, p := range perms {
		_, err := s.db.ExecContext(ctx,
			`insert into permissions (name, description) values ($1, $2) on conflict (name) do nothing`,
			p.Name, p.Description)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *PGStore) CreateRole(ctx context.Context, r *Role) error {
	row := s.db.QueryRowContext(ctx,
		`insert into roles (name) values ($1) returning id`, r.Name)
	if err := row.Scan(&r.ID); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (s *PGStore) GrantUserPermissions(ctx context.Context, userID int64, permissionIDs []int64) error {
	return s.appendLinks(ctx,
		`insert into user_permissions (user_id, permission_id) values ($1, $2) on conflict do nothing`,
		userID, permissionIDs)
}

func (s *PGStore) GrantRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	return s.appendLinks(ctx,
		`insert into role_permissions (role_id, permission_id) values ($1, $2) on conflict do nothing`,
		roleID, permissionIDs)
}

func (s *PGStore) AssignUserRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	return s.appendLinks(ctx,
		`insert into user_roles (user_id, role_id) values ($1, $2) on conflict do nothing`,
		userID, roleIDs)
}

// appendLinks inserts link rows in one transaction so a partial grant
// never becomes visible; on any failure the whole batch rolls back.
func (s *PGStore) appendLinks(ctx context.Context, query string, ownerID int64, ids []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, query, ownerID, id); err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
				return ErrNotFound
			}
			return err
		}
	}
	return tx.Commit()
}

func (s *PGStore) RemoveUserRole(ctx context.Context, userID, roleID int64) error {
	res, err := s.db.ExecContext(ctx,
		`delete from user_roles where user_id = $1 and role_id = $2`, userID, roleID)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) RevokedTokens() RevocationStore {
	return &pgRevocationStore{db: s.db}
}

type pgRevocationStore struct{ db *sql.DB }

func (s *pgRevocationStore) Revoke(ctx context.Context, t RevokedToken) error {
	_, err := s.db.ExecContext(ctx,
		`insert into revoked_tokens (token, revoked_at) values ($1, $2) on conflict (token) do nothing`,
		t.Token, t.RevokedAt)
	return err
}

func (s *pgRevocationStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx,
		`select exists (select 1 from revoked_tokens where token = $1)`, token).Scan(&revoked)
	if err != nil {
		return false, err
	}
	return revoked, nil
}

func (s *pgRevocationStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`delete from revoked_tokens where revoked_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanPermissions(rows *sql.Rows) ([]Permission, error) {
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
