package auth

import (
	"context"
	"sync"
	"time"
)

var _ Store = (*MemoryStore)(nil)
var _ RevocationStore = (*MemoryStore)(nil)

// MemoryStore is an in-memory Store used by tests and for running the
// API without a database. Lookups return deep copies with the role and
// permission graph resolved, mirroring the eager fetch of the
// PostgreSQL store.
type MemoryStore struct {
	mu sync.RWMutex

	nextUserID int64
	nextRoleID int64
	nextPermID int64

	users map[int64]*User
	roles map[int64]*Role
	perms map[int64]*Permission

	userPerms map[int64]map[int64]struct{}
	rolePerms map[int64]map[int64]struct{}
	userRoles map[int64]map[int64]struct{}

	revoked map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[int64]*User),
		roles:     make(map[int64]*Role),
		perms:     make(map[int64]*Permission),
		userPerms: make(map[int64]map[int64]struct{}),
		rolePerms: make(map[int64]map[int64]struct{}),
		userRoles: make(map[int64]map[int64]struct{}),
		revoked:   make(map[string]time.Time),
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return ErrUsernameTaken
		}
	}
	s.nextUserID++
	u.ID = s.nextUserID
	u.CreatedAt = time.Now().UTC()
	stored := *u
	stored.Permissions = nil
	stored.Roles = nil
	s.users[u.ID] = &stored
	return nil
}

func (s *MemoryStore) FindUserByID(_ context.Context, id int64) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.resolveUser(u), nil
}

func (s *MemoryStore) FindUserByUsername(_ context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			return s.resolveUser(u), nil
		}
	}
	return nil, ErrNotFound
}

// resolveUser builds the eager-loaded view. Callers must hold the lock.
func (s *MemoryStore) resolveUser(u *User) *User {
	out := *u
	out.Permissions = nil
	out.Roles = nil
	for permID := range s.userPerms[u.ID] {
		if p, ok := s.perms[permID]; ok {
			out.Permissions = append(out.Permissions, *p)
		}
	}
	for roleID := range s.userRoles[u.ID] {
		r, ok := s.roles[roleID]
		if !ok {
			continue
		}
		role := Role{ID: r.ID, Name: r.Name}
		for permID := range s.rolePerms[roleID] {
			if p, ok := s.perms[permID]; ok {
				role.Permissions = append(role.Permissions, *p)
			}
		}
		out.Roles = append(out.Roles, role)
	}
	return &out
}

func (s *MemoryStore) UpdateUserPassword(_ context.Context, userID int64, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (s *MemoryStore) CreatePermission(_ context.Context, p *Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.perms {
		if existing.Name == p.Name {
			return ErrAlreadyExists
		}
	}
	s.nextPermID++
	p.ID = s.nextPermID
	stored := *p
	s.perms[p.ID] = &stored
	return nil
}

func (s *MemoryStore) ListPermissions(_ context.Context) ([]Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Permission, 0, len(s.perms))
	for _, p := range s.perms {
		out = append(out, *p)
	}
	return out, nil
}

func (s *MemoryStore) EnsurePermissions(ctx context.Context, perms []Permission) error {
	for i := range perms {
		p := perms[i]
		if err := s.CreatePermission(ctx, &p); err != nil && err != ErrAlreadyExists {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) CreateRole(_ context.Context, r *Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.roles {
		if existing.Name == r.Name {
			return ErrAlreadyExists
		}
	}
	s.nextRoleID++
	r.ID = s.nextRoleID
	s.roles[r.ID] = &Role{ID: r.ID, Name: r.Name}
	return nil
}

func (s *MemoryStore) GrantUserPermissions(_ context.Context, userID int64, permissionIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return ErrNotFound
	}
	for _, id := range permissionIDs {
		if _, ok := s.perms[id]; !ok {
			return ErrNotFound
		}
	}
	links := s.userPerms[userID]
	if links == nil {
		links = make(map[int64]struct{})
		s.userPerms[userID] = links
	}
	for _, id := range permissionIDs {
		links[id] = struct{}{}
	}
	return nil
}

func (s *MemoryStore) GrantRolePermissions(_ context.Context, roleID int64, permissionIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[roleID]; !ok {
		return ErrNotFound
	}
	for _, id := range permissionIDs {
		if _, ok := s.perms[id]; !ok {
			return ErrNotFound
		}
	}
	links := s.rolePerms[roleID]
	if links == nil {
		links = make(map[int64]struct{})
		s.rolePerms[roleID] = links
	}
	for _, id := range permissionIDs {
		links[id] = struct{}{}
	}
	return nil
}

func (s *MemoryStore) AssignUserRoles(_ context.Context, userID int64, roleIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return ErrNotFound
	}
	for _, id := range roleIDs {
		if _, ok := s.roles[id]; !ok {
			return ErrNotFound
		}
	}
	links := s.userRoles[userID]
	if links == nil {
		links = make(map[int64]struct{})
		s.userRoles[userID] = links
	}
	for _, id := range roleIDs {
		links[id] = struct{}{}
	}
	return nil
}

func (s *MemoryStore) RemoveUserRole(_ context.Context, userID, roleID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	links := s.userRoles[userID]
	if _, ok := links[roleID]; !ok {
		return ErrNotFound
	}
	delete(links, roleID)
	return nil
}

func (s *MemoryStore) RevokedTokens() RevocationStore { return s }

func (s *MemoryStore) Revoke(_ context.Context, t RevokedToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.revoked[t.Token]; !ok {
		s.revoked[t.Token] = t.RevokedAt
	}
	return nil
}

func (s *MemoryStore) IsRevoked(_ context.Context, token string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.revoked[token]
	return ok, nil
}

func (s *MemoryStore) PruneBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for token, at := range s.revoked {
		if at.Before(cutoff) {
			delete(s.revoked, token)
			removed++
		}
	}
	return removed, nil
}
