package auth

import (
	"context"
	"fmt"
	"strings"
)

// Management surface for the role/permission model. All grant
// operations append with set semantics: repeating a call is idempotent
// and never replaces existing grants.

// CreateRole defines a new named role.
func (s *Service) CreateRole(ctx context.Context, name string) (*Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: role name is required", ErrInvalidInput)
	}
	role := &Role{Name: name}
	if err := s.store.CreateRole(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// CreatePermission defines a new permission.
func (s *Service) CreatePermission(ctx context.Context, name, description string) (*Permission, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: permission name is required", ErrInvalidInput)
	}
	perm := &Permission{Name: name, Description: strings.TrimSpace(description)}
	if err := s.store.CreatePermission(ctx, perm); err != nil {
		return nil, err
	}
	return perm, nil
}

// ListPermissions returns the permission catalog.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.store.ListPermissions(ctx)
}

// GrantUserPermissions appends direct permission grants to a user.
func (s *Service) GrantUserPermissions(ctx context.Context, userID int64, permissionIDs []int64) error {
	ids, err := requireIDs(userID, permissionIDs)
	if err != nil {
		return err
	}
	return s.store.GrantUserPermissions(ctx, userID, ids)
}

// GrantRolePermissions appends permissions to a role. Every user
// holding the role gains them on their next check.
func (s *Service) GrantRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	ids, err := requireIDs(roleID, permissionIDs)
	if err != nil {
		return err
	}
	return s.store.GrantRolePermissions(ctx, roleID, ids)
}

// AssignUserRoles appends role assignments to a user.
func (s *Service) AssignUserRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	ids, err := requireIDs(userID, roleIDs)
	if err != nil {
		return err
	}
	return s.store.AssignUserRoles(ctx, userID, ids)
}

// RevokeUserRole removes a single role assignment; permissions
// inherited through it stop applying immediately.
func (s *Service) RevokeUserRole(ctx context.Context, userID, roleID int64) error {
	if userID <= 0 || roleID <= 0 {
		return fmt.Errorf("%w: user_id and role_id are required", ErrInvalidInput)
	}
	return s.store.RemoveUserRole(ctx, userID, roleID)
}

func requireIDs(ownerID int64, ids []int64) ([]int64, error) {
	if ownerID <= 0 {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	deduped := dedupeIDs(ids)
	if len(deduped) == 0 {
		return nil, fmt.Errorf("%w: at least one id is required", ErrInvalidInput)
	}
	return deduped, nil
}

func dedupeIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(ids))
	result := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
