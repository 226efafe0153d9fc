package auth

import "testing"

func TestEffectivePermissionsUnion(t *testing.T) {
	user := &User{
		ID:       1,
		Username: "bob",
		Permissions: []Permission{
			{ID: 1, Name: "records.view"},
			{ID: 2, Name: "patients.manage"},
		},
		Roles: []Role{
			{ID: 1, Name: "nurse", Permissions: []Permission{
				{ID: 1, Name: "records.view"},
				{ID: 3, Name: "appointments.manage"},
			}},
			{ID: 2, Name: "receptionist", Permissions: []Permission{
				{ID: 3, Name: "appointments.manage"},
			}},
		},
	}

	set := user.EffectivePermissions()
	if len(set) != 3 {
		t.Fatalf("expected 3 distinct permissions, got %d: %v", len(set), set)
	}
	for _, name := range []string{"records.view", "patients.manage", "appointments.manage"} {
		if !user.HasPermission(name) {
			t.Fatalf("expected permission %q", name)
		}
	}
	if user.HasPermission("users.manage") {
		t.Fatal("unexpected permission users.manage")
	}
}

func TestEffectivePermissionsEmpty(t *testing.T) {
	user := &User{ID: 2, Username: "nobody"}
	if len(user.EffectivePermissions()) != 0 {
		t.Fatal("expected empty set")
	}
	if user.HasPermission("records.view") {
		t.Fatal("user without grants must fail every check")
	}
}

func TestEffectivePermissionsRoleOnly(t *testing.T) {
	user := &User{
		ID:       3,
		Username: "bob",
		Roles: []Role{
			{ID: 1, Name: "nurse", Permissions: []Permission{{ID: 1, Name: "records.view"}}},
		},
	}
	if !user.HasPermission("records.view") {
		t.Fatal("role-inherited permission missing")
	}

	// Revoking the role removes the inherited grant.
	user.Roles = nil
	if user.HasPermission("records.view") {
		t.Fatal("permission must disappear with the role")
	}
}
