package workflow

import (
	"testing"

	"github.com/garyjia/nodue-clearance/internal/domain/entity"
)

func TestPolicy_DepartmentFor(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		role entity.Role
		want entity.Department
	}{
		{entity.RoleFaculty, entity.DepartmentFaculty},
		{entity.RoleLibraryAdmin, entity.DepartmentLibrary},
		{entity.RoleTPOfficer, entity.DepartmentTrainingPlacement},
		{entity.RoleAccountsOfficer, entity.DepartmentAccountsOffice},
		{entity.RoleStudent, entity.DepartmentNone},
		{entity.RoleSuperAdmin, entity.DepartmentNone},
		{entity.Role("JANITOR"), entity.DepartmentNone},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			if got := policy.DepartmentFor(tt.role); got != tt.want {
				t.Errorf("DepartmentFor(%s) = %q, want %q", tt.role, got, tt.want)
			}
		})
	}
}

func TestPolicy_IsImmutable(t *testing.T) {
	mapping := map[entity.Role]entity.Department{entity.RoleHOD: entity.DepartmentHOD}
	policy := NewPolicy(mapping)

	mapping[entity.RoleHOD] = entity.DepartmentLibrary
	if got := policy.DepartmentFor(entity.RoleHOD); got != entity.DepartmentHOD {
		t.Errorf("DepartmentFor(HOD) = %q after caller mutation, want %q", got, entity.DepartmentHOD)
	}
}

func TestPolicy_Covers(t *testing.T) {
	if err := DefaultPolicy().Covers(DefaultTemplate()); err != nil {
		t.Errorf("default policy should cover default template: %v", err)
	}

	partial := NewPolicy(map[entity.Role]entity.Department{entity.RoleFaculty: entity.DepartmentFaculty})
	if err := partial.Covers(DefaultTemplate()); err == nil {
		t.Error("partial policy should not cover default template")
	}
}

func TestPolicy_ReviewerRoles(t *testing.T) {
	roles := DefaultPolicy().ReviewerRoles()
	if len(roles) != 9 {
		t.Fatalf("ReviewerRoles() returned %d roles, want 9", len(roles))
	}
	for _, r := range roles {
		if r == entity.RoleStudent || r == entity.RoleSuperAdmin {
			t.Errorf("ReviewerRoles() contains non-reviewer role %s", r)
		}
	}
}
