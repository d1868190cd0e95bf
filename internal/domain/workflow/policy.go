package workflow

import (
	"fmt"
	"sort"

	"github.com/garyjia/nodue-clearance/internal/domain/entity"
)

// Policy maps roles to the single department they act for. Roles missing
// from the map resolve to entity.DepartmentNone. A Policy is immutable once
// built and safe for concurrent use.
type Policy struct {
	departments map[entity.Role]entity.Department
}

// DefaultPolicy returns the role mapping used by the institution
func DefaultPolicy() Policy {
	return NewPolicy(map[entity.Role]entity.Department{
		entity.RoleFaculty:          entity.DepartmentFaculty,
		entity.RoleClassCoordinator: entity.DepartmentClassCoordinator,
		entity.RoleHOD:              entity.DepartmentHOD,
		entity.RoleHostelWarden:     entity.DepartmentHostelWarden,
		entity.RoleLibraryAdmin:     entity.DepartmentLibrary,
		entity.RoleWorkshopAdmin:    entity.DepartmentWorkshopLab,
		entity.RoleTPOfficer:        entity.DepartmentTrainingPlacement,
		entity.RoleGeneralOffice:    entity.DepartmentGeneralOffice,
		entity.RoleAccountsOfficer:  entity.DepartmentAccountsOffice,
	})
}

// NewPolicy copies mapping into a new Policy
func NewPolicy(mapping map[entity.Role]entity.Department) Policy {
	m := make(map[entity.Role]entity.Department, len(mapping))
	for role, dept := range mapping {
		m[role] = dept
	}
	return Policy{departments: m}
}

// DepartmentFor returns the department role acts for, or entity.DepartmentNone
func (p Policy) DepartmentFor(role entity.Role) entity.Department {
	return p.departments[role]
}

// IsReviewer reports whether role acts for some department
func (p Policy) IsReviewer(role entity.Role) bool {
	return p.DepartmentFor(role) != entity.DepartmentNone
}

// ReviewerRoles returns the roles that act for a department, sorted
func (p Policy) ReviewerRoles() []entity.Role {
	roles := make([]entity.Role, 0, len(p.departments))
	for role, dept := range p.departments {
		if dept != entity.DepartmentNone {
			roles = append(roles, role)
		}
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

// Covers returns an error naming the first template department no role can act for
func (p Policy) Covers(t Template) error {
	served := make(map[entity.Department]bool, len(p.departments))
	for _, dept := range p.departments {
		served[dept] = true
	}
	for _, dept := range t.Departments() {
		if !served[dept] {
			return fmt.Errorf("no role is authorized for department %q", dept)
		}
	}
	return nil
}
