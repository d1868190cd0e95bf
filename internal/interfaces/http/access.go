package http

import (
	"fmt"
	"net/http"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/garyjia/nodue-clearance/internal/domain/entity"
)

// Route groups used in policies. Every role is a member; department roles
// are also reviewers.
const (
	groupMember   = "member"
	groupReviewer = "reviewer"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && r.act == p.act
`

var routePolicies = [][]string{
	{string(entity.RoleStudent), "/api/requests", http.MethodPost},
	{string(entity.RoleStudent), "/api/requests/mine", http.MethodGet},
	{groupMember, "/api/requests/:id", http.MethodGet},
	{groupMember, "/api/requests/:id/history", http.MethodGet},
	{groupMember, "/api/requests/:id/certificate", http.MethodGet},
	{groupReviewer, "/api/requests/:id/stages/:stageId/decision", http.MethodPost},
	{groupReviewer, "/api/queue", http.MethodGet},
	{groupReviewer, "/api/reviews", http.MethodGet},
}

// AccessControl decides which roles may call which route. Department
// ownership of a stage is checked by the workflow engine, not here.
type AccessControl struct {
	enforcer *casbin.Enforcer
}

// NewAccessControl builds the enforcer from the route policies. reviewers
// are the roles that act for a department.
func NewAccessControl(reviewers []entity.Role) (*AccessControl, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load access model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create enforcer: %w", err)
	}

	if _, err := enforcer.AddPolicies(routePolicies); err != nil {
		return nil, fmt.Errorf("failed to add policies: %w", err)
	}

	members := []entity.Role{entity.RoleStudent, entity.RoleSuperAdmin}
	members = append(members, reviewers...)
	for _, role := range members {
		if _, err := enforcer.AddGroupingPolicy(string(role), groupMember); err != nil {
			return nil, fmt.Errorf("failed to add role %s: %w", role, err)
		}
	}
	for _, role := range reviewers {
		if _, err := enforcer.AddGroupingPolicy(string(role), groupReviewer); err != nil {
			return nil, fmt.Errorf("failed to add role %s: %w", role, err)
		}
	}

	return &AccessControl{enforcer: enforcer}, nil
}

// Allowed reports whether role may call method on path
func (a *AccessControl) Allowed(role entity.Role, path, method string) (bool, error) {
	return a.enforcer.Enforce(string(role), path, method)
}
