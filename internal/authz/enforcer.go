// Domus - Real Estate Marketplace Platform
// Copyright 2026 Nyk B. (nybras)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nybras/domus

// Package authz implements role-based authorization with Casbin. Roles form
// a hierarchy (admin inherits agent, agent inherits user); permissions are
// (role, resource, action) triples evaluated per request.
package authz

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

// rbacModel is the Casbin RBAC model with role inheritance.
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
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

// policies are (role, resource, action) grants. The role hierarchy below
// means each row is the lowest role that holds the grant.
var policies = [][3]string{
	{"user", "saved", "read"},
	{"user", "saved", "write"},
	{"user", "recommendations", "read"},
	{"user", "conversations", "read"},
	{"user", "conversations", "write"},
	{"user", "reviews", "write"},
	{"user", "profile", "write"},
	{"agent", "properties", "write"},
	{"agent", "inquiries", "read"},
	{"admin", "properties", "moderate"},
	{"admin", "users", "read"},
}

// roleHierarchy rows are (role, inherits-from) pairs.
var roleHierarchy = [][2]string{
	{"agent", "user"},
	{"admin", "agent"},
}

// Enforcer answers "may this role perform this action on this resource".
type Enforcer struct {
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer builds the enforcer from the embedded model and policy set.
func NewEnforcer() (*Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("load authorization model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}

	for _, p := range policies {
		if _, err := enforcer.AddPolicy(p[0], p[1], p[2]); err != nil {
			return nil, fmt.Errorf("add policy %v: %w", p, err)
		}
	}
	for _, g := range roleHierarchy {
		if _, err := enforcer.AddGroupingPolicy(g[0], g[1]); err != nil {
			return nil, fmt.Errorf("add role inheritance %v: %w", g, err)
		}
	}

	return &Enforcer{enforcer: enforcer}, nil
}

// Enforce reports whether the role may perform the action on the resource.
func (e *Enforcer) Enforce(role, resource, action string) (bool, error) {
	allowed, err := e.enforcer.Enforce(role, resource, action)
	if err != nil {
		return false, fmt.Errorf("enforce %s %s %s: %w", role, resource, action, err)
	}
	return allowed, nil
}
