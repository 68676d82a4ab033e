package authz

import "fmt"

// RoleSeed 预置角色
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 预置角色矩阵
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role:     "auditor",
			Policies: []Policy{{Object: "/admin/*", Action: "GET"}},
		},
		{
			Role:     "inventory",
			Inherits: []string{"auditor"},
			Policies: []Policy{
				{Object: "/admin/products", Action: "*"},
				{Object: "/admin/products/:id", Action: "*"},
				{Object: "/admin/products/:id/units", Action: "*"},
				{Object: "/admin/products/:id/stock/recompute", Action: "POST"},
			},
		},
		{
			Role:     "finance",
			Inherits: []string{"auditor"},
			Policies: []Policy{
				{Object: "/admin/bonuses", Action: "*"},
				{Object: "/admin/bonuses/:id", Action: "*"},
				{Object: "/admin/users/:id/balance", Action: "POST"},
				{Object: "/admin/reconciliations/:id/refund", Action: "POST"},
				{Object: "/admin/reconciliations/:id/dismiss", Action: "POST"},
			},
		},
		{
			Role:     "support",
			Inherits: []string{"auditor"},
			Policies: []Policy{
				{Object: "/admin/users/:id/block", Action: "POST"},
				{Object: "/admin/reconciliations/:id/dismiss", Action: "POST"},
			},
		},
	}
}

// BootstrapBuiltinRoles 写入预置角色与策略，重复执行无副作用
func (s *Service) BootstrapBuiltinRoles() error {
	if err := s.ready(); err != nil {
		return err
	}
	for _, seed := range BuiltinRoleSeeds() {
		role, err := s.EnsureRole(seed.Role)
		if err != nil {
			return err
		}
		for _, parent := range seed.Inherits {
			parentRole, err := s.EnsureRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role %s to %s: %w", role, parentRole, err)
			}
		}
		for _, policy := range seed.Policies {
			if err := s.GrantRolePolicy(role, policy.Object, policy.Action); err != nil {
				return err
			}
		}
	}
	return nil
}
