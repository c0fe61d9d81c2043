// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibGate Contributors

package authz

import (
	"context"

	"github.com/libgate/libgate/internal/authz/key"
	"github.com/libgate/libgate/internal/authz/policy"
)

// IsSubjectAllowed decides whether the subject may perform the action in
// the scope.
func (s *Service) IsSubjectAllowed(ctx context.Context, subject key.Subject, action key.Action, scope key.Scope) (bool, error) {
	return s.engine.Enforce(ctx, subject.String(), action.String(), scope.Key())
}

// PermissionsForRole returns the role's effective permissions: its own
// policy rules, rules inherited from other roles, and actions granted
// through action inheritance. Order follows the underlying rules; the
// first occurrence of an action wins.
func (s *Service) PermissionsForRole(role key.Role) []key.Permission {
	return s.roleWithPermissions(role).Permissions
}

// AllPermissionsInScope returns the union of permissions granted by every
// role defined in the scope.
func (s *Service) AllPermissionsInScope(scope key.Scope) []key.Permission {
	seen := make(map[string]struct{})
	var permissions []key.Permission
	for _, role := range s.RoleDefinitionsInScope(scope) {
		for _, p := range role.Permissions {
			if _, ok := seen[p.Identifier()]; ok {
				continue
			}
			seen[p.Identifier()] = struct{}{}
			permissions = append(permissions, p)
		}
	}
	return permissions
}

// roleWithPermissions returns the role with its effective permission list
// attached. The wildcard request scope collects the role's inherited roles
// across every scope, since role-to-role grants live at wildcard scopes.
func (s *Service) roleWithPermissions(role key.Role) key.Role {
	holders := []string{role.String()}
	holders = append(holders, s.engine.RolesForSubject(role.String(), key.Wildcard)...)

	rules := s.store.Query(policy.Filter{
		PTypes: []string{policy.PTypePolicy},
		V0:     holders,
	})

	seen := make(map[string]struct{})
	var permissions []key.Permission
	for _, r := range rules {
		effect := key.Effect(r.V3)
		if !effect.Valid() {
			continue
		}
		for _, actionKey := range s.engine.GrantedActions(r.V1) {
			action, err := key.ParseAction(actionKey)
			if err != nil || action.Namespace != key.NamespaceAction {
				continue
			}
			if _, ok := seen[action.ExternalID]; ok {
				continue
			}
			seen[action.ExternalID] = struct{}{}
			permissions = append(permissions, key.Permission{Action: action, Effect: effect})
		}
	}
	role.Permissions = permissions
	return role
}
