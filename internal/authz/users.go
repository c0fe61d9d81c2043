// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibGate Contributors

package authz

import (
	"context"

	"github.com/libgate/libgate/internal/authz/key"
)

// User-facing wrappers over the subject operations. These take usernames,
// role slugs and external "ns:id" scope strings, so callers never build
// canonical keys themselves.

// IsUserAllowed decides whether the user may perform the action in the
// externally keyed scope.
func (s *Service) IsUserAllowed(ctx context.Context, username, actionSlug, externalScope string) (bool, error) {
	scope, err := key.ScopeFromExternal(externalScope)
	if err != nil {
		return false, err
	}
	return s.IsSubjectAllowed(ctx, key.NewUser(username), key.NewAction(actionSlug), scope)
}

// AssignRoleToUser grants the role to the user in the externally keyed
// scope, validating the scope against the catalog when one is configured.
func (s *Service) AssignRoleToUser(ctx context.Context, username, roleSlug, externalScope string) (bool, error) {
	scope, err := key.ScopeFromExternal(externalScope)
	if err != nil {
		return false, err
	}
	if err := s.ValidateScope(ctx, scope); err != nil {
		return false, err
	}
	return s.Assign(ctx, key.NewUser(username), key.NewRole(roleSlug), scope)
}

// UnassignRoleFromUser revokes the role from the user in the externally
// keyed scope.
func (s *Service) UnassignRoleFromUser(ctx context.Context, username, roleSlug, externalScope string) (bool, error) {
	scope, err := key.ScopeFromExternal(externalScope)
	if err != nil {
		return false, err
	}
	return s.Unassign(ctx, key.NewUser(username), key.NewRole(roleSlug), scope)
}

// BatchAssignRoleToUsers grants the role to each user independently.
func (s *Service) BatchAssignRoleToUsers(ctx context.Context, usernames []string, roleSlug, externalScope string) ([]BatchOutcome, error) {
	scope, err := key.ScopeFromExternal(externalScope)
	if err != nil {
		return nil, err
	}
	if err := s.ValidateScope(ctx, scope); err != nil {
		return nil, err
	}
	subjects := make([]key.Subject, len(usernames))
	for i, username := range usernames {
		subjects[i] = key.NewUser(username)
	}
	return s.BatchAssign(ctx, subjects, key.NewRole(roleSlug), scope), nil
}

// BatchUnassignRoleFromUsers revokes the role from each user independently.
func (s *Service) BatchUnassignRoleFromUsers(ctx context.Context, usernames []string, roleSlug, externalScope string) ([]BatchOutcome, error) {
	scope, err := key.ScopeFromExternal(externalScope)
	if err != nil {
		return nil, err
	}
	subjects := make([]key.Subject, len(usernames))
	for i, username := range usernames {
		subjects[i] = key.NewUser(username)
	}
	return s.BatchUnassign(ctx, subjects, key.NewRole(roleSlug), scope), nil
}

// UserAssignments returns the user's role assignments across all scopes.
func (s *Service) UserAssignments(username string) []key.RoleAssignment {
	return s.AssignmentsForSubject(key.NewUser(username))
}

// UsersForRole returns the users holding the role in the externally keyed
// scope, excluding non-user subjects.
func (s *Service) UsersForRole(roleSlug, externalScope string) ([]key.Subject, error) {
	scope, err := key.ScopeFromExternal(externalScope)
	if err != nil {
		return nil, err
	}
	var users []key.Subject
	for _, subject := range s.SubjectsForRole(key.NewRole(roleSlug), scope) {
		if subject.IsUser() {
			users = append(users, subject)
		}
	}
	return users, nil
}

// RetireUser removes every role assignment the user holds, across all
// scopes. Part of the user retirement pipeline.
func (s *Service) RetireUser(ctx context.Context, username string) (bool, error) {
	return s.UnassignAll(ctx, key.NewUser(username))
}
