// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibGate Contributors

package authz

import (
	"context"
	"sort"

	"github.com/samber/oops"

	"github.com/libgate/libgate/internal/authz/key"
	"github.com/libgate/libgate/internal/authz/policy"
)

// BatchOutcome reports the result of one item of a batch operation.
type BatchOutcome struct {
	Subject key.Subject
	Changed bool
	Err     error
}

// Assign grants the role to the subject in the scope. Assigning an already
// held role returns false with no error. The grouping record and its
// cross-reference are written in one transaction; a cross-reference failure
// rolls back the grouping insert and surfaces as ASSIGNMENT_ATOMICITY.
func (s *Service) Assign(ctx context.Context, subject key.Subject, role key.Role, scope key.Scope) (bool, error) {
	rule := policy.NewGroupingRule(subject.String(), role.String(), scope.Key())
	if s.store.Has(rule) {
		return false, nil
	}

	err := s.tx.InTransaction(ctx, func(txCtx context.Context) error {
		if err := s.adapter.Insert(txCtx, rule); err != nil {
			return err
		}
		subjectID, err := s.entities.GetOrCreateSubject(txCtx, rule.V0)
		if err != nil {
			return oops.Code("ASSIGNMENT_ATOMICITY").With("rule", rule.Key()).
				Wrapf(err, "resolve subject entity")
		}
		scopeID, err := s.entities.GetOrCreateScope(txCtx, rule.V2)
		if err != nil {
			return oops.Code("ASSIGNMENT_ATOMICITY").With("rule", rule.Key()).
				Wrapf(err, "resolve scope entity")
		}
		if err := s.entities.LinkRule(txCtx, rule, subjectID, scopeID); err != nil {
			return oops.Code("ASSIGNMENT_ATOMICITY").With("rule", rule.Key()).
				Wrapf(err, "create cross-reference")
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	s.store.Absorb(rule)
	s.notifyChange(ctx)
	return true, nil
}

// Unassign revokes the role from the subject in the scope. Revoking a role
// the subject never held returns false with no error. Cross-reference rows
// go with the rule through the store's cascading delete.
func (s *Service) Unassign(ctx context.Context, subject key.Subject, role key.Role, scope key.Scope) (bool, error) {
	rule := policy.NewGroupingRule(subject.String(), role.String(), scope.Key())
	if !s.store.Has(rule) {
		return false, nil
	}
	if err := s.adapter.Delete(ctx, rule); err != nil {
		return false, err
	}
	s.store.Evict(rule)
	s.notifyChange(ctx)
	return true, nil
}

// BatchAssign applies Assign once per subject. Items are independent: one
// failure neither stops nor rolls back the others. Callers aggregate the
// outcomes.
func (s *Service) BatchAssign(ctx context.Context, subjects []key.Subject, role key.Role, scope key.Scope) []BatchOutcome {
	outcomes := make([]BatchOutcome, len(subjects))
	for i, subject := range subjects {
		changed, err := s.Assign(ctx, subject, role, scope)
		outcomes[i] = BatchOutcome{Subject: subject, Changed: changed, Err: err}
	}
	return outcomes
}

// BatchUnassign applies Unassign once per subject, with the same
// per-item independence as BatchAssign.
func (s *Service) BatchUnassign(ctx context.Context, subjects []key.Subject, role key.Role, scope key.Scope) []BatchOutcome {
	outcomes := make([]BatchOutcome, len(subjects))
	for i, subject := range subjects {
		changed, err := s.Unassign(ctx, subject, role, scope)
		outcomes[i] = BatchOutcome{Subject: subject, Changed: changed, Err: err}
	}
	return outcomes
}

// UnassignAll revokes every role the subject holds across all scopes,
// reporting true when at least one was revoked. Used by retirement flows.
func (s *Service) UnassignAll(ctx context.Context, subject key.Subject) (bool, error) {
	rules := s.store.Query(policy.Filter{
		PTypes: []string{policy.PTypeGrouping},
		V0:     []string{subject.String()},
	})

	removed := false
	for _, rule := range rules {
		if err := s.adapter.Delete(ctx, rule); err != nil {
			return removed, err
		}
		s.store.Evict(rule)
		removed = true
	}
	if removed {
		s.notifyChange(ctx)
	}
	return removed, nil
}

// RoleDefinitionsInScope returns the roles whose policy rules cover the
// scope, each carrying its full permission set. This is the template view:
// it includes roles nobody currently holds, since definitions live at
// wildcard scopes.
func (s *Service) RoleDefinitionsInScope(scope key.Scope) []key.Role {
	rules := s.store.Query(policy.Filter{PTypes: []string{policy.PTypePolicy}})

	seen := make(map[string]struct{})
	var roles []key.Role
	for _, r := range rules {
		if _, ok := seen[r.V0]; ok {
			continue
		}
		if !scopeCovers(s, r.V2, scope) {
			continue
		}
		role, err := key.ParseRole(r.V0)
		if err != nil || role.Namespace != key.NamespaceRole {
			continue
		}
		seen[r.V0] = struct{}{}
		roles = append(roles, s.roleWithPermissions(role))
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].ExternalID < roles[j].ExternalID })
	return roles
}

// ActiveRolesInScope returns the roles actively assigned to at least one
// subject in the concrete scope. Always a subset of the definitions.
func (s *Service) ActiveRolesInScope(scope key.Scope) []key.Role {
	rules := s.store.Query(policy.Filter{
		PTypes: []string{policy.PTypeGrouping},
		V2:     []string{scope.Key()},
	})

	seen := make(map[string]struct{})
	var roles []key.Role
	for _, r := range rules {
		if _, ok := seen[r.V1]; ok {
			continue
		}
		role, err := key.ParseRole(r.V1)
		if err != nil || role.Namespace != key.NamespaceRole {
			continue
		}
		seen[r.V1] = struct{}{}
		roles = append(roles, s.roleWithPermissions(role))
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].ExternalID < roles[j].ExternalID })
	return roles
}

// AllRoleNames returns the distinct slugs of every policy-defined role.
func (s *Service) AllRoleNames() []string {
	rules := s.store.Query(policy.Filter{PTypes: []string{policy.PTypePolicy}})

	seen := make(map[string]struct{})
	var names []string
	for _, r := range rules {
		role, err := key.ParseRole(r.V0)
		if err != nil || role.Namespace != key.NamespaceRole {
			continue
		}
		if _, ok := seen[role.ExternalID]; ok {
			continue
		}
		seen[role.ExternalID] = struct{}{}
		names = append(names, role.ExternalID)
	}
	sort.Strings(names)
	return names
}

// AssignmentsInScope returns one assignment per subject holding at least
// one role in the concrete scope.
func (s *Service) AssignmentsInScope(scope key.Scope) []key.RoleAssignment {
	rules := s.store.Query(policy.Filter{
		PTypes: []string{policy.PTypeGrouping},
		V2:     []string{scope.Key()},
	})
	return s.groupAssignments(rules, func(r policy.Rule) (key.Subject, key.Scope, bool) {
		subject, err := key.ParseSubject(r.V0)
		if err != nil || key.IsRoleKey(r.V0) {
			return key.Subject{}, key.Scope{}, false
		}
		return subject, scope, true
	})
}

// AssignmentsForSubject returns the subject's assignments across every
// scope, one entry per scope.
func (s *Service) AssignmentsForSubject(subject key.Subject) []key.RoleAssignment {
	rules := s.store.Query(policy.Filter{
		PTypes: []string{policy.PTypeGrouping},
		V0:     []string{subject.String()},
	})
	return s.groupAssignments(rules, func(r policy.Rule) (key.Subject, key.Scope, bool) {
		scope, err := key.ParseScope(r.V2)
		if err != nil {
			return key.Subject{}, key.Scope{}, false
		}
		return subject, scope, true
	})
}

// SubjectsForRole returns the subjects directly holding the role in the
// concrete scope. Role-to-role grants are excluded: a role is not a member.
func (s *Service) SubjectsForRole(role key.Role, scope key.Scope) []key.Subject {
	rules := s.store.Query(policy.Filter{
		PTypes: []string{policy.PTypeGrouping},
		V1:     []string{role.String()},
		V2:     []string{scope.Key()},
	})

	var subjects []key.Subject
	for _, r := range rules {
		if key.IsRoleKey(r.V0) {
			continue
		}
		subject, err := key.ParseSubject(r.V0)
		if err != nil {
			continue
		}
		subjects = append(subjects, subject)
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].String() < subjects[j].String() })
	return subjects
}

// groupAssignments folds grouping rules into per-(subject,scope) aggregates,
// preserving rule order within each aggregate.
func (s *Service) groupAssignments(rules []policy.Rule, classify func(policy.Rule) (key.Subject, key.Scope, bool)) []key.RoleAssignment {
	byKey := make(map[string]*key.RoleAssignment)
	var order []string
	for _, r := range rules {
		subject, scope, ok := classify(r)
		if !ok {
			continue
		}
		role, err := key.ParseRole(r.V1)
		if err != nil || role.Namespace != key.NamespaceRole {
			continue
		}
		k := subject.String() + "|" + scope.Key()
		agg, ok := byKey[k]
		if !ok {
			agg = &key.RoleAssignment{Subject: subject, Scope: scope}
			byKey[k] = agg
			order = append(order, k)
		}
		agg.Roles = append(agg.Roles, s.roleWithPermissions(role))
	}

	assignments := make([]key.RoleAssignment, 0, len(order))
	for _, k := range order {
		assignments = append(assignments, *byKey[k])
	}
	return assignments
}

// scopeCovers reports whether a rule's scope pattern covers the queried
// scope. Querying the wildcard scope collects rules at every scope.
func scopeCovers(s *Service, pattern string, scope key.Scope) bool {
	return s.engine.ScopeMatches(pattern, scope.Key())
}
