// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibGate Contributors

package key

// Role is a named collection of permissions assignable to subjects.
type Role struct {
	NamespacedKey
	Permissions []Permission
}

// NewRole builds a role from its slug (e.g. "library_admin").
func NewRole(slug string, permissions ...Permission) Role {
	return Role{NamespacedKey: New(NamespaceRole, slug), Permissions: permissions}
}

// ParseRole parses a canonical "role^slug" key.
func ParseRole(canonical string) (Role, error) {
	k, err := ParseCanonical(canonical)
	if err != nil {
		return Role{}, err
	}
	return Role{NamespacedKey: k}, nil
}

// DisplayName returns the human-readable role name
// ("library_admin" -> "Library Admin").
func (r Role) DisplayName() string {
	return displayName(r.ExternalID)
}

// PermissionIdentifiers returns the identifiers of the role's permissions,
// preserving order.
func (r Role) PermissionIdentifiers() []string {
	ids := make([]string, len(r.Permissions))
	for i, p := range r.Permissions {
		ids[i] = p.Identifier()
	}
	return ids
}

// Grants reports whether the role carries a permission for the given action
// identifier. Comparison is by action identifier, not object identity.
func (r Role) Grants(actionID string) bool {
	for _, p := range r.Permissions {
		if p.Identifier() == actionID {
			return true
		}
	}
	return false
}

// SamePermissions reports whether two roles grant the same set of action
// identifiers, ignoring order and duplicates.
func (r Role) SamePermissions(other Role) bool {
	ours := make(map[string]struct{}, len(r.Permissions))
	for _, p := range r.Permissions {
		ours[p.Identifier()] = struct{}{}
	}
	theirs := make(map[string]struct{}, len(other.Permissions))
	for _, p := range other.Permissions {
		theirs[p.Identifier()] = struct{}{}
	}
	if len(ours) != len(theirs) {
		return false
	}
	for id := range ours {
		if _, ok := theirs[id]; !ok {
			return false
		}
	}
	return true
}

// RoleAssignment is the read-side aggregate linking a subject to the roles
// it holds in a scope. Assignments have no identity of their own: one
// exists exactly when a matching grouping record exists in the policy store.
type RoleAssignment struct {
	Subject Subject
	Roles   []Role
	Scope   Scope
}
