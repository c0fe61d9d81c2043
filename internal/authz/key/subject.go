// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibGate Contributors

package key

// Subject namespaces. A subject is any entity that can hold roles:
// users today, service accounts or groups later. Roles themselves may
// appear as grouping-record subjects to form role hierarchies.
const (
	NamespaceSubject = "sub"
	NamespaceUser    = "user"
	NamespaceRole    = "role"
)

// SubjectKind tags the concrete variant of a subject key.
type SubjectKind int

// Subject kind tags, dispatched from the namespace prefix.
const (
	SubjectGeneric SubjectKind = iota
	SubjectUser
)

// subjectKinds is the namespace -> kind registry for subjects. Populated
// once at init; unknown namespaces fall back to SubjectGeneric.
var subjectKinds = map[string]SubjectKind{
	NamespaceSubject: SubjectGeneric,
	NamespaceUser:    SubjectUser,
}

// Subject identifies an entity that can be assigned roles.
type Subject struct {
	NamespacedKey
	Kind SubjectKind
}

// NewUser builds a user subject from a username.
func NewUser(username string) Subject {
	return Subject{
		NamespacedKey: New(NamespaceUser, username),
		Kind:          SubjectUser,
	}
}

// NewSubject builds a generic subject from an external id.
func NewSubject(externalID string) Subject {
	return Subject{
		NamespacedKey: New(NamespaceSubject, externalID),
		Kind:          SubjectGeneric,
	}
}

// ParseSubject dispatches a canonical key to the matching subject variant.
// Unrecognized namespaces fall back to the generic subject kind so that
// keys written by newer deployments still round-trip.
func ParseSubject(canonical string) (Subject, error) {
	k, err := ParseCanonical(canonical)
	if err != nil {
		return Subject{}, err
	}
	kind, ok := subjectKinds[k.Namespace]
	if !ok {
		kind = SubjectGeneric
	}
	return Subject{NamespacedKey: k, Kind: kind}, nil
}

// IsUser reports whether the subject is a user.
func (s Subject) IsUser() bool {
	return s.Kind == SubjectUser
}

// Username returns the external id; meaningful only for user subjects.
func (s Subject) Username() string {
	return s.ExternalID
}

// IsRoleKey reports whether a canonical key belongs to the role namespace.
// Grouping records may list roles as subjects (role hierarchies); read-side
// queries use this to skip them when listing concrete assignees.
func IsRoleKey(canonical string) bool {
	return len(canonical) > len(NamespaceRole+Separator) &&
		canonical[:len(NamespaceRole+Separator)] == NamespaceRole+Separator
}
