// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibGate Contributors

package key

// NamespaceAction is the namespace prefix for actions.
const NamespaceAction = "act"

// Action is an operation that policies allow or deny.
type Action struct {
	NamespacedKey
}

// NewAction builds an action from its slug (e.g. "delete_library").
func NewAction(slug string) Action {
	return Action{NamespacedKey: New(NamespaceAction, slug)}
}

// ParseAction parses a canonical "act^slug" key.
func ParseAction(canonical string) (Action, error) {
	k, err := ParseCanonical(canonical)
	if err != nil {
		return Action{}, err
	}
	return Action{NamespacedKey: k}, nil
}

// DisplayName returns the human-readable action name
// ("delete_library" -> "Delete Library").
func (a Action) DisplayName() string {
	return displayName(a.ExternalID)
}

// Effect states whether a permission allows or denies its action.
type Effect string

// Effect values as stored in policy records.
const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Valid reports whether the effect is one of the two known values.
func (e Effect) Valid() bool {
	return e == EffectAllow || e == EffectDeny
}

// Permission couples an action with an effect.
type Permission struct {
	Action Action
	Effect Effect
}

// NewPermission builds an allow permission for an action slug.
func NewPermission(actionSlug string) Permission {
	return Permission{Action: NewAction(actionSlug), Effect: EffectAllow}
}

// Identifier returns the permission identity used for inclusion checks:
// the action's external id. Two permissions are the same permission when
// their identifiers match, regardless of object identity.
func (p Permission) Identifier() string {
	return p.Action.ExternalID
}
