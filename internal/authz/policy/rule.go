// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibGate Contributors

// Package policy holds the rule tuple model and the in-memory policy store
// that the evaluator reads from. Rules are flat 7-field tuples
// (ptype, v0..v5); their meaning depends on the ptype:
//
//	p  -> (role, action, scope, effect)    a static permission rule
//	g  -> (subject, role, scope)           a role assignment
//	g2 -> (parent_action, child_action)    action inheritance, one hop
//
// The store keeps rules in insertion order so that queries, pagination and
// diffing stay deterministic.
package policy

import "strings"

// Rule ptypes.
const (
	PTypePolicy         = "p"
	PTypeGrouping       = "g"
	PTypeActionGrouping = "g2"
)

// Field positions inside a p rule.
const (
	PolicyRole = iota
	PolicyAction
	PolicyScope
	PolicyEffect
)

// Field positions inside a g rule.
const (
	GroupingSubject = iota
	GroupingRole
	GroupingScope
)

// Field positions inside a g2 rule.
const (
	ActionGroupingParent = iota
	ActionGroupingChild
)

// Rule is one stored policy tuple. V4 and V5 are reserved: carried through
// the store untouched, ignored by the evaluator.
type Rule struct {
	PType string
	V0    string
	V1    string
	V2    string
	V3    string
	V4    string
	V5    string
}

// NewPolicyRule builds a p rule: role R confers effect E for action A within
// scopes matching S.
func NewPolicyRule(role, action, scope, effect string) Rule {
	return Rule{PType: PTypePolicy, V0: role, V1: action, V2: scope, V3: effect}
}

// NewGroupingRule builds a g rule: subject S holds role R in scope SC.
func NewGroupingRule(subject, role, scope string) Rule {
	return Rule{PType: PTypeGrouping, V0: subject, V1: role, V2: scope}
}

// NewActionGroupingRule builds a g2 rule: granting the parent action implies
// the child action.
func NewActionGroupingRule(parent, child string) Rule {
	return Rule{PType: PTypeActionGrouping, V0: parent, V1: child}
}

// Key returns the uniqueness key of the rule: the (ptype, v0..v3) 5-tuple
// joined by commas. V4/V5 are reserved and excluded on purpose.
func (r Rule) Key() string {
	return strings.Join([]string{r.PType, r.V0, r.V1, r.V2, r.V3}, ",")
}

// Values returns the six value fields in order.
func (r Rule) Values() [6]string {
	return [6]string{r.V0, r.V1, r.V2, r.V3, r.V4, r.V5}
}

// arity returns the number of value fields the evaluator requires for the
// rule's ptype, or 0 for ptypes the evaluator does not know.
func (r Rule) arity() int {
	switch r.PType {
	case PTypePolicy:
		return 4
	case PTypeGrouping:
		return 3
	case PTypeActionGrouping:
		return 2
	default:
		return 0
	}
}

// WellFormed reports whether the rule carries every field its ptype
// requires. Malformed stored rows are skipped (with a warning) during
// evaluation rather than failing the whole query.
func (r Rule) WellFormed() bool {
	n := r.arity()
	if n == 0 {
		return false
	}
	values := r.Values()
	for i := range n {
		if values[i] == "" {
			return false
		}
	}
	return true
}
