// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibGate Contributors

package policy

// Filter selects rules by field value. Each field holds a list of accepted
// literal values OR'd together; empty lists constrain nothing; non-empty
// fields are AND'd. The same type drives in-memory queries and selective
// loading from the backing store.
type Filter struct {
	PTypes []string
	V0     []string
	V1     []string
	V2     []string
	V3     []string
	V4     []string
	V5     []string
}

// IsEmpty reports whether the filter constrains nothing.
func (f Filter) IsEmpty() bool {
	return len(f.PTypes) == 0 &&
		len(f.V0) == 0 && len(f.V1) == 0 && len(f.V2) == 0 &&
		len(f.V3) == 0 && len(f.V4) == 0 && len(f.V5) == 0
}

// Match reports whether the rule satisfies every non-empty field list.
func (f Filter) Match(r Rule) bool {
	if !matchField(f.PTypes, r.PType) {
		return false
	}
	values := r.Values()
	for i, accepted := range [6][]string{f.V0, f.V1, f.V2, f.V3, f.V4, f.V5} {
		if !matchField(accepted, values[i]) {
			return false
		}
	}
	return true
}

func matchField(accepted []string, value string) bool {
	if len(accepted) == 0 {
		return true
	}
	for _, a := range accepted {
		if a == value {
			return true
		}
	}
	return false
}
