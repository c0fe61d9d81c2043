// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibGate Contributors

package key

import (
	"regexp"
	"strings"

	"github.com/samber/oops"
)

// Scope namespaces.
const (
	NamespaceScope   = "sc"
	NamespaceLibrary = "lib"
)

// ScopeKind tags the concrete variant of a scope key.
type ScopeKind int

// Scope kind tags, dispatched from the namespace prefix.
const (
	ScopeGeneric ScopeKind = iota
	ScopeLibrary
)

// scopeKinds is the namespace -> kind registry for scopes. Populated once
// at init. Canonical keys with unknown namespaces fall back to ScopeGeneric;
// external-facing keys with unknown namespaces are a hard error.
var scopeKinds = map[string]ScopeKind{
	NamespaceScope:   ScopeGeneric,
	NamespaceLibrary: ScopeLibrary,
}

// libraryLocatorPattern matches the external form of a content library
// locator: "lib:ORG:SLUG" with non-empty org and slug segments.
var libraryLocatorPattern = regexp.MustCompile(`^lib:[\w.-]+:[\w.-]+$`)

// Scope is the resource context a role grant applies to.
type Scope struct {
	NamespacedKey
	Kind ScopeKind
}

// WildcardScope returns the global wildcard scope, whose canonical key is
// the bare "*".
func WildcardScope() Scope {
	return Scope{NamespacedKey: NamespacedKey{Namespace: Wildcard}, Kind: ScopeGeneric}
}

// NewScope builds a generic scope from an external id.
func NewScope(externalID string) Scope {
	return Scope{NamespacedKey: New(NamespaceScope, externalID), Kind: ScopeGeneric}
}

// NewLibraryScope builds a content-library scope from its locator
// (e.g. "lib:DemoX:CSPROB"). The locator is not validated; use
// ValidateLibraryLocator when the input is untrusted.
func NewLibraryScope(locator string) Scope {
	return Scope{NamespacedKey: New(NamespaceLibrary, locator), Kind: ScopeLibrary}
}

// ParseScope dispatches a canonical key (or the bare wildcard "*") to the
// matching scope variant. Unrecognized namespaces fall back to the generic
// scope kind: policy stores written by newer deployments must stay readable.
func ParseScope(canonical string) (Scope, error) {
	if canonical == Wildcard {
		return WildcardScope(), nil
	}
	k, err := ParseCanonical(canonical)
	if err != nil {
		return Scope{}, err
	}
	kind, ok := scopeKinds[k.Namespace]
	if !ok {
		kind = ScopeGeneric
	}
	return Scope{NamespacedKey: k, Kind: kind}, nil
}

// ScopeFromExternal dispatches an external-facing "namespace:identifier"
// key (e.g. "lib:DemoX:CSPROB") to the matching scope variant. Unlike
// ParseScope, an unrecognized namespace here is a hard UNKNOWN_NAMESPACE
// error: external input naming a namespace nobody registered is a caller
// mistake, not forward compatibility.
func ScopeFromExternal(external string) (Scope, error) {
	if external == Wildcard {
		return WildcardScope(), nil
	}
	namespace, _, found := strings.Cut(external, ExternalSeparator)
	if !found || namespace == "" {
		return Scope{}, oops.
			Code("INVALID_KEY_FORMAT").
			With("external_key", external).
			Errorf("external scope key must be in 'namespace:identifier' form")
	}
	kind, ok := scopeKinds[namespace]
	if !ok {
		return Scope{}, oops.
			Code("UNKNOWN_NAMESPACE").
			With("namespace", namespace).
			With("external_key", external).
			Errorf("no scope kind registered for namespace %q", namespace)
	}
	if kind == ScopeLibrary && !ValidateLibraryLocator(external) {
		return Scope{}, oops.
			Code("INVALID_KEY_FORMAT").
			With("external_key", external).
			Errorf("invalid library locator %q", external)
	}
	// Library locators embed their own "lib:" prefix, so the full external
	// key is the external id ("lib^lib:DemoX:CSPROB").
	return Scope{NamespacedKey: New(namespace, external), Kind: kind}, nil
}

// ValidateLibraryLocator reports whether an external key parses as a
// content-library locator ("lib:ORG:SLUG"). It is a predicate, not a
// constructor: some callers only need to know, not to fail.
func ValidateLibraryLocator(external string) bool {
	return libraryLocatorPattern.MatchString(external)
}

// Key returns the canonical key, which for the global wildcard scope is the
// bare "*" rather than a namespaced form.
func (s Scope) Key() string {
	if s.IsWildcard() {
		return Wildcard
	}
	return s.NamespacedKey.String()
}

// String implements fmt.Stringer via Key.
func (s Scope) String() string {
	return s.Key()
}

// IsWildcard reports whether this is the global wildcard scope.
func (s Scope) IsWildcard() bool {
	return s.Namespace == Wildcard && s.ExternalID == ""
}

// IsLibrary reports whether the scope is a content library.
func (s Scope) IsLibrary() bool {
	return s.Kind == ScopeLibrary
}

// LibraryID returns the library locator; meaningful only for library scopes.
func (s Scope) LibraryID() string {
	return s.ExternalID
}

// LibraryOrgSlug splits a library scope's locator into its org and slug
// segments. The second return is false when the scope is not a valid
// library locator.
func (s Scope) LibraryOrgSlug() (org, slug string, ok bool) {
	if !ValidateLibraryLocator(s.ExternalID) {
		return "", "", false
	}
	parts := strings.SplitN(s.ExternalID, ExternalSeparator, 3)
	return parts[1], parts[2], true
}
