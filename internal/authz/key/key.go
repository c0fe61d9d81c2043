// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibGate Contributors

// Package key defines the namespaced identity model for the authorization
// system. Every entity (subject, role, action, scope) is addressed by a
// canonical key of the form "namespace^external_id". The namespace prefix
// identifies the entity kind; the external id is whatever the rest of the
// platform calls the entity (a username, a role slug, a library locator).
package key

import (
	"strings"

	"github.com/samber/oops"
)

const (
	// Separator joins the namespace and the external id in a canonical key.
	Separator = "^"

	// ExternalSeparator joins the namespace and identifier in external-facing
	// keys such as "lib:DemoX:CSPROB".
	ExternalSeparator = ":"

	// Wildcard is the global scope wildcard that matches every scope.
	Wildcard = "*"
)

// NamespacedKey is the canonical identity of an authorization entity.
// The canonical form splits on the first Separator only, so external ids
// may themselves contain further Separator characters safely.
type NamespacedKey struct {
	Namespace  string
	ExternalID string
}

// New builds a NamespacedKey from its two halves.
func New(namespace, externalID string) NamespacedKey {
	return NamespacedKey{Namespace: namespace, ExternalID: externalID}
}

// ParseCanonical splits a canonical "namespace^external_id" key.
// Both halves must be non-empty. Returns an INVALID_KEY_FORMAT error
// otherwise.
func ParseCanonical(s string) (NamespacedKey, error) {
	namespace, externalID, found := strings.Cut(s, Separator)
	if !found || namespace == "" || externalID == "" {
		return NamespacedKey{}, oops.
			Code("INVALID_KEY_FORMAT").
			With("key", s).
			Errorf("key must be in 'namespace%sexternal_id' form with non-empty parts", Separator)
	}
	return NamespacedKey{Namespace: namespace, ExternalID: externalID}, nil
}

// String returns the canonical "namespace^external_id" form.
func (k NamespacedKey) String() string {
	return k.Namespace + Separator + k.ExternalID
}

// IsZero reports whether the key is empty.
func (k NamespacedKey) IsZero() bool {
	return k.Namespace == "" && k.ExternalID == ""
}

// displayName turns a slug into a human-readable name: underscores become
// spaces and each word is capitalized ("delete_library" -> "Delete Library").
func displayName(slug string) string {
	words := strings.Split(strings.ReplaceAll(slug, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
