// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibGate Contributors

package engine

import (
	"log/slog"

	"github.com/gobwas/glob"

	"github.com/libgate/libgate/internal/authz/key"
	"github.com/libgate/libgate/internal/authz/policy"
)

// scopeMatch reports whether a rule's scope pattern covers the requested
// scope. The global wildcard covers everything, in both directions: a rule
// scoped "*" matches any request, and a request for "*" matches any rule.
// Query callers use the latter to collect rules across all scopes.
func (e *Engine) scopeMatch(pattern, scope string) bool {
	if pattern == scope {
		return true
	}
	if pattern == key.Wildcard || scope == key.Wildcard {
		return true
	}
	g, err := e.compiledGlob(pattern)
	if err != nil {
		slog.Warn("unparseable scope pattern in policy rule", "pattern", pattern, "error", err)
		return false
	}
	return g.Match(scope)
}

// ScopeMatches reports whether a rule's scope pattern covers the scope key.
// Exposed for query-side composition; Enforce uses the same matching.
func (e *Engine) ScopeMatches(pattern, scope string) bool {
	return e.scopeMatch(pattern, scope)
}

// compiledGlob returns the compiled matcher for a scope pattern, consulting
// the LRU cache first. Patterns compile without a separator: external ids
// may themselves contain separators and a scope wildcard spans all of them.
func (e *Engine) compiledGlob(pattern string) (glob.Glob, error) {
	if g, ok := e.globs.Get(pattern); ok {
		return g, nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, err
	}
	e.globs.Add(pattern, g)
	return g, nil
}

// reachableRoles returns every role the subject holds in the scope,
// following grouping rules transitively: a role assigned to another role
// extends the reachable set. A visited set guards against cycles.
func (e *Engine) reachableRoles(snapshot []policy.Rule, subject, scope string) map[string]struct{} {
	roles := make(map[string]struct{})
	visited := map[string]struct{}{subject: {}}
	frontier := []string{subject}

	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]

		for _, r := range snapshot {
			if r.PType != policy.PTypeGrouping {
				continue
			}
			if !r.WellFormed() {
				slog.Warn("skipping malformed grouping rule", "rule", r.Key())
				continue
			}
			if r.V0 != current || !e.scopeMatch(r.V2, scope) {
				continue
			}
			role := r.V1
			if _, seen := visited[role]; seen {
				continue
			}
			visited[role] = struct{}{}
			roles[role] = struct{}{}
			frontier = append(frontier, role)
		}
	}
	return roles
}

// actionAncestors returns the requested action plus every action that
// grants it through action-inheritance rules, transitively. A rule granting
// an ancestor therefore grants the requested action.
func actionAncestors(snapshot []policy.Rule, action string) map[string]struct{} {
	ancestors := map[string]struct{}{action: {}}
	frontier := []string{action}

	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]

		for _, r := range snapshot {
			if r.PType != policy.PTypeActionGrouping {
				continue
			}
			if !r.WellFormed() {
				slog.Warn("skipping malformed action grouping rule", "rule", r.Key())
				continue
			}
			if r.V1 != current {
				continue
			}
			parent := r.V0
			if _, seen := ancestors[parent]; seen {
				continue
			}
			ancestors[parent] = struct{}{}
			frontier = append(frontier, parent)
		}
	}
	return ancestors
}

// actionDescendants returns the action plus every action it grants through
// action-inheritance rules, transitively.
func actionDescendants(snapshot []policy.Rule, action string) map[string]struct{} {
	descendants := map[string]struct{}{action: {}}
	frontier := []string{action}

	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]

		for _, r := range snapshot {
			if r.PType != policy.PTypeActionGrouping || r.V0 != current {
				continue
			}
			child := r.V1
			if _, seen := descendants[child]; seen {
				continue
			}
			descendants[child] = struct{}{}
			frontier = append(frontier, child)
		}
	}
	return descendants
}
