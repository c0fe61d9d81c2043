// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibGate Contributors

// Package engine evaluates access requests against the policy rule
// snapshot using deny-overrides combination.
package engine

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/gobwas/glob"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/samber/oops"

	"github.com/libgate/libgate/internal/authz/key"
	"github.com/libgate/libgate/internal/authz/policy"
)

// globCacheSize bounds the compiled scope pattern cache. Patterns are few
// in practice (one per wildcard rule), so the bound only matters under
// pathological rule churn.
const globCacheSize = 512

// Request is a single access check in canonical key form.
type Request struct {
	Subject string
	Action  string
	Scope   string
}

// Predicate is a named extension point consulted when no policy rule
// decides a request. A predicate granting access is overridden by any
// matching deny rule.
type Predicate func(ctx context.Context, req Request) bool

// Engine answers access checks from the in-memory policy snapshot.
type Engine struct {
	store *policy.Store
	globs *lru.Cache[string, glob.Glob]

	mu         sync.RWMutex
	predicates map[string]Predicate
}

// NewEngine creates an Engine over the given policy store.
func NewEngine(store *policy.Store) *Engine {
	globs, err := lru.New[string, glob.Glob](globCacheSize)
	if err != nil {
		// lru.New fails only on a non-positive size.
		panic(err)
	}
	return &Engine{
		store:      store,
		globs:      globs,
		predicates: make(map[string]Predicate),
	}
}

// RegisterPredicate installs a named predicate. Re-registering a name
// replaces the previous predicate.
func (e *Engine) RegisterPredicate(name string, p Predicate) error {
	if name == "" || p == nil {
		return oops.Code("PREDICATE_INVALID").Errorf("predicate needs a name and a function")
	}
	e.mu.Lock()
	e.predicates[name] = p
	e.mu.Unlock()
	return nil
}

// Enforce decides whether the subject may perform the action in the scope.
// Deny rules override allow rules; with no applicable rule the decision
// falls to the registered predicates, and an explicit deny overrides those
// too. The default is deny.
func (e *Engine) Enforce(ctx context.Context, subject, action, scope string) (bool, error) {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return false, oops.Wrapf(err, "context cancelled before enforcement")
	}
	if subject == "" || action == "" || scope == "" {
		return false, oops.Code("INVALID_KEY_FORMAT").
			With("subject", subject).With("action", action).With("scope", scope).
			Errorf("enforce requires subject, action and scope")
	}

	snapshot := e.store.Query(policy.Filter{})
	roles := e.reachableRoles(snapshot, subject, scope)
	ancestors := actionAncestors(snapshot, action)

	allowed := false
	for _, r := range snapshot {
		if r.PType != policy.PTypePolicy {
			continue
		}
		if !r.WellFormed() {
			slog.Warn("skipping malformed policy rule", "rule", r.Key())
			continue
		}
		if !e.policyApplies(r, subject, roles, ancestors, scope) {
			continue
		}
		if r.V3 == string(key.EffectDeny) {
			recordEnforcement(time.Since(start), decisionDeny)
			return false, nil
		}
		allowed = true
	}
	if allowed {
		recordEnforcement(time.Since(start), decisionAllow)
		return true, nil
	}

	if e.predicateAllows(ctx, Request{Subject: subject, Action: action, Scope: scope}) {
		recordEnforcement(time.Since(start), decisionAllow)
		return true, nil
	}
	recordEnforcement(time.Since(start), decisionDefaultDeny)
	return false, nil
}

// policyApplies reports whether the rule covers the request: its holder is
// the subject itself or a reachable role, its action is the requested one
// or an ancestor, and its scope pattern covers the request scope.
func (e *Engine) policyApplies(r policy.Rule, subject string, roles map[string]struct{}, ancestors map[string]struct{}, scope string) bool {
	if r.V0 != subject {
		if _, ok := roles[r.V0]; !ok {
			return false
		}
	}
	if _, ok := ancestors[r.V1]; !ok {
		return false
	}
	return e.scopeMatch(r.V2, scope)
}

func (e *Engine) predicateAllows(ctx context.Context, req Request) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for name, p := range e.predicates {
		if p(ctx, req) {
			slog.DebugContext(ctx, "access granted by predicate", "predicate", name, "subject", req.Subject)
			return true
		}
	}
	return false
}

// RolesForSubject returns the canonical keys of every role the subject
// holds in the scope, directly or through role inheritance, sorted.
func (e *Engine) RolesForSubject(subject, scope string) []string {
	snapshot := e.store.Query(policy.Filter{PTypes: []string{policy.PTypeGrouping}})
	roles := e.reachableRoles(snapshot, subject, scope)
	out := make([]string, 0, len(roles))
	for role := range roles {
		out = append(out, role)
	}
	sort.Strings(out)
	return out
}

// GrantedActions returns the action keys granted by the given action
// through inheritance, the action itself included, sorted.
func (e *Engine) GrantedActions(action string) []string {
	snapshot := e.store.Query(policy.Filter{PTypes: []string{policy.PTypeActionGrouping}})
	descendants := actionDescendants(snapshot, action)
	out := make([]string, 0, len(descendants))
	for a := range descendants {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// GrantingActions returns the action keys that grant the given action
// through inheritance, the action itself included, sorted.
func (e *Engine) GrantingActions(action string) []string {
	snapshot := e.store.Query(policy.Filter{PTypes: []string{policy.PTypeActionGrouping}})
	ancestors := actionAncestors(snapshot, action)
	out := make([]string, 0, len(ancestors))
	for a := range ancestors {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
