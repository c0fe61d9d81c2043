// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibGate Contributors

// Package policytest provides test doubles for the policy store.
package policytest

import (
	"context"
	"sync"

	"github.com/samber/oops"

	"github.com/libgate/libgate/internal/authz/policy"
)

// FakeAdapter is an in-memory policy.Adapter for tests. Rules keep their
// insertion order, matching the id-ordered scans of the real adapter.
// Safe for concurrent use.
type FakeAdapter struct {
	mu    sync.Mutex
	rules []policy.Rule

	// FailNext, when set, makes the next adapter call return a
	// STORE_UNAVAILABLE error and then resets.
	FailNext bool
}

// NewFakeAdapter creates a FakeAdapter preloaded with the given rules.
func NewFakeAdapter(rules ...policy.Rule) *FakeAdapter {
	return &FakeAdapter{rules: append([]policy.Rule(nil), rules...)}
}

func (a *FakeAdapter) failure() error {
	if a.FailNext {
		a.FailNext = false
		return oops.Code("STORE_UNAVAILABLE").Errorf("fake adapter failure")
	}
	return nil
}

// Scan implements policy.Adapter.
func (a *FakeAdapter) Scan(_ context.Context, f policy.Filter) ([]policy.Rule, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.failure(); err != nil {
		return nil, err
	}
	matched := make([]policy.Rule, 0, len(a.rules))
	for _, r := range a.rules {
		if f.Match(r) {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

// Insert implements policy.Adapter.
func (a *FakeAdapter) Insert(_ context.Context, r policy.Rule) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.failure(); err != nil {
		return err
	}
	a.rules = append(a.rules, r)
	return nil
}

// Delete implements policy.Adapter.
func (a *FakeAdapter) Delete(_ context.Context, r policy.Rule) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.failure(); err != nil {
		return err
	}
	key := r.Key()
	for i := range a.rules {
		if a.rules[i].Key() == key {
			a.rules = append(a.rules[:i], a.rules[i+1:]...)
			return nil
		}
	}
	return nil
}

// Rules returns a copy of the adapter's current rules.
func (a *FakeAdapter) Rules() []policy.Rule {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]policy.Rule(nil), a.rules...)
}
