// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibGate Contributors

package policy

import (
	"context"
	"sync"
	"time"

	"github.com/samber/oops"
)

// Adapter is the backing persistent store for policy rules. Implementations
// must return scanned rules in a stable order (insertion/id order) and wrap
// I/O failures with the STORE_UNAVAILABLE code. The core never retries;
// retry policy belongs to the adapter's client if anywhere.
type Adapter interface {
	Scan(ctx context.Context, f Filter) ([]Rule, error)
	Insert(ctx context.Context, r Rule) error
	Delete(ctx context.Context, r Rule) error
}

// Store is the process-wide in-memory snapshot of policy rules. Reads
// (Query, Has) proceed concurrently under a read lock; Add, Remove, Load
// and Clear take the write lock for their duration. Writes go to the
// adapter first and mutate the snapshot only on success.
type Store struct {
	adapter Adapter

	mu    sync.RWMutex
	rules []Rule
	index map[string]struct{}

	// lastLoad is the wall-clock time of the last successful Load, zero if
	// the store has never loaded. Exposed for staleness reporting only.
	lastLoad time.Time
}

// NewStore creates an empty store over the given adapter.
func NewStore(adapter Adapter) *Store {
	return &Store{
		adapter: adapter,
		index:   make(map[string]struct{}),
	}
}

// Load replaces the snapshot with every rule in the backing store.
func (s *Store) Load(ctx context.Context) error {
	return s.LoadFiltered(ctx, Filter{})
}

// LoadFiltered replaces the snapshot with the backing store's rules matching
// the filter. The result equals Load followed by post-filtering; the filter
// exists so large policy sets can be loaded selectively.
func (s *Store) LoadFiltered(ctx context.Context, f Filter) error {
	rules, err := s.adapter.Scan(ctx, f)
	if err != nil {
		return oops.With("filter_empty", f.IsEmpty()).Wrapf(err, "load policy rules")
	}

	index := make(map[string]struct{}, len(rules))
	for _, r := range rules {
		index[r.Key()] = struct{}{}
	}

	s.mu.Lock()
	s.rules = rules
	s.index = index
	s.lastLoad = time.Now()
	s.mu.Unlock()
	return nil
}

// Clear empties the snapshot without touching the backing store.
func (s *Store) Clear() {
	s.mu.Lock()
	s.rules = nil
	s.index = make(map[string]struct{})
	s.mu.Unlock()
}

// Query returns the rules matching the filter, preserving insertion order.
// The returned slice is a copy; callers may keep it across later mutations.
func (s *Store) Query(f Filter) []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]Rule, 0)
	for _, r := range s.rules {
		if f.Match(r) {
			matched = append(matched, r)
		}
	}
	return matched
}

// Has reports whether a rule with the same (ptype, v0..v3) key exists.
func (s *Store) Has(r Rule) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[r.Key()]
	return ok
}

// Len returns the number of rules in the snapshot.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rules)
}

// LastLoad returns the time of the last successful Load, zero if never.
func (s *Store) LastLoad() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastLoad
}

// Add persists the rule and appends it to the snapshot. Returns false with
// no error when an identical (ptype, v0..v3) tuple already exists: duplicate
// insertion is an expected no-op, not a failure.
func (s *Store) Add(ctx context.Context, r Rule) (bool, error) {
	if s.Has(r) {
		return false, nil
	}
	if err := s.adapter.Insert(ctx, r); err != nil {
		return false, oops.With("rule", r.Key()).Wrapf(err, "insert policy rule")
	}
	s.Absorb(r)
	return true, nil
}

// Remove deletes the rule from the backing store and the snapshot. Returns
// false when nothing matched.
func (s *Store) Remove(ctx context.Context, r Rule) (bool, error) {
	if !s.Has(r) {
		return false, nil
	}
	if err := s.adapter.Delete(ctx, r); err != nil {
		return false, oops.With("rule", r.Key()).Wrapf(err, "delete policy rule")
	}
	s.Evict(r)
	return true, nil
}

// Absorb appends a rule to the in-memory snapshot only. Callers that write
// through their own transaction (the assignment protocol) use it to make a
// committed rule visible without a full reload. Returns false on duplicates.
func (s *Store) Absorb(r Rule) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := r.Key()
	if _, ok := s.index[k]; ok {
		return false
	}
	s.rules = append(s.rules, r)
	s.index[k] = struct{}{}
	return true
}

// Evict removes a rule from the in-memory snapshot only. The counterpart of
// Absorb for transactional deletes. Returns false when nothing matched.
func (s *Store) Evict(r Rule) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := r.Key()
	if _, ok := s.index[k]; !ok {
		return false
	}
	delete(s.index, k)
	for i := range s.rules {
		if s.rules[i].Key() == k {
			s.rules = append(s.rules[:i], s.rules[i+1:]...)
			break
		}
	}
	return true
}
