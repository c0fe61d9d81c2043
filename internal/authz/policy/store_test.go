// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibGate Contributors

package policy_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libgate/libgate/internal/authz/policy"
	"github.com/libgate/libgate/internal/authz/policy/policytest"
)

func seededAdapter(t *testing.T) *policytest.FakeAdapter {
	t.Helper()
	a := policytest.NewFakeAdapter()
	ctx := context.Background()
	rules := []policy.Rule{
		policy.NewPolicyRule("role^library_admin", "act^delete_library", "lib^*", "allow"),
		policy.NewPolicyRule("role^library_user", "act^view_library", "lib^*", "allow"),
		policy.NewGroupingRule("user^alice", "role^library_admin", "lib^lib:DemoX:CSPROB"),
		policy.NewActionGroupingRule("act^manage_library", "act^edit_library"),
	}
	for _, r := range rules {
		require.NoError(t, a.Insert(ctx, r))
	}
	return a
}

func TestStore_LoadAndQuery(t *testing.T) {
	store := policy.NewStore(seededAdapter(t))
	require.NoError(t, store.Load(context.Background()))
	assert.Equal(t, 4, store.Len())
	assert.False(t, store.LastLoad().IsZero())

	// Query preserves insertion order.
	got := store.Query(policy.Filter{PTypes: []string{"p"}})
	require.Len(t, got, 2)
	assert.Equal(t, "role^library_admin", got[0].V0)
	assert.Equal(t, "role^library_user", got[1].V0)

	// Empty filter returns all rules.
	assert.Len(t, store.Query(policy.Filter{}), 4)
}

func TestStore_LoadFiltered(t *testing.T) {
	adapter := seededAdapter(t)
	ctx := context.Background()

	full := policy.NewStore(adapter)
	require.NoError(t, full.Load(ctx))

	filtered := policy.NewStore(adapter)
	f := policy.Filter{PTypes: []string{"g"}}
	require.NoError(t, filtered.LoadFiltered(ctx, f))

	// Filtered load equals full load followed by the same filter.
	assert.Equal(t, full.Query(f), filtered.Query(policy.Filter{}))
}

func TestStore_AddDuplicateIsNoOp(t *testing.T) {
	adapter := policytest.NewFakeAdapter()
	store := policy.NewStore(adapter)
	ctx := context.Background()

	r := policy.NewGroupingRule("user^bob", "role^library_user", "lib^lib:DemoX:CSPROB")

	added, err := store.Add(ctx, r)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = store.Add(ctx, r)
	require.NoError(t, err)
	assert.False(t, added)

	assert.Equal(t, 1, store.Len())
	assert.Len(t, adapter.Rules(), 1)
}

func TestStore_RemoveAbsentIsNoOp(t *testing.T) {
	store := policy.NewStore(policytest.NewFakeAdapter())
	removed, err := store.Remove(context.Background(), policy.NewGroupingRule("user^ghost", "role^library_user", "sc^s"))
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestStore_AddRemoveRoundTrip(t *testing.T) {
	adapter := policytest.NewFakeAdapter()
	store := policy.NewStore(adapter)
	ctx := context.Background()

	r := policy.NewPolicyRule("role^library_author", "act^publish_library", "lib^*", "allow")

	_, err := store.Add(ctx, r)
	require.NoError(t, err)
	assert.True(t, store.Has(r))

	removed, err := store.Remove(ctx, r)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.False(t, store.Has(r))
	assert.Empty(t, adapter.Rules())
}

func TestStore_AdapterFailurePropagates(t *testing.T) {
	adapter := policytest.NewFakeAdapter()
	store := policy.NewStore(adapter)
	ctx := context.Background()

	adapter.FailNext = true
	err := store.Load(ctx)
	require.Error(t, err)
	assert.True(t, policy.IsStoreUnavailable(err))

	adapter.FailNext = true
	_, err = store.Add(ctx, policy.NewGroupingRule("user^a", "role^r", "sc^s"))
	require.Error(t, err)
	assert.True(t, policy.IsStoreUnavailable(err))
	// Snapshot stays untouched on adapter failure.
	assert.Equal(t, 0, store.Len())
}

func TestStore_AbsorbEvict(t *testing.T) {
	adapter := policytest.NewFakeAdapter()
	store := policy.NewStore(adapter)

	r := policy.NewGroupingRule("user^carol", "role^library_contributor", "lib^lib:Org1:math_101")

	assert.True(t, store.Absorb(r))
	assert.False(t, store.Absorb(r))
	assert.True(t, store.Has(r))
	// Absorb never touches the backing store.
	assert.Empty(t, adapter.Rules())

	assert.True(t, store.Evict(r))
	assert.False(t, store.Evict(r))
	assert.False(t, store.Has(r))
}

func TestStore_Clear(t *testing.T) {
	store := policy.NewStore(seededAdapter(t))
	require.NoError(t, store.Load(context.Background()))
	require.NotZero(t, store.Len())

	store.Clear()
	assert.Equal(t, 0, store.Len())
	assert.Empty(t, store.Query(policy.Filter{}))
}
