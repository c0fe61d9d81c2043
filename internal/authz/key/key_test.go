// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibGate Contributors

package key_test

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libgate/libgate/internal/authz/key"
)

func TestParseCanonical_RoundTrip(t *testing.T) {
	tests := []struct {
		name       string
		canonical  string
		namespace  string
		externalID string
	}{
		{
			name:       "user key",
			canonical:  "user^john_doe",
			namespace:  "user",
			externalID: "john_doe",
		},
		{
			name:       "role key",
			canonical:  "role^library_admin",
			namespace:  "role",
			externalID: "library_admin",
		},
		{
			name:       "library key with embedded colons",
			canonical:  "lib^lib:DemoX:CSPROB",
			namespace:  "lib",
			externalID: "lib:DemoX:CSPROB",
		},
		{
			name:       "external id with further separators splits on first only",
			canonical:  "sc^a^b^c",
			namespace:  "sc",
			externalID: "a^b^c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := key.ParseCanonical(tt.canonical)
			require.NoError(t, err)
			assert.Equal(t, tt.namespace, k.Namespace)
			assert.Equal(t, tt.externalID, k.ExternalID)
			assert.Equal(t, tt.canonical, k.String())
		})
	}
}

func TestParseCanonical_Invalid(t *testing.T) {
	for _, input := range []string{"", "nosep", "^missing_namespace", "missing_id^", "^"} {
		t.Run(input, func(t *testing.T) {
			_, err := key.ParseCanonical(input)
			require.Error(t, err)
			oopsErr, ok := oops.AsOops(err)
			require.True(t, ok)
			assert.Equal(t, "INVALID_KEY_FORMAT", oopsErr.Code())
		})
	}
}

func TestNew_FormatsCanonical(t *testing.T) {
	k := key.New("act", "delete_library")
	assert.Equal(t, "act^delete_library", k.String())

	parsed, err := key.ParseCanonical(k.String())
	require.NoError(t, err)
	assert.Equal(t, k, parsed)
}

func TestParseSubject_Dispatch(t *testing.T) {
	tests := []struct {
		name      string
		canonical string
		kind      key.SubjectKind
	}{
		{name: "user namespace", canonical: "user^alice", kind: key.SubjectUser},
		{name: "generic namespace", canonical: "sub^service", kind: key.SubjectGeneric},
		{name: "unknown namespace falls back to generic", canonical: "group^editors", kind: key.SubjectGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := key.ParseSubject(tt.canonical)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, s.Kind)
			assert.Equal(t, tt.canonical, s.String())
		})
	}
}

func TestNewUser(t *testing.T) {
	u := key.NewUser("john_doe")
	assert.Equal(t, "user^john_doe", u.String())
	assert.True(t, u.IsUser())
	assert.Equal(t, "john_doe", u.Username())
}

func TestIsRoleKey(t *testing.T) {
	assert.True(t, key.IsRoleKey("role^library_admin"))
	assert.False(t, key.IsRoleKey("user^role_fan"))
	assert.False(t, key.IsRoleKey("role^"))
}

func TestActionDisplayName(t *testing.T) {
	tests := []struct {
		slug string
		want string
	}{
		{slug: "read", want: "Read"},
		{slug: "delete_library", want: "Delete Library"},
		{slug: "manage_library_tags", want: "Manage Library Tags"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, key.NewAction(tt.slug).DisplayName())
	}
}

func TestPermissionIdentifier(t *testing.T) {
	p := key.NewPermission("delete_library")
	assert.Equal(t, "delete_library", p.Identifier())
	assert.Equal(t, key.EffectAllow, p.Effect)
}

func TestRoleSamePermissions(t *testing.T) {
	admin := key.NewRole("library_admin",
		key.NewPermission("view_library"),
		key.NewPermission("delete_library"),
	)
	reordered := key.NewRole("other",
		key.NewPermission("delete_library"),
		key.NewPermission("view_library"),
	)
	viewer := key.NewRole("library_user", key.NewPermission("view_library"))

	assert.True(t, admin.SamePermissions(reordered))
	assert.False(t, admin.SamePermissions(viewer))
	assert.True(t, admin.Grants("delete_library"))
	assert.False(t, viewer.Grants("delete_library"))
}

func TestRoleDisplayName(t *testing.T) {
	assert.Equal(t, "Library Admin", key.NewRole("library_admin").DisplayName())
}
