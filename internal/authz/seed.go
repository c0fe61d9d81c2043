// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibGate Contributors

package authz

import (
	"context"
	"log/slog"

	"github.com/libgate/libgate/internal/authz/key"
	"github.com/libgate/libgate/internal/authz/policy"
)

// Content library action slugs.
const (
	ActionViewLibrary             = "content_libraries.view_library"
	ActionManageLibraryTags       = "content_libraries.manage_library_tags"
	ActionDeleteLibrary           = "content_libraries.delete_library"
	ActionEditLibraryContent      = "content_libraries.edit_library_content"
	ActionPublishLibraryContent   = "content_libraries.publish_library_content"
	ActionReuseLibraryContent     = "content_libraries.reuse_library_content"
	ActionViewLibraryTeam         = "content_libraries.view_library_team"
	ActionManageLibraryTeam       = "content_libraries.manage_library_team"
	ActionCreateLibraryCollection = "content_libraries.create_library_collection"
	ActionEditLibraryCollection   = "content_libraries.edit_library_collection"
	ActionDeleteLibraryCollection = "content_libraries.delete_library_collection"
)

// DefaultLibraryRoles returns the built-in content library role catalog.
func DefaultLibraryRoles() []key.Role {
	return []key.Role{
		key.NewRole("library_admin",
			key.NewPermission(ActionViewLibrary),
			key.NewPermission(ActionManageLibraryTags),
			key.NewPermission(ActionDeleteLibrary),
			key.NewPermission(ActionEditLibraryContent),
			key.NewPermission(ActionPublishLibraryContent),
			key.NewPermission(ActionReuseLibraryContent),
			key.NewPermission(ActionViewLibraryTeam),
			key.NewPermission(ActionManageLibraryTeam),
			key.NewPermission(ActionCreateLibraryCollection),
			key.NewPermission(ActionEditLibraryCollection),
			key.NewPermission(ActionDeleteLibraryCollection),
		),
		key.NewRole("library_author",
			key.NewPermission(ActionViewLibrary),
			key.NewPermission(ActionManageLibraryTags),
			key.NewPermission(ActionEditLibraryContent),
			key.NewPermission(ActionPublishLibraryContent),
			key.NewPermission(ActionReuseLibraryContent),
			key.NewPermission(ActionViewLibraryTeam),
			key.NewPermission(ActionCreateLibraryCollection),
			key.NewPermission(ActionEditLibraryCollection),
			key.NewPermission(ActionDeleteLibraryCollection),
		),
		key.NewRole("library_contributor",
			key.NewPermission(ActionViewLibrary),
			key.NewPermission(ActionManageLibraryTags),
			key.NewPermission(ActionEditLibraryContent),
			key.NewPermission(ActionReuseLibraryContent),
			key.NewPermission(ActionViewLibraryTeam),
			key.NewPermission(ActionCreateLibraryCollection),
			key.NewPermission(ActionEditLibraryCollection),
			key.NewPermission(ActionDeleteLibraryCollection),
		),
		key.NewRole("library_user",
			key.NewPermission(ActionViewLibrary),
			key.NewPermission(ActionReuseLibraryContent),
			key.NewPermission(ActionViewLibraryTeam),
		),
	}
}

// defaultActionInheritance returns the (parent, child) action inheritance
// edges installed alongside the role catalog.
func defaultActionInheritance() [][2]string {
	return [][2]string{
		{ActionManageLibraryTeam, ActionViewLibraryTeam},
		{ActionEditLibraryContent, ActionViewLibrary},
	}
}

// libraryWildcard is the scope pattern the role definitions live at.
var libraryWildcard = key.New(key.NamespaceLibrary, key.Wildcard).String()

// SeedDefaultPolicies installs the default library role definitions and
// action inheritance edges. Idempotent: present rules are left alone.
// Returns the number of rules added.
func (s *Service) SeedDefaultPolicies(ctx context.Context) (int, error) {
	added := 0
	for _, role := range DefaultLibraryRoles() {
		for _, p := range role.Permissions {
			rule := policy.NewPolicyRule(role.String(), p.Action.String(), libraryWildcard, string(p.Effect))
			ok, err := s.store.Add(ctx, rule)
			if err != nil {
				return added, err
			}
			if ok {
				added++
			}
		}
	}
	for _, edge := range defaultActionInheritance() {
		rule := policy.NewActionGroupingRule(key.NewAction(edge[0]).String(), key.NewAction(edge[1]).String())
		ok, err := s.store.Add(ctx, rule)
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}

	if added > 0 {
		slog.InfoContext(ctx, "seeded default policies", "rules_added", added)
		s.notifyChange(ctx)
	}
	return added, nil
}
