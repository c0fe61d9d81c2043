// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibGate Contributors

package authz

import (
	"context"
	"log/slog"

	"github.com/libgate/libgate/internal/authz/policy"
)

// MigrateRules copies every rule from the source store into the target,
// skipping rules the target already holds. Both stores must be loaded.
// Returns the number of rules copied; a failed copy stops the migration
// with the copies so far intact.
func MigrateRules(ctx context.Context, source, target *policy.Store) (int, error) {
	copied := 0
	for _, rule := range source.Query(policy.Filter{}) {
		ok, err := target.Add(ctx, rule)
		if err != nil {
			return copied, err
		}
		if ok {
			copied++
		}
	}
	slog.InfoContext(ctx, "migrated policy rules", "rules_copied", copied)
	return copied, nil
}
