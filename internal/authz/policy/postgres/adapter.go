// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibGate Contributors

package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/libgate/libgate/internal/authz/policy"
)

// Adapter implements policy.Adapter using PostgreSQL. All methods join the
// transaction held in ctx when one is active.
type Adapter struct {
	pool db
}

// NewAdapter creates an Adapter backed by the given connection pool.
func NewAdapter(pool db) *Adapter {
	return &Adapter{pool: pool}
}

const ruleColumns = `ptype, v0, v1, v2, v3, v4, v5`

// Scan returns the rules matching the filter in insertion (id) order.
func (a *Adapter) Scan(ctx context.Context, f policy.Filter) ([]policy.Rule, error) {
	query := fmt.Sprintf(`SELECT %s FROM authz_rules`, ruleColumns)

	var conds []string
	var args []any
	add := func(column string, values []string) {
		if len(values) == 0 {
			return
		}
		args = append(args, values)
		conds = append(conds, fmt.Sprintf("%s = ANY($%d)", column, len(args)))
	}
	add("ptype", f.PTypes)
	add("v0", f.V0)
	add("v1", f.V1)
	add("v2", f.V2)
	add("v3", f.V3)
	add("v4", f.V4)
	add("v5", f.V5)
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"

	rows, err := dbFrom(ctx, a.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr(err, "scan policy rules")
	}
	defer rows.Close()

	var rules []policy.Rule
	for rows.Next() {
		var r policy.Rule
		if err := rows.Scan(&r.PType, &r.V0, &r.V1, &r.V2, &r.V3, &r.V4, &r.V5); err != nil {
			return nil, storeErr(err, "scan policy rule row")
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err, "iterate policy rules")
	}
	return rules, nil
}

// Insert persists the rule. Inserting a tuple whose (ptype, v0..v3) already
// exists is a no-op: the unique index absorbs concurrent duplicate writes.
func (a *Adapter) Insert(ctx context.Context, r policy.Rule) error {
	_, err := dbFrom(ctx, a.pool).Exec(ctx, `
		INSERT INTO authz_rules (ptype, v0, v1, v2, v3, v4, v5)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (ptype, v0, v1, v2, v3) DO NOTHING
	`, r.PType, r.V0, r.V1, r.V2, r.V3, r.V4, r.V5)
	if err != nil {
		return storeErr(err, "insert policy rule")
	}
	return nil
}

// Delete removes the rule with the given (ptype, v0..v3) tuple. Deleting a
// missing rule is a no-op. Cross-references go with the rule via cascade.
func (a *Adapter) Delete(ctx context.Context, r policy.Rule) error {
	_, err := dbFrom(ctx, a.pool).Exec(ctx, `
		DELETE FROM authz_rules
		WHERE ptype = $1 AND v0 = $2 AND v1 = $3 AND v2 = $4 AND v3 = $5
	`, r.PType, r.V0, r.V1, r.V2, r.V3)
	if err != nil {
		return storeErr(err, "delete policy rule")
	}
	return nil
}
