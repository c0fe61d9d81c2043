// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibGate Contributors

package postgres

import (
	"context"

	"github.com/libgate/libgate/internal/authz/policy"
)

// EntityStore maintains the subject and scope registries and the
// cross-references that tie grouping rules to both. The assignment protocol
// calls it inside the same transaction as the rule write.
type EntityStore struct {
	pool db
}

// NewEntityStore creates an EntityStore backed by the given connection pool.
func NewEntityStore(pool db) *EntityStore {
	return &EntityStore{pool: pool}
}

// GetOrCreateSubject returns the id of the subject row for the canonical
// key, creating it when absent. The upsert never errors on an existing row,
// so it stays safe inside the assignment transaction.
func (s *EntityStore) GetOrCreateSubject(ctx context.Context, subjectKey string) (int64, error) {
	return s.getOrCreate(ctx, "authz_subjects", "subject_key", subjectKey)
}

// GetOrCreateScope returns the id of the scope row for the canonical key,
// creating it when absent.
func (s *EntityStore) GetOrCreateScope(ctx context.Context, scopeKey string) (int64, error) {
	return s.getOrCreate(ctx, "authz_scopes", "scope_key", scopeKey)
}

// getOrCreate upserts the entity row and returns its id. A unique-violation
// error would abort the surrounding transaction, so the conflict is resolved
// inside the statement: the no-op DO UPDATE makes RETURNING yield the id of
// the existing row as well as a fresh one, and it serializes concurrent
// creators on the conflicting key.
func (s *EntityStore) getOrCreate(ctx context.Context, table, column, key string) (int64, error) {
	var id int64
	err := dbFrom(ctx, s.pool).QueryRow(ctx,
		`INSERT INTO `+table+` (`+column+`) VALUES ($1)
		 ON CONFLICT (`+column+`) DO UPDATE SET `+column+` = EXCLUDED.`+column+`
		 RETURNING id`, key).Scan(&id)
	if err != nil {
		return 0, storeErr(err, "upsert "+table+" row")
	}
	return id, nil
}

// LinkRule records the cross-reference between a grouping rule and its
// subject and scope rows. The rule is located by its unique tuple; linking
// an already linked rule is a no-op.
func (s *EntityStore) LinkRule(ctx context.Context, r policy.Rule, subjectID, scopeID int64) error {
	_, err := dbFrom(ctx, s.pool).Exec(ctx, `
		INSERT INTO authz_rule_refs (rule_id, subject_id, scope_id)
		SELECT id, $6, $7 FROM authz_rules
		WHERE ptype = $1 AND v0 = $2 AND v1 = $3 AND v2 = $4 AND v3 = $5
		ON CONFLICT DO NOTHING
	`, r.PType, r.V0, r.V1, r.V2, r.V3, subjectID, scopeID)
	if err != nil {
		return storeErr(err, "link policy rule")
	}
	return nil
}

// SubjectRuleCount returns how many rules still reference the subject.
// Unassignment uses it to detect orphaned subject rows.
func (s *EntityStore) SubjectRuleCount(ctx context.Context, subjectKey string) (int, error) {
	var n int
	err := dbFrom(ctx, s.pool).QueryRow(ctx, `
		SELECT count(*) FROM authz_rule_refs r
		JOIN authz_subjects s ON s.id = r.subject_id
		WHERE s.subject_key = $1
	`, subjectKey).Scan(&n)
	if err != nil {
		return 0, storeErr(err, "count subject rules")
	}
	return n, nil
}
