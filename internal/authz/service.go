// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibGate Contributors

// Package authz exposes the role assignment protocol and the query API on
// top of the policy store and the evaluation engine.
package authz

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/libgate/libgate/internal/authz/engine"
	"github.com/libgate/libgate/internal/authz/key"
	"github.com/libgate/libgate/internal/authz/policy"
)

// Transactor runs fn inside a single transaction boundary; fn returning an
// error rolls back everything written within it.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EntityResolver maintains the domain entity rows cross-referenced by
// grouping rules. Calls made inside a Transactor callback must join that
// transaction.
type EntityResolver interface {
	GetOrCreateSubject(ctx context.Context, subjectKey string) (int64, error)
	GetOrCreateScope(ctx context.Context, scopeKey string) (int64, error)
	LinkRule(ctx context.Context, r policy.Rule, subjectID, scopeID int64) error
}

// Notifier signals other processes that the policy set changed.
type Notifier interface {
	Notify(ctx context.Context) error
}

// ScopeCatalog answers whether a scope refers to an existing resource. The
// matcher never consults it; query-side validation does.
type ScopeCatalog interface {
	Exists(ctx context.Context, scope key.Scope) (bool, error)
}

// Service bundles the store, engine and collaborators behind the public
// assignment and query operations.
type Service struct {
	store    *policy.Store
	adapter  policy.Adapter
	engine   *engine.Engine
	tx       Transactor
	entities EntityResolver
	notifier Notifier
	catalog  ScopeCatalog
}

// ServiceOptions configures NewService. Store, Adapter, Engine, Transactor
// and Entities are required; Notifier and Catalog are optional.
type ServiceOptions struct {
	Store    *policy.Store
	Adapter  policy.Adapter
	Engine   *engine.Engine
	Tx       Transactor
	Entities EntityResolver
	Notifier Notifier
	Catalog  ScopeCatalog
}

// NewService creates a Service from its collaborators.
func NewService(opts ServiceOptions) (*Service, error) {
	if opts.Store == nil || opts.Adapter == nil || opts.Engine == nil || opts.Tx == nil || opts.Entities == nil {
		return nil, oops.Code("CONFIG_INVALID").
			Errorf("service requires store, adapter, engine, transactor and entity resolver")
	}
	return &Service{
		store:    opts.Store,
		adapter:  opts.Adapter,
		engine:   opts.Engine,
		tx:       opts.Tx,
		entities: opts.Entities,
		notifier: opts.Notifier,
		catalog:  opts.Catalog,
	}, nil
}

// Engine returns the evaluation engine, for predicate registration.
func (s *Service) Engine() *engine.Engine {
	return s.engine
}

// notifyChange broadcasts a policy change. Notification failures never fail
// the mutation that triggered them; the periodic reload covers the gap.
func (s *Service) notifyChange(ctx context.Context) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx); err != nil {
		slog.WarnContext(ctx, "policy change notification failed", "error", err)
	}
}

// ValidateScope checks that a non-wildcard scope refers to an existing
// resource when a catalog is configured.
func (s *Service) ValidateScope(ctx context.Context, scope key.Scope) error {
	if s.catalog == nil || scope.IsWildcard() {
		return nil
	}
	exists, err := s.catalog.Exists(ctx, scope)
	if err != nil {
		return oops.With("scope", scope.Key()).Wrapf(err, "check scope existence")
	}
	if !exists {
		return oops.Code("SCOPE_NOT_FOUND").With("scope", scope.Key()).Errorf("scope does not exist")
	}
	return nil
}
