// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibGate Contributors

//go:build integration

package postgres_test

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/libgate/libgate/internal/authz/policy"
	"github.com/libgate/libgate/internal/authz/policy/postgres"
)

// setupPostgresContainer starts a PostgreSQL container, runs migrations and
// returns a connected pool.
func setupPostgresContainer() (*pgxpool.Pool, func(), error) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("libgate_test"),
		tcpostgres.WithUsername("libgate"),
		tcpostgres.WithPassword("libgate"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, nil, err
	}

	migrator, err := postgres.NewMigrator(connStr)
	if err != nil {
		return nil, nil, err
	}
	if err := migrator.Up(); err != nil {
		return nil, nil, err
	}
	_ = migrator.Close()

	pool, err := postgres.Connect(ctx, connStr)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		pool.Close()
		_ = container.Terminate(ctx)
	}
	return pool, cleanup, nil
}

var _ = Describe("Policy storage", func() {
	var (
		pool    *pgxpool.Pool
		cleanup func()
		adapter *postgres.Adapter
		ctx     context.Context
	)

	BeforeEach(func() {
		var err error
		pool, cleanup, err = setupPostgresContainer()
		Expect(err).NotTo(HaveOccurred())
		adapter = postgres.NewAdapter(pool)
		ctx = context.Background()
	})

	AfterEach(func() {
		cleanup()
	})

	It("round-trips rules through insert, scan and delete", func() {
		p := policy.NewPolicyRule("role^library_admin", "act^delete_library", "lib^*", "allow")
		g := policy.NewGroupingRule("user^alice", "role^library_admin", "lib^lib:DemoX:CSPROB")

		Expect(adapter.Insert(ctx, p)).To(Succeed())
		Expect(adapter.Insert(ctx, g)).To(Succeed())

		rules, err := adapter.Scan(ctx, policy.Filter{})
		Expect(err).NotTo(HaveOccurred())
		Expect(rules).To(Equal([]policy.Rule{p, g}))

		grouping, err := adapter.Scan(ctx, policy.Filter{PTypes: []string{"g"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(grouping).To(ConsistOf(g))

		Expect(adapter.Delete(ctx, g)).To(Succeed())
		rules, err = adapter.Scan(ctx, policy.Filter{})
		Expect(err).NotTo(HaveOccurred())
		Expect(rules).To(ConsistOf(p))
	})

	It("treats duplicate tuple inserts as a no-op", func() {
		g := policy.NewGroupingRule("user^bob", "role^library_user", "lib^lib:DemoX:CSPROB")
		Expect(adapter.Insert(ctx, g)).To(Succeed())
		Expect(adapter.Insert(ctx, g)).To(Succeed())

		rules, err := adapter.Scan(ctx, policy.Filter{})
		Expect(err).NotTo(HaveOccurred())
		Expect(rules).To(HaveLen(1))
	})

	It("commits rule and cross-reference atomically", func() {
		entities := postgres.NewEntityStore(pool)
		transactor := postgres.NewTransactor(pool)
		g := policy.NewGroupingRule("user^carol", "role^library_contributor", "lib^lib:Org1:math_101")

		err := transactor.InTransaction(ctx, func(txCtx context.Context) error {
			if err := adapter.Insert(txCtx, g); err != nil {
				return err
			}
			subjectID, err := entities.GetOrCreateSubject(txCtx, g.V0)
			if err != nil {
				return err
			}
			scopeID, err := entities.GetOrCreateScope(txCtx, g.V2)
			if err != nil {
				return err
			}
			return entities.LinkRule(txCtx, g, subjectID, scopeID)
		})
		Expect(err).NotTo(HaveOccurred())

		count, err := entities.SubjectRuleCount(ctx, g.V0)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(1))
	})

	It("rolls back the rule when the cross-reference write fails", func() {
		transactor := postgres.NewTransactor(pool)
		g := policy.NewGroupingRule("user^dave", "role^library_user", "lib^lib:Org1:math_101")

		err := transactor.InTransaction(ctx, func(txCtx context.Context) error {
			if err := adapter.Insert(txCtx, g); err != nil {
				return err
			}
			return context.Canceled
		})
		Expect(err).To(HaveOccurred())

		rules, scanErr := adapter.Scan(ctx, policy.Filter{V0: []string{g.V0}})
		Expect(scanErr).NotTo(HaveOccurred())
		Expect(rules).To(BeEmpty())
	})

	It("cascades cross-references when the rule is deleted", func() {
		entities := postgres.NewEntityStore(pool)
		g := policy.NewGroupingRule("user^erin", "role^library_user", "lib^lib:Org1:math_101")

		Expect(adapter.Insert(ctx, g)).To(Succeed())
		subjectID, err := entities.GetOrCreateSubject(ctx, g.V0)
		Expect(err).NotTo(HaveOccurred())
		scopeID, err := entities.GetOrCreateScope(ctx, g.V2)
		Expect(err).NotTo(HaveOccurred())
		Expect(entities.LinkRule(ctx, g, subjectID, scopeID)).To(Succeed())

		Expect(adapter.Delete(ctx, g)).To(Succeed())
		count, err := entities.SubjectRuleCount(ctx, g.V0)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(BeZero())
	})
})
