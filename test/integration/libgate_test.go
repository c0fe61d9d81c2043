// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibGate Contributors

//go:build integration

package integration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/libgate/libgate/internal/authz"
	"github.com/libgate/libgate/internal/authz/engine"
	"github.com/libgate/libgate/internal/authz/policy"
	"github.com/libgate/libgate/internal/authz/policy/postgres"
)

// instance bundles the per-process pieces of a LibGate deployment: its own
// snapshot, engine and watcher, all sharing the database and redis.
type instance struct {
	store   *policy.Store
	engine  *engine.Engine
	watcher *engine.Watcher
	service *authz.Service
	client  *redis.Client
}

// watcherNotifier adapts a Watcher to the service's Notifier interface.
type watcherNotifier struct {
	w *engine.Watcher
}

func (n *watcherNotifier) Notify(ctx context.Context) error {
	return n.w.Notify(ctx)
}

func startInstance(ctx context.Context, pool *pgxpool.Pool, redisAddr string) (*instance, error) {
	adapter := postgres.NewAdapter(pool)
	store := policy.NewStore(adapter)
	if err := store.Load(ctx); err != nil {
		return nil, err
	}

	eng := engine.NewEngine(store)

	client := redis.NewClient(&redis.Options{Addr: redisAddr})
	watcher := engine.NewWatcher(client, engine.DefaultChannel)
	if err := watcher.Start(ctx, func(ctx context.Context) {
		_ = store.Load(ctx)
	}); err != nil {
		return nil, err
	}

	svc, err := authz.NewService(authz.ServiceOptions{
		Store:    store,
		Adapter:  adapter,
		Engine:   eng,
		Tx:       postgres.NewTransactor(pool),
		Entities: postgres.NewEntityStore(pool),
		Notifier: &watcherNotifier{w: watcher},
	})
	if err != nil {
		return nil, err
	}

	return &instance{
		store:   store,
		engine:  eng,
		watcher: watcher,
		service: svc,
		client:  client,
	}, nil
}

func (i *instance) close() {
	_ = i.watcher.Close()
	_ = i.client.Close()
}

var _ = Describe("LibGate end to end", func() {
	var (
		ctx     context.Context
		pool    *pgxpool.Pool
		mr      *miniredis.Miniredis
		cleanup func()
	)

	BeforeEach(func() {
		ctx = context.Background()

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
		Expect(err).NotTo(HaveOccurred())

		connStr, err := container.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())

		migrator, err := postgres.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		Expect(migrator.Up()).To(Succeed())
		_ = migrator.Close()

		pool, err = postgres.Connect(ctx, connStr)
		Expect(err).NotTo(HaveOccurred())

		mr, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())

		cleanup = func() {
			pool.Close()
			mr.Close()
			_ = container.Terminate(ctx)
		}
	})

	AfterEach(func() {
		cleanup()
	})

	It("seeds, assigns and enforces through the full stack", func() {
		inst, err := startInstance(ctx, pool, mr.Addr())
		Expect(err).NotTo(HaveOccurred())
		defer inst.close()

		added, err := inst.service.SeedDefaultPolicies(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(added).To(BeNumerically(">", 0))

		// Seeding twice adds nothing
		again, err := inst.service.SeedDefaultPolicies(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(again).To(BeZero())

		changed, err := inst.service.AssignRoleToUser(ctx, "alice", "library_admin", "lib:Org1:math_101")
		Expect(err).NotTo(HaveOccurred())
		Expect(changed).To(BeTrue())

		allowed, err := inst.service.IsUserAllowed(ctx, "alice", "content_libraries.delete_library", "lib:Org1:math_101")
		Expect(err).NotTo(HaveOccurred())
		Expect(allowed).To(BeTrue())

		// No role in the other library
		allowed, err = inst.service.IsUserAllowed(ctx, "alice", "content_libraries.delete_library", "lib:Org1:physics_201")
		Expect(err).NotTo(HaveOccurred())
		Expect(allowed).To(BeFalse())

		// Unassignment revokes access
		removed, err := inst.service.UnassignRoleFromUser(ctx, "alice", "library_admin", "lib:Org1:math_101")
		Expect(err).NotTo(HaveOccurred())
		Expect(removed).To(BeTrue())

		allowed, err = inst.service.IsUserAllowed(ctx, "alice", "content_libraries.delete_library", "lib:Org1:math_101")
		Expect(err).NotTo(HaveOccurred())
		Expect(allowed).To(BeFalse())
	})

	It("propagates policy changes to a second instance", func() {
		first, err := startInstance(ctx, pool, mr.Addr())
		Expect(err).NotTo(HaveOccurred())
		defer first.close()

		second, err := startInstance(ctx, pool, mr.Addr())
		Expect(err).NotTo(HaveOccurred())
		defer second.close()

		_, err = first.service.SeedDefaultPolicies(ctx)
		Expect(err).NotTo(HaveOccurred())

		_, err = first.service.AssignRoleToUser(ctx, "bob", "library_user", "lib:Org1:math_101")
		Expect(err).NotTo(HaveOccurred())

		// The second instance reloads after the notification and sees
		// the assignment without touching the first instance.
		Eventually(func() bool {
			allowed, checkErr := second.service.IsUserAllowed(ctx,
				"bob", "content_libraries.view_library", "lib:Org1:math_101")
			return checkErr == nil && allowed
		}, 5*time.Second, 100*time.Millisecond).Should(BeTrue())
	})

	It("serves decisions concurrently while assignments change", func() {
		inst, err := startInstance(ctx, pool, mr.Addr())
		Expect(err).NotTo(HaveOccurred())
		defer inst.close()

		_, err = inst.service.SeedDefaultPolicies(ctx)
		Expect(err).NotTo(HaveOccurred())

		_, err = inst.service.AssignRoleToUser(ctx, "carol", "library_author", "lib:Org1:math_101")
		Expect(err).NotTo(HaveOccurred())

		const readers = 8
		const checksPerReader = 50

		var wg sync.WaitGroup
		errCh := make(chan error, readers+1)

		for r := 0; r < readers; r++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < checksPerReader; i++ {
					// carol keeps her author role for the whole run, so
					// every decision must come back allowed regardless of
					// the concurrent writes.
					allowed, checkErr := inst.service.IsUserAllowed(ctx,
						"carol", "content_libraries.edit_library_content", "lib:Org1:math_101")
					if checkErr != nil {
						errCh <- checkErr
						return
					}
					if !allowed {
						errCh <- fmt.Errorf("decision flipped to denied mid-run")
						return
					}
				}
			}()
		}

		// Writer churns unrelated assignments while the readers run.
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				user := fmt.Sprintf("churn-%d", i)
				if _, assignErr := inst.service.AssignRoleToUser(ctx,
					user, "library_user", "lib:Org1:math_101"); assignErr != nil {
					errCh <- assignErr
					return
				}
				if _, unassignErr := inst.service.UnassignRoleFromUser(ctx,
					user, "library_user", "lib:Org1:math_101"); unassignErr != nil {
					errCh <- unassignErr
					return
				}
			}
		}()

		wg.Wait()
		close(errCh)
		for runErr := range errCh {
			Expect(runErr).NotTo(HaveOccurred())
		}
	})
})
