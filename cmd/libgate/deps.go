// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibGate Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/go-redis/redis/v8"
	"github.com/samber/oops"

	"github.com/libgate/libgate/internal/authz"
	"github.com/libgate/libgate/internal/authz/engine"
	"github.com/libgate/libgate/internal/authz/policy/postgres"
)

// services bundles the wired collaborators of a running libgate process.
type services struct {
	handle  *engine.Handle
	service *authz.Service
}

// buildServices connects to the backing stores and initializes the engine
// and service layer. The returned cleanup function tears everything down
// in reverse order and is safe to call exactly once.
func buildServices(ctx context.Context, databaseURL, redisURL string, opts engine.Options) (*services, func(), error) {
	pool, err := postgres.Connect(ctx, databaseURL)
	if err != nil {
		return nil, nil, err
	}

	var redisClient *redis.Client
	if redisURL != "" {
		redisOpts, parseErr := redis.ParseURL(redisURL)
		if parseErr != nil {
			pool.Close()
			return nil, nil, oops.Code("CONFIG_INVALID").With("redis_url", redisURL).
				Wrapf(parseErr, "parse redis URL")
		}
		redisClient = redis.NewClient(redisOpts)
		opts.Watcher = engine.NewWatcher(redisClient, engine.DefaultChannel)
	}

	opts.Adapter = postgres.NewAdapter(pool)

	handle, err := engine.Init(ctx, opts)
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		pool.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if closeErr := engine.Close(); closeErr != nil {
			slog.Warn("engine shutdown failed", "error", closeErr)
		}
		if redisClient != nil {
			if closeErr := redisClient.Close(); closeErr != nil {
				slog.Warn("redis client close failed", "error", closeErr)
			}
		}
		pool.Close()
	}

	svc, err := authz.NewService(authz.ServiceOptions{
		Store:    handle.Store,
		Adapter:  opts.Adapter,
		Engine:   handle.Engine,
		Tx:       postgres.NewTransactor(pool),
		Entities: postgres.NewEntityStore(pool),
		Notifier: handle,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return &services{handle: handle, service: svc}, cleanup, nil
}
