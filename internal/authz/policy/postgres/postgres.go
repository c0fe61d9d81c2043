// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibGate Contributors

// Package postgres persists policy rules and their cross-references in
// PostgreSQL.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
)

// db abstracts query execution over *pgxpool.Pool and pgx.Tx so store
// methods work within or outside of transactions, and over pgxmock in tests.
type db interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Connect opens a connection pool and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}
	return pool, nil
}

func storeErr(err error, operation string) error {
	return oops.Code("STORE_UNAVAILABLE").With("operation", operation).Wrap(err)
}
