// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibGate Contributors

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/libgate/libgate/internal/authz/policy/postgres"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	var down bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Run all pending database migrations against the PostgreSQL policy store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, args, down)
		},
	}

	cmd.Flags().BoolVar(&down, "down", false, "roll back all migrations instead of applying them")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string, down bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}

	migrator, err := postgres.NewMigrator(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			slog.Warn("error closing migrator", "error", closeErr)
		}
	}()

	if down {
		cmd.Println("Rolling back migrations...")
		if err := migrator.Down(); err != nil {
			return err
		}
		cmd.Println("Rollback completed successfully")
		return nil
	}

	cmd.Println("Running migrations...")
	if err := migrator.Up(); err != nil {
		return err
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		return err
	}
	cmd.Printf("Migrations completed successfully (version %d, dirty %t)\n", version, dirty)
	return nil
}
