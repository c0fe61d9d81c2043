// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibGate Contributors

package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/libgate/libgate/internal/authz/engine"
)

// Default timeout for seed command.
const defaultSeedTimeout = 30 * time.Second

// seedConfig holds configuration for the seed command.
type seedConfig struct {
	timeout time.Duration
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the default library roles and permissions",
		Long: `Creates the built-in library role definitions and action inheritance
rules. This command is idempotent - it will not create duplicates if run
multiple times.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, args, cfg)
		},
	}

	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")

	return cmd
}

func runSeed(cmd *cobra.Command, _ []string, cfg *seedConfig) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := conf.RequireDatabase(); err != nil {
		return err
	}

	// Add timeout to prevent indefinite hangs
	// Use cmd.Context() to respect SIGINT/SIGTERM signals
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	cmd.Println("Connecting to database...")
	svcs, cleanup, err := buildServices(ctx, conf.DatabaseURL, conf.RedisURL, engine.Options{})
	if err != nil {
		return err
	}
	defer cleanup()

	cmd.Println("Seeding default library roles...")
	added, err := svcs.service.SeedDefaultPolicies(ctx)
	if err != nil {
		return err
	}

	if added == 0 {
		cmd.Println("Default roles already seeded, nothing to do")
		return nil
	}

	cmd.Printf("Seeded %d policy rules\n", added)
	return nil
}
