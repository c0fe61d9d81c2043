// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibGate Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/libgate/libgate/internal/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the libgate CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "libgate",
		Short: "LibGate - role-based authorization for content libraries",
		Long: `LibGate answers "may this subject perform this action in this scope?"
from a PostgreSQL-backed policy store, with role hierarchies, action
inheritance and deny-overrides evaluation.`,
	}

	defaults := config.Default()

	// Global flags map onto config keys (dashes become underscores).
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	cmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string")
	cmd.PersistentFlags().String("redis-url", "", "Redis URL for cross-process invalidation (optional)")
	cmd.PersistentFlags().Duration("auto-reload-interval", 0, "periodic policy reload interval (0 = disabled)")
	cmd.PersistentFlags().String("metrics-addr", defaults.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.PersistentFlags().String("log-format", defaults.LogFormat, "log format (json or text)")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())
	cmd.AddCommand(NewCheckCmd())

	return cmd
}

// loadConfig resolves the effective configuration for a subcommand from
// defaults, the optional config file and the inherited global flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	return config.Load(configFile, cmd.Flags())
}
