// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibGate Contributors

package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/libgate/libgate/internal/authz/engine"
)

// Default timeout for check command.
const defaultCheckTimeout = 10 * time.Second

// NewCheckCmd creates the check subcommand.
func NewCheckCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "check <username> <action> <scope>",
		Short: "Check whether a user may perform an action in a scope",
		Long: `Evaluate a single authorization decision against the policy store.

The action is a slug (e.g. content_libraries.view_library) and the scope
is an external key (e.g. lib:Org1:math_101).

Exits 0 when access is allowed and 2 when it is denied.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args, timeout)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", defaultCheckTimeout, "timeout for the decision (e.g., 10s)")

	return cmd
}

func runCheck(cmd *cobra.Command, args []string, timeout time.Duration) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	svcs, cleanup, err := buildServices(ctx, cfg.DatabaseURL, cfg.RedisURL, engine.Options{})
	if err != nil {
		return err
	}
	defer cleanup()

	allowed, err := svcs.service.IsUserAllowed(ctx, args[0], args[1], args[2])
	if err != nil {
		return err
	}

	if allowed {
		cmd.Println("allowed")
		return nil
	}

	cmd.Println("denied")
	cmd.SilenceUsage = true
	return errDenied
}

// errDenied distinguishes a clean denial from an evaluation failure so the
// process exits non-zero without printing a stack of usage text.
var errDenied = &deniedError{}

type deniedError struct{}

func (*deniedError) Error() string { return "access denied" }
