// Package main is the entry point for the libgate authorization service.
package main

import (
	"errors"
	"fmt"
	"os"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd := NewRootCmd()
	cmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	if err := cmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps an Execute error to the process exit status. A denied
// check exits 2 so scripts can tell denial from an evaluation failure.
func exitCode(err error) int {
	if errors.Is(err, errDenied) {
		return 2
	}
	return 1
}
