// Package main is the entry point for the boxfm CLI.
//
// boxfm is a guarded file manager for set-top-box style storage layouts:
// every operation clears its paths through a validation gate before any
// filesystem call, so system directories stay untouchable no matter what
// path a command is given.
package main

import (
	"os"

	"boxfm/internal/logging"
)

func main() {
	logger := logging.NewAppLogger()

	app, err := newApp(logger)
	if err != nil {
		logger.Error("Startup failed", "error", err)
		os.Exit(1)
	}

	if err := app.rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
