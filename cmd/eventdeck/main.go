// Package main provides the entry point for the eventdeck CLI tool.
package main

import (
	"context"
	"os"
	"time"

	"github.com/agentstation/eventdeck/cmd/eventdeck/app"
)

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
	builtBy = "unknown"
)

func main() {
	application, err := app.New(version, commit, date, builtBy)
	if err != nil {
		app.ExitOnError(err)
	}

	// Create context with signal handling for graceful shutdown
	ctx, cancel := app.ContextWithSignals(context.Background())
	defer cancel()

	err = application.Execute(ctx, os.Args[1:])

	// The signal context may be cancelled, so shutdown gets a fresh one.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if shutdownErr := application.Shutdown(shutdownCtx); shutdownErr != nil {
		// Don't let a shutdown error mask the command's error
		application.Logger().Error().Err(shutdownErr).Msg("Shutdown error")
	}
	app.ExitOnError(err)
}
