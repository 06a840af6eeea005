// Package appcontext provides the shared application context interface
// used by all commands, so command packages depend on what they need rather
// than on the concrete App.
package appcontext

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/eventdeck"
)

// Interface defines what commands need from the application.
// The App struct from cmd/eventdeck/app implements it; tests use Mock.
type Interface interface {
	// Client returns the browsing client, creating it lazily on first use.
	// It opens the configured storage backend and catalog service.
	Client(ctx context.Context) (eventdeck.Client, error)

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (table, json, yaml, wide).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
