// Package constants provides shared constants for CLI commands.
package constants

// Output format constants used throughout the CLI.
const (
	// FormatTable is the default table output format.
	FormatTable = "table"

	// FormatWide is an extended table format with more columns.
	FormatWide = "wide"

	// FormatJSON outputs data as JSON.
	FormatJSON = "json"

	// FormatYAML outputs data as YAML.
	FormatYAML = "yaml"
)

// Storage backends selectable with --storage.
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
)
