// Package emoji provides symbol constants for CLI output.
package emoji

// Symbols keep status markers consistent across commands.
const (
	// Success marks a completed operation or a saved event.
	Success = "✓"

	// Error marks a failed operation.
	Error = "✗"

	// Warning marks a degraded but working state, such as storage falling
	// back to memory.
	Warning = "!"

	// Optional marks an empty or unset value.
	Optional = "-"

	// Info marks informational messages.
	Info = "i"
)
