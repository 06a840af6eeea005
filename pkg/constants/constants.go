// Package constants provides shared constants used throughout the eventdeck codebase.
// This includes timeouts, file permissions, storage keys and the default
// catalog values that must agree between the library and the CLI.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for requests to the catalog API
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultTimeout is the standard timeout for general operations
	DefaultTimeout = 10 * time.Second

	// CommandTimeout is the default timeout for CLI commands
	CommandTimeout = 2 * time.Minute

	// StorageBusyTimeout is how long the sqlite backend waits on a locked database
	StorageBusyTimeout = 5 * time.Second

	// WatchDebounce coalesces bursts of file events from the sqlite backend
	WatchDebounce = 50 * time.Millisecond
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Limit constants define various limits and capacities
const (
	// ChannelBufferSize is the default buffer size for change channels
	ChannelBufferSize = 100

	// MaxResponseBytes caps the body read from the catalog API (8 MB)
	MaxResponseBytes = 8 << 20
)

// Durable storage keys, shared by every browsing context.
const (
	KeyCategoriesCache   = "categories_cache"
	KeyCategoriesCacheAt = "categories_cache_at"
	KeySelectedFilter    = "selected_category_filter"
	KeySavedEvents       = "saved_events"
)

// Session storage keys, private to one browsing context.
const (
	KeyCategoriesSession = "categories_cache_session"
	KeyUILoaded          = "ui_loaded"
)

// URL query parameters carrying the selected filter.
const (
	ParamCategory = "category"
	ParamName     = "name"
)

// Catalog defaults
const (
	// AllCategoriesName labels the "all categories" sentinel.
	AllCategoriesName = "Semua Event"

	// AllCategoriesKey stands in for the nil category id in cache keys and logs.
	AllCategoriesKey = "all"

	// CategoriesTTL is the validity window used by the TTL category policy.
	CategoriesTTL = 24 * time.Hour
)

// Pagination defaults for the two lists rendered on the browse page.
const (
	ListMore = "more"
	ListFree = "free"

	DefaultInitialLimit = 4
	DefaultStepSize     = 4
	DefaultHardCap      = 12
)

// Path constants
const (
	// DefaultAPIURL is the catalog API used when none is configured
	DefaultAPIURL = "http://localhost:8080/api"

	// DefaultDataPath is the default directory for the sqlite database
	DefaultDataPath = "~/.eventdeck"

	// DefaultDatabaseFile is the sqlite file name inside DefaultDataPath
	DefaultDatabaseFile = "eventdeck.db"

	// DefaultConfigFile is the config file name looked up in $HOME
	DefaultConfigFile = ".eventdeck"

	// DefaultRedisNamespace prefixes every key written by the redis backend
	DefaultRedisNamespace = "eventdeck"
)

// Format constants
const (
	// TimeFormatHuman is a human-readable time format
	TimeFormatHuman = "Jan 2, 2006 at 3:04pm MST"
)
