package app

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	cmdconstants "github.com/agentstation/eventdeck/internal/cmd/constants"
	"github.com/agentstation/eventdeck/pkg/constants"
	"github.com/agentstation/eventdeck/pkg/errors"
)

// Config holds the application configuration loaded from config files,
// environment variables and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Catalog API
	APIURL        string
	APIToken      string
	APIAuthHeader string // empty means "Authorization: Bearer <token>"
	APITimeout    time.Duration

	// Storage
	Storage        string // memory, sqlite or redis
	DataPath       string
	RedisURL       string
	RedisNamespace string
	StorageQuota   int // bytes, 0 for unlimited

	// Browsing
	URL         string        // address the session starts at
	CategoryTTL time.Duration // 0 trusts the cached categories until they look incomplete

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables (EVENTDECK_ prefix)
// 3. .env files
// 4. Config file (~/.eventdeck.yaml)
// 5. Defaults
func LoadConfig() (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix("eventdeck")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("api_url", constants.DefaultAPIURL)
	v.SetDefault("api_timeout", constants.DefaultHTTPTimeout)
	v.SetDefault("storage", cmdconstants.StorageSQLite)
	v.SetDefault("data_path", constants.DefaultDataPath)
	v.SetDefault("redis_url", "redis://localhost:6379/0")
	v.SetDefault("redis_namespace", constants.DefaultRedisNamespace)
	v.SetDefault("url", "/")

	if configFile := os.Getenv("EVENTDECK_CONFIG"); configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(constants.DefaultConfigFile)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, errors.NewConfigError("config", "reading "+v.ConfigFileUsed(), err)
		}
	}

	config := &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no_color"),
		Format:  v.GetString("format"),

		ConfigFile: v.ConfigFileUsed(),

		APIURL:        v.GetString("api_url"),
		APIToken:      v.GetString("api_token"),
		APIAuthHeader: v.GetString("api_auth_header"),
		APITimeout:    v.GetDuration("api_timeout"),

		Storage:        strings.ToLower(v.GetString("storage")),
		DataPath:       v.GetString("data_path"),
		RedisURL:       v.GetString("redis_url"),
		RedisNamespace: v.GetString("redis_namespace"),
		StorageQuota:   v.GetInt("storage_quota"),

		URL:         v.GetString("url"),
		CategoryTTL: v.GetDuration("category_ttl"),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", ""),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks values that cannot be fixed up with a default.
func (c *Config) Validate() error {
	switch c.Storage {
	case cmdconstants.StorageMemory, cmdconstants.StorageSQLite, cmdconstants.StorageRedis:
	default:
		return errors.NewValidationError("storage", c.Storage, "must be one of: memory, sqlite, redis")
	}
	if c.APIURL == "" {
		return errors.NewValidationError("api_url", c.APIURL, "must not be empty")
	}
	if c.APITimeout < 0 {
		return errors.NewValidationError("api_timeout", c.APITimeout, "must not be negative")
	}
	if c.StorageQuota < 0 {
		return errors.NewValidationError("storage_quota", c.StorageQuota, "must not be negative")
	}
	return nil
}

// DatabasePath returns the sqlite file path with "~" expanded.
func (c *Config) DatabasePath() (string, error) {
	dir := c.DataPath
	if dir == "" {
		dir = constants.DefaultDataPath
	}
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.WrapIO("resolve", dir, err)
		}
		dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
	}
	return filepath.Join(dir, constants.DefaultDatabaseFile), nil
}

// loadEnvFiles loads environment variables from .env files.
// Variables already set in the environment win.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
