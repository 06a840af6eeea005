// Package app provides the application context and dependency management
// for the eventdeck CLI. It centralizes configuration, logging and the
// lifecycle of the browsing client and its storage.
package app

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/eventdeck"
	"github.com/agentstation/eventdeck/internal/appcontext"
	cmdconstants "github.com/agentstation/eventdeck/internal/cmd/constants"
	"github.com/agentstation/eventdeck/internal/cmd/output"
	"github.com/agentstation/eventdeck/internal/transport"
	"github.com/agentstation/eventdeck/pkg/catalog"
	"github.com/agentstation/eventdeck/pkg/categories"
	"github.com/agentstation/eventdeck/pkg/errors"
	"github.com/agentstation/eventdeck/pkg/storage"
	"github.com/agentstation/eventdeck/pkg/storage/memory"
	"github.com/agentstation/eventdeck/pkg/storage/redis"
	"github.com/agentstation/eventdeck/pkg/storage/sqlite"
)

// Ensure App implements appcontext.Interface at compile time.
var _ appcontext.Interface = (*App)(nil)

// App represents the eventdeck application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	// service overrides the HTTP catalog client (tests)
	service catalog.Service

	// Client and the storage it owns (lazy-initialized, singleton)
	mu      sync.Mutex
	client  eventdeck.Client
	durable *storage.Durable
	backend storage.Backend
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	if app.config == nil {
		config, err := LoadConfig()
		if err != nil {
			return nil, errors.WrapResource("load", "config", "", err)
		}
		app.config = config
	}

	if app.logger == nil {
		logger := NewLogger(app.config)
		app.logger = &logger
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured format, or one detected from the
// terminal when none is set.
func (a *App) OutputFormat() string {
	return string(output.DetectFormat(a.config.Format))
}

// Client returns the browsing client, creating it on first use.
func (a *App) Client(ctx context.Context) (eventdeck.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return a.client, nil
	}

	backend := a.openBackend(ctx)
	durableOpts := []storage.DurableOption{storage.WithLogger(a.child("storage"))}
	if a.config.StorageQuota > 0 {
		durableOpts = append(durableOpts, storage.WithQuota(a.config.StorageQuota))
	}
	durable := storage.NewDurable(backend, durableOpts...)

	opts := []eventdeck.Option{
		eventdeck.WithService(a.catalogService()),
		eventdeck.WithDurable(durable),
		eventdeck.WithLogger(a.logger),
	}
	if a.config.URL != "" {
		opts = append(opts, eventdeck.WithURL(a.config.URL))
	}
	if a.config.CategoryTTL > 0 {
		opts = append(opts, eventdeck.WithCategoryPolicy(categories.TTLPolicy{TTL: a.config.CategoryTTL}))
	}

	client, err := eventdeck.New(opts...)
	if err != nil {
		_ = durable.Close()
		if backend != nil {
			_ = backend.Close()
		}
		return nil, errors.WrapResource("create", "client", "", err)
	}

	a.client = client
	a.durable = durable
	a.backend = backend
	return client, nil
}

// openBackend opens the configured storage. A backend that cannot be opened
// is reported and replaced by nil, which leaves the session in memory only.
func (a *App) openBackend(ctx context.Context) storage.Backend {
	logger := a.child("storage")

	switch a.config.Storage {
	case cmdconstants.StorageMemory:
		return memory.New(memory.WithLogger(logger))

	case cmdconstants.StorageRedis:
		backend, err := redis.NewWithURL(a.config.RedisURL,
			redis.WithNamespace(a.config.RedisNamespace),
			redis.WithLogger(logger),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, saved data will not persist")
			return nil
		}
		if err := backend.Ping(ctx); err != nil {
			_ = backend.Close()
			logger.Warn().Err(err).Str("url", a.config.RedisURL).Msg("Redis unavailable, saved data will not persist")
			return nil
		}
		return backend

	default:
		path, err := a.config.DatabasePath()
		if err == nil {
			var backend *sqlite.Backend
			if backend, err = sqlite.Open(ctx, path, sqlite.WithLogger(logger)); err == nil {
				logger.Debug().Str("path", backend.Path()).Msg("Opened database")
				return backend
			}
		}
		logger.Warn().Err(err).Msg("Database unavailable, saved data will not persist")
		return nil
	}
}

func (a *App) catalogService() catalog.Service {
	if a.service != nil {
		return a.service
	}

	opts := []transport.Option{
		transport.WithTimeout(a.config.APITimeout),
		transport.WithLogger(a.child("transport")),
	}
	if a.config.APIToken != "" {
		var auth transport.Authenticator = &transport.BearerAuth{}
		if a.config.APIAuthHeader != "" {
			auth = &transport.HeaderAuth{Header: a.config.APIAuthHeader}
		}
		opts = append(opts, transport.WithAuth(auth, a.config.APIToken))
	}
	return transport.New(a.config.APIURL, opts...)
}

func (a *App) child(component string) *zerolog.Logger {
	l := a.logger.With().Str("component", component).Logger()
	return &l
}

// Shutdown closes the client and the storage it opened.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	client, durable, backend := a.client, a.durable, a.backend
	a.client, a.durable, a.backend = nil, nil, nil
	a.mu.Unlock()

	var errs []error
	if client != nil {
		if err := client.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if durable != nil {
		if err := durable.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if backend != nil {
		if err := backend.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.WrapResource("shutdown", "app", "", stderrors.Join(errs...))
	}
	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration instead of loading one.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		if err := config.Validate(); err != nil {
			return err
		}
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithService replaces the HTTP catalog client (useful for testing).
func WithService(service catalog.Service) Option {
	return func(a *App) error {
		a.service = service
		return nil
	}
}
