package eventdeck

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/eventdeck/pkg/catalog"
	"github.com/agentstation/eventdeck/pkg/categories"
	"github.com/agentstation/eventdeck/pkg/constants"
	"github.com/agentstation/eventdeck/pkg/errors"
	"github.com/agentstation/eventdeck/pkg/filter"
	"github.com/agentstation/eventdeck/pkg/pagination"
	"github.com/agentstation/eventdeck/pkg/storage"
)

// Option is a function that configures a Client.
type Option func(*options) error

// options holds the configuration applied by New.
type options struct {
	service  catalog.Service
	durable  storage.Store
	session  storage.Store
	location *filter.Location
	logger   *zerolog.Logger
	lists    map[string]pagination.Config
	policy   categories.CacheValidityPolicy
	now      func() time.Time
}

// DefaultLists returns the two event lists of the browse page: "more" and
// "free", each showing 4 events at a time up to 12.
func DefaultLists() map[string]pagination.Config {
	cfg := pagination.Config{
		Initial: constants.DefaultInitialLimit,
		Step:    constants.DefaultStepSize,
		HardCap: constants.DefaultHardCap,
	}
	return map[string]pagination.Config{
		constants.ListMore: cfg,
		constants.ListFree: cfg,
	}
}

func defaults() *options {
	return &options{
		lists: DefaultLists(),
		now:   time.Now,
	}
}

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.service == nil {
		return nil, errors.NewConfigError("eventdeck", "a catalog service is required", nil)
	}
	if o.durable == nil {
		o.durable = storage.NewMemory()
	}
	if o.session == nil {
		o.session = storage.NewSession()
	}
	return o, nil
}

// WithService sets the remote catalog. Required.
func WithService(service catalog.Service) Option {
	return func(o *options) error {
		o.service = service
		return nil
	}
}

// WithDurable sets the storage shared with other browsing contexts.
// Defaults to process memory.
func WithDurable(store storage.Store) Option {
	return func(o *options) error {
		o.durable = store
		return nil
	}
}

// WithSession sets the storage private to this browsing context.
func WithSession(store storage.Store) Option {
	return func(o *options) error {
		o.session = store
		return nil
	}
}

// WithURL sets the address the client was opened at. Its category and name
// query parameters take precedence over the stored filter.
func WithURL(raw string) Option {
	return func(o *options) error {
		location, err := filter.NewLocation(raw)
		if err != nil {
			return err
		}
		o.location = location
		return nil
	}
}

// WithLogger configures the logger. Each component logs through a child
// tagged with its name.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithLists replaces the paginated lists. Every config is validated.
func WithLists(lists map[string]pagination.Config) Option {
	return func(o *options) error {
		if len(lists) == 0 {
			return errors.NewValidationError("lists", lists, "at least one list is required")
		}
		for name, cfg := range lists {
			if err := cfg.Validate(); err != nil {
				return errors.NewConfigError("lists", name, err)
			}
		}
		o.lists = lists
		return nil
	}
}

// WithCategoryPolicy sets when the cached category list is trusted.
func WithCategoryPolicy(policy categories.CacheValidityPolicy) Option {
	return func(o *options) error {
		o.policy = policy
		return nil
	}
}

// WithClock sets the time source used for cache stamps and SavedAt.
func WithClock(now func() time.Time) Option {
	return func(o *options) error {
		if now == nil {
			return errors.NewValidationError("clock", nil, "must not be nil")
		}
		o.now = now
		return nil
	}
}
