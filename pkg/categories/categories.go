// Package categories provides the list of selectable event categories.
//
// Categories are fetched from the catalog at most once per session and kept in
// durable storage. When the catalog cannot be reached a static default set is
// served instead; defaults are never persisted, so the next Fetch retries.
package categories

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/agentstation/eventdeck/pkg/catalog"
	"github.com/agentstation/eventdeck/pkg/constants"
	"github.com/agentstation/eventdeck/pkg/errors"
	"github.com/agentstation/eventdeck/pkg/logging"
	"github.com/agentstation/eventdeck/pkg/storage"
)

// DefaultPrimary is the display order of the primary categories.
var DefaultPrimary = []string{"Pendidikan", "Lingkungan", "Kesehatan", "Sosial"}

// DefaultCategories returns the static fallback set, sentinel first.
func DefaultCategories() []catalog.Category {
	return []catalog.Category{
		catalog.All(constants.AllCategoriesName),
		{ID: catalog.ID("1"), Name: "Pendidikan"},
		{ID: catalog.ID("5"), Name: "Lingkungan"},
		{ID: catalog.ID("3"), Name: "Kesehatan"},
		{ID: catalog.ID("4"), Name: "Sosial"},
	}
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithPolicy sets the cache validity policy. Defaults to SizePolicy.
func WithPolicy(p CacheValidityPolicy) Option {
	return func(c *Catalog) {
		if p != nil {
			c.policy = p
		}
	}
}

// WithDefaults replaces the static fallback set. The first entry should be
// the "all categories" sentinel.
func WithDefaults(defaults []catalog.Category) Option {
	return func(c *Catalog) {
		if len(defaults) > 0 {
			c.defaults = defaults
		}
	}
}

// WithPrimary sets the names shown right after the sentinel, in order.
func WithPrimary(names ...string) Option {
	return func(c *Catalog) {
		c.primary = names
	}
}

// WithAllName sets the label of the "all categories" sentinel.
func WithAllName(name string) Option {
	return func(c *Catalog) {
		if name != "" {
			c.allName = name
		}
	}
}

// WithClock sets the time source used for cache stamps.
func WithClock(now func() time.Time) Option {
	return func(c *Catalog) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *Catalog) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Catalog fetches and caches the selectable categories.
type Catalog struct {
	service  catalog.Service
	durable  storage.Store
	session  storage.Store
	policy   CacheValidityPolicy
	defaults []catalog.Category
	primary  []string
	allName  string
	now      func() time.Time
	logger   *zerolog.Logger
	group    singleflight.Group
}

// New creates a Catalog.
func New(service catalog.Service, durable, session storage.Store, opts ...Option) *Catalog {
	c := &Catalog{
		service:  service,
		durable:  durable,
		session:  session,
		policy:   SizePolicy{},
		defaults: DefaultCategories(),
		primary:  DefaultPrimary,
		allName:  constants.AllCategoriesName,
		now:      time.Now,
		logger:   logging.Component("categories"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Defaults returns a copy of the static fallback set.
func (c *Catalog) Defaults() []catalog.Category {
	return clone(c.defaults)
}

// Fetch returns the selectable categories, "all" first. The result is always
// usable: when the catalog cannot be reached the cached list (or, without an
// enriched cache, the defaults) is returned together with the transient
// fetch error.
func (c *Catalog) Fetch(ctx context.Context) ([]catalog.Category, error) {
	cached, cachedAt, ok := c.load()

	if ok && c.sessionFlag() {
		return cached, nil
	}
	if ok && c.policy.Valid(c.snapshot(cached, cachedAt), c.now()) {
		c.session.Set(constants.KeyCategoriesSession, "1")
		logging.FromContext(ctx).Debug().Int("count", len(cached)).Msg("Serving cached categories")
		return cached, nil
	}

	return c.Refresh(ctx)
}

// Refresh fetches categories from the catalog regardless of the cache. The
// fetch is shared by concurrent callers and outlives any one caller's
// cancellation.
func (c *Catalog) Refresh(ctx context.Context) ([]catalog.Category, error) {
	shared := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do("categories", func() (any, error) {
		fetched, err := c.service.FetchCategories(shared)
		if err != nil {
			return nil, err
		}
		arranged := c.arrange(fetched)
		c.store(arranged)
		return arranged, nil
	})
	if err != nil {
		if !errors.IsTransientFetch(err) {
			err = errors.NewTransientFetchError("categories", 0, err)
		}
		return c.fallback(err), err
	}
	return clone(v.([]catalog.Category)), nil
}

// fallback serves a stale cache the server once enriched, else the defaults.
func (c *Catalog) fallback(err error) []catalog.Category {
	if cached, cachedAt, ok := c.load(); ok && (SizePolicy{}).Valid(c.snapshot(cached, cachedAt), c.now()) {
		c.logger.Warn().Err(err).Int("count", len(cached)).Msg("Category fetch failed, using stale cache")
		return cached
	}
	c.logger.Warn().Err(err).Msg("Category fetch failed, using defaults")
	return c.Defaults()
}

func (c *Catalog) snapshot(cached []catalog.Category, cachedAt time.Time) Snapshot {
	return Snapshot{Categories: cached, CachedAt: cachedAt, Defaults: len(c.defaults)}
}

// arrange puts the sentinel first, then the primary categories in their
// fixed order, then everything else in the order the catalog sent it.
func (c *Catalog) arrange(fetched []catalog.Category) []catalog.Category {
	out := make([]catalog.Category, 0, len(fetched)+1)
	out = append(out, catalog.All(c.allName))

	used := make([]bool, len(fetched))
	for _, name := range c.primary {
		for i, cat := range fetched {
			if !used[i] && cat.ID != nil && strings.EqualFold(strings.TrimSpace(cat.Name), name) {
				out = append(out, cat)
				used[i] = true
			}
		}
	}
	for i, cat := range fetched {
		if !used[i] && cat.ID != nil {
			out = append(out, cat)
		}
	}
	return out
}

func (c *Catalog) store(categories []catalog.Category) {
	data, err := json.Marshal(categories)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to encode categories")
		return
	}
	c.durable.Set(constants.KeyCategoriesCache, string(data))
	c.durable.Set(constants.KeyCategoriesCacheAt, c.now().UTC().Format(time.RFC3339Nano))
	c.session.Set(constants.KeyCategoriesSession, "1")
}

// load reads the durable cache. Corrupt entries are removed.
func (c *Catalog) load() ([]catalog.Category, time.Time, bool) {
	raw, ok := c.durable.Get(constants.KeyCategoriesCache)
	if !ok {
		return nil, time.Time{}, false
	}

	var categories []catalog.Category
	if err := json.Unmarshal([]byte(raw), &categories); err != nil || len(categories) == 0 {
		if err == nil {
			err = errors.New("empty category list")
		}
		c.logger.Warn().
			Err(errors.NewMalformedDataError(constants.KeyCategoriesCache, err)).
			Msg("Discarding cached categories")
		c.durable.Remove(constants.KeyCategoriesCache)
		c.durable.Remove(constants.KeyCategoriesCacheAt)
		return nil, time.Time{}, false
	}

	var cachedAt time.Time
	if stamp, ok := c.durable.Get(constants.KeyCategoriesCacheAt); ok {
		cachedAt, _ = time.Parse(time.RFC3339Nano, stamp)
	}
	return categories, cachedAt, true
}

func (c *Catalog) sessionFlag() bool {
	_, ok := c.session.Get(constants.KeyCategoriesSession)
	return ok
}

func clone(in []catalog.Category) []catalog.Category {
	out := make([]catalog.Category, len(in))
	for i, cat := range in {
		out[i] = catalog.Category{ID: catalog.CloneID(cat.ID), Name: cat.Name}
	}
	return out
}
