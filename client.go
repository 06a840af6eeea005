// Package eventdeck provides the browsing state of an event catalog: the
// category list, the selected category filter, paginated result lists, a
// result cache and saved events that stay in step across browsing contexts.
//
// A Client wires those parts together over two stores. The durable store is
// shared with every other context (tab, process) of the same user, the
// session store is private to one context.
//
// Example usage:
//
//	backend, err := sqlite.Open(ctx, "~/.eventdeck/eventdeck.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	durable := storage.NewDurable(backend)
//	defer durable.Close()
//
//	client, err := eventdeck.New(
//	    eventdeck.WithService(transport.New("https://api.example.com")),
//	    eventdeck.WithDurable(durable),
//	    eventdeck.WithURL("/events?category=5&name=Lingkungan"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	categories, _ := client.Categories(ctx)
//	events, err := client.Results(ctx, "more")
//	if errors.IsSuperseded(err) {
//	    // a newer filter was selected while fetching
//	}
package eventdeck

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/eventdeck/pkg/bookmarks"
	"github.com/agentstation/eventdeck/pkg/catalog"
	"github.com/agentstation/eventdeck/pkg/categories"
	"github.com/agentstation/eventdeck/pkg/constants"
	"github.com/agentstation/eventdeck/pkg/errors"
	"github.com/agentstation/eventdeck/pkg/filter"
	"github.com/agentstation/eventdeck/pkg/logging"
	"github.com/agentstation/eventdeck/pkg/pagination"
	"github.com/agentstation/eventdeck/pkg/results"
)

// Compile-time interface check to ensure proper implementation.
var _ Client = (*client)(nil)

// Categories provides the category list.
type Categories interface {
	// Categories returns the display-ordered categories. It always returns a
	// usable list; the error reports a failed refresh that fell back to the
	// built-in defaults.
	Categories(ctx context.Context) ([]catalog.Category, error)
}

// Filter provides the selected category.
type Filter interface {
	Filter() catalog.FilterState
	Select(id *string, name string) catalog.FilterState
	Clear() catalog.FilterState
	Location() *filter.Location
}

// Lists provides the paginated event lists.
type Lists interface {
	// Results returns the events of list for the current filter and window.
	// If the filter changes while fetching, the results are dropped and
	// ErrSuperseded is returned.
	Results(ctx context.Context, list string) ([]catalog.EventSummary, error)
	Lists() []string
	ShowMore(list string) int
	ShowLess(list string) int
	Limit(list string) int
	AllVisible(list string) bool
}

// Bookmarks provides the saved events.
type Bookmarks interface {
	Bookmarks() []catalog.SavedEventRecord
	IsSaved(eventID string) bool
	Toggle(event catalog.EventSummary) bool
}

// Client is the browsing state of one context.
type Client interface {
	Categories
	Filter
	Lists
	Bookmarks
	Hooks

	// FirstLoad reports whether this is the first view of the session and
	// marks the session as loaded.
	FirstLoad() bool

	// Close stops following changes from other contexts.
	Close() error
}

// client is the internal implementation of the Client interface.
type client struct {
	options *options
	logger  *zerolog.Logger

	categories *categories.Catalog
	filter     *filter.Controller
	pages      *pagination.Controller
	results    *results.Cache
	bookmarks  *bookmarks.Store

	// key is the filter key the pagination windows were last reset for
	mu  sync.Mutex
	key string

	hooks *hooks
}

// New creates a Client with the given options. WithService is required.
func New(opts ...Option) (Client, error) {
	o, err := defaults().apply(opts...)
	if err != nil {
		return nil, err
	}

	logger := o.logger
	if logger == nil {
		logger = logging.Component("eventdeck")
	}

	c := &client{
		options: o,
		logger:  logger,
		hooks:   newHooks(),
	}

	categoryOpts := []categories.Option{
		categories.WithClock(o.now),
		categories.WithLogger(child(logger, "categories")),
	}
	if o.policy != nil {
		categoryOpts = append(categoryOpts, categories.WithPolicy(o.policy))
	}
	c.categories = categories.New(o.service, o.durable, o.session, categoryOpts...)

	c.filter = filter.New(o.durable, o.location, filter.WithLogger(child(logger, "filter")))
	c.key = c.filter.Key()

	if c.pages, err = pagination.New(o.lists, c.filter.Key); err != nil {
		return nil, errors.NewConfigError("pagination", "invalid list", err)
	}

	c.results = results.New(o.service,
		results.WithClock(o.now),
		results.WithLogger(child(logger, "results")),
	)

	c.bookmarks = bookmarks.New(o.durable,
		bookmarks.WithClock(o.now),
		bookmarks.WithLogger(child(logger, "bookmarks")),
	)

	c.filter.OnChange(c.filterChanged)
	c.bookmarks.OnChange(c.hooks.triggerBookmarksChanged)

	logger.Debug().
		Str("category_id", c.key).
		Strs("lists", c.pages.Lists()).
		Bool("degraded", o.durable.Degraded()).
		Msg("Client ready")

	return c, nil
}

func child(logger *zerolog.Logger, component string) *zerolog.Logger {
	l := logger.With().Str("component", component).Logger()
	return &l
}

// Categories returns the display-ordered category list.
func (c *client) Categories(ctx context.Context) ([]catalog.Category, error) {
	ctx = logging.WithOperation(logging.WithLogger(ctx, c.logger), "categories")
	return c.categories.Fetch(ctx)
}

// Filter returns the current selection.
func (c *client) Filter() catalog.FilterState {
	return c.filter.State()
}

// Select makes id the current category. A nil id selects all categories.
func (c *client) Select(id *string, name string) catalog.FilterState {
	return c.filter.Select(id, name)
}

// Clear selects all categories.
func (c *client) Clear() catalog.FilterState {
	return c.filter.Clear()
}

// Location returns the address kept in sync with the filter.
func (c *client) Location() *filter.Location {
	return c.filter.Location()
}

// Results returns the events of list for the current filter.
func (c *client) Results(ctx context.Context, list string) ([]catalog.EventSummary, error) {
	state := c.filter.State()
	key := state.Key()

	window, err := c.pages.Window(list, key)
	if err != nil {
		return nil, err
	}

	ctx = logging.WithOperation(logging.WithLogger(ctx, c.logger), "results")
	ctx = logging.WithList(logging.WithCategory(ctx, state.SelectedCategoryID), list)
	events, err := c.results.Get(ctx, state.SelectedCategoryID, window.Current)
	if current := c.filter.Key(); current != key {
		logging.FromContext(ctx).Debug().
			Str("requested", key).
			Str("current", current).
			Msg("Dropping results of superseded filter")
		c.pages.Reset(key)
		c.evict()
		return nil, errors.ErrSuperseded
	}
	if err != nil {
		return nil, err
	}

	c.evict()
	c.hooks.triggerResults(list, events)
	return events, nil
}

// Lists returns the names of the paginated lists, sorted.
func (c *client) Lists() []string {
	return c.pages.Lists()
}

// ShowMore grows list's window by one step and returns the new limit.
func (c *client) ShowMore(list string) int {
	limit := c.pages.Expand(list)
	c.evict()
	return limit
}

// ShowLess returns list's window to its initial size.
func (c *client) ShowLess(list string) int {
	limit := c.pages.Collapse(list)
	c.evict()
	return limit
}

// Limit returns how many events list shows under the current filter.
func (c *client) Limit(list string) int {
	return c.pages.Show(list)
}

// AllVisible reports whether list has reached its hard cap.
func (c *client) AllVisible(list string) bool {
	return c.pages.All(list)
}

// Bookmarks returns the saved events, most recently saved first.
func (c *client) Bookmarks() []catalog.SavedEventRecord {
	return c.bookmarks.List()
}

// IsSaved reports whether eventID is saved.
func (c *client) IsSaved(eventID string) bool {
	return c.bookmarks.Has(eventID)
}

// Toggle saves or unsaves event and returns the new saved state.
func (c *client) Toggle(event catalog.EventSummary) bool {
	return c.bookmarks.Toggle(event)
}

// FirstLoad reports whether the session has not rendered a view yet.
func (c *client) FirstLoad() bool {
	if _, ok := c.options.session.Get(constants.KeyUILoaded); ok {
		return false
	}
	c.options.session.Set(constants.KeyUILoaded, "true")
	return true
}

// OnFilterChanged registers a callback for filter changes.
func (c *client) OnFilterChanged(fn FilterChangedHook) {
	c.hooks.OnFilterChanged(fn)
}

// OnBookmarksChanged registers a callback for saved-event changes.
func (c *client) OnBookmarksChanged(fn BookmarksChangedHook) {
	c.hooks.OnBookmarksChanged(fn)
}

// OnResults registers a callback for delivered results.
func (c *client) OnResults(fn ResultsHook) {
	c.hooks.OnResults(fn)
}

// Close stops following other contexts. The stores are owned by the caller.
func (c *client) Close() error {
	return c.bookmarks.Close()
}

// filterChanged drops the windows of the previous filter so an expand made
// before the change never carries over, then evicts their results.
func (c *client) filterChanged(state catalog.FilterState) {
	c.mu.Lock()
	previous := c.key
	c.key = state.Key()
	c.mu.Unlock()

	if previous != state.Key() {
		c.pages.Reset(previous)
		c.evict()
	}
	c.hooks.triggerFilterChanged(state)
}

// evict discards cached results no window can reach anymore.
func (c *client) evict() {
	refs := c.pages.Keys()
	keep := make([]results.Key, 0, len(refs))
	for _, ref := range refs {
		keep = append(keep, results.Key{Category: ref.Filter, Limit: ref.Limit})
	}
	if n := c.results.Retain(keep); n > 0 {
		c.logger.Debug().Int("evicted", n).Msg("Evicted unreachable results")
	}
}
