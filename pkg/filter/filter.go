// Package filter owns the selected category of a browsing context.
//
// The initial selection comes from the URL query (category, name), then the
// last selection saved in durable storage, then "all categories". Select is
// the only mutator: it persists the choice and rewrites the URL in place.
package filter

import (
	"encoding/json"
	"net/url"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/eventdeck/pkg/catalog"
	"github.com/agentstation/eventdeck/pkg/constants"
	"github.com/agentstation/eventdeck/pkg/errors"
	"github.com/agentstation/eventdeck/pkg/logging"
	"github.com/agentstation/eventdeck/pkg/storage"
)

// Source names where the initial selection came from.
type Source string

// Sources of the initial selection.
const (
	SourceURL     Source = "url"
	SourceStorage Source = "storage"
	SourceDefault Source = "default"
)

// Option configures a Controller.
type Option func(*Controller)

// WithAllName sets the label used by Clear and the default selection.
func WithAllName(name string) Option {
	return func(c *Controller) {
		if name != "" {
			c.allName = name
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Controller holds the FilterState of one browsing context.
type Controller struct {
	mu        sync.RWMutex
	state     catalog.FilterState
	source    Source
	observers []func(catalog.FilterState)

	durable  storage.Store
	location *Location
	allName  string
	logger   *zerolog.Logger
}

// New resolves the initial selection from location and durable storage.
// A nil location starts at "/".
func New(durable storage.Store, location *Location, opts ...Option) *Controller {
	if location == nil {
		location = &Location{history: make([]url.URL, 1)}
		location.history[0].Path = "/"
	}
	c := &Controller{
		durable:  durable,
		location: location,
		allName:  constants.AllCategoriesName,
		logger:   logging.Component("filter"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state, c.source = c.resolve()

	c.logger.Debug().
		Str("category_id", c.state.Key()).
		Str("source", string(c.source)).
		Msg("Filter initialized")
	return c
}

func (c *Controller) resolve() (catalog.FilterState, Source) {
	stored, hasStored := c.stored()

	query := c.location.Query()
	if id := query.Get(constants.ParamCategory); id != "" {
		name := query.Get(constants.ParamName)
		if name == "" && hasStored && catalog.SameID(stored.SelectedCategoryID, &id) {
			name = stored.SelectedCategoryName
		}
		if name == "" {
			name = id
		}
		return catalog.FilterState{SelectedCategoryID: &id, SelectedCategoryName: name}, SourceURL
	}

	if hasStored {
		return stored, SourceStorage
	}
	return catalog.FilterState{SelectedCategoryName: c.allName}, SourceDefault
}

// stored reads the persisted selection, discarding it when corrupt.
func (c *Controller) stored() (catalog.FilterState, bool) {
	raw, ok := c.durable.Get(constants.KeySelectedFilter)
	if !ok {
		return catalog.FilterState{}, false
	}

	var state catalog.FilterState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		c.logger.Warn().
			Err(errors.NewMalformedDataError(constants.KeySelectedFilter, err)).
			Msg("Discarding stored filter")
		c.durable.Remove(constants.KeySelectedFilter)
		return catalog.FilterState{}, false
	}
	if state.SelectedCategoryID == nil {
		state.SelectedCategoryName = c.allName
	}
	return state, true
}

// State returns the current selection.
func (c *Controller) State() catalog.FilterState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyState(c.state)
}

// Source reports where the initial selection came from.
func (c *Controller) Source() Source {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.source
}

// Key returns the category part of the current filter key.
func (c *Controller) Key() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Key()
}

// Location returns the address this controller keeps in sync.
func (c *Controller) Location() *Location {
	return c.location
}

// Select makes id the current category. A nil id selects all categories.
// Observers are notified synchronously before Select returns.
func (c *Controller) Select(id *string, name string) catalog.FilterState {
	state := catalog.FilterState{SelectedCategoryID: catalog.CloneID(id), SelectedCategoryName: name}

	c.mu.Lock()
	c.state = state
	c.persist(state)
	c.rewriteURL(state)
	observers := make([]func(catalog.FilterState), len(c.observers))
	copy(observers, c.observers)
	c.mu.Unlock()

	c.logger.Debug().Str("category_id", state.Key()).Msg("Filter selected")

	for _, fn := range observers {
		fn(copyState(state))
	}
	return copyState(state)
}

// Clear selects all categories.
func (c *Controller) Clear() catalog.FilterState {
	return c.Select(nil, c.allName)
}

// OnChange registers fn to be called after every Select.
func (c *Controller) OnChange(fn func(catalog.FilterState)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

func (c *Controller) persist(state catalog.FilterState) {
	if state.SelectedCategoryID == nil {
		c.durable.Remove(constants.KeySelectedFilter)
		return
	}
	data, err := json.Marshal(state)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to encode filter")
		return
	}
	c.durable.Set(constants.KeySelectedFilter, string(data))
}

func (c *Controller) rewriteURL(state catalog.FilterState) {
	u := c.location.URL()
	query := u.Query()
	if state.SelectedCategoryID == nil {
		query.Del(constants.ParamCategory)
		query.Del(constants.ParamName)
	} else {
		query.Set(constants.ParamCategory, *state.SelectedCategoryID)
		query.Set(constants.ParamName, state.SelectedCategoryName)
	}
	u.RawQuery = query.Encode()
	c.location.Replace(u)
}

func copyState(s catalog.FilterState) catalog.FilterState {
	return catalog.FilterState{
		SelectedCategoryID:   catalog.CloneID(s.SelectedCategoryID),
		SelectedCategoryName: s.SelectedCategoryName,
	}
}
