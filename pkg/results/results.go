// Package results caches event query results keyed by (category, limit).
//
// At most one fetch per key is in flight: concurrent callers join the
// pending call. Ready results never expire on their own; they are evicted
// when no live pagination window refers to their key any more. Failed fetches
// leave nothing behind, so the next Get tries again.
package results

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agentstation/utc"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/agentstation/eventdeck/pkg/catalog"
	"github.com/agentstation/eventdeck/pkg/errors"
	"github.com/agentstation/eventdeck/pkg/logging"
)

// Key identifies one cached result set.
type Key struct {
	Category string // category id, or "all"
	Limit    int
}

// NewKey builds the key for an optional category id.
func NewKey(categoryID *string, limit int) Key {
	return Key{Category: catalog.CategoryKey(categoryID), Limit: limit}
}

// String renders the key as "category:limit".
func (k Key) String() string {
	return k.Category + ":" + strconv.Itoa(k.Limit)
}

// Status is the lifecycle state of a key.
type Status string

// Key states. A key with no state has never been fetched or was evicted.
const (
	StatusNone    Status = ""
	StatusPending Status = "pending"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// Entry is a ready result set.
type Entry struct {
	Key       Key                    `json:"key"`
	Results   []catalog.EventSummary `json:"results"`
	FetchedAt utc.Time               `json:"fetched_at"`
	Status    Status                 `json:"status"`
}

// Stats counts cache activity.
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Fetches int64 `json:"fetches"`
	Shared  int64 `json:"shared"`
	Entries int   `json:"entries"`
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock sets the time source for FetchedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// Cache is the event result cache of one browsing context.
type Cache struct {
	service catalog.Service
	store   *gocache.Cache
	group   singleflight.Group
	now     func() time.Time
	logger  *zerolog.Logger

	mu       sync.Mutex
	pending  map[Key]struct{}
	failures map[Key]error

	hits, misses, fetches, shared atomic.Int64
}

// New creates a Cache over service.
func New(service catalog.Service, opts ...Option) *Cache {
	c := &Cache{
		service:  service,
		store:    gocache.New(gocache.NoExpiration, 0),
		now:      time.Now,
		logger:   logging.Component("results"),
		pending:  make(map[Key]struct{}),
		failures: make(map[Key]error),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns up to limit events of categoryID (nil for all categories).
// Events the service returns outside the category are dropped.
func (c *Cache) Get(ctx context.Context, categoryID *string, limit int) ([]catalog.EventSummary, error) {
	if limit < 1 {
		return nil, errors.NewValidationError("limit", limit, "must be at least 1")
	}
	key := NewKey(categoryID, limit)
	log := logging.FromContext(ctx)

	if entry, ok := c.Peek(key); ok {
		c.hits.Add(1)
		log.Debug().Str("key", key.String()).Msg("Result cache hit")
		return entry.Results, nil
	}
	c.misses.Add(1)

	id := catalog.CloneID(categoryID)
	v, err, shared := c.group.Do(key.String(), func() (any, error) {
		return c.fetch(context.WithoutCancel(ctx), key, id)
	})
	if shared {
		c.shared.Add(1)
	}
	if err != nil {
		return nil, err
	}
	return cloneEvents(v.([]catalog.EventSummary)), nil
}

func (c *Cache) fetch(ctx context.Context, key Key, categoryID *string) ([]catalog.EventSummary, error) {
	c.mu.Lock()
	c.pending[key] = struct{}{}
	delete(c.failures, key)
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, key)
		c.mu.Unlock()
	}()

	c.fetches.Add(1)
	events, err := c.service.FetchEvents(ctx, catalog.EventQuery{CategoryID: categoryID, Limit: key.Limit})
	if err != nil {
		if !errors.IsTransientFetch(err) {
			err = errors.NewTransientFetchError("events", 0, err)
		}
		c.store.Delete(key.String())
		c.mu.Lock()
		c.failures[key] = err
		c.mu.Unlock()
		c.logger.Warn().Err(err).Str("key", key.String()).Msg("Event fetch failed")
		return nil, err
	}

	results := make([]catalog.EventSummary, 0, min(len(events), key.Limit))
	for _, e := range events {
		if len(results) == key.Limit {
			break
		}
		if categoryID != nil && !e.HasCategory(categoryID) {
			continue
		}
		results = append(results, e)
	}
	if dropped := len(events) - len(results); dropped > 0 {
		c.logger.Debug().
			Str("key", key.String()).
			Int("received", len(events)).
			Int("kept", len(results)).
			Msg("Filtered fetched events")
	}

	c.store.Set(key.String(), Entry{
		Key:       key,
		Results:   results,
		FetchedAt: utc.New(c.now()),
		Status:    StatusReady,
	}, gocache.NoExpiration)
	return results, nil
}

// Peek returns the ready entry for key without fetching.
func (c *Cache) Peek(key Key) (Entry, bool) {
	v, ok := c.store.Get(key.String())
	if !ok {
		return Entry{}, false
	}
	entry := v.(Entry)
	entry.Results = cloneEvents(entry.Results)
	return entry, true
}

// Status reports the lifecycle state of key.
func (c *Cache) Status(key Key) Status {
	c.mu.Lock()
	_, pending := c.pending[key]
	_, failed := c.failures[key]
	c.mu.Unlock()

	switch {
	case pending:
		return StatusPending
	case failed:
		return StatusError
	}
	if _, ok := c.store.Get(key.String()); ok {
		return StatusReady
	}
	return StatusNone
}

// Retain evicts every ready entry whose key is not in keep and returns how
// many were evicted.
func (c *Cache) Retain(keep []Key) int {
	live := make(map[Key]bool, len(keep))
	for _, k := range keep {
		live[k] = true
	}

	evicted := 0
	for name, item := range c.store.Items() {
		entry, ok := item.Object.(Entry)
		if !ok || live[entry.Key] {
			continue
		}
		c.store.Delete(name)
		evicted++
	}

	c.mu.Lock()
	for k := range c.failures {
		if !live[k] {
			delete(c.failures, k)
		}
	}
	c.mu.Unlock()

	if evicted > 0 {
		c.logger.Debug().Int("evicted", evicted).Int("live", len(live)).Msg("Evicted unreachable results")
	}
	return evicted
}

// Invalidate drops every ready entry of categoryID.
func (c *Cache) Invalidate(categoryID *string) {
	category := catalog.CategoryKey(categoryID)
	for name, item := range c.store.Items() {
		if entry, ok := item.Object.(Entry); ok && entry.Key.Category == category {
			c.store.Delete(name)
		}
	}
}

// Keys returns the keys of all ready entries.
func (c *Cache) Keys() []Key {
	items := c.store.Items()
	keys := make([]Key, 0, len(items))
	for _, item := range items {
		if entry, ok := item.Object.(Entry); ok {
			keys = append(keys, entry.Key)
		}
	}
	return keys
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Fetches: c.fetches.Load(),
		Shared:  c.shared.Load(),
		Entries: c.store.ItemCount(),
	}
}

func cloneEvents(in []catalog.EventSummary) []catalog.EventSummary {
	out := make([]catalog.EventSummary, len(in))
	for i, e := range in {
		out[i] = e.Clone()
	}
	return out
}
