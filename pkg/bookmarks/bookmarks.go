// Package bookmarks keeps the saved events of a browsing context in durable
// storage and in step with every other context.
//
// Toggle is the only mutator. Each toggle rewrites the whole collection in a
// single storage write and notifies observers before returning. When another
// context writes the collection this store reloads it wholesale; it never
// merges.
package bookmarks

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/agentstation/utc"
	"github.com/rs/zerolog"

	"github.com/agentstation/eventdeck/pkg/catalog"
	"github.com/agentstation/eventdeck/pkg/constants"
	"github.com/agentstation/eventdeck/pkg/errors"
	"github.com/agentstation/eventdeck/pkg/logging"
	"github.com/agentstation/eventdeck/pkg/storage"
)

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source for SavedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store is the saved-event set of one browsing context.
type Store struct {
	mu        sync.RWMutex
	records   []catalog.SavedEventRecord
	observers []func([]catalog.SavedEventRecord)

	durable     storage.Store
	unsubscribe func()
	now         func() time.Time
	logger      *zerolog.Logger
}

// New loads the saved events from durable and starts following changes
// made by other contexts.
func New(durable storage.Store, opts ...Option) *Store {
	s := &Store{
		durable: durable,
		now:     time.Now,
		logger:  logging.Component("bookmarks"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.records = s.read()
	s.unsubscribe = durable.Subscribe(constants.KeySavedEvents, s.onRemoteChange)
	return s
}

// List returns the saved events, most recently saved first.
func (s *Store) List() []catalog.SavedEventRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRecords(s.records)
}

// Has reports whether the event is saved.
func (s *Store) Has(eventID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return indexOf(s.records, eventID) >= 0
}

// Get returns the saved snapshot of an event.
func (s *Store) Get(eventID string) (catalog.SavedEventRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.records, eventID); i >= 0 {
		return cloneRecord(s.records[i]), true
	}
	return catalog.SavedEventRecord{}, false
}

// Count returns the number of saved events.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Toggle saves the event if it is not saved and removes it otherwise,
// returning the new saved state. The collection is re-read from storage
// first so that concurrent writers converge on this write. Events without an
// id are never saved.
func (s *Store) Toggle(event catalog.EventSummary) bool {
	if event.ID == "" {
		s.logger.Warn().Str("title", event.Title).Msg("Ignoring bookmark toggle for event without id")
		return false
	}

	s.mu.Lock()
	records := s.read()

	saved := false
	if i := indexOf(records, event.ID); i >= 0 {
		records = append(records[:i:i], records[i+1:]...)
	} else {
		record := catalog.SavedEventRecord{EventSummary: event.Clone(), SavedAt: utc.New(s.now())}
		records = append([]catalog.SavedEventRecord{record}, records...)
		sortRecords(records)
		saved = true
	}

	s.write(records)
	s.records = records
	snapshot, observers := s.notifyStateLocked()
	s.mu.Unlock()

	s.logger.Debug().
		Str("event_id", event.ID).
		Bool("saved", saved).
		Int("count", len(snapshot)).
		Msg("Bookmark toggled")

	for _, fn := range observers {
		fn(cloneRecords(snapshot))
	}
	return saved
}

// Reload re-reads the collection from storage and notifies observers.
func (s *Store) Reload() {
	s.mu.Lock()
	s.records = s.read()
	snapshot, observers := s.notifyStateLocked()
	s.mu.Unlock()

	for _, fn := range observers {
		fn(cloneRecords(snapshot))
	}
}

// OnChange registers fn to be called with the full list after every change,
// local or remote.
func (s *Store) OnChange(fn func([]catalog.SavedEventRecord)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Close stops following other contexts.
func (s *Store) Close() error {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	return nil
}

// onRemoteChange replaces the in-memory set with what another context wrote.
// An unreadable collection is discarded from storage and read as empty, as on
// a local read.
func (s *Store) onRemoteChange(value string, ok bool) {
	records := []catalog.SavedEventRecord{}
	if ok {
		decoded, err := decode(value)
		if err != nil {
			s.logger.Warn().
				Err(errors.NewMalformedDataError(constants.KeySavedEvents, err)).
				Msg("Discarding unreadable bookmarks from another context")
			s.durable.Remove(constants.KeySavedEvents)
		} else {
			records = decoded
		}
	}

	s.mu.Lock()
	s.records = records
	snapshot, observers := s.notifyStateLocked()
	s.mu.Unlock()

	s.logger.Debug().Int("count", len(snapshot)).Msg("Bookmarks reloaded after change in another context")
	for _, fn := range observers {
		fn(cloneRecords(snapshot))
	}
}

func (s *Store) notifyStateLocked() ([]catalog.SavedEventRecord, []func([]catalog.SavedEventRecord)) {
	observers := make([]func([]catalog.SavedEventRecord), len(s.observers))
	copy(observers, s.observers)
	return cloneRecords(s.records), observers
}

// read loads the persisted collection. Corrupt data is removed from storage
// and read as empty.
func (s *Store) read() []catalog.SavedEventRecord {
	raw, ok := s.durable.Get(constants.KeySavedEvents)
	if !ok {
		return []catalog.SavedEventRecord{}
	}
	records, err := decode(raw)
	if err != nil {
		s.logger.Warn().
			Err(errors.NewMalformedDataError(constants.KeySavedEvents, err)).
			Msg("Discarding unreadable bookmarks")
		s.durable.Remove(constants.KeySavedEvents)
		return []catalog.SavedEventRecord{}
	}
	return records
}

func (s *Store) write(records []catalog.SavedEventRecord) {
	data, err := json.Marshal(records)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to encode bookmarks")
		return
	}
	s.durable.Set(constants.KeySavedEvents, string(data))
}

// decode parses a stored collection, dropping records without an id and
// duplicate ids, and orders it by SavedAt descending.
func decode(raw string) ([]catalog.SavedEventRecord, error) {
	var stored []catalog.SavedEventRecord
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(stored))
	records := make([]catalog.SavedEventRecord, 0, len(stored))
	for _, r := range stored {
		if r.ID == "" || seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		records = append(records, r)
	}
	sortRecords(records)
	return records, nil
}

// sortRecords orders by SavedAt descending. Ties keep their stored order.
func sortRecords(records []catalog.SavedEventRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].SavedAt.Time.After(records[j].SavedAt.Time)
	})
}

func indexOf(records []catalog.SavedEventRecord, id string) int {
	for i, r := range records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func cloneRecord(r catalog.SavedEventRecord) catalog.SavedEventRecord {
	return catalog.SavedEventRecord{EventSummary: r.EventSummary.Clone(), SavedAt: r.SavedAt}
}

func cloneRecords(in []catalog.SavedEventRecord) []catalog.SavedEventRecord {
	out := make([]catalog.SavedEventRecord, len(in))
	for i, r := range in {
		out[i] = cloneRecord(r)
	}
	return out
}
