package catalog

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agentstation/utc"
)

// TestCategory creates a category with the given id and name.
func TestCategory(t testing.TB, id, name string) Category {
	t.Helper()
	return Category{ID: ID(id), Name: name}
}

// TestEvent creates an event summary with sensible defaults, tagged with the
// given category ids.
func TestEvent(t testing.TB, id string, categoryIDs ...string) EventSummary {
	t.Helper()
	start := utc.New(time.Date(2026, 11, 1, 8, 0, 0, 0, time.UTC))
	event := EventSummary{
		ID:                id,
		Title:             "Event " + id,
		Address:           "Jl. Merdeka " + id + ", Jakarta",
		StartAt:           start,
		EndAt:             utc.New(start.Time.Add(4 * time.Hour)),
		RegistrationCount: 3,
		MaxApplicant:      20,
		BannerURL:         "https://cdn.example.com/banners/" + id + ".jpg",
	}
	for _, c := range categoryIDs {
		event.Categories = append(event.Categories, Category{ID: ID(c), Name: "Category " + c})
	}
	return event
}

// TestEvents creates n events tagged with categoryID, ids prefixed with it.
func TestEvents(t testing.TB, categoryID string, n int) []EventSummary {
	t.Helper()
	events := make([]EventSummary, 0, n)
	for i := 1; i <= n; i++ {
		events = append(events, TestEvent(t, fmt.Sprintf("%s-%d", categoryID, i), categoryID))
	}
	return events
}

// StubService is an in-memory Service for tests. It counts calls, can fail on
// demand and can hold event fetches until Release is called.
type StubService struct {
	mu              sync.Mutex
	categories      []Category
	events          []EventSummary
	categoriesErr   error
	eventsErr       error
	gate            chan struct{}
	categoriesCalls atomic.Int64
	eventsCalls     atomic.Int64
	started         chan EventQuery
}

var _ Service = (*StubService)(nil)

// NewStubService creates a StubService serving the given data.
func NewStubService(categories []Category, events []EventSummary) *StubService {
	return &StubService{
		categories: categories,
		events:     events,
		started:    make(chan EventQuery, 64),
	}
}

// FetchCategories implements Service.
func (s *StubService) FetchCategories(ctx context.Context) ([]Category, error) {
	s.categoriesCalls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.categoriesErr != nil {
		return nil, s.categoriesErr
	}
	return append([]Category(nil), s.categories...), nil
}

// FetchEvents implements Service. It returns every event regardless of the
// query, like an upstream that ignores its filter; callers are expected to
// filter and truncate.
func (s *StubService) FetchEvents(ctx context.Context, query EventQuery) ([]EventSummary, error) {
	s.eventsCalls.Add(1)
	select {
	case s.started <- query:
	default:
	}

	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.eventsErr != nil {
		return nil, s.eventsErr
	}
	return append([]EventSummary(nil), s.events...), nil
}

// SetCategories replaces the categories served.
func (s *StubService) SetCategories(categories []Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = categories
}

// SetEvents replaces the events served.
func (s *StubService) SetEvents(events []EventSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = events
}

// FailCategories makes FetchCategories return err until called with nil.
func (s *StubService) FailCategories(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categoriesErr = err
}

// FailEvents makes FetchEvents return err until called with nil.
func (s *StubService) FailEvents(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventsErr = err
}

// Hold makes subsequent FetchEvents calls block until Release.
func (s *StubService) Hold() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gate = make(chan struct{})
}

// Release unblocks every held FetchEvents call.
func (s *StubService) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gate != nil {
		close(s.gate)
		s.gate = nil
	}
}

// Started delivers the query of every FetchEvents call as it begins.
func (s *StubService) Started() <-chan EventQuery {
	return s.started
}

// CategoriesCalls returns how many times FetchCategories was called.
func (s *StubService) CategoriesCalls() int {
	return int(s.categoriesCalls.Load())
}

// EventsCalls returns how many times FetchEvents was called.
func (s *StubService) EventsCalls() int {
	return int(s.eventsCalls.Load())
}
