package results

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/eventdeck/pkg/catalog"
	"github.com/agentstation/eventdeck/pkg/errors"
)

func mixedEvents(t *testing.T) []catalog.EventSummary {
	t.Helper()
	var events []catalog.EventSummary
	events = append(events, catalog.TestEvents(t, "1", 3)...)
	events = append(events, catalog.TestEvents(t, "5", 6)...)
	return events
}

func waitForStart(t *testing.T, svc *catalog.StubService) catalog.EventQuery {
	t.Helper()
	select {
	case q := <-svc.Started():
		return q
	case <-time.After(2 * time.Second):
		t.Fatal("fetch did not start")
		return catalog.EventQuery{}
	}
}

func TestGetFiltersAndTruncates(t *testing.T) {
	svc := catalog.NewStubService(nil, mixedEvents(t))
	c := New(svc)

	got, err := c.Get(context.Background(), catalog.ID("5"), 4)
	require.NoError(t, err)
	require.Len(t, got, 4)
	for _, e := range got {
		assert.True(t, e.HasCategory(catalog.ID("5")), "event %s is outside category 5", e.ID)
	}

	q := waitForStart(t, svc)
	assert.Equal(t, "5", *q.CategoryID)
	assert.Equal(t, 4, q.Limit)
}

func TestGetAllCategoriesSkipsFiltering(t *testing.T) {
	svc := catalog.NewStubService(nil, mixedEvents(t))
	c := New(svc)

	got, err := c.Get(context.Background(), nil, 5)
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, "1-1", got[0].ID)
	assert.Equal(t, "5-2", got[4].ID)
}

func TestGetServesReadyEntries(t *testing.T) {
	svc := catalog.NewStubService(nil, mixedEvents(t))
	c := New(svc)
	ctx := context.Background()

	first, err := c.Get(ctx, catalog.ID("5"), 4)
	require.NoError(t, err)
	second, err := c.Get(ctx, catalog.ID("5"), 4)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, svc.EventsCalls())

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Fetches)
	assert.Equal(t, 1, stats.Entries)

	// A different limit is a different key.
	_, err = c.Get(ctx, catalog.ID("5"), 8)
	require.NoError(t, err)
	assert.Equal(t, 2, svc.EventsCalls())
}

func TestConcurrentGetsShareOneFetch(t *testing.T) {
	svc := catalog.NewStubService(nil, mixedEvents(t))
	svc.Hold()
	c := New(svc)

	const callers = 8
	var wg sync.WaitGroup
	results := make([][]catalog.EventSummary, callers)
	errs := make([]error, callers)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = c.Get(context.Background(), catalog.ID("5"), 4)
	}()
	waitForStart(t, svc)
	assert.Equal(t, StatusPending, c.Status(NewKey(catalog.ID("5"), 4)))

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = c.Get(context.Background(), catalog.ID("5"), 4)
		}()
	}
	assert.Eventually(t, func() bool { return c.Stats().Misses == callers }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	svc.Release()
	wg.Wait()

	assert.Equal(t, 1, svc.EventsCalls())
	for i := range callers {
		require.NoError(t, errs[i])
		assert.Len(t, results[i], 4)
	}
	assert.Equal(t, int64(callers), c.Stats().Shared)
	assert.Equal(t, StatusReady, c.Status(NewKey(catalog.ID("5"), 4)))
}

func TestGetFailureRemovesEntry(t *testing.T) {
	svc := catalog.NewStubService(nil, mixedEvents(t))
	svc.FailEvents(errors.New("connection reset"))
	c := New(svc)
	key := NewKey(catalog.ID("5"), 4)

	_, err := c.Get(context.Background(), catalog.ID("5"), 4)
	require.Error(t, err)
	assert.True(t, errors.IsTransientFetch(err))
	assert.Equal(t, StatusError, c.Status(key))
	_, ok := c.Peek(key)
	assert.False(t, ok)

	svc.FailEvents(nil)
	got, err := c.Get(context.Background(), catalog.ID("5"), 4)
	require.NoError(t, err)
	assert.Len(t, got, 4)
	assert.Equal(t, 2, svc.EventsCalls())
	assert.Equal(t, StatusReady, c.Status(key))
}

func TestGetKeepsTypedFetchErrors(t *testing.T) {
	svc := catalog.NewStubService(nil, nil)
	svc.FailEvents(errors.NewTransientFetchError("events", 502, nil))
	c := New(svc)

	_, err := c.Get(context.Background(), nil, 4)
	var fetchErr *errors.TransientFetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, 502, fetchErr.StatusCode)
}

func TestGetInvalidLimit(t *testing.T) {
	c := New(catalog.NewStubService(nil, nil))
	_, err := c.Get(context.Background(), nil, 0)
	assert.True(t, errors.IsValidationError(err))
}

func TestCallerCancellationDoesNotAbortSharedFetch(t *testing.T) {
	svc := catalog.NewStubService(nil, mixedEvents(t))
	svc.Hold()
	c := New(svc)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Get(ctx, catalog.ID("5"), 4)
		done <- err
	}()
	waitForStart(t, svc)
	cancel()
	svc.Release()

	require.NoError(t, <-done)
	_, ok := c.Peek(NewKey(catalog.ID("5"), 4))
	assert.True(t, ok)
}

func TestRetainEvictsUnreachable(t *testing.T) {
	svc := catalog.NewStubService(nil, mixedEvents(t))
	c := New(svc)
	ctx := context.Background()

	for _, limit := range []int{4, 8, 12} {
		_, err := c.Get(ctx, catalog.ID("5"), limit)
		require.NoError(t, err)
	}
	_, err := c.Get(ctx, nil, 4)
	require.NoError(t, err)

	evicted := c.Retain([]Key{NewKey(catalog.ID("5"), 8), NewKey(nil, 4)})
	assert.Equal(t, 2, evicted)
	assert.ElementsMatch(t, []Key{{Category: "5", Limit: 8}, {Category: "all", Limit: 4}}, c.Keys())

	assert.Zero(t, c.Retain([]Key{NewKey(catalog.ID("5"), 8), NewKey(nil, 4)}))
}

func TestInvalidate(t *testing.T) {
	svc := catalog.NewStubService(nil, mixedEvents(t))
	c := New(svc)
	ctx := context.Background()

	_, _ = c.Get(ctx, catalog.ID("5"), 4)
	_, _ = c.Get(ctx, catalog.ID("1"), 4)
	c.Invalidate(catalog.ID("5"))

	assert.Equal(t, []Key{{Category: "1", Limit: 4}}, c.Keys())
	assert.Equal(t, StatusNone, c.Status(NewKey(catalog.ID("5"), 4)))
}

func TestPeekReturnsCopies(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	svc := catalog.NewStubService(nil, mixedEvents(t))
	c := New(svc, WithClock(func() time.Time { return now }))

	got, err := c.Get(context.Background(), catalog.ID("5"), 4)
	require.NoError(t, err)
	got[0].Title = "mutated"

	entry, ok := c.Peek(NewKey(catalog.ID("5"), 4))
	require.True(t, ok)
	assert.NotEqual(t, "mutated", entry.Results[0].Title)
	assert.Equal(t, StatusReady, entry.Status)
	assert.True(t, entry.FetchedAt.Time.Equal(now))
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "all:4", NewKey(nil, 4).String())
	assert.Equal(t, "5:12", NewKey(catalog.ID("5"), 12).String())
}
