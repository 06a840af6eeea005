package categories

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/eventdeck/pkg/catalog"
	"github.com/agentstation/eventdeck/pkg/constants"
	"github.com/agentstation/eventdeck/pkg/errors"
	"github.com/agentstation/eventdeck/pkg/storage"
)

func serverCategories(t *testing.T) []catalog.Category {
	t.Helper()
	return []catalog.Category{
		catalog.TestCategory(t, "9", "Seni Budaya"),
		catalog.TestCategory(t, "3", "Kesehatan"),
		catalog.TestCategory(t, "7", "Olahraga"),
		catalog.TestCategory(t, "1", "Pendidikan"),
		catalog.TestCategory(t, "5", "Lingkungan"),
		catalog.TestCategory(t, "8", "Teknologi"),
	}
}

func names(categories []catalog.Category) []string {
	out := make([]string, len(categories))
	for i, c := range categories {
		out[i] = c.Name
	}
	return out
}

type fixture struct {
	service *catalog.StubService
	durable *storage.Memory
	session *storage.Session
	catalog *Catalog
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		service: catalog.NewStubService(serverCategories(t), nil),
		durable: storage.NewMemory(),
		session: storage.NewSession(),
	}
	f.catalog = New(f.service, f.durable, f.session, opts...)
	return f
}

func TestFetchArrangesAndPersists(t *testing.T) {
	f := newFixture(t)

	got, err := f.catalog.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Semua Event",
		"Pendidikan", "Lingkungan", "Kesehatan",
		"Seni Budaya", "Olahraga", "Teknologi",
	}, names(got))
	assert.Nil(t, got[0].ID)

	raw, ok := f.durable.Get(constants.KeyCategoriesCache)
	require.True(t, ok)
	var stored []catalog.Category
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, names(got), names(stored))

	_, ok = f.session.Get(constants.KeyCategoriesSession)
	assert.True(t, ok)
}

func TestFetchServesEnrichedCacheWithoutNetwork(t *testing.T) {
	f := newFixture(t)
	_, err := f.catalog.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, f.service.CategoriesCalls())

	// A new session over the same durable storage.
	next := New(f.service, f.durable, storage.NewSession())
	got, err := next.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 7)
	assert.Equal(t, 1, f.service.CategoriesCalls())
}

func TestFetchFailureReturnsDefaultsWithoutPersisting(t *testing.T) {
	f := newFixture(t)
	f.service.FailCategories(errors.NewTransientFetchError("categories", 503, nil))

	got, err := f.catalog.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsTransientFetch(err))
	assert.Equal(t, names(DefaultCategories()), names(got))

	_, ok := f.durable.Get(constants.KeyCategoriesCache)
	assert.False(t, ok)
	_, ok = f.session.Get(constants.KeyCategoriesSession)
	assert.False(t, ok)

	// The next call goes back to the network.
	f.service.FailCategories(nil)
	got, err = f.catalog.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 7)
	assert.Equal(t, 2, f.service.CategoriesCalls())
}

func TestFetchWrapsUntypedErrors(t *testing.T) {
	f := newFixture(t)
	f.service.FailCategories(errors.New("boom"))

	_, err := f.catalog.Fetch(context.Background())
	assert.True(t, errors.IsTransientFetch(err))
}

func TestFetchSmallCacheRefetchesInNewSession(t *testing.T) {
	f := newFixture(t)
	f.service.SetCategories([]catalog.Category{catalog.TestCategory(t, "1", "Pendidikan")})

	_, err := f.catalog.Fetch(context.Background())
	require.NoError(t, err)

	// Same session: the session flag short-circuits.
	_, err = f.catalog.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.service.CategoriesCalls())

	// New session: two cached entries are not more than the defaults.
	next := New(f.service, f.durable, storage.NewSession())
	_, err = next.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, f.service.CategoriesCalls())
}

func TestFetchDiscardsCorruptCache(t *testing.T) {
	f := newFixture(t)
	f.durable.Set(constants.KeyCategoriesCache, "{not json")

	got, err := f.catalog.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 7)
	assert.Equal(t, 1, f.service.CategoriesCalls())

	raw, _ := f.durable.Get(constants.KeyCategoriesCache)
	assert.True(t, json.Valid([]byte(raw)))
}

func TestTTLPolicy(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	f := newFixture(t, WithPolicy(TTLPolicy{TTL: time.Hour}), WithClock(clock))
	_, err := f.catalog.Fetch(context.Background())
	require.NoError(t, err)

	stamp, ok := f.durable.Get(constants.KeyCategoriesCacheAt)
	require.True(t, ok)
	assert.Equal(t, "2026-10-18T09:00:00Z", stamp)

	fresh := New(f.service, f.durable, storage.NewSession(), WithPolicy(TTLPolicy{TTL: time.Hour}), WithClock(clock))
	_, err = fresh.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.service.CategoriesCalls())

	now = now.Add(2 * time.Hour)
	stale := New(f.service, f.durable, storage.NewSession(), WithPolicy(TTLPolicy{TTL: time.Hour}), WithClock(clock))
	_, err = stale.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, f.service.CategoriesCalls())
}

func TestPolicies(t *testing.T) {
	now := time.Now()
	three := make([]catalog.Category, 3)

	assert.True(t, SizePolicy{}.Valid(Snapshot{Categories: three, Defaults: 2}, now))
	assert.False(t, SizePolicy{}.Valid(Snapshot{Categories: three, Defaults: 3}, now))

	ttl := TTLPolicy{TTL: time.Minute}
	assert.False(t, ttl.Valid(Snapshot{Categories: three}, now))
	assert.True(t, ttl.Valid(Snapshot{Categories: three, CachedAt: now.Add(-time.Second)}, now))
	assert.False(t, ttl.Valid(Snapshot{Categories: three, CachedAt: now.Add(-time.Hour)}, now))

	never := PolicyFunc(func(Snapshot, time.Time) bool { return false })
	assert.False(t, never.Valid(Snapshot{Categories: three}, now))
}

func TestRefreshBypassesCache(t *testing.T) {
	f := newFixture(t)
	_, err := f.catalog.Fetch(context.Background())
	require.NoError(t, err)

	f.service.SetCategories([]catalog.Category{catalog.TestCategory(t, "2", "Kemanusiaan")})
	got, err := f.catalog.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Semua Event", "Kemanusiaan"}, names(got))
	assert.Equal(t, 2, f.service.CategoriesCalls())
}

func TestConcurrentFetchSharesNetworkCall(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, _ := f.catalog.Fetch(context.Background())
			assert.NotEmpty(t, got)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, f.service.CategoriesCalls(), 10)
	assert.GreaterOrEqual(t, f.service.CategoriesCalls(), 1)
}

func TestOptions(t *testing.T) {
	f := newFixture(t,
		WithAllName("All Events"),
		WithPrimary("Teknologi"),
		WithDefaults([]catalog.Category{catalog.All("All Events")}),
	)

	got, err := f.catalog.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "All Events", got[0].Name)
	assert.Equal(t, "Teknologi", got[1].Name)
	assert.Len(t, f.catalog.Defaults(), 1)
}

func TestReturnedSliceIsACopy(t *testing.T) {
	f := newFixture(t)
	f.service.FailCategories(errors.New("down"))

	got, _ := f.catalog.Fetch(context.Background())
	got[1].Name = "mutated"

	again, _ := f.catalog.Fetch(context.Background())
	assert.Equal(t, "Pendidikan", again[1].Name)
}

func TestExpiredCacheServedWhenRefreshFails(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	f := newFixture(t, WithPolicy(TTLPolicy{TTL: time.Hour}), WithClock(clock))
	first, err := f.catalog.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 7)

	now = now.Add(2 * time.Hour)
	f.service.FailCategories(context.DeadlineExceeded)
	stale := New(f.service, f.durable, storage.NewSession(), WithPolicy(TTLPolicy{TTL: time.Hour}), WithClock(clock))

	got, err := stale.Fetch(context.Background())
	assert.True(t, errors.IsTransientFetch(err))
	assert.Equal(t, names(first), names(got), "the expired list beats the defaults")
	assert.Equal(t, 2, f.service.CategoriesCalls())
}

func TestSmallCacheNotServedWhenRefreshFails(t *testing.T) {
	f := newFixture(t)
	f.durable.Set(constants.KeyCategoriesCache, `[{"id":null,"name":"Semua Event"},{"id":"5","name":"Lingkungan"}]`)
	f.service.FailCategories(errors.New("down"))

	got, err := f.catalog.Fetch(context.Background())
	assert.Error(t, err)
	assert.Equal(t, names(DefaultCategories()), names(got))
}

// blockingService holds FetchCategories until release is closed, failing
// early only if its context is cancelled.
type blockingService struct {
	*catalog.StubService
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *blockingService) FetchCategories(ctx context.Context) ([]catalog.Category, error) {
	s.once.Do(func() { close(s.started) })
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.StubService.FetchCategories(ctx)
}

func TestCancelledCallerDoesNotAbortSharedFetch(t *testing.T) {
	svc := &blockingService{
		StubService: catalog.NewStubService(serverCategories(t), nil),
		started:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	c := New(svc, storage.NewMemory(), storage.NewSession())

	ctx, cancel := context.WithCancel(context.Background())
	type result struct {
		categories []catalog.Category
		err        error
	}
	first := make(chan result, 1)
	second := make(chan result, 1)
	go func() {
		got, err := c.Fetch(ctx)
		first <- result{got, err}
	}()
	<-svc.started
	go func() {
		got, err := c.Fetch(context.Background())
		second <- result{got, err}
	}()

	cancel()
	close(svc.release)

	for _, ch := range []chan result{first, second} {
		r := <-ch
		require.NoError(t, r.err)
		assert.Len(t, r.categories, 7)
	}
}
