package sqlite_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/eventdeck/pkg/storage"
	"github.com/agentstation/eventdeck/pkg/storage/sqlite"
)

func openBackend(t *testing.T, path string) *sqlite.Backend {
	t.Helper()
	b, err := sqlite.Open(context.Background(), path, sqlite.WithPollInterval(20*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

type recorder struct {
	mu      sync.Mutex
	changes []storage.Change
}

func (r *recorder) record(c storage.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *recorder) keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.changes))
	for _, c := range r.changes {
		keys = append(keys, c.Key)
	}
	return keys
}

func TestBackendRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "eventdeck.db")
	b := openBackend(t, path)
	ctx := context.Background()

	assert.Equal(t, "sqlite", b.Name())
	assert.Equal(t, path, b.Path())

	_, ok, err := b.Load(ctx, "saved_events")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Save(ctx, "saved_events", `[]`, "tab-a"))
	require.NoError(t, b.Save(ctx, "saved_events", `[{"id":"1"}]`, "tab-a"))

	v, ok, err := b.Load(ctx, "saved_events")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"1"}]`, v)

	require.NoError(t, b.Delete(ctx, "saved_events", "tab-a"))
	_, ok, err = b.Load(ctx, "saved_events")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBackendPersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eventdeck.db")
	ctx := context.Background()

	first, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx, "selected_category_filter", `{"id":"5","name":"Lingkungan"}`, "tab-a"))
	require.NoError(t, first.Close())

	second := openBackend(t, path)
	v, ok, err := second.Load(ctx, "selected_category_filter")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"id":"5","name":"Lingkungan"}`, v)
}

func TestBackendWatchSameProcess(t *testing.T) {
	b := openBackend(t, filepath.Join(t.TempDir(), "eventdeck.db"))
	ctx := context.Background()

	require.NoError(t, b.Save(ctx, "before", "x", "tab-a"))

	r := &recorder{}
	stop, err := b.Watch(ctx, r.record)
	require.NoError(t, err)
	defer stop()

	require.NoError(t, b.Save(ctx, "a", "1", "tab-a"))
	require.NoError(t, b.Delete(ctx, "a", "tab-b"))
	require.NoError(t, b.Delete(ctx, "missing", "tab-b"))

	assert.Eventually(t, func() bool { return len(r.keys()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"a", "a"}, r.keys())
}

func TestBackendWatchOtherConnection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eventdeck.db")
	watcherSide := openBackend(t, path)
	writerSide := openBackend(t, path)
	ctx := context.Background()

	r := &recorder{}
	stop, err := watcherSide.Watch(ctx, r.record)
	require.NoError(t, err)
	defer stop()

	require.NoError(t, writerSide.Save(ctx, "saved_events", `[]`, "other-process"))

	assert.Eventually(t, func() bool { return len(r.keys()) == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestBackendWithDurableStores(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eventdeck.db")
	tabA := storage.NewDurable(openBackend(t, path))
	tabB := storage.NewDurable(openBackend(t, path))
	t.Cleanup(func() {
		_ = tabA.Close()
		_ = tabB.Close()
	})

	got := make(chan string, 1)
	tabB.Subscribe("saved_events", func(v string, ok bool) {
		if ok {
			got <- v
		}
	})

	tabA.Set("saved_events", `[{"id":"E1"}]`)

	select {
	case v := <-got:
		assert.Equal(t, `[{"id":"E1"}]`, v)
	case <-time.After(3 * time.Second):
		t.Fatal("change was not observed by the other context")
	}
	assert.False(t, tabA.Degraded())
}

func TestWatchAfterClose(t *testing.T) {
	b, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "eventdeck.db"))
	require.NoError(t, err)
	require.NoError(t, b.Close())

	_, err = b.Watch(context.Background(), func(storage.Change) {})
	assert.Error(t, err)
}
