package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/eventdeck/pkg/errors"
	"github.com/agentstation/eventdeck/pkg/storage"
)

type recorder struct {
	mu      sync.Mutex
	changes []storage.Change
}

func (r *recorder) record(c storage.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *recorder) snapshot() []storage.Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]storage.Change(nil), r.changes...)
}

func newTestBackend(t *testing.T, opts ...Option) *Backend {
	t.Helper()
	logger := zerolog.Nop()
	b := New(append([]Option{WithLogger(&logger)}, opts...)...)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBackendLoadSaveDelete(t *testing.T) {
	b := newTestBackend(t, WithValues(map[string]string{"seeded": "yes"}))
	ctx := context.Background()

	v, ok, err := b.Load(ctx, "seeded")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "yes", v)

	require.NoError(t, b.Save(ctx, "k", "v", "tab-a"))
	v, ok, err = b.Load(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	require.NoError(t, b.Delete(ctx, "k", "tab-a"))
	_, ok, err = b.Load(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "memory", b.Name())
}

func TestBackendFanOut(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	recorders := []*recorder{{}, {}, {}}
	for _, r := range recorders {
		_, err := b.Watch(ctx, r.record)
		require.NoError(t, err)
	}
	assert.Eventually(t, func() bool { return b.Watchers() == 3 }, time.Second, 5*time.Millisecond)

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, b.Save(ctx, key, "v", "tab-a"))
	}

	for _, r := range recorders {
		assert.Eventually(t, func() bool { return len(r.snapshot()) == 3 }, time.Second, 5*time.Millisecond)
		changes := r.snapshot()
		assert.Equal(t, []string{"a", "b", "c"}, []string{changes[0].Key, changes[1].Key, changes[2].Key})
		assert.Equal(t, "tab-a", changes[0].Origin)
	}
}

func TestBackendDeleteMissingIsSilent(t *testing.T) {
	b := newTestBackend(t)
	r := &recorder{}
	_, err := b.Watch(context.Background(), r.record)
	require.NoError(t, err)

	require.NoError(t, b.Delete(context.Background(), "missing", "tab-a"))
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, r.snapshot())
}

func TestBackendStopWatch(t *testing.T) {
	b := newTestBackend(t)
	r := &recorder{}
	stop, err := b.Watch(context.Background(), r.record)
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return b.Watchers() == 1 }, time.Second, 5*time.Millisecond)

	stop()
	stop()
	assert.Eventually(t, func() bool { return b.Watchers() == 0 }, time.Second, 5*time.Millisecond)

	require.NoError(t, b.Save(context.Background(), "k", "v", "tab-a"))
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, r.snapshot())
}

func TestBackendWatchContextCancel(t *testing.T) {
	b := newTestBackend(t)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := b.Watch(ctx, func(storage.Change) {})
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return b.Watchers() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	assert.Eventually(t, func() bool { return b.Watchers() == 0 }, time.Second, 5*time.Millisecond)
}

func TestBackendClosed(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	ctx := context.Background()
	_, _, err := b.Load(ctx, "k")
	assert.ErrorIs(t, err, errors.ErrClosed)
	assert.ErrorIs(t, b.Save(ctx, "k", "v", "o"), errors.ErrClosed)
	assert.ErrorIs(t, b.Delete(ctx, "k", "o"), errors.ErrClosed)

	assert.Eventually(t, func() bool {
		_, err := b.Watch(ctx, func(storage.Change) {})
		return errors.Is(err, errors.ErrClosed)
	}, time.Second, 5*time.Millisecond)
}
