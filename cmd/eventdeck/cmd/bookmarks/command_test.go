package bookmarks

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/eventdeck"
	"github.com/agentstation/eventdeck/internal/appcontext"
	"github.com/agentstation/eventdeck/pkg/catalog"
	"github.com/agentstation/eventdeck/pkg/errors"
	"github.com/agentstation/eventdeck/pkg/storage"
	"github.com/agentstation/eventdeck/pkg/storage/memory"
)

// syncBuffer lets the watch test read output while the command writes it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func run(ctx context.Context, t *testing.T, app appcontext.Interface, args ...string) (string, error) {
	t.Helper()
	cmd := NewCommand(app)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{}, args...))
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func newApp(t *testing.T, durable storage.Store) appcontext.Interface {
	t.Helper()
	svc := catalog.NewStubService(nil, catalog.TestEvents(t, "5", 20))
	return appcontext.NewTestApp(t, eventdeck.WithService(svc), eventdeck.WithDurable(durable))
}

func savedIDs(t *testing.T, s string) []string {
	t.Helper()
	var saved []catalog.SavedEventRecord
	require.NoError(t, json.Unmarshal([]byte(s), &saved))
	ids := make([]string, len(saved))
	for i, r := range saved {
		ids[i] = r.ID
	}
	return ids
}

func TestToggleAndList(t *testing.T) {
	ctx := context.Background()
	app := newApp(t, storage.NewMemory())

	out, err := run(ctx, t, app, "toggle", "5-2")
	require.NoError(t, err)
	assert.Contains(t, out, `Saved \"Event 5-2\"`)

	out, err = run(ctx, t, app, "toggle", "5-10")
	require.NoError(t, err, "events beyond the first page are found by expanding")
	assert.Contains(t, out, "Saved")

	out, err = run(ctx, t, app, "list")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"5-2", "5-10"}, savedIDs(t, out))

	out, err = run(ctx, t, app, "toggle", "5-2")
	require.NoError(t, err)
	assert.Contains(t, out, "Unsaved")

	out, err = run(ctx, t, app)
	require.NoError(t, err)
	assert.Equal(t, []string{"5-10"}, savedIDs(t, out))
}

func TestToggleUnknownEvent(t *testing.T) {
	_, err := run(context.Background(), t, newApp(t, storage.NewMemory()), "toggle", "nope")
	assert.True(t, errors.IsNotFound(err))
}

func TestWatchFollowsOtherSessions(t *testing.T) {
	backend := memory.New()
	watcherStore := storage.NewDurable(backend)
	writerStore := storage.NewDurable(backend)
	t.Cleanup(func() {
		_ = watcherStore.Close()
		_ = writerStore.Close()
		_ = backend.Close()
	})

	watcher := newApp(t, watcherStore)
	writer := newApp(t, writerStore)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := NewCommand(watcher)
	out := &syncBuffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"watch"})

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	assert.Eventually(t, func() bool { return strings.Contains(out.String(), "[]") }, 2*time.Second, 5*time.Millisecond)

	_, err := run(context.Background(), t, writer, "toggle", "5-1")
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return strings.Contains(out.String(), `"5-1"`) }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}
