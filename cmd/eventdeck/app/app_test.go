package app

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/agentstation/eventdeck"
	cmdconstants "github.com/agentstation/eventdeck/internal/cmd/constants"
	"github.com/agentstation/eventdeck/pkg/catalog"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		APIURL:    "http://catalog.invalid/api",
		Storage:   cmdconstants.StorageMemory,
		DataPath:  t.TempDir(),
		URL:       "/",
		Format:    "json",
		LogFormat: "json",
		LogOutput: "stderr",
	}
}

func testApp(t *testing.T, config *Config) *App {
	t.Helper()
	svc := catalog.NewStubService(
		[]catalog.Category{catalog.TestCategory(t, "5", "Lingkungan")},
		catalog.TestEvents(t, "5", 6),
	)
	logger := zerolog.Nop()
	app, err := New("1.0.0", "abc123", "2026-01-01", "test",
		WithConfig(config),
		WithLogger(&logger),
		WithService(svc),
	)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() { _ = app.Shutdown(context.Background()) })
	return app
}

// TestApp_New verifies app initialization.
func TestApp_New(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	app, err := New("1.0.0", "abc123", "2026-01-01", "test")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if app.Version() != "1.0.0" {
		t.Errorf("Version() = %s, want 1.0.0", app.Version())
	}
	if app.Commit() != "abc123" {
		t.Errorf("Commit() = %s, want abc123", app.Commit())
	}
	if app.Date() != "2026-01-01" {
		t.Errorf("Date() = %s, want 2026-01-01", app.Date())
	}
	if app.BuiltBy() != "test" {
		t.Errorf("BuiltBy() = %s, want test", app.BuiltBy())
	}
	if app.Logger() == nil {
		t.Error("Logger() returned nil")
	}
	if app.Config() == nil {
		t.Error("Config() returned nil")
	}
}

// TestApp_WithConfig_Invalid verifies a bad config is rejected up front.
func TestApp_WithConfig_Invalid(t *testing.T) {
	config := testConfig(t)
	config.Storage = "floppy"

	if _, err := New("1.0.0", "", "", "", WithConfig(config)); err == nil {
		t.Fatal("New() accepted an unknown storage backend")
	}
}

// TestApp_Client_Singleton verifies that Client() returns the same instance.
func TestApp_Client_Singleton(t *testing.T) {
	app := testApp(t, testConfig(t))

	c1, err := app.Client(context.Background())
	if err != nil {
		t.Fatalf("Client() failed: %v", err)
	}
	c2, err := app.Client(context.Background())
	if err != nil {
		t.Fatalf("Client() failed on second call: %v", err)
	}
	if c1 != c2 {
		t.Error("Client() returned different instances, expected singleton")
	}
}

// TestApp_Client_ThreadSafe verifies concurrent Client() calls are safe.
func TestApp_Client_ThreadSafe(t *testing.T) {
	app := testApp(t, testConfig(t))

	const goroutines = 50
	var wg sync.WaitGroup
	clients := make([]eventdeck.Client, goroutines)
	errs := make([]error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			clients[idx], errs[idx] = app.Client(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("Goroutine %d: Client() failed: %v", i, err)
		}
	}
	for i, c := range clients[1:] {
		if c != clients[0] {
			t.Errorf("Goroutine %d got a different client", i+1)
		}
	}
}

// TestApp_Client_StartURL verifies the configured address selects the filter.
func TestApp_Client_StartURL(t *testing.T) {
	config := testConfig(t)
	config.URL = "/events?category=5&name=Lingkungan"
	app := testApp(t, config)

	client, err := app.Client(context.Background())
	if err != nil {
		t.Fatalf("Client() failed: %v", err)
	}
	state := client.Filter()
	if state.SelectedCategoryID == nil || *state.SelectedCategoryID != "5" {
		t.Errorf("Filter() = %+v, want category 5", state)
	}
}

// TestApp_SQLite_PersistsAcrossApps verifies saved state survives a restart.
func TestApp_SQLite_PersistsAcrossApps(t *testing.T) {
	config := testConfig(t)
	config.Storage = cmdconstants.StorageSQLite

	first := testApp(t, config)
	client, err := first.Client(context.Background())
	if err != nil {
		t.Fatalf("Client() failed: %v", err)
	}
	if first.durable.Degraded() {
		t.Fatalf("sqlite storage degraded: %v", first.durable.Err())
	}

	id := "5"
	client.Select(&id, "Lingkungan")
	if !client.Toggle(catalog.TestEvent(t, "5-1", "5")) {
		t.Fatal("Toggle() did not save the event")
	}
	if err := first.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() failed: %v", err)
	}

	second := testApp(t, config)
	client, err = second.Client(context.Background())
	if err != nil {
		t.Fatalf("Client() failed: %v", err)
	}
	if state := client.Filter(); state.SelectedCategoryID == nil || *state.SelectedCategoryID != "5" {
		t.Errorf("Filter() = %+v after restart, want category 5", state)
	}
	if !client.IsSaved("5-1") {
		t.Error("saved event lost after restart")
	}
}

// TestApp_Redis_Unavailable verifies an unreachable redis leaves the session
// working in memory.
func TestApp_Redis_Unavailable(t *testing.T) {
	config := testConfig(t)
	config.Storage = cmdconstants.StorageRedis
	config.RedisURL = "redis://127.0.0.1:1/0"

	app := testApp(t, config)
	client, err := app.Client(context.Background())
	if err != nil {
		t.Fatalf("Client() failed: %v", err)
	}
	if !app.durable.Degraded() {
		t.Error("expected degraded storage")
	}
	if !client.Toggle(catalog.TestEvent(t, "5-1", "5")) || !client.IsSaved("5-1") {
		t.Error("toggle should still work in memory")
	}
}

// TestApp_Shutdown_Idempotent verifies Shutdown can be called more than once.
func TestApp_Shutdown_Idempotent(t *testing.T) {
	app := testApp(t, testConfig(t))
	if _, err := app.Client(context.Background()); err != nil {
		t.Fatalf("Client() failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := app.Shutdown(context.Background()); err != nil {
			t.Fatalf("Shutdown() #%d failed: %v", i+1, err)
		}
	}
}

func execute(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	root := app.createRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// TestApp_Execute_FilterAndStatus runs commands through the root command.
func TestApp_Execute_FilterAndStatus(t *testing.T) {
	app := testApp(t, testConfig(t))

	if _, err := execute(t, app, "filter", "set", "5"); err != nil {
		t.Fatalf("filter set failed: %v", err)
	}

	out, err := execute(t, app, "status")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	var status struct {
		Storage  string `json:"storage"`
		Backend  string `json:"backend"`
		Degraded bool   `json:"degraded"`
	}
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("status output is not JSON: %v\n%s", err, out)
	}
	if status.Storage != cmdconstants.StorageMemory || status.Backend != "memory" || status.Degraded {
		t.Errorf("status = %+v", status)
	}
}

// TestApp_Execute_FlagsOverrideConfig verifies flags win over loaded values.
func TestApp_Execute_FlagsOverrideConfig(t *testing.T) {
	config := testConfig(t)
	app := testApp(t, config)

	if _, err := execute(t, app, "--storage", "sqlite", "--log-level", "error", "version"); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if config.Storage != cmdconstants.StorageSQLite {
		t.Errorf("Storage = %s, want sqlite", config.Storage)
	}
	if config.LogLevel != "error" {
		t.Errorf("LogLevel = %s, want error", config.LogLevel)
	}
}

// TestApp_Execute_RejectsUnknownStorage verifies flags are validated.
func TestApp_Execute_RejectsUnknownStorage(t *testing.T) {
	app := testApp(t, testConfig(t))

	if _, err := execute(t, app, "--storage", "floppy", "version"); err == nil {
		t.Error("expected an error for an unknown storage backend")
	}
}

// TestApp_Execute_Version verifies the version command output.
func TestApp_Execute_Version(t *testing.T) {
	app := testApp(t, testConfig(t))

	out, err := execute(t, app, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out, "eventdeck 1.0.0") {
		t.Errorf("version output = %q", out)
	}
}
