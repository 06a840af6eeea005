package appcontext

import (
	"context"
	"testing"

	"github.com/agentstation/eventdeck"
)

// NewTestApp creates a Mock backed by a real client built from opts, with
// JSON output. The client is closed when the test finishes.
func NewTestApp(t testing.TB, opts ...eventdeck.Option) *Mock {
	t.Helper()
	client, err := eventdeck.New(opts...)
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	return &Mock{
		ClientFunc:       func(context.Context) (eventdeck.Client, error) { return client, nil },
		OutputFormatFunc: func() string { return "json" },
	}
}
