package errors_test

import (
	"fmt"

	"github.com/agentstation/eventdeck/pkg/errors"
)

// Example demonstrates reacting to a failed catalog fetch.
func Example() {
	err := errors.NewTransientFetchError("events", 503, nil)

	if errors.IsTransientFetch(err) {
		fmt.Println("showing cached results")
	}

	// Output: showing cached results
}

// Example_storage demonstrates detecting a degraded store.
func Example_storage() {
	err := errors.WrapStorage("sqlite", "saved_events", errors.New("database is locked"))

	var storageErr *errors.StorageUnavailableError
	if errors.As(err, &storageErr) {
		fmt.Printf("backend=%s key=%s\n", storageErr.Backend, storageErr.Key)
	}

	// Output: backend=sqlite key=saved_events
}
