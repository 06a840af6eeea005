// Package storage provides the key-value stores every other eventdeck
// component persists through.
//
// Two kinds of Store exist per browsing context. A session store is private to
// the context and lost when it ends. A durable store is shared with every other
// context through a Backend and survives restarts; it notifies subscribers when
// another context changes a key. Notifications never carry the value:
// subscribers are handed a fresh read of the backend.
//
// Durable stores never fail their callers. When the backend is unavailable or
// the quota is exhausted the store degrades to an in-memory map for the rest of
// its lifetime and logs the cause once.
package storage

import "context"

// Handler receives the current value of a key after another context changed
// it. ok is false when the key was removed.
type Handler func(value string, ok bool)

// Store is a string key-value store scoped to one browsing context.
type Store interface {
	// Get returns the value for key and whether it exists.
	Get(key string) (string, bool)

	// Set stores value under key.
	Set(key, value string)

	// Remove deletes key. Removing a missing key is a no-op.
	Remove(key string)

	// Subscribe calls handler whenever another context changes key.
	// Changes made through this store never trigger its own handlers.
	Subscribe(key string, handler Handler) (unsubscribe func())

	// Degraded reports whether the store fell back to memory-only mode.
	Degraded() bool
}

// Change signals that a key was written or removed by the context identified
// by Origin.
type Change struct {
	Key    string `json:"key"`
	Origin string `json:"origin"`
}

// Backend is raw storage shared by every browsing context.
type Backend interface {
	// Name identifies the backend in logs and errors.
	Name() string

	// Load returns the value of key and whether it exists.
	Load(ctx context.Context, key string) (string, bool, error)

	// Save writes key and announces the change on behalf of origin.
	Save(ctx context.Context, key, value, origin string) error

	// Delete removes key and announces the change on behalf of origin.
	Delete(ctx context.Context, key, origin string) error

	// Watch delivers changes, including the caller's own, until stop is
	// called or ctx is done. Delivery is best effort: a watcher that falls far
	// behind may miss changes, which is safe because subscribers re-read.
	Watch(ctx context.Context, fn func(Change)) (stop func(), err error)

	// Close releases the backend's resources.
	Close() error
}
