package storage

import (
	gocache "github.com/patrickmn/go-cache"
)

// Session is the per-context session store. Values live until the context
// ends and are never shared.
type Session struct {
	store *gocache.Cache
}

var _ Store = (*Session)(nil)

// NewSession creates an empty session store.
func NewSession() *Session {
	return &Session{
		store: gocache.New(gocache.NoExpiration, 0),
	}
}

// Get implements Store.
func (s *Session) Get(key string) (string, bool) {
	v, ok := s.store.Get(key)
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// Set implements Store.
func (s *Session) Set(key, value string) {
	s.store.Set(key, value, gocache.NoExpiration)
}

// Remove implements Store.
func (s *Session) Remove(key string) {
	s.store.Delete(key)
}

// Subscribe implements Store. Session values are private, so handlers are
// never called.
func (s *Session) Subscribe(string, Handler) func() {
	return func() {}
}

// Degraded implements Store.
func (s *Session) Degraded() bool {
	return false
}

// Clear drops every value, as when the context ends.
func (s *Session) Clear() {
	s.store.Flush()
}
