package filter

import (
	"net/url"
	"sync"
)

// Location models the address bar and its history stack. Filter changes only
// ever Replace the current entry; Push exists for navigations that should be
// reachable with Back.
type Location struct {
	mu      sync.RWMutex
	history []url.URL
}

// NewLocation starts a history at raw.
func NewLocation(raw string) (*Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &Location{history: []url.URL{*u}}, nil
}

// URL returns a copy of the current address.
func (l *Location) URL() *url.URL {
	l.mu.RLock()
	defer l.mu.RUnlock()
	u := l.history[len(l.history)-1]
	return &u
}

// Query returns the current query parameters.
func (l *Location) Query() url.Values {
	return l.URL().Query()
}

// Replace swaps the current entry without adding history.
func (l *Location) Replace(u *url.URL) {
	if u == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.history[len(l.history)-1] = *u
}

// Push navigates to u, adding a history entry.
func (l *Location) Push(u *url.URL) {
	if u == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.history = append(l.history, *u)
}

// Back pops the current entry, reporting false at the start of history.
func (l *Location) Back() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.history) == 1 {
		return false
	}
	l.history = l.history[:len(l.history)-1]
	return true
}

// Len returns the number of history entries.
func (l *Location) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.history)
}

// String returns the current address.
func (l *Location) String() string {
	return l.URL().String()
}
