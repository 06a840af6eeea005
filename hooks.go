package eventdeck

import (
	"sync"

	"github.com/agentstation/eventdeck/pkg/catalog"
)

// Hook function types for browsing events
type (
	// FilterChangedHook is called after the selected category changes
	FilterChangedHook func(state catalog.FilterState)

	// BookmarksChangedHook is called with the full saved list after a toggle
	// here or in another browsing context
	BookmarksChangedHook func(saved []catalog.SavedEventRecord)

	// ResultsHook is called when a list receives results for the current filter
	ResultsHook func(list string, events []catalog.EventSummary)
)

// Hooks registers callbacks for client events. Callbacks run synchronously
// on the goroutine that caused the event.
type Hooks interface {
	OnFilterChanged(FilterChangedHook)
	OnBookmarksChanged(BookmarksChangedHook)
	OnResults(ResultsHook)
}

// hooks manages event callbacks
type hooks struct {
	mu                 sync.RWMutex
	onFilterChanged    []FilterChangedHook
	onBookmarksChanged []BookmarksChangedHook
	onResults          []ResultsHook
}

func newHooks() *hooks {
	return &hooks{}
}

// OnFilterChanged registers a callback for filter changes
func (h *hooks) OnFilterChanged(fn FilterChangedHook) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onFilterChanged = append(h.onFilterChanged, fn)
}

// OnBookmarksChanged registers a callback for saved-event changes
func (h *hooks) OnBookmarksChanged(fn BookmarksChangedHook) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onBookmarksChanged = append(h.onBookmarksChanged, fn)
}

// OnResults registers a callback for delivered results
func (h *hooks) OnResults(fn ResultsHook) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onResults = append(h.onResults, fn)
}

func (h *hooks) triggerFilterChanged(state catalog.FilterState) {
	h.mu.RLock()
	fns := append([]FilterChangedHook(nil), h.onFilterChanged...)
	h.mu.RUnlock()
	for _, fn := range fns {
		fn(state)
	}
}

func (h *hooks) triggerBookmarksChanged(saved []catalog.SavedEventRecord) {
	h.mu.RLock()
	fns := append([]BookmarksChangedHook(nil), h.onBookmarksChanged...)
	h.mu.RUnlock()
	for _, fn := range fns {
		fn(saved)
	}
}

func (h *hooks) triggerResults(list string, events []catalog.EventSummary) {
	h.mu.RLock()
	fns := append([]ResultsHook(nil), h.onResults...)
	h.mu.RUnlock()
	for _, fn := range fns {
		fn(list, events)
	}
}
