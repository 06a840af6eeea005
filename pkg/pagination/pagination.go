// Package pagination owns the visible-item windows of the browse lists.
//
// Every (list, filter key) pair has its own window, created lazily from the
// list's Config. Expanding grows the window by one step up to the hard cap;
// collapsing returns it to the initial size. Whether everything is visible is
// derived from the window itself, never stored.
package pagination

import (
	"sort"
	"sync"

	"github.com/agentstation/eventdeck/pkg/errors"
)

// Config describes how a list's window moves.
type Config struct {
	Initial int `json:"initial" yaml:"initial"`
	Step    int `json:"step" yaml:"step"`
	HardCap int `json:"hard_cap" yaml:"hard_cap"`
}

// Validate checks that the window can move sensibly.
func (c Config) Validate() error {
	switch {
	case c.Initial < 1:
		return errors.NewValidationError("initial", c.Initial, "must be at least 1")
	case c.Step < 1:
		return errors.NewValidationError("step", c.Step, "must be at least 1")
	case c.HardCap < c.Initial:
		return errors.NewValidationError("hard_cap", c.HardCap, "must not be below initial")
	}
	return nil
}

// Window is the state of one list under one filter.
type Window struct {
	Initial int `json:"initial" yaml:"initial"`
	Current int `json:"current" yaml:"current"`
	Step    int `json:"step" yaml:"step"`
	HardCap int `json:"hard_cap" yaml:"hard_cap"`
}

func newWindow(c Config) Window {
	return Window{Initial: c.Initial, Current: c.Initial, Step: c.Step, HardCap: c.HardCap}
}

// All reports whether the window reached its hard cap.
func (w Window) All() bool {
	return w.Current >= w.HardCap
}

func (w Window) expand() Window {
	w.Current = min(w.Current+w.Step, w.HardCap)
	return w
}

func (w Window) collapse() Window {
	w.Current = w.Initial
	return w
}

// Ref names one result set a window currently needs.
type Ref struct {
	List   string
	Filter string
	Limit  int
}

type windowKey struct {
	list   string
	filter string
}

// Controller holds every window of a browsing context. The current filter
// key is read through the function given to New.
type Controller struct {
	mu      sync.RWMutex
	lists   map[string]Config
	windows map[windowKey]Window
	current func() string
}

// New creates a Controller for the given lists.
func New(lists map[string]Config, current func() string) (*Controller, error) {
	c := &Controller{
		lists:   make(map[string]Config, len(lists)),
		windows: make(map[windowKey]Window),
		current: current,
	}
	if c.current == nil {
		c.current = func() string { return "" }
	}
	for name, cfg := range lists {
		if err := c.Register(name, cfg); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Register adds or replaces a list. Existing windows of the list keep their
// old shape until collapsed or reset.
func (c *Controller) Register(list string, cfg Config) error {
	if list == "" {
		return errors.NewValidationError("list", list, "name must not be empty")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists[list] = cfg
	return nil
}

// Lists returns the registered list names, sorted.
func (c *Controller) Lists() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.lists))
	for name := range c.lists {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Show returns the current limit of list under the current filter, or 0 for
// an unknown list.
func (c *Controller) Show(list string) int {
	w, err := c.Window(list, c.current())
	if err != nil {
		return 0
	}
	return w.Current
}

// Expand grows list's window by one step, stopping at the hard cap.
func (c *Controller) Expand(list string) int {
	return c.update(list, c.current(), Window.expand)
}

// Collapse returns list's window to its initial size.
func (c *Controller) Collapse(list string) int {
	return c.update(list, c.current(), Window.collapse)
}

// All reports whether every item of list is visible under the current filter.
func (c *Controller) All(list string) bool {
	w, err := c.Window(list, c.current())
	return err == nil && w.All()
}

// Window returns the window of list under filter, creating it if needed.
func (c *Controller) Window(list, filter string) (Window, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.windowLocked(list, filter)
}

func (c *Controller) windowLocked(list, filter string) (Window, error) {
	key := windowKey{list: list, filter: filter}
	if w, ok := c.windows[key]; ok {
		return w, nil
	}
	cfg, ok := c.lists[list]
	if !ok {
		return Window{}, errors.NewNotFoundError("list", list)
	}
	w := newWindow(cfg)
	c.windows[key] = w
	return w, nil
}

func (c *Controller) update(list, filter string, fn func(Window) Window) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, err := c.windowLocked(list, filter)
	if err != nil {
		return 0
	}
	w = fn(w)
	c.windows[windowKey{list: list, filter: filter}] = w
	return w.Current
}

// Keys reports the result set every live window needs, ordered by list,
// filter and limit.
func (c *Controller) Keys() []Ref {
	c.mu.RLock()
	defer c.mu.RUnlock()
	refs := make([]Ref, 0, len(c.windows))
	for k, w := range c.windows {
		refs = append(refs, Ref{List: k.list, Filter: k.filter, Limit: w.Current})
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].List != refs[j].List {
			return refs[i].List < refs[j].List
		}
		if refs[i].Filter != refs[j].Filter {
			return refs[i].Filter < refs[j].Filter
		}
		return refs[i].Limit < refs[j].Limit
	})
	return refs
}

// Reset drops every window of filter.
func (c *Controller) Reset(filter string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.windows {
		if k.filter == filter {
			delete(c.windows, k)
		}
	}
}
