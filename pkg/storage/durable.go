package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentstation/eventdeck/pkg/constants"
	"github.com/agentstation/eventdeck/pkg/errors"
	"github.com/agentstation/eventdeck/pkg/logging"
)

// ErrQuotaExceeded is the cause recorded when a write would exceed the quota.
var ErrQuotaExceeded = errors.New("quota exceeded")

// DurableOption configures a Durable store.
type DurableOption func(*Durable)

// WithLogger sets the logger. Defaults to the "storage" component logger.
func WithLogger(logger *zerolog.Logger) DurableOption {
	return func(d *Durable) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithQuota caps the bytes (keys plus values) this context may hold.
// Zero means unlimited.
func WithQuota(bytes int) DurableOption {
	return func(d *Durable) {
		d.quota = bytes
	}
}

// WithOrigin fixes the context id instead of generating one.
func WithOrigin(origin string) DurableOption {
	return func(d *Durable) {
		if origin != "" {
			d.origin = origin
		}
	}
}

// WithTimeout bounds every backend call. Defaults to constants.DefaultTimeout.
func WithTimeout(timeout time.Duration) DurableOption {
	return func(d *Durable) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

type subscription struct {
	id      uint64
	handler Handler
}

// Durable is the Store of one browsing context over a shared Backend.
type Durable struct {
	backend Backend
	origin  string
	logger  *zerolog.Logger
	quota   int
	timeout time.Duration

	mu       sync.RWMutex
	mirror   *Memory
	degraded bool
	cause    error
	subs     map[string][]subscription
	nextID   uint64
	stop     func()
	closed   bool
}

var _ Store = (*Durable)(nil)

// NewDurable binds a new browsing context to backend. A nil backend yields a
// store that starts out degraded.
func NewDurable(backend Backend, opts ...DurableOption) *Durable {
	d := &Durable{
		backend: backend,
		origin:  uuid.NewString(),
		logger:  logging.Component("storage"),
		timeout: constants.DefaultTimeout,
		mirror:  NewMemory(),
		subs:    make(map[string][]subscription),
	}
	for _, opt := range opts {
		opt(d)
	}

	if backend == nil {
		d.degrade("", errors.New("no backend configured"))
		return d
	}

	stop, err := backend.Watch(context.Background(), d.onChange)
	if err != nil {
		d.logger.Warn().
			Err(err).
			Str("backend", backend.Name()).
			Msg("Cannot watch durable storage, changes from other contexts will not be seen")
	} else {
		d.stop = stop
	}
	return d
}

// Origin returns the id this context writes under.
func (d *Durable) Origin() string {
	return d.origin
}

// Get implements Store.
func (d *Durable) Get(key string) (string, bool) {
	if d.Degraded() {
		return d.mirror.Get(key)
	}

	ctx, cancel := d.context()
	defer cancel()
	value, ok, err := d.backend.Load(ctx, key)
	if err != nil {
		d.degrade(key, err)
		return d.mirror.Get(key)
	}
	d.remember(key, value, ok)
	return value, ok
}

// Set implements Store.
func (d *Durable) Set(key, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.degraded {
		if d.quota > 0 && d.usageWith(key, value) > d.quota {
			d.degradeLocked(key, ErrQuotaExceeded)
		} else {
			ctx, cancel := d.context()
			err := d.backend.Save(ctx, key, value, d.origin)
			cancel()
			if err != nil {
				d.degradeLocked(key, err)
			}
		}
	}
	d.mirror.Set(key, value)
}

// Remove implements Store.
func (d *Durable) Remove(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.degraded {
		ctx, cancel := d.context()
		err := d.backend.Delete(ctx, key, d.origin)
		cancel()
		if err != nil {
			d.degradeLocked(key, err)
		}
	}
	d.mirror.Remove(key)
}

// Subscribe implements Store.
func (d *Durable) Subscribe(key string, handler Handler) func() {
	if handler == nil {
		return func() {}
	}

	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.subs[key] = append(d.subs[key], subscription{id: id, handler: handler})
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			subs := d.subs[key]
			for i, s := range subs {
				if s.id == id {
					d.subs[key] = append(subs[:i:i], subs[i+1:]...)
					break
				}
			}
			if len(d.subs[key]) == 0 {
				delete(d.subs, key)
			}
		})
	}
}

// Degraded implements Store.
func (d *Durable) Degraded() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.degraded
}

// Err returns why the store degraded, or nil.
func (d *Durable) Err() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cause
}

// Close stops watching the backend and drops every subscription. The
// backend itself is left open for other contexts.
func (d *Durable) Close() error {
	d.mu.Lock()
	stop := d.stop
	d.stop = nil
	d.closed = true
	d.subs = make(map[string][]subscription)
	d.mu.Unlock()

	if stop != nil {
		stop()
	}
	return nil
}

// onChange re-reads a key another context changed and hands the fresh value
// to this context's subscribers.
func (d *Durable) onChange(c Change) {
	if c.Origin == d.origin {
		return
	}

	d.mu.RLock()
	if d.degraded || d.closed {
		d.mu.RUnlock()
		return
	}
	subs := make([]subscription, len(d.subs[c.Key]))
	copy(subs, d.subs[c.Key])
	d.mu.RUnlock()

	ctx, cancel := d.context()
	value, ok, err := d.backend.Load(ctx, c.Key)
	cancel()
	if err != nil {
		d.degrade(c.Key, err)
		return
	}
	d.remember(c.Key, value, ok)

	d.logger.Debug().
		Str("key", c.Key).
		Str("origin", c.Origin).
		Int("subscribers", len(subs)).
		Msg("Key changed in another context")

	for _, s := range subs {
		s.handler(value, ok)
	}
}

func (d *Durable) remember(key, value string, ok bool) {
	if ok {
		d.mirror.Set(key, value)
	} else {
		d.mirror.Remove(key)
	}
}

// usageWith returns the bytes held after writing key=value. Caller holds mu.
func (d *Durable) usageWith(key, value string) int {
	total := len(key) + len(value)
	for k, v := range d.mirror.snapshot() {
		if k == key {
			continue
		}
		total += len(k) + len(v)
	}
	return total
}

func (d *Durable) degrade(key string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.degradeLocked(key, err)
}

func (d *Durable) degradeLocked(key string, err error) {
	if d.degraded {
		return
	}
	name := "none"
	if d.backend != nil {
		name = d.backend.Name()
	}
	d.degraded = true
	d.cause = errors.WrapStorage(name, key, err)
	d.logger.Warn().
		Err(err).
		Str("backend", name).
		Str("key", key).
		Msg("Durable storage unavailable, continuing in memory only")
}

func (d *Durable) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d.timeout)
}
