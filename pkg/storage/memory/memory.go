// Package memory provides a storage.Backend shared by browsing contexts
// within one process. Changes fan out to watchers through a broker goroutine.
package memory

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/eventdeck/pkg/errors"
	"github.com/agentstation/eventdeck/pkg/logging"
	"github.com/agentstation/eventdeck/pkg/storage"
)

// Backend is an in-process storage.Backend.
type Backend struct {
	mu     sync.RWMutex
	values map[string]string
	broker *broker
	cancel context.CancelFunc
	closed bool
}

var _ storage.Backend = (*Backend)(nil)

// Option configures a Backend.
type Option func(*options)

type options struct {
	logger *zerolog.Logger
	seed   map[string]string
}

// WithLogger sets the logger used by the change broker.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithValues pre-populates the backend.
func WithValues(values map[string]string) Option {
	return func(o *options) {
		o.seed = values
	}
}

// New creates a Backend and starts its broker.
func New(opts ...Option) *Backend {
	o := &options{logger: logging.Component("storage.memory")}
	for _, opt := range opts {
		opt(o)
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Backend{
		values: make(map[string]string, len(o.seed)),
		broker: newBroker(o.logger),
		cancel: cancel,
	}
	for k, v := range o.seed {
		b.values[k] = v
	}
	go b.broker.run(ctx)
	return b
}

// Name implements storage.Backend.
func (b *Backend) Name() string {
	return "memory"
}

// Load implements storage.Backend.
func (b *Backend) Load(_ context.Context, key string) (string, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return "", false, errors.ErrClosed
	}
	v, ok := b.values[key]
	return v, ok, nil
}

// Save implements storage.Backend.
func (b *Backend) Save(_ context.Context, key, value, origin string) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return errors.ErrClosed
	}
	b.values[key] = value
	b.mu.Unlock()

	b.broker.publish(storage.Change{Key: key, Origin: origin})
	return nil
}

// Delete implements storage.Backend.
func (b *Backend) Delete(_ context.Context, key, origin string) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return errors.ErrClosed
	}
	_, existed := b.values[key]
	delete(b.values, key)
	b.mu.Unlock()

	if existed {
		b.broker.publish(storage.Change{Key: key, Origin: origin})
	}
	return nil
}

// Watch implements storage.Backend.
func (b *Backend) Watch(ctx context.Context, fn func(storage.Change)) (func(), error) {
	sub := newSubscriber(fn)
	if !b.broker.subscribe(sub) {
		sub.close()
		return nil, errors.ErrClosed
	}

	stopped := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(stopped)
			b.broker.unsubscribe(sub)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			stop()
		case <-stopped:
		}
	}()
	return stop, nil
}

// Watchers returns the number of active watchers.
func (b *Backend) Watchers() int {
	return b.broker.count()
}

// Close stops the broker. Further calls fail with errors.ErrClosed.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	b.cancel()
	return nil
}
