// Package redis provides a storage.Backend on Redis, letting browsing
// contexts on different hosts share durable state. Values live in plain keys
// under a namespace; changes are announced on a pub/sub channel.
package redis

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/agentstation/eventdeck/pkg/constants"
	"github.com/agentstation/eventdeck/pkg/errors"
	"github.com/agentstation/eventdeck/pkg/logging"
	"github.com/agentstation/eventdeck/pkg/storage"
)

// Backend is a storage.Backend on a Redis server.
type Backend struct {
	client    *redis.Client
	namespace string
	logger    *zerolog.Logger
}

var _ storage.Backend = (*Backend)(nil)

// Option configures a Backend.
type Option func(*Backend)

// WithNamespace sets the key prefix. Defaults to constants.DefaultRedisNamespace.
func WithNamespace(ns string) Option {
	return func(b *Backend) {
		if ns != "" {
			b.namespace = ns
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New wraps an existing client.
func New(client *redis.Client, opts ...Option) *Backend {
	b := &Backend{
		client:    client,
		namespace: constants.DefaultRedisNamespace,
		logger:    logging.Component("storage.redis"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewWithURL connects using a redis:// URL.
func NewWithURL(url string, opts ...Option) (*Backend, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.NewConfigError("redis", "invalid redis url", err)
	}
	return New(redis.NewClient(options), opts...), nil
}

// Name implements storage.Backend.
func (b *Backend) Name() string {
	return "redis"
}

// Ping checks connectivity.
func (b *Backend) Ping(ctx context.Context) error {
	return errors.WrapStorage(b.Name(), "", b.client.Ping(ctx).Err())
}

func (b *Backend) key(k string) string {
	return b.namespace + ":kv:" + k
}

func (b *Backend) channel() string {
	return b.namespace + ":changes"
}

// Load implements storage.Backend.
func (b *Backend) Load(ctx context.Context, key string) (string, bool, error) {
	v, err := b.client.Get(ctx, b.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.WrapStorage(b.Name(), key, err)
	}
	return v, true, nil
}

// Save implements storage.Backend.
func (b *Backend) Save(ctx context.Context, key, value, origin string) error {
	if err := b.client.Set(ctx, b.key(key), value, 0).Err(); err != nil {
		return errors.WrapStorage(b.Name(), key, err)
	}
	b.announce(ctx, key, origin)
	return nil
}

// Delete implements storage.Backend.
func (b *Backend) Delete(ctx context.Context, key, origin string) error {
	n, err := b.client.Del(ctx, b.key(key)).Result()
	if err != nil {
		return errors.WrapStorage(b.Name(), key, err)
	}
	if n > 0 {
		b.announce(ctx, key, origin)
	}
	return nil
}

// announce publishes a change. The value is already stored, so a failed
// publish only delays other contexts until their next read.
func (b *Backend) announce(ctx context.Context, key, origin string) {
	payload, err := json.Marshal(storage.Change{Key: key, Origin: origin})
	if err != nil {
		b.logger.Warn().Err(err).Str("key", key).Msg("Failed to encode change")
		return
	}
	if err := b.client.Publish(ctx, b.channel(), payload).Err(); err != nil {
		b.logger.Warn().Err(err).Str("key", key).Msg("Failed to publish change")
	}
}

// Watch implements storage.Backend. It returns once the subscription is
// confirmed by the server.
func (b *Backend) Watch(ctx context.Context, fn func(storage.Change)) (func(), error) {
	sub := b.client.Subscribe(ctx, b.channel())
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, errors.WrapStorage(b.Name(), "", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	messages := sub.Channel()
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var c storage.Change
				if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
					b.logger.Warn().Err(err).Msg("Ignoring malformed change message")
					continue
				}
				fn(c)
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			_ = sub.Close()
			<-done
		})
	}
	return stop, nil
}

// Close closes the client.
func (b *Backend) Close() error {
	return b.client.Close()
}
