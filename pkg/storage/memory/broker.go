package memory

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/eventdeck/pkg/constants"
	"github.com/agentstation/eventdeck/pkg/storage"
)

// subscriber delivers changes to one watcher in order on its own goroutine.
type subscriber struct {
	fn    func(storage.Change)
	queue chan storage.Change
	done  chan struct{}
	once  sync.Once
}

func newSubscriber(fn func(storage.Change)) *subscriber {
	s := &subscriber{
		fn:    fn,
		queue: make(chan storage.Change, constants.ChannelBufferSize),
		done:  make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *subscriber) loop() {
	for {
		select {
		case <-s.done:
			return
		case c := <-s.queue:
			s.fn(c)
		}
	}
}

// send queues a change, reporting false when the queue is full.
func (s *subscriber) send(c storage.Change) bool {
	select {
	case <-s.done:
		return true
	case s.queue <- c:
		return true
	default:
		return false
	}
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.done) })
}

// broker fans changes out to every watcher of a Backend.
type broker struct {
	subscribers []*subscriber
	changes     chan storage.Change
	register    chan *subscriber
	unregister  chan *subscriber
	done        chan struct{}
	mu          sync.RWMutex
	logger      *zerolog.Logger
}

func newBroker(logger *zerolog.Logger) *broker {
	return &broker{
		subscribers: make([]*subscriber, 0),
		changes:     make(chan storage.Change, constants.ChannelBufferSize),
		register:    make(chan *subscriber),
		unregister:  make(chan *subscriber),
		done:        make(chan struct{}),
		logger:      logger,
	}
}

// run is the broker's event loop. It returns when ctx is cancelled.
func (b *broker) run(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			for _, sub := range b.subscribers {
				sub.close()
			}
			b.subscribers = nil
			b.mu.Unlock()
			b.logger.Debug().Msg("Change broker shut down")
			return

		case sub := <-b.register:
			b.mu.Lock()
			b.subscribers = append(b.subscribers, sub)
			count := len(b.subscribers)
			b.mu.Unlock()
			b.logger.Debug().Int("total_subscribers", count).Msg("Watcher registered")

		case sub := <-b.unregister:
			b.mu.Lock()
			for i, s := range b.subscribers {
				if s == sub {
					b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
					break
				}
			}
			count := len(b.subscribers)
			b.mu.Unlock()
			sub.close()
			b.logger.Debug().Int("total_subscribers", count).Msg("Watcher unregistered")

		case change := <-b.changes:
			b.mu.RLock()
			subs := make([]*subscriber, len(b.subscribers))
			copy(subs, b.subscribers)
			b.mu.RUnlock()

			for _, sub := range subs {
				if !sub.send(change) {
					b.logger.Warn().
						Str("key", change.Key).
						Msg("Watcher queue full, change dropped")
				}
			}
		}
	}
}

// publish queues a change for fan-out. It blocks only while the broker is
// draining a full queue, so no change is lost.
func (b *broker) publish(c storage.Change) {
	select {
	case b.changes <- c:
	case <-b.done:
	}
}

// subscribe registers sub, returning false if the broker has stopped.
func (b *broker) subscribe(sub *subscriber) bool {
	select {
	case b.register <- sub:
		return true
	case <-b.done:
		return false
	}
}

func (b *broker) unsubscribe(sub *subscriber) {
	select {
	case b.unregister <- sub:
	case <-b.done:
		sub.close()
	}
}

func (b *broker) count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
