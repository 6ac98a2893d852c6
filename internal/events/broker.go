package events

import (
	"context"
	"log/slog"
	"sync"
)

// subscriberBuffer is the per-subscriber queue length. Events for a full
// queue are dropped; live views re-sync from periodic snapshots.
const subscriberBuffer = 16

// Broker is an EventHandler that fans events out to subscribers.
type Broker struct {
	mu     sync.Mutex
	subs   map[chan *TaskEvent]struct{}
	logger *slog.Logger
}

// Ensure Broker implements EventHandler interface
var _ EventHandler = (*Broker)(nil)

// NewBroker creates a Broker with no subscribers.
func NewBroker(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		subs:   make(map[chan *TaskEvent]struct{}),
		logger: logger.With("component", "event_broker"),
	}
}

// Subscribe registers a subscriber. The returned cancel function removes it
// and closes the channel; it is safe to call more than once.
func (b *Broker) Subscribe() (<-chan *TaskEvent, func()) {
	ch := make(chan *TaskEvent, subscriberBuffer)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the current subscriber count.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// HandleEvent delivers event to every subscriber without blocking.
func (b *Broker) HandleEvent(_ context.Context, event *TaskEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.logger.Warn("dropping event for slow subscriber",
				"event_id", event.ID,
				"event_type", event.Type)
		}
	}
	return nil
}
