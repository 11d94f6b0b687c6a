package bus

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// DefaultChannelBuffer is the buffer size for subscriber channels.
const DefaultChannelBuffer = 100

// SubscriptionID identifies one subscriber.
type SubscriptionID string

type subscription struct {
	id SubscriptionID
	ch chan Event
}

// AnalyticsBus distributes cognitive events to subscribers. A slow or stalled
// subscriber never blocks publishers or other subscribers; events are dropped
// for that subscriber instead. The most recent published event is retained so
// late joiners can be primed with the current state.
type AnalyticsBus struct {
	mu         sync.RWMutex
	subs       map[SubscriptionID]*subscription
	subCounter uint64

	latestMu sync.RWMutex
	latest   *Event

	closed atomic.Bool
}

// NewAnalyticsBus creates an empty bus.
func NewAnalyticsBus() *AnalyticsBus {
	return &AnalyticsBus{
		subs: make(map[SubscriptionID]*subscription),
	}
}

// Subscribe registers a new subscriber and returns its ID and receive channel.
// The channel is closed on Unsubscribe or Close.
func (b *AnalyticsBus) Subscribe() (SubscriptionID, <-chan Event) {
	if b.closed.Load() {
		ch := make(chan Event)
		close(ch)
		return "", ch
	}

	n := atomic.AddUint64(&b.subCounter, 1)
	sub := &subscription{
		id: SubscriptionID(fmt.Sprintf("sub_%d", n)),
		ch: make(chan Event, DefaultChannelBuffer),
	}

	b.mu.Lock()
	b.subs[sub.id] = sub
	b.mu.Unlock()

	return sub.id, sub.ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *AnalyticsBus) Unsubscribe(id SubscriptionID) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
	}
	b.mu.Unlock()

	if ok {
		close(sub.ch)
	}
}

// Publish records the event as the latest snapshot and fans it out. Full
// subscriber channels drop the event for that subscriber only.
func (b *AnalyticsBus) Publish(event Event) {
	if b.closed.Load() {
		return
	}

	b.latestMu.Lock()
	e := event
	b.latest = &e
	b.latestMu.Unlock()

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		select {
		case sub.ch <- event:
		default:
		}
	}
}

// Latest returns the most recently published event, or nil if none yet.
func (b *AnalyticsBus) Latest() *Event {
	b.latestMu.RLock()
	defer b.latestMu.RUnlock()
	if b.latest == nil {
		return nil
	}
	e := *b.latest
	return &e
}

// SubscriberCount returns the number of active subscribers.
func (b *AnalyticsBus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close shuts down the bus and closes all subscriber channels.
func (b *AnalyticsBus) Close() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		close(sub.ch)
	}
	b.subs = make(map[SubscriptionID]*subscription)
}
