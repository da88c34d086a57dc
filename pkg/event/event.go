// Package event provides an in-process event bus.
//
// Two styles of consumer are supported on the same topics:
//
//   - Listen/Fire: synchronous handlers, used for side effects such as
//     metrics and audit logging.
//   - Subscribe/Publish: channel subscriptions that always hold the most
//     recent payload. A slow subscriber skips stale payloads instead of
//     blocking the publisher, which is what live views of a store want.
package event

import (
	"context"
	"sync"
)

// Handler is a function that receives an event payload.
type Handler func(payload interface{})

// Bus dispatches payloads by topic name. The zero value is not usable;
// create one with New.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	subs     map[string]map[*Subscription]struct{}
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{
		handlers: map[string][]Handler{},
		subs:     map[string]map[*Subscription]struct{}{},
	}
}

// Listen registers a handler for the given topic.
func (b *Bus) Listen(topic string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handler)
}

// Fire dispatches an event synchronously to all registered listeners.
func (b *Bus) Fire(topic string, payload interface{}) {
	b.mu.RLock()
	hs := make([]Handler, len(b.handlers[topic]))
	copy(hs, b.handlers[topic])
	b.mu.RUnlock()

	for _, h := range hs {
		h(payload)
	}
}

// Subscription receives payloads published on one topic.
type Subscription struct {
	bus   *Bus
	topic string
	ch    chan interface{}
	once  sync.Once
}

// C returns the delivery channel. It is closed by Unsubscribe.
func (s *Subscription) C() <-chan interface{} { return s.ch }

// Unsubscribe detaches the subscription and closes its channel.
// It is safe to call multiple times.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs[s.topic], s)
		if len(s.bus.subs[s.topic]) == 0 {
			delete(s.bus.subs, s.topic)
		}
		close(s.ch)
		s.bus.mu.Unlock()
	})
}

// Subscribe attaches a new subscription to topic.
func (b *Bus) Subscribe(topic string) *Subscription {
	s := &Subscription{bus: b, topic: topic, ch: make(chan interface{}, 1)}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[topic] == nil {
		b.subs[topic] = map[*Subscription]struct{}{}
	}
	b.subs[topic][s] = struct{}{}
	return s
}

// Publish delivers payload to every subscriber of topic without blocking.
// A subscriber that has not consumed the previous payload has it replaced.
func (b *Bus) Publish(topic string, payload interface{}) {
	// Held for the whole delivery so Unsubscribe cannot close a channel
	// we are about to send on.
	b.mu.RLock()
	defer b.mu.RUnlock()

	for s := range b.subs[topic] {
		for {
			select {
			case s.ch <- payload:
			default:
				select {
				case <-s.ch:
				default:
				}
				continue
			}
			break
		}
	}
}

// Subscribers reports how many subscriptions topic currently has.
func (b *Bus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

// Flush removes all listeners and closes all subscriptions, which ends every
// Stream reading from this bus.
func (b *Bus) Flush() {
	b.mu.Lock()
	subs := b.subs
	b.handlers = map[string][]Handler{}
	b.subs = map[string]map[*Subscription]struct{}{}
	b.mu.Unlock()

	for _, set := range subs {
		for s := range set {
			s.once.Do(func() { close(s.ch) })
		}
	}
}

// Stream forwards a subscription to a typed channel, starting with initial.
// The returned channel always carries the newest value not yet received and
// is closed when ctx is done; the subscription is released at that point.
// Values are shared between subscribers and must be treated as read-only.
func Stream[T any](ctx context.Context, sub *Subscription, initial T) <-chan T {
	out := make(chan T)

	go func() {
		defer close(out)
		defer sub.Unsubscribe()

		pending, has := initial, true
		for {
			var send chan<- T
			if has {
				send = out
			}

			select {
			case <-ctx.Done():
				return
			case v, ok := <-sub.C():
				if !ok {
					return
				}
				if typed, ok := v.(T); ok {
					pending, has = typed, true
				}
			case send <- pending:
				has = false
			}
		}
	}()

	return out
}
