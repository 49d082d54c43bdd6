package service

import "sync"

// Event is an orchestrator event tagged with its session.
type Event struct {
	Session string
	Kind    string // "selection", "zones", "loading", "layers", "modals", "tour", "closed"
	Payload any
}

type subscriber struct {
	session string
}

// EventBus is a fan-out pub/sub for session events. Publish never blocks.
type EventBus struct {
	mu   sync.RWMutex
	subs map[chan Event]subscriber
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event]subscriber)}
}

// Publish sends an event to every matching subscriber (non-blocking).
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch, sub := range b.subs {
		if sub.session != "" && sub.session != e.Session {
			continue
		}
		select {
		case ch <- e:
		default:
			// subscriber too slow, skip
		}
	}
}

// Subscribe returns a buffered channel receiving the events of one session,
// or of every session when session is empty.
func (b *EventBus) Subscribe(session string) chan Event {
	ch := make(chan Event, 64)
	b.mu.Lock()
	b.subs[ch] = subscriber{session: session}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	_, ok := b.subs[ch]
	delete(b.subs, ch)
	b.mu.Unlock()
	if ok {
		close(ch)
	}
}

// Len returns the number of subscribers.
func (b *EventBus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
