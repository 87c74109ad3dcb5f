// Package events fans node events out to any number of subscribers, such as
// the websocket feed.
package events

import (
	"fmt"
	"sync"
)

// queueSize is the number of events held for a subscriber that has fallen
// behind. Events beyond it are dropped for that subscriber.
const queueSize = 100

// subscriber is a single receiver of events.
type subscriber struct {
	ch      chan string
	dropped int
}

// Events maintains the set of subscribers keyed by a unique id.
type Events struct {
	mu   sync.RWMutex
	subs map[string]*subscriber
}

// New constructs an empty set of subscribers.
func New() *Events {
	return &Events{
		subs: make(map[string]*subscriber),
	}
}

// Acquire returns the channel for the id, creating it on first use.
func (evt *Events) Acquire(id string) chan string {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if sub, exists := evt.subs[id]; exists {
		return sub.ch
	}

	sub := subscriber{ch: make(chan string, queueSize)}
	evt.subs[id] = &sub

	return sub.ch
}

// Release closes and removes the channel for the id.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	sub, exists := evt.subs[id]
	if !exists {
		return fmt.Errorf("subscriber %q does not exist", id)
	}

	delete(evt.subs, id)
	close(sub.ch)

	return nil
}

// Send delivers the event to every subscriber without blocking.
func (evt *Events) Send(s string) {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for _, sub := range evt.subs {
		select {
		case sub.ch <- s:
		default:
			sub.dropped++
		}
	}
}

// Sendf formats the event and sends it. The signature matches the event
// handler used throughout the blockchain packages.
func (evt *Events) Sendf(format string, args ...any) {
	evt.Send(fmt.Sprintf(format, args...))
}

// Dropped returns the number of events the subscriber missed.
func (evt *Events) Dropped(id string) int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	if sub, exists := evt.subs[id]; exists {
		return sub.dropped
	}

	return 0
}

// Len returns the number of subscribers.
func (evt *Events) Len() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.subs)
}

// Shutdown closes and removes every subscriber.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, sub := range evt.subs {
		delete(evt.subs, id)
		close(sub.ch)
	}
}
