// Package stream fans change notifications from the ingester out to live readers.
package stream

import (
	"sync"

	"activity-events/domain"
)

type subscriber struct {
	correlationID string
	reference     string
	ch            chan domain.Notification
}

// Broker delivers notifications to the subscribers whose filter they match.
// A subscriber that falls behind misses notifications rather than blocking the others.
type Broker struct {
	buffer int

	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

// NewBroker returns a Broker giving each subscriber a buffer of the given size.
func NewBroker(buffer int) *Broker {
	if buffer < 1 {
		buffer = 1
	}
	return &Broker{buffer: buffer, subs: make(map[*subscriber]struct{})}
}

// Subscribe registers a filter and returns the delivery channel with a function
// that cancels the subscription. Empty filter fields match everything.
func (b *Broker) Subscribe(correlationID, reference string) (<-chan domain.Notification, func()) {
	s := &subscriber{
		correlationID: correlationID,
		reference:     reference,
		ch:            make(chan domain.Notification, b.buffer),
	}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, s)
			b.mu.Unlock()
		})
	}
}

// Publish hands n to every matching subscriber without blocking.
func (b *Broker) Publish(n domain.Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		if !n.Matches(s.correlationID, s.reference) {
			continue
		}
		select {
		case s.ch <- n:
		default:
		}
	}
}

// Subscribers is the number of active subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
