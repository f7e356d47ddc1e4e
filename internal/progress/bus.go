// Package progress decouples result arrival from list rendering. Search
// results are published on a named topic; the view installs one subscriber
// per populate that turns batches into list updates.
package progress

import (
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/xonecas/projsym/internal/tags"
)

// TopicTags carries tag batches for the current query.
const TopicTags = "tags updated"

// Handler receives a published batch. A nil or empty batch means "no more
// data".
type Handler func(batch tags.Tags)

type subscription struct {
	id int
	fn Handler
}

// Bus is an in-process publish/subscribe channel keyed by topic name.
// Delivery is synchronous, in subscription order, on the publisher's
// goroutine.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]subscription
	nextID   int
	closed   bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]subscription)}
}

// Subscribe registers fn on topic and returns an unsubscribe function.
func (b *Bus) Subscribe(topic string, fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}
	b.nextID++
	id := b.nextID
	b.handlers[topic] = append(b.handlers[topic], subscription{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subs := b.handlers[topic]
		for i, s := range subs {
			if s.id == id {
				b.handlers[topic] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
	}
}

// Clear drops every subscriber of topic.
func (b *Bus) Clear(topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, topic)
}

// Publish delivers batch to the subscribers of topic. Handler panics are
// recovered and logged so one bad subscriber can't take down the search.
func (b *Bus) Publish(topic string, batch tags.Tags) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	subs := make([]subscription, len(b.handlers[topic]))
	copy(subs, b.handlers[topic])
	b.mu.RUnlock()

	log.Debug().Str("topic", topic).Int("size", len(batch)).Int("subscribers", len(subs)).Msg("progress: publish")

	for _, s := range subs {
		deliver(topic, s.fn, batch)
	}
}

func deliver(topic string, fn Handler, batch tags.Tags) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("topic", topic).Interface("panic", r).Bytes("stack", debug.Stack()).Msg("progress: handler panic")
		}
	}()
	fn(batch)
}

// Close drops all subscribers; later publishes are no-ops.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = make(map[string][]subscription)
}
