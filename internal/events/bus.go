// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package events implements the in-process publish/subscribe bus shared by
// the client subsystems.
//
// Core concepts:
//   - Bus: topic-keyed registry of handlers. Publishing is synchronous and
//     handlers run in subscription order.
//   - Subscription: cancellation handle returned by Subscribe. Cancelling is
//     idempotent and safe during a concurrent publish.
//
// A panicking handler is recovered and logged; it never prevents the
// remaining handlers of the same topic from running.
package events

import (
	"sync"
	"time"

	"github.com/MKhiriev/go-chat-sync/internal/logger"
)

// Event is what a handler receives on publish.
type Event struct {
	// Topic the event was published under.
	Topic string

	// Payload is the topic-specific body. May be nil.
	Payload any

	// At is the publish instant.
	At time.Time
}

// Handler consumes one published event.
type Handler func(Event)

// Bus routes published events to subscribed handlers.
// The zero value is not usable; construct with NewBus.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	topics map[string][]*Subscription
	closed bool
	log    *logger.Logger
}

// Subscription is the cancellation handle of one Subscribe call.
type Subscription struct {
	bus   *Bus
	topic string
	id    uint64
	fn    Handler
}

// NewBus returns an empty bus. log must not be nil; pass logger.Nop()
// to silence panic reports.
func NewBus(log *logger.Logger) *Bus {
	return &Bus{
		topics: make(map[string][]*Subscription),
		log:    log,
	}
}

// Subscribe registers fn for topic and returns its cancellation handle.
// Handlers registered earlier run earlier on publish.
func (b *Bus) Subscribe(topic string, fn Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{bus: b, topic: topic, id: b.nextID, fn: fn}
	b.nextID++

	if b.closed {
		// Inert handle: cancelling it is still legal.
		return sub
	}

	b.topics[topic] = append(b.topics[topic], sub)

	return sub
}

// Publish delivers payload to every handler of topic, synchronously and in
// subscription order. A handler panic is recovered and logged.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.RLock()
	subs := b.topics[topic]
	snapshot := make([]*Subscription, len(subs))
	copy(snapshot, subs)
	b.mu.RUnlock()

	ev := Event{Topic: topic, Payload: payload, At: time.Now()}
	for _, sub := range snapshot {
		b.deliver(sub, ev)
	}
}

// deliver invokes one handler, containing any panic it raises.
func (b *Bus) deliver(sub *Subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().
				Str("topic", ev.Topic).
				Any("panic", r).
				Msg("event handler panicked")
		}
	}()

	sub.fn(ev)
}

// SubscriberCount returns the number of live handlers for topic.
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.topics[topic])
}

// Close removes every subscription and makes the bus inert. Publish on a
// closed bus is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.topics = make(map[string][]*Subscription)
}

// Cancel removes the subscription from its bus. It is idempotent and safe
// to call while a publish is in flight; the current delivery pass may still
// invoke the handler one last time.
func (s *Subscription) Cancel() {
	if s == nil || s.bus == nil {
		return
	}

	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.topics[s.topic]
	for i, sub := range subs {
		if sub.id == s.id {
			b.topics[s.topic] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(b.topics[s.topic]) == 0 {
		delete(b.topics, s.topic)
	}
}
