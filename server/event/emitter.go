// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"log/slog"
	"sync"
)

// DefaultSubscriberBuffer is the per-subscriber channel capacity used when
// none is configured.
const DefaultSubscriberBuffer = 256

// Emitter broadcasts task-update events. Emit never blocks: delivery to a
// slow or absent subscriber is dropped rather than stalling the producer.
type Emitter interface {
	Emit(event Event)
}

// subscriber guards its channel so a concurrent Emit can never send on a
// channel that cancel already closed.
type subscriber struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
}

func (s *subscriber) send(event Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- event:
		return true
	default:
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Broadcaster is the default Emitter: a subscriber registry fanning every
// event out to each subscriber's buffered channel. Emitting with zero
// subscribers is a no-op, and a subscriber that joins after an event was
// emitted never sees it.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[int]*subscriber
	nextID int
	buffer int
	logger *slog.Logger
}

var _ Emitter = (*Broadcaster)(nil)

// NewBroadcaster creates a Broadcaster with the given per-subscriber buffer
// size; sizes below one fall back to [DefaultSubscriberBuffer].
func NewBroadcaster(buffer int, logger *slog.Logger) *Broadcaster {
	if buffer < 1 {
		buffer = DefaultSubscriberBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subs:   make(map[int]*subscriber),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe registers a new subscriber and returns its event channel plus a
// cancel function. Cancel is idempotent and closes the channel.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, b.buffer)}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		sub.close()
	}
	return sub.ch, cancel
}

// Emit delivers the event to every current subscriber without blocking. The
// subscriber snapshot is taken under the registry lock but delivery happens
// outside it, so a full channel cannot stall store mutations or other
// emitters.
func (b *Broadcaster) Emit(event Event) {
	b.mu.RLock()
	targets := make([]*subscriber, 0, len(b.subs))
	for _, sub := range b.subs {
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		if !sub.send(event) {
			b.logger.Debug("dropping task update for slow or canceled subscriber",
				slog.String("event_type", event.EventType()),
				slog.String("task_id", event.TaskID()))
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
