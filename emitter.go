// SPDX-License-Identifier: GPL-3.0-or-later

package evsock

import "sync"

// NewEmitter returns a new [*Emitter] with no registered handlers.
func NewEmitter() *Emitter {
	return &Emitter{
		handlers: map[string][]*subscription{},
		mu:       sync.Mutex{},
	}
}

// Emitter is a named-event observer registry.
//
// It is the event channel shared by [*Listener] and [*Socket]: consumers
// register handlers with [Emitter.On] or [Emitter.Once] and producers
// deliver payloads with [Emitter.Emit].
//
// All methods are safe for concurrent use.
type Emitter struct {
	// handlers maps each event name to its subscriptions in
	// registration order.
	handlers map[string][]*subscription

	// mu protects handlers.
	mu sync.Mutex
}

// subscription is one registered handler.
type subscription struct {
	fn   Handler
	once bool
}

// On registers fn for every future emission of event.
func (e *Emitter) On(event string, fn Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[event] = append(e.handlers[event], &subscription{fn: fn, once: false})
}

// Once registers fn for the next emission of event only. The handler is
// deregistered before it is invoked.
func (e *Emitter) Once(event string, fn Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[event] = append(e.handlers[event], &subscription{fn: fn, once: true})
}

// Emit delivers args to every handler registered for event, synchronously
// and in registration order, on the calling goroutine.
//
// Handlers registered while Emit runs are observed by later emissions only.
func (e *Emitter) Emit(event string, args ...any) {
	e.mu.Lock()
	subs := e.handlers[event]
	remaining := subs[:0:0]
	for _, sub := range subs {
		if !sub.once {
			remaining = append(remaining, sub)
		}
	}
	e.handlers[event] = remaining
	e.mu.Unlock()

	for _, sub := range subs {
		sub.fn(args...)
	}
}

// RemoveAllListeners deregisters every handler for every event.
func (e *Emitter) RemoveAllListeners() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = map[string][]*subscription{}
}

// ListenerCount returns the number of handlers registered for event.
func (e *Emitter) ListenerCount(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handlers[event])
}
