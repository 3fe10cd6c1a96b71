// SPDX-License-Identifier: GPL-3.0-or-later

package evsock

// Handler observes one named event.
//
// The args carry the event payload: one [*Socket] for [EventConnection],
// one string for [EventData], one error for [EventError], and nothing for
// [EventListening], [EventEnd], and [EventDrain].
type Handler func(args ...any)

// Events emitted by a [*Listener].
const (
	// EventListening fires once the listener is bound and accepting.
	EventListening = "listening"

	// EventConnection carries each newly accepted [*Socket].
	EventConnection = "connection"
)

// Events emitted by a [*Socket].
const (
	// EventData carries one decoded line of text, terminator stripped.
	EventData = "data"

	// EventEnd fires when the peer closes the stream.
	EventEnd = "end"

	// EventDrain fires when a write completes.
	EventDrain = "drain"
)

// EventError carries the failure cause. Emitted by both [*Listener] and
// [*Socket]; subscribing to it is a consumer responsibility.
const EventError = "error"
