// SPDX-License-Identifier: GPL-3.0-or-later

// Package evsock provides an event-driven TCP socket abstraction built on a
// completion-based I/O primitive.
//
// # Core Abstraction
//
// Underlying I/O is modeled as channels whose operations return pending-result
// handles rather than blocking or invoking callbacks:
//
//	type Pending[T any] interface {
//		TryGet() (T, error)
//		Wait(timeout time.Duration) (T, error)
//	}
//
// A [*Watcher] bridges a handle into a single-resolution callback by polling
// [Pending.TryGet] at a fixed interval. Everything above the channel layer is
// push-based: a [*Listener] announces accepted connections and a [*Socket]
// announces decoded messages through named events.
//
// # Components
//
// Channel layer:
//   - [ListenChannel]: accepts connections, one pending handle at a time
//   - [StreamChannel]: reads and writes bytes via pending handles
//   - [NewConnChannel] and [NewListenChannel]: default implementations backed
//     by [net.Conn] and [net.Listener]
//   - [Begin]: issues an operation and returns its [Pending] handle
//
// Event layer:
//   - [*Emitter]: named-event observer registry (On, Once, Emit,
//     RemoveAllListeners)
//   - [*Listener]: binds a TCP address, perpetually re-arms acceptance, and
//     emits listening, connection, and error events
//   - [*Socket]: wraps one accepted channel, decodes newline-delimited UTF-8
//     messages from a fixed-size read buffer, and emits data, end, drain, and
//     error events
//
// # Event Contract
//
// A [*Listener] emits:
//   - listening: bound and accepting
//   - connection: carries one [*Socket]
//   - error: carries the failure cause
//
// A [*Socket] emits:
//   - data: carries one decoded line of text, terminator stripped
//   - end: stream closed by the peer
//   - drain: a write completed
//   - error: carries the failure cause
//
// All asynchronous failures surface as error events rather than returned
// errors. Consumers that do not subscribe to error will not observe failures:
// the cause is logged and then dropped. Subscribing to error is a consumer
// responsibility, not an option.
//
// # Lifecycle and Failure Semantics
//
// Exactly one accept handle is outstanding per bound listener and exactly one
// read handle is outstanding per open socket. Completions re-arm the next
// operation synchronously, so per-socket receive order matches read order.
// Writes are independent: concurrent writes are in flight at the same time
// and their completion order is unspecified.
//
// No failure is retried. An accept failure permanently stops acceptance, and
// a read failure permanently stops that socket's receive loop. When the peer
// closes the stream the socket emits end, removes all listeners, and closes
// its channel.
//
// # Limitations
//
// There is no cancellation path: once issued, a pending operation is polled
// until it resolves, and a handle that never resolves is polled forever.
// Consequently [*Listener.Close] is unsupported, because closing the
// listening channel would make the in-flight accept fail asynchronously and
// surface a spurious error event. Outbound (client-initiated) connections,
// TLS, and binary framing are out of scope.
//
// # Observability
//
// Operations accept an [SLogger] for structured logging, with [*slog.Logger]
// satisfying the interface and [DefaultSLogger] discarding all output. Log
// records carry an error class label produced by the configured
// [ErrClassifier] and the socket ID produced by [NewSockID].
package evsock
