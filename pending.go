// SPDX-License-Identifier: GPL-3.0-or-later

package evsock

import (
	"errors"
	"time"
)

// ErrNotReady indicates that a [Pending] operation has not resolved yet.
//
// [Pending.TryGet] returns it while the operation is still in flight, and
// [Pending.Wait] returns it when the timeout expires first. It is the
// timeout-class signal: a [*Watcher] treats it as "keep polling" rather
// than as a failure.
var ErrNotReady = errors.New("evsock: pending operation not ready")

// Pending is the handle of one in-flight asynchronous I/O operation.
//
// A Pending resolves exactly once, either with a value or with an error,
// and then latches: every later poll observes the same outcome. Handles
// are not reused; each issued operation produces a fresh one.
//
// Use [Begin] to obtain the default implementation. Custom [StreamChannel]
// and [ListenChannel] implementations may provide their own.
type Pending[T any] interface {
	// TryGet polls for completion without blocking. While the operation
	// is in flight it returns the zero value and [ErrNotReady].
	TryGet() (T, error)

	// Wait blocks until the operation resolves or the timeout expires,
	// whichever comes first. On expiry it returns the zero value
	// and [ErrNotReady].
	Wait(timeout time.Duration) (T, error)
}

// Begin issues fn on its own goroutine and returns the [Pending] handle
// observing its completion.
//
// The goroutine runs fn to completion regardless of whether anyone polls
// the handle: there is no cancellation path.
func Begin[T any](fn func() (T, error)) Pending[T] {
	op := &pendingOp[T]{
		done:  make(chan struct{}),
		err:   nil,
		value: *new(T),
	}
	go op.run(fn)
	return op
}

// pendingOp is the default [Pending] implementation created by [Begin].
type pendingOp[T any] struct {
	// done is closed after value and err have been latched.
	done chan struct{}

	// err is the operation's failure cause, if any.
	err error

	// value is the operation's success value.
	value T
}

func (op *pendingOp[T]) run(fn func() (T, error)) {
	op.value, op.err = fn()
	close(op.done)
}

// TryGet implements [Pending].
func (op *pendingOp[T]) TryGet() (T, error) {
	select {
	case <-op.done:
		return op.value, op.err
	default:
		return *new(T), ErrNotReady
	}
}

// Wait implements [Pending].
func (op *pendingOp[T]) Wait(timeout time.Duration) (T, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-op.done:
		return op.value, op.err
	case <-timer.C:
		return *new(T), ErrNotReady
	}
}
