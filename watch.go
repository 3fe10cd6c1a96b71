// SPDX-License-Identifier: GPL-3.0-or-later

package evsock

import (
	"errors"
	"time"

	"github.com/bassosimone/runtimex"
)

// NewWatcher returns a new [*Watcher] polling at [Config.PollInterval].
//
// The cfg argument contains the common configuration for evsock operations.
func NewWatcher[T any](cfg *Config) *Watcher[T] {
	return &Watcher[T]{
		Interval: cfg.PollInterval,
	}
}

// Watcher converts a [Pending] handle into a single-resolution callback.
//
// It polls the handle's non-blocking check at a fixed interval: while the
// poll reports [ErrNotReady] it keeps waiting; the first other outcome,
// value or failure, is delivered to the callback and polling stops at once.
//
// All fields are safe to modify after construction but before first use.
// Fields must not be mutated concurrently with calls to [Watcher.Watch].
type Watcher[T any] struct {
	// Interval is the polling period.
	//
	// Set by [NewWatcher] from [Config.PollInterval].
	Interval time.Duration
}

// Watch starts polling p and returns immediately.
//
// The resolve callback is invoked exactly once, from the polling goroutine,
// with either the operation's success value or its failure cause. The
// ticker driving the poll is stopped as soon as the handle resolves, so a
// resolved watch leaks no timers.
//
// There is no cancellation: a handle that never resolves is polled forever.
func (w *Watcher[T]) Watch(p Pending[T], resolve func(value T, err error)) {
	runtimex.Assert(p != nil)
	runtimex.Assert(resolve != nil)
	go func() {
		ticker := time.NewTicker(w.Interval)
		defer ticker.Stop()
		for range ticker.C {
			value, err := p.TryGet()
			if errors.Is(err, ErrNotReady) {
				continue
			}
			resolve(value, err)
			return
		}
	}()
}
