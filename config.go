// SPDX-License-Identifier: GPL-3.0-or-later

package evsock

import (
	"net"
	"time"
)

// Config holds common configuration for evsock operations.
//
// Pass this to constructor functions to pre-wire dependencies.
// All fields have sensible defaults set by [NewConfig].
type Config struct {
	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewConfig] to [DefaultErrClassifier].
	ErrClassifier ErrClassifier

	// ListenConfig is used by [*Listener.Bind].
	//
	// Set by [NewConfig] to [*net.ListenConfig].
	ListenConfig ListenConfig

	// PollInterval is how often a [*Watcher] polls a pending operation.
	//
	// Shorter intervals reduce completion latency but burn CPU on idle
	// connections; longer intervals add up to the interval itself to the
	// latency of every I/O completion.
	//
	// Set by [NewConfig] to 50 milliseconds.
	PollInterval time.Duration

	// ReadBufferSize is the size in bytes of the fixed read buffer that
	// each [*Socket] allocates once and reuses for every read.
	//
	// Set by [NewConfig] to 8192.
	ReadBufferSize int

	// TimeNow returns the current time.
	//
	// Set by [NewConfig] to [time.Now].
	TimeNow func() time.Time
}

// NewConfig creates a [*Config] with sensible defaults.
func NewConfig() *Config {
	return &Config{
		ErrClassifier:  DefaultErrClassifier,
		ListenConfig:   &net.ListenConfig{},
		PollInterval:   50 * time.Millisecond,
		ReadBufferSize: 8192,
		TimeNow:        time.Now,
	}
}
