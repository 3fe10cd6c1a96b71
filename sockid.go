// SPDX-License-Identifier: GPL-3.0-or-later

package evsock

import (
	"github.com/bassosimone/runtimex"
	"github.com/google/uuid"
)

// NewSockID returns a UUIDv7 identifying a socket or listener.
//
// Every log record emitted by a [*Socket] or [*Listener] carries its ID,
// which allows correlating the events of one connection across the
// interleaved output of many.
//
// This function panics if the system random number generator fails,
// which should only happen under extraordinary circumstances.
func NewSockID() string {
	return runtimex.PanicOnError1(uuid.NewV7()).String()
}
