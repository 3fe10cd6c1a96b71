// SPDX-License-Identifier: GPL-3.0-or-later

package evsock

import (
	"net"

	"github.com/bassosimone/safeconn"
)

// StreamChannel is the completion-based byte stream underlying a [*Socket].
//
// Each I/O method issues one operation and returns its [Pending] handle
// without blocking. The channel is exclusively owned by the wrapping
// [*Socket] and must not be shared.
type StreamChannel interface {
	// Read issues a read into buf and returns the handle resolving with
	// the number of bytes read. End-of-stream resolves with [io.EOF].
	// The buf must not be touched until the handle resolves.
	Read(buf []byte) Pending[int]

	// Write issues a write of data and returns the handle resolving with
	// the number of bytes written.
	Write(data []byte) Pending[int]

	// Close closes the channel.
	Close() error

	// LocalAddr returns the local address for logging purposes.
	LocalAddr() string

	// RemoteAddr returns the remote address for logging purposes.
	RemoteAddr() string
}

// ListenChannel is the completion-based acceptor underlying a [*Listener].
type ListenChannel interface {
	// Accept issues one accept and returns the handle resolving with the
	// accepted [StreamChannel].
	Accept() Pending[StreamChannel]

	// Close closes the channel.
	Close() error

	// Addr returns the bound address.
	Addr() net.Addr
}

// NewConnChannel wraps an established [net.Conn] into a [StreamChannel].
//
// Each operation is issued via [Begin]. The channel owns the conn: closing
// the channel closes the conn.
func NewConnChannel(conn net.Conn) StreamChannel {
	return &connChannel{
		conn:  conn,
		laddr: safeconn.LocalAddr(conn),
		raddr: safeconn.RemoteAddr(conn),
	}
}

// connChannel is the [net.Conn]-backed [StreamChannel].
type connChannel struct {
	// conn is the owned connection.
	conn net.Conn

	// laddr is the local address captured at construction.
	laddr string

	// raddr is the remote address captured at construction.
	raddr string
}

var _ StreamChannel = &connChannel{}

// Read implements [StreamChannel].
func (c *connChannel) Read(buf []byte) Pending[int] {
	return Begin(func() (int, error) {
		return c.conn.Read(buf)
	})
}

// Write implements [StreamChannel].
func (c *connChannel) Write(data []byte) Pending[int] {
	return Begin(func() (int, error) {
		return c.conn.Write(data)
	})
}

// Close implements [StreamChannel].
func (c *connChannel) Close() error {
	return c.conn.Close()
}

// LocalAddr implements [StreamChannel].
func (c *connChannel) LocalAddr() string {
	return c.laddr
}

// RemoteAddr implements [StreamChannel].
func (c *connChannel) RemoteAddr() string {
	return c.raddr
}

// NewListenChannel wraps a bound [net.Listener] into a [ListenChannel].
//
// Each accept is issued via [Begin] and resolves with a [StreamChannel]
// produced by [NewConnChannel].
func NewListenChannel(ln net.Listener) ListenChannel {
	return &listenChannel{ln: ln}
}

// listenChannel is the [net.Listener]-backed [ListenChannel].
type listenChannel struct {
	// ln is the owned listener.
	ln net.Listener
}

var _ ListenChannel = &listenChannel{}

// Accept implements [ListenChannel].
func (c *listenChannel) Accept() Pending[StreamChannel] {
	return Begin(func() (StreamChannel, error) {
		conn, err := c.ln.Accept()
		if err != nil {
			return nil, err
		}
		return NewConnChannel(conn), nil
	})
}

// Close implements [ListenChannel].
func (c *listenChannel) Close() error {
	return c.ln.Close()
}

// Addr implements [ListenChannel].
func (c *listenChannel) Addr() net.Addr {
	return c.ln.Addr()
}
