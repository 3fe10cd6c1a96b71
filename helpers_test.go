// SPDX-License-Identifier: GPL-3.0-or-later

package evsock

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/bassosimone/netstub"
	"github.com/bassosimone/slogstub"
)

// newCapturingLogger returns a logger that captures all log records into the
// returned slice. The caller can inspect the slice after exercising the code
// under test to verify which events were emitted.
func newCapturingLogger() (*slog.Logger, *[]slog.Record) {
	var records []slog.Record
	handler := &slogstub.FuncHandler{
		EnabledFunc: func(ctx context.Context, level slog.Level) bool {
			return true
		},
		HandleFunc: func(ctx context.Context, record slog.Record) error {
			records = append(records, record)
			return nil
		},
	}
	return slog.New(handler), &records
}

// newTestConfig returns a [*Config] with a short poll interval so that
// tests observe completions quickly. The interval still leaves the test
// body time to register handlers before the first poll fires.
func newTestConfig() *Config {
	cfg := NewConfig()
	cfg.PollInterval = 5 * time.Millisecond
	return cfg
}

// readyPending is a [Pending] that always reports the same resolution,
// including across repeated polls. Used to verify that watchers resolve
// exactly once even against a handle that reports ready more than once.
type readyPending[T any] struct {
	value T
	err   error
}

var _ Pending[int] = readyPending[int]{}

func (p readyPending[T]) TryGet() (T, error) {
	return p.value, p.err
}

func (p readyPending[T]) Wait(timeout time.Duration) (T, error) {
	return p.value, p.err
}

// neverPending is a [Pending] that never resolves.
type neverPending[T any] struct{}

var _ Pending[int] = neverPending[int]{}

func (p neverPending[T]) TryGet() (T, error) {
	return *new(T), ErrNotReady
}

func (p neverPending[T]) Wait(timeout time.Duration) (T, error) {
	time.Sleep(timeout)
	return *new(T), ErrNotReady
}

// scriptedRead is one read completion served by [*scriptedChannel].
type scriptedRead struct {
	// data is copied into the read buffer.
	data []byte

	// err is the completion's failure cause, e.g. [io.EOF].
	err error
}

// scriptedChannel is a [StreamChannel] whose reads resolve with scripted
// completions, in order, and whose writes resolve according to writeErr.
//
// It additionally instruments the one-outstanding-read invariant: issuing
// a read while a previous read handle has not resolved is recorded as a
// violation.
type scriptedChannel struct {
	mu          sync.Mutex
	closed      bool
	inFlight    int
	reads       []scriptedRead
	readsIssued int
	violations  int
	writeErr    error
	writes      []string
}

var _ StreamChannel = &scriptedChannel{}

func (c *scriptedChannel) Read(buf []byte) Pending[int] {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight > 0 {
		c.violations++
	}
	c.readsIssued++
	if len(c.reads) == 0 {
		// Script exhausted: the connection stays idle.
		return neverPending[int]{}
	}
	r := c.reads[0]
	c.reads = c.reads[1:]
	c.inFlight++
	n := copy(buf, r.data)
	return &scriptedPending{c: c, err: r.err, n: n}
}

func (c *scriptedChannel) Write(data []byte) Pending[int] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, string(data))
	if c.writeErr != nil {
		return readyPending[int]{value: 0, err: c.writeErr}
	}
	return readyPending[int]{value: len(data), err: nil}
}

func (c *scriptedChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *scriptedChannel) LocalAddr() string {
	return "127.0.0.1:9000"
}

func (c *scriptedChannel) RemoteAddr() string {
	return "127.0.0.1:54321"
}

func (c *scriptedChannel) snapshot() (readsIssued, violations int, closed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readsIssued, c.violations, c.closed
}

// scriptedPending resolves with the scripted completion on the first poll
// and releases the in-flight accounting of its [*scriptedChannel].
type scriptedPending struct {
	c    *scriptedChannel
	done bool
	err  error
	n    int
}

var _ Pending[int] = &scriptedPending{}

func (p *scriptedPending) TryGet() (int, error) {
	p.c.mu.Lock()
	defer p.c.mu.Unlock()
	if !p.done {
		p.done = true
		p.c.inFlight--
	}
	return p.n, p.err
}

func (p *scriptedPending) Wait(timeout time.Duration) (int, error) {
	return p.TryGet()
}

// newIdleConn returns a [*netstub.FuncConn] whose reads block forever,
// emulating an accepted connection with a silent peer.
func newIdleConn() *netstub.FuncConn {
	return &netstub.FuncConn{
		CloseFunc: func() error {
			return nil
		},
		LocalAddrFunc: func() net.Addr {
			return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9000}
		},
		ReadFunc: func(b []byte) (int, error) {
			select {}
		},
		RemoteAddrFunc: func() net.Addr {
			return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 54321}
		},
	}
}

// fakeAccept is one accept completion served by [*fakeListener].
type fakeAccept struct {
	// conn is the accepted connection.
	conn net.Conn

	// err is the completion's failure cause.
	err error
}

// fakeListener is a [net.Listener] serving scripted accept results in
// order and then blocking forever.
type fakeListener struct {
	mu      sync.Mutex
	accepts []fakeAccept
	calls   int
	never   chan struct{}
}

var _ net.Listener = &fakeListener{}

func newFakeListener(accepts ...fakeAccept) *fakeListener {
	return &fakeListener{
		accepts: accepts,
		calls:   0,
		mu:      sync.Mutex{},
		never:   make(chan struct{}),
	}
}

func (l *fakeListener) Accept() (net.Conn, error) {
	l.mu.Lock()
	l.calls++
	if len(l.accepts) == 0 {
		l.mu.Unlock()
		// Script exhausted: no more peers are connecting.
		<-l.never
		return nil, net.ErrClosed
	}
	a := l.accepts[0]
	l.accepts = l.accepts[1:]
	l.mu.Unlock()
	return a.conn, a.err
}

func (l *fakeListener) Close() error {
	return nil
}

func (l *fakeListener) Addr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9000}
}

func (l *fakeListener) acceptCalls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

// listenConfigFunc adapts a function to the [ListenConfig] interface.
type listenConfigFunc func(ctx context.Context, network, address string) (net.Listener, error)

func (f listenConfigFunc) Listen(ctx context.Context, network, address string) (net.Listener, error) {
	return f(ctx, network, address)
}
