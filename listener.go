// SPDX-License-Identifier: GPL-3.0-or-later

package evsock

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/bassosimone/runtimex"
)

// ErrAlreadyBound indicates that [*Listener.Bind] was invoked on a
// listener that is not in the unbound state.
var ErrAlreadyBound = errors.New("evsock: listener is already bound")

// ErrCloseUnsupported indicates that [*Listener.Close] was invoked.
var ErrCloseUnsupported = errors.New("evsock: closing a bound listener is not supported")

// ListenConfig abstracts the [*net.ListenConfig] behavior.
//
// By making [*Listener] depend on an abstract implementation we allow
// for unit testing and for using alternative listeners.
type ListenConfig interface {
	Listen(ctx context.Context, network, address string) (net.Listener, error)
}

// NewListener returns a new [*Listener] in the unbound state.
//
// The cfg argument contains the common configuration for evsock operations.
// There are currently no listener-specific options.
//
// The logger argument is the [SLogger] to use for structured logging.
//
// The onConnection handler, when non-nil, is registered for every
// [EventConnection] emission.
func NewListener(cfg *Config, logger SLogger, onConnection Handler) *Listener {
	l := &Listener{
		Emitter:       NewEmitter(),
		accepting:     false,
		cfg:           cfg,
		ch:            nil,
		errClassifier: cfg.ErrClassifier,
		id:            NewSockID(),
		lc:            cfg.ListenConfig,
		logger:        logger,
		mu:            sync.Mutex{},
		state:         listenerUnbound,
		timeNow:       cfg.TimeNow,
		watch:         NewWatcher[StreamChannel](cfg),
	}
	if onConnection != nil {
		l.On(EventConnection, onConnection)
	}
	return l
}

// Listener is a listening TCP socket announcing accepted connections
// as events.
//
// While bound, exactly one accept handle is outstanding: each accept
// completion re-issues the next accept before wrapping the accepted
// channel into a [*Socket], so the listener is continuously available.
//
// Events: [EventListening], [EventConnection], [EventError].
//
// Construct via [NewListener], then call [*Listener.Bind].
type Listener struct {
	// Emitter delivers this listener's events.
	*Emitter

	// accepting tracks whether an accept handle is outstanding.
	accepting bool

	// cfg configures the sockets this listener creates.
	cfg *Config

	// ch is the owned listening channel, nil until bound.
	ch ListenChannel

	// errClassifier classifies errors for structured logging.
	errClassifier ErrClassifier

	// id tags every log record of this listener.
	id string

	// lc opens and binds the listening channel.
	lc ListenConfig

	// logger is the SLogger to use.
	logger SLogger

	// mu protects accepting, ch, and state.
	mu sync.Mutex

	// state is the lifecycle state.
	state listenerState

	// timeNow is the function to get the current time.
	timeNow func() time.Time

	// watch resolves this listener's accept handles.
	watch *Watcher[StreamChannel]
}

// listenerState is the lifecycle state of a [*Listener].
type listenerState int

const (
	listenerUnbound listenerState = iota
	listenerBinding
	listenerBound
)

// Bind resolves host:port, opens and binds the listening channel, emits
// [EventListening], and issues the first accept.
//
// The ctx covers only the bind itself; accepted connections are not tied
// to it. An empty host binds all interfaces. The bound handler, when
// non-nil, is invoked once on the first [EventListening]; it is registered
// only after a successful bind, so a failed bind leaves no stale callback
// behind.
//
// Bind failures are emitted as [EventError] and also returned; the
// listener stays unbound. Returns [ErrAlreadyBound] when invoked twice.
func (l *Listener) Bind(ctx context.Context, port int, host string, bound Handler) error {
	l.mu.Lock()
	if l.state != listenerUnbound {
		l.mu.Unlock()
		return ErrAlreadyBound
	}
	l.state = listenerBinding
	l.mu.Unlock()

	address := net.JoinHostPort(host, strconv.Itoa(port))
	t0 := l.timeNow()
	l.logBindStart(t0, address)
	ln, err := l.lc.Listen(ctx, "tcp", address)
	l.logBindDone(t0, address, err)
	if err != nil {
		l.mu.Lock()
		l.state = listenerUnbound
		l.mu.Unlock()
		l.Emit(EventError, err)
		return err
	}

	l.mu.Lock()
	l.ch = NewListenChannel(ln)
	l.state = listenerBound
	l.mu.Unlock()

	if bound != nil {
		l.Once(EventListening, bound)
	}
	l.Emit(EventListening)
	l.armAccept()
	return nil
}

// Addr returns the bound address, or nil while unbound. Useful when
// binding port 0 to discover the ephemeral port.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ch == nil {
		return nil
	}
	return l.ch.Addr()
}

// Close is unsupported and always returns [ErrCloseUnsupported].
//
// Closing the listening channel while an accept handle is in flight makes
// the blocked accept fail asynchronously, surfacing a spurious
// [EventError] that consumers cannot tell apart from a genuine accept
// failure. Supporting close requires a cooperative cancellation path for
// the in-flight accept first.
func (l *Listener) Close() error {
	return ErrCloseUnsupported
}

// armAccept issues the next accept. At most one accept handle is
// outstanding per listener while bound.
func (l *Listener) armAccept() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != listenerBound {
		return
	}
	runtimex.Assert(!l.accepting)
	l.accepting = true
	t0 := l.timeNow()
	l.watch.Watch(l.ch.Accept(), func(ch StreamChannel, err error) {
		l.onAcceptDone(t0, ch, err)
	})
}

// onAcceptDone is the accept-loop continuation.
func (l *Listener) onAcceptDone(t0 time.Time, ch StreamChannel, err error) {
	l.mu.Lock()
	l.accepting = false
	l.mu.Unlock()
	l.logAcceptDone(t0, ch, err)

	if err != nil {
		// Terminal: a single accept failure permanently stops new
		// connections from being accepted.
		l.Emit(EventError, err)
		return
	}

	// Re-issue before wrapping so the next connection can be accepted
	// even when a connection handler is slow.
	l.armAccept()

	sock, err := NewSocket(l.cfg, l.logger, ch)
	if err != nil {
		l.Emit(EventError, err)
		return
	}
	l.Emit(EventConnection, sock)
}

func (l *Listener) logBindStart(t0 time.Time, address string) {
	l.logger.Info(
		"bindStart",
		slog.String("localAddr", address),
		slog.String("sockID", l.id),
		slog.Time("t", t0),
	)
}

func (l *Listener) logBindDone(t0 time.Time, address string, err error) {
	l.logger.Info(
		"bindDone",
		slog.Any("err", err),
		slog.String("errClass", l.errClassifier.Classify(err)),
		slog.String("localAddr", address),
		slog.String("sockID", l.id),
		slog.Time("t0", t0),
		slog.Time("t", l.timeNow()),
	)
}

func (l *Listener) logAcceptDone(t0 time.Time, ch StreamChannel, err error) {
	remoteAddr := ""
	if ch != nil {
		remoteAddr = ch.RemoteAddr()
	}
	l.logger.Info(
		"acceptDone",
		slog.Any("err", err),
		slog.String("errClass", l.errClassifier.Classify(err)),
		slog.String("remoteAddr", remoteAddr),
		slog.String("sockID", l.id),
		slog.Time("t0", t0),
		slog.Time("t", l.timeNow()),
	)
}
