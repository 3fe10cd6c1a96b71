// SPDX-License-Identifier: GPL-3.0-or-later

package evsock

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/bassosimone/runtimex"
)

// ErrNoChannel indicates that [NewSocket] was invoked without a backing
// channel. Sockets only wrap channels accepted by a [*Listener]; outbound
// client-initiated connections are out of scope.
var ErrNoChannel = errors.New("evsock: socket requires an accepted channel")

// ErrSocketClosed indicates a write on a [*Socket] whose stream has
// already ended.
var ErrSocketClosed = errors.New("evsock: socket is closed")

// lineTerminator delimits messages in the byte stream.
const lineTerminator = '\n'

// NewSocket wraps an accepted [StreamChannel] into a [*Socket] and starts
// its receive loop immediately.
//
// The cfg argument contains the common configuration for evsock operations.
//
// The logger argument is the [SLogger] to use for structured logging.
//
// Returns [ErrNoChannel] when ch is nil.
func NewSocket(cfg *Config, logger SLogger, ch StreamChannel) (*Socket, error) {
	if ch == nil {
		return nil, ErrNoChannel
	}
	s := &Socket{
		Emitter:       NewEmitter(),
		buf:           make([]byte, cfg.ReadBufferSize),
		ch:            ch,
		errClassifier: cfg.ErrClassifier,
		id:            NewSockID(),
		line:          nil,
		logger:        logger,
		mu:            sync.Mutex{},
		reading:       false,
		state:         socketOpen,
		timeNow:       cfg.TimeNow,
		watch:         NewWatcher[int](cfg),
	}
	s.logOpen()
	s.armRead()
	return s, nil
}

// Socket is one connected TCP socket delivering newline-delimited text
// messages as events.
//
// It owns its [StreamChannel] and one fixed-size read buffer, reused for
// every read and never replaced. The receive loop keeps exactly one read
// handle outstanding while the socket is open and re-arms itself after
// every successful completion.
//
// Events: [EventData], [EventEnd], [EventDrain], [EventError].
//
// Construct via [NewSocket] with a channel accepted by a [*Listener].
type Socket struct {
	// Emitter delivers this socket's events.
	*Emitter

	// buf is the fixed read buffer, touched only by the receive loop.
	buf []byte

	// ch is the owned channel.
	ch StreamChannel

	// errClassifier classifies errors for structured logging.
	errClassifier ErrClassifier

	// id tags every log record of this socket.
	id string

	// line accumulates the bytes of the current unterminated line.
	// Touched only by the receive loop.
	line []byte

	// logger is the SLogger to use.
	logger SLogger

	// mu protects reading and state.
	mu sync.Mutex

	// reading tracks whether a read handle is outstanding.
	reading bool

	// state is the lifecycle state.
	state socketState

	// timeNow is the function to get the current time.
	timeNow func() time.Time

	// watch resolves this socket's read and write handles.
	watch *Watcher[int]
}

// socketState is the lifecycle state of a [*Socket].
type socketState int

const (
	socketOpen socketState = iota
	socketClosed
)

// ID returns the socket's log correlation ID.
func (s *Socket) ID() string {
	return s.id
}

// Write encodes text as UTF-8 and issues an independent write operation.
//
// On completion the socket emits [EventDrain], or [EventError] when the
// write failed. The drained handler, when non-nil, is registered for
// [EventDrain] with once-only semantics before the operation is issued.
//
// Writes are neither queued nor serialized: concurrent writes have
// independent handles in flight at the same time and the order of their
// completions is unspecified. Callers requiring ordered completion must
// sequence their writes through the drain event.
//
// Returns [ErrSocketClosed] when the stream has already ended.
func (s *Socket) Write(text string, drained Handler) error {
	s.mu.Lock()
	if s.state != socketOpen {
		s.mu.Unlock()
		return ErrSocketClosed
	}
	s.mu.Unlock()
	if drained != nil {
		s.Once(EventDrain, drained)
	}
	data := []byte(text)
	t0 := s.timeNow()
	s.logWriteStart(t0, len(data))
	s.watch.Watch(s.ch.Write(data), func(count int, err error) {
		s.logWriteDone(t0, count, err)
		if err != nil {
			s.Emit(EventError, err)
			return
		}
		s.Emit(EventDrain)
	})
	return nil
}

// armRead issues the next read. At most one read handle is outstanding
// per socket while open.
func (s *Socket) armRead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != socketOpen {
		return
	}
	runtimex.Assert(!s.reading)
	s.reading = true
	t0 := s.timeNow()
	s.logReadStart(t0)
	s.watch.Watch(s.ch.Read(s.buf), func(count int, err error) {
		s.onReadDone(t0, count, err)
	})
}

// onReadDone is the receive-loop continuation. It runs on the watcher
// goroutine; because reads are re-armed only from here, continuations run
// strictly in the order reads were issued.
func (s *Socket) onReadDone(t0 time.Time, count int, err error) {
	s.mu.Lock()
	s.reading = false
	s.mu.Unlock()
	s.logReadDone(t0, count, err)

	switch {
	case errors.Is(err, io.EOF):
		if count > 0 {
			s.scan(count)
		}
		s.end()

	case err != nil:
		// Terminal: a single read failure permanently halts this
		// socket's receive loop. Writes are unaffected.
		s.Emit(EventError, err)

	default:
		s.scan(count)
		s.armRead()
	}
}

// scan walks exactly count bytes of the read buffer, appending each to the
// line accumulator and emitting one [EventData] per completed line, with
// the terminator stripped. A trailing partial line stays in the
// accumulator until a later completion delivers its terminator.
func (s *Socket) scan(count int) {
	for _, b := range s.buf[:count] {
		if b == lineTerminator {
			s.Emit(EventData, string(s.line))
			s.line = s.line[:0]
			continue
		}
		s.line = append(s.line, b)
	}
}

// end handles the peer closing the stream: emit [EventEnd], deregister
// every handler, close the channel, stop re-arming.
func (s *Socket) end() {
	s.mu.Lock()
	s.state = socketClosed
	s.mu.Unlock()
	s.Emit(EventEnd)
	s.RemoveAllListeners()
	err := s.ch.Close()
	s.logClose(err)
}

func (s *Socket) logOpen() {
	s.logger.Info(
		"socketOpen",
		slog.String("localAddr", s.ch.LocalAddr()),
		slog.String("remoteAddr", s.ch.RemoteAddr()),
		slog.String("sockID", s.id),
		slog.Time("t", s.timeNow()),
	)
}

func (s *Socket) logReadStart(t0 time.Time) {
	s.logger.Debug(
		"readStart",
		slog.Int("ioBufferSize", len(s.buf)),
		slog.String("localAddr", s.ch.LocalAddr()),
		slog.String("remoteAddr", s.ch.RemoteAddr()),
		slog.String("sockID", s.id),
		slog.Time("t", t0),
	)
}

func (s *Socket) logReadDone(t0 time.Time, count int, err error) {
	s.logger.Debug(
		"readDone",
		slog.Int("ioBytesCount", count),
		slog.Any("err", err),
		slog.String("errClass", s.errClassifier.Classify(err)),
		slog.String("localAddr", s.ch.LocalAddr()),
		slog.String("remoteAddr", s.ch.RemoteAddr()),
		slog.String("sockID", s.id),
		slog.Time("t0", t0),
		slog.Time("t", s.timeNow()),
	)
}

func (s *Socket) logWriteStart(t0 time.Time, size int) {
	s.logger.Debug(
		"writeStart",
		slog.Int("ioBufferSize", size),
		slog.String("localAddr", s.ch.LocalAddr()),
		slog.String("remoteAddr", s.ch.RemoteAddr()),
		slog.String("sockID", s.id),
		slog.Time("t", t0),
	)
}

func (s *Socket) logWriteDone(t0 time.Time, count int, err error) {
	s.logger.Debug(
		"writeDone",
		slog.Int("ioBytesCount", count),
		slog.Any("err", err),
		slog.String("errClass", s.errClassifier.Classify(err)),
		slog.String("localAddr", s.ch.LocalAddr()),
		slog.String("remoteAddr", s.ch.RemoteAddr()),
		slog.String("sockID", s.id),
		slog.Time("t0", t0),
		slog.Time("t", s.timeNow()),
	)
}

func (s *Socket) logClose(err error) {
	s.logger.Info(
		"closeDone",
		slog.Any("err", err),
		slog.String("errClass", s.errClassifier.Classify(err)),
		slog.String("localAddr", s.ch.LocalAddr()),
		slog.String("remoteAddr", s.ch.RemoteAddr()),
		slog.String("sockID", s.id),
		slog.Time("t", s.timeNow()),
	)
}
