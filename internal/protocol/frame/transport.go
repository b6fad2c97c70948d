package frame

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const lingerSeconds = 10

type EventKind uint8

const (
	EventFrame EventKind = iota + 1
	EventError
	EventClosed
)

func (k EventKind) String() string {
	switch k {
	case EventFrame:
		return "frame"
	case EventError:
		return "error"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is one reader notification. The reader goroutine does not continue
// until Ack is called.
type Event struct {
	Kind    EventKind
	Payload []byte
	Err     error

	ack chan error
}

// Ack releases the reader. A non-nil err ends the connection: the reader
// reports it as its own EventError and tears down.
func (e Event) Ack(err error) {
	if e.ack == nil {
		return
	}
	select {
	case e.ack <- err:
	default:
	}
}

type Option func(*Transport)

func WithLogger(logger zerolog.Logger) Option {
	return func(t *Transport) {
		t.log = logger
	}
}

// WithBufferSize overrides the receive buffer, never below MinBufferSize.
func WithBufferSize(n int) Option {
	return func(t *Transport) {
		if n < MinBufferSize {
			n = MinBufferSize
		}
		t.bufSize = n
	}
}

// Transport moves length-prefixed frames over one stream connection.
type Transport struct {
	conn    net.Conn
	log     zerolog.Logger
	bufSize int

	events  chan Event
	closing chan struct{}
	done    chan struct{}

	closeOnce sync.Once
	writeMu   sync.Mutex
}

// Open takes ownership of conn and starts the reader goroutine.
func Open(conn net.Conn, opts ...Option) *Transport {
	t := &Transport{
		conn:    conn,
		log:     log.Logger,
		bufSize: BufferSize,
		events:  make(chan Event),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := tcp.SetNoDelay(true); err != nil {
			t.log.Debug().Err(err).Msg("set no-delay failed")
		}
	}
	go t.readLoop()
	return t
}

// Events is closed after teardown.
func (t *Transport) Events() <-chan Event {
	return t.events
}

// Done is closed once the socket has been torn down.
func (t *Transport) Done() <-chan struct{} {
	return t.done
}

// Send writes one frame. Oversize payloads fail before any I/O.
func (t *Transport) Send(payload []byte) error {
	buf, err := AppendFrame(make([]byte, 0, 1+len(payload)), payload)
	if err != nil {
		return err
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := t.conn.Write(buf); err != nil {
		return fmt.Errorf("%w: write: %w", ErrIO, err)
	}
	return nil
}

// Close stops event delivery and makes the reader tear the socket down.
// Safe to call more than once and from inside an event handler.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		close(t.closing)
		if err := t.conn.SetReadDeadline(time.Now()); err != nil {
			_ = t.conn.Close()
		}
	})
	return nil
}

func (t *Transport) isClosing() bool {
	select {
	case <-t.closing:
		return true
	default:
		return false
	}
}

func (t *Transport) readLoop() {
	defer t.teardown()

	buf := make([]byte, t.bufSize)
	n := 0
	for {
		read, err := t.conn.Read(buf[n:])
		if read > 0 {
			n += read
			consumed := 0
			for {
				payload, size, ok := nextFrame(buf[consumed:n])
				if !ok {
					break
				}
				consumed += size
				if !t.deliver(Event{Kind: EventFrame, Payload: append([]byte(nil), payload...)}) {
					return
				}
			}
			if consumed > 0 {
				n = copy(buf, buf[consumed:n])
			}
			if n == len(buf) {
				t.fail(ErrBufferOverflow)
				return
			}
		}
		if err == nil {
			continue
		}
		if t.isClosing() {
			return
		}
		if errors.Is(err, io.EOF) {
			t.deliver(Event{Kind: EventClosed})
			return
		}
		t.fail(fmt.Errorf("%w: read: %w", ErrIO, err))
		return
	}
}

// deliver emits ev and reports whether the loop may continue.
func (t *Transport) deliver(ev Event) bool {
	ok, ackErr := t.emit(ev)
	if !ok {
		return false
	}
	if ackErr != nil {
		t.fail(ackErr)
		return false
	}
	return true
}

func (t *Transport) fail(err error) {
	t.log.Debug().Err(err).Msg("transport reader failed")
	_, _ = t.emit(Event{Kind: EventError, Err: err})
}

func (t *Transport) emit(ev Event) (bool, error) {
	if t.isClosing() {
		return false, nil
	}
	ev.ack = make(chan error, 1)
	select {
	case t.events <- ev:
	case <-t.closing:
		return false, nil
	}
	select {
	case err := <-ev.ack:
		return true, err
	case <-t.closing:
		return false, nil
	}
}

func (t *Transport) teardown() {
	if tcp, ok := t.conn.(*net.TCPConn); ok {
		_ = tcp.SetLinger(lingerSeconds)
		_ = tcp.CloseRead()
		_ = tcp.CloseWrite()
	}
	_ = t.conn.Close()
	t.log.Debug().Msg("transport closed")
	close(t.events)
	close(t.done)
}
