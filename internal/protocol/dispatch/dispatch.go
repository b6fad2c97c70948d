// Package dispatch serializes transport events and local calls onto a single
// owner goroutine.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/danmuck/squares/internal/protocol/frame"
)

var (
	ErrAlreadyRunning = errors.New("dispatch: already running")
	ErrStopped        = errors.New("dispatch: stopped")
	ErrHandlerPanic   = errors.New("dispatch: handler panic")
)

// Handler receives transport events on the owner goroutine. Errors returned
// from HandleFrame or HandleClosed end the connection.
type Handler interface {
	HandleFrame(payload []byte) error
	HandleError(err error)
	HandleClosed() error
}

type call struct {
	fn   func()
	err  error
	done chan struct{}
}

type Dispatcher struct {
	source  <-chan frame.Event
	handler Handler
	calls   chan *call
	stopped chan struct{}
	running atomic.Bool
}

func New(source <-chan frame.Event, h Handler) *Dispatcher {
	return &Dispatcher{
		source:  source,
		handler: h,
		calls:   make(chan *call),
		stopped: make(chan struct{}),
	}
}

// Run is the owner loop. It returns nil once the source is closed.
func (d *Dispatcher) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(d.stopped)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-d.source:
			if !ok {
				return nil
			}
			ev.Ack(d.handle(ev))
		case c := <-d.calls:
			d.invoke(c)
		}
	}
}

// Invoke runs fn on the owner goroutine and waits for it to return. A panic
// in fn is recovered and returned as ErrHandlerPanic; the loop keeps running.
// It must not be called from the owner goroutine itself.
func (d *Dispatcher) Invoke(ctx context.Context, fn func()) error {
	c := &call{fn: fn, done: make(chan struct{})}
	select {
	case d.calls <- c:
	case <-d.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-c.done
	return c.err
}

// Stopped is closed when Run returns.
func (d *Dispatcher) Stopped() <-chan struct{} {
	return d.stopped
}

func (d *Dispatcher) handle(ev frame.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	switch ev.Kind {
	case frame.EventFrame:
		return d.handler.HandleFrame(ev.Payload)
	case frame.EventError:
		d.handler.HandleError(ev.Err)
		return nil
	case frame.EventClosed:
		return d.handler.HandleClosed()
	default:
		return nil
	}
}

func (d *Dispatcher) invoke(c *call) {
	defer close(c.done)
	defer func() {
		if r := recover(); r != nil {
			c.err = fmt.Errorf("%w: posted call: %v", ErrHandlerPanic, r)
		}
	}()
	c.fn()
}
