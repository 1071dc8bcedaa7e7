// Copyright 2026 The Varbridge Authors
// SPDX-License-Identifier: Apache-2.0

package varserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/varbridge-foundation/varbridge/lib/wire"
)

// EventStream is a one-way stream of notification events from the
// server, carried on its own connection so event delivery never
// interleaves with request/response frames.
type EventStream struct {
	conn   *net.UnixConn
	events chan wire.Event

	closeOnce  sync.Once
	deliberate atomic.Bool

	// err is set by the dispatcher before events is closed; reading
	// it is safe once Events() is closed.
	err error
}

// Subscribe opens the event connection and starts the dispatcher
// goroutine that decodes server-pushed event frames onto the stream's
// channel. buffer is the channel capacity; a full channel applies
// backpressure to the server connection — events are never dropped.
func (c *Conn) Subscribe(ctx context.Context, buffer int) (*EventStream, error) {
	timeout := c.options.DialTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	raw, err := net.DialTimeout("unix", c.socketPath, timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: dialing event connection: %v", ErrServerUnavailable, err)
	}
	unixConn := raw.(*net.UnixConn)

	if deadline, ok := ctx.Deadline(); ok {
		unixConn.SetDeadline(deadline)
	}

	if err := wire.WriteFrame(unixConn, &wire.Request{Op: wire.OpSubscribe}); err != nil {
		unixConn.Close()
		return nil, fmt.Errorf("%w: sending subscribe: %v", ErrServerUnavailable, err)
	}
	var response wire.Response
	if err := wire.ReadFrame(unixConn, &response); err != nil {
		unixConn.Close()
		return nil, fmt.Errorf("%w: reading subscribe response: %v", ErrServerUnavailable, err)
	}
	if err := responseError(&response); err != nil {
		unixConn.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	// The subscription handshake is done; the stream itself has no
	// deadline — events arrive whenever the server raises them.
	unixConn.SetDeadline(time.Time{})

	if buffer <= 0 {
		buffer = 32
	}
	stream := &EventStream{
		conn:   unixConn,
		events: make(chan wire.Event, buffer),
	}
	go stream.dispatch(c.logger())
	return stream, nil
}

// Events returns the receive channel. The channel is closed when the
// stream is closed or the connection is lost; Err distinguishes the
// two afterwards.
func (s *EventStream) Events() <-chan wire.Event {
	return s.events
}

// Err returns the cause of the stream ending. Nil for a deliberate
// Close. Valid only after the Events channel is closed.
func (s *EventStream) Err() error {
	return s.err
}

// Close tears down the event connection. The dispatcher drains out
// and closes the Events channel. Idempotent.
func (s *EventStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.deliberate.Store(true)
		err = s.conn.Close()
	})
	return err
}

// dispatch reads event frames until the connection ends and forwards
// them to the channel. This is the one goroutine the redesigned event
// protocol introduces: it translates asynchronous server pushes into
// a blocking receive for Wait.
func (s *EventStream) dispatch(logger *slog.Logger) {
	defer close(s.events)

	for {
		var event wire.Event
		if err := wire.ReadFrame(s.conn, &event); err != nil {
			if !s.deliberate.Load() {
				s.err = fmt.Errorf("%w: event connection lost: %v", ErrServerUnavailable, err)
			}
			return
		}
		logger.Debug("event received", "signal", event.Signal, "payload", event.Payload)
		s.events <- event
	}
}
