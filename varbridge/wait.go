// Copyright 2026 The Varbridge Authors
// SPDX-License-Identifier: Apache-2.0

package varbridge

import (
	"context"
	"fmt"
	"time"

	"github.com/varbridge-foundation/varbridge/lib/wire"
	"github.com/varbridge-foundation/varbridge/varserver"
)

// Wait blocks until the next event and returns its signal number and
// integer payload: the transaction id for validate and print events,
// the variable handle for modified and calc events, zero for timer
// ticks. The watched signal set is fixed and identical across calls.
//
// Wait takes no timeout and no cancellation; once blocked it returns
// only when an event arrives or the bridge is torn down. Callers
// needing bounded waits configure TimerInterval and treat the timer
// event as their deadline. Close from another goroutine unblocks Wait
// with a server-unavailable error.
func (b *Bridge) Wait() (signal int, payload uint32, err error) {
	events, timer, err := b.ensureWaitSet()
	if err != nil {
		return 0, 0, err
	}

	select {
	case event, ok := <-events:
		if !ok {
			return 0, 0, b.waitLost()
		}
		return event.Signal, event.Payload, nil
	case <-timer:
		return wire.SignalTimer, 0, nil
	}
}

// ensureWaitSet establishes the event subscription and the synthesized
// timer on first use. The subscription rides its own connection so
// event frames never interleave with request/response cycles.
func (b *Bridge) ensureWaitSet() (<-chan wire.Event, <-chan time.Time, error) {
	// The request connection must exist first; Subscribe dials from it.
	if _, err := b.ensureConn(context.Background()); err != nil {
		return nil, nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, nil, fmt.Errorf("bridge is closed: %w", varserver.ErrServerUnavailable)
	}
	if b.stream == nil {
		stream, err := b.conn.Subscribe(context.Background(), b.options.EventBuffer)
		if err != nil {
			return nil, nil, err
		}
		b.stream = stream
		if b.options.TimerInterval > 0 {
			b.ticker = b.clk.NewTicker(b.options.TimerInterval)
		}
	}

	var timer <-chan time.Time
	if b.ticker != nil {
		timer = b.ticker.C
	}
	return b.stream.Events(), timer, nil
}

// waitLost classifies a closed event channel: deliberate teardown and
// connection loss both surface as server-unavailable, with the
// stream's own error attached when there is one.
func (b *Bridge) waitLost() error {
	b.mu.Lock()
	stream := b.stream
	b.mu.Unlock()

	if stream != nil {
		if err := stream.Err(); err != nil {
			return fmt.Errorf("event stream lost: %w", err)
		}
	}
	return fmt.Errorf("event stream closed: %w", varserver.ErrServerUnavailable)
}
