// Copyright 2026 The Varbridge Authors
// SPDX-License-Identifier: Apache-2.0

package varbridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/varbridge-foundation/varbridge/lib/clock"
	"github.com/varbridge-foundation/varbridge/lib/config"
	"github.com/varbridge-foundation/varbridge/lib/value"
	"github.com/varbridge-foundation/varbridge/lib/wire"
	"github.com/varbridge-foundation/varbridge/varserver"
)

// Options configures a Bridge.
type Options struct {
	// SocketPath is the variable server's Unix socket.
	SocketPath string

	// DialTimeout bounds the connection attempt. Zero means no bound.
	DialTimeout time.Duration

	// EventBuffer is the capacity of the event channel behind Wait.
	// Zero means a default of 32.
	EventBuffer int

	// TimerInterval, when positive, synthesizes periodic timer events
	// into the wait set from the injected clock. Zero disables them;
	// timer events then arrive only if the server raises them.
	TimerInterval time.Duration

	// MaxValueLen bounds string payloads fetched by Get. Zero means
	// value.MaxStringLen.
	MaxValueLen int

	// Clock supplies time for synthesized timer events. Nil means the
	// real clock.
	Clock clock.Clock

	// Logger receives bridge diagnostics. Nil means slog.Default().
	Logger *slog.Logger
}

// OptionsFromConfig builds Options from a loaded configuration.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	dialTimeout, err := cfg.Server.ParseDialTimeout()
	if err != nil {
		return Options{}, err
	}
	timerInterval, err := cfg.Bridge.ParseTimerInterval()
	if err != nil {
		return Options{}, err
	}
	return Options{
		SocketPath:    cfg.Server.SocketPath,
		DialTimeout:   dialTimeout,
		EventBuffer:   cfg.Bridge.EventBuffer,
		TimerInterval: timerInterval,
		MaxValueLen:   cfg.Bridge.MaxValueBytes,
	}, nil
}

// Bridge is the client-side session with a variable server: one lazily
// opened request connection, an event wait set, and the bookkeeping
// for validation and print transactions.
//
// A Bridge is meant for sequential use by a single owning goroutine;
// the wait loop in particular must not be entered concurrently. The
// internal lock protects teardown racing against a blocked Wait, not
// concurrent operation.
type Bridge struct {
	options Options
	logger  *slog.Logger
	clk     clock.Clock

	mu     sync.Mutex
	conn   *varserver.Conn
	stream *varserver.EventStream
	ticker *clock.Ticker
	closed bool

	// pending maps open validation transactions to the handle under
	// validation. Correlation is solely by transaction id.
	pending map[uint32]wire.Handle
}

// New creates a Bridge. No connection is made until the first
// operation needs one.
func New(options Options) *Bridge {
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.EventBuffer <= 0 {
		options.EventBuffer = 32
	}
	if options.MaxValueLen <= 0 || options.MaxValueLen > value.MaxStringLen {
		options.MaxValueLen = value.MaxStringLen
	}
	return &Bridge{
		options: options,
		logger:  options.Logger,
		clk:     options.Clock,
		pending: make(map[uint32]wire.Handle),
	}
}

// ensureConn returns the request connection, dialing on first use.
// Reconnection is not attempted: once the connection is torn the
// bridge reports unavailable until it is replaced wholesale.
func (b *Bridge) ensureConn(ctx context.Context) (*varserver.Conn, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("bridge is closed: %w", varserver.ErrServerUnavailable)
	}
	if b.conn != nil {
		return b.conn, nil
	}

	dialTimeout := b.options.DialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := deadline.Sub(b.clk.Now()); dialTimeout == 0 || remaining < dialTimeout {
			dialTimeout = remaining
		}
	}

	conn, err := varserver.Dial(b.options.SocketPath, varserver.Options{
		DialTimeout: dialTimeout,
		Logger:      b.logger,
	})
	if err != nil {
		return nil, err
	}
	b.conn = conn
	b.logger.Debug("connected to variable server", "socket_path", b.options.SocketPath)
	return conn, nil
}

// Close releases the connection, the event stream, and the synthesized
// timer. Idempotent; every operation after Close fails with a
// server-unavailable error instead of touching a dead connection.
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	conn := b.conn
	stream := b.stream
	ticker := b.ticker
	b.conn = nil
	b.stream = nil
	b.ticker = nil
	b.mu.Unlock()

	if ticker != nil {
		ticker.Stop()
	}
	var err error
	if stream != nil {
		err = stream.Close()
	}
	if conn != nil {
		if closeErr := conn.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}

// Find resolves a variable name to its handle.
func (b *Bridge) Find(ctx context.Context, name string) (wire.Handle, error) {
	conn, err := b.ensureConn(ctx)
	if err != nil {
		return wire.InvalidHandle, err
	}
	return conn.FindByName(ctx, name)
}

// Get looks the variable up by name and fetches its current value.
// String payloads are bounded by MaxValueLen; an oversized server
// value comes back truncated, never overflowing the bound.
func (b *Bridge) Get(ctx context.Context, name string) (value.Value, error) {
	conn, err := b.ensureConn(ctx)
	if err != nil {
		return value.Value{}, err
	}
	handle, err := conn.FindByName(ctx, name)
	if err != nil {
		return value.Value{}, err
	}
	result, truncated, err := conn.GetValue(ctx, handle, b.options.MaxValueLen)
	if err != nil {
		return value.Value{}, err
	}
	if truncated {
		b.logger.Debug("value truncated at buffer bound",
			"name", name, "max_len", b.options.MaxValueLen)
	}
	return result, nil
}

// GetByHandle fetches the current value of an already-resolved
// variable, bounded like Get. Print handlers use it to render the
// variable a session names.
func (b *Bridge) GetByHandle(ctx context.Context, handle wire.Handle) (value.Value, error) {
	conn, err := b.ensureConn(ctx)
	if err != nil {
		return value.Value{}, err
	}
	result, _, err := conn.GetValue(ctx, handle, b.options.MaxValueLen)
	return result, err
}

// Ref addresses a variable by name or directly by handle.
type Ref struct {
	name   string
	handle wire.Handle
}

// ByName returns a Ref resolved through a name lookup at use time.
func ByName(name string) Ref { return Ref{name: name} }

// ByHandle returns a Ref using an already-resolved handle.
func ByHandle(handle wire.Handle) Ref { return Ref{handle: handle} }

func (r Ref) resolve(ctx context.Context, conn *varserver.Conn) (wire.Handle, error) {
	if r.handle != wire.InvalidHandle {
		return r.handle, nil
	}
	return conn.FindByName(ctx, r.name)
}

// Set writes a textual value to a variable. The variable's declared
// kind is fetched first and sent along with the text so the server
// converts against the kind this client resolved; resolution or
// type-query failure fails the set without attempting the write.
func (b *Bridge) Set(ctx context.Context, ref Ref, text string) error {
	conn, err := b.ensureConn(ctx)
	if err != nil {
		return err
	}
	handle, err := ref.resolve(ctx, conn)
	if err != nil {
		return err
	}
	kind, err := conn.GetType(ctx, handle)
	if err != nil {
		return err
	}
	return conn.SetFromString(ctx, handle, kind, text)
}

// Notify registers this session's interest in events of the given kind
// for the variable. Idempotent per (handle, kind).
func (b *Bridge) Notify(ctx context.Context, handle wire.Handle, kind wire.Notification) error {
	conn, err := b.ensureConn(ctx)
	if err != nil {
		return err
	}
	return conn.RegisterNotification(ctx, handle, kind)
}
