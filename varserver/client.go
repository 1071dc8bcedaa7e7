// Copyright 2026 The Varbridge Authors
// SPDX-License-Identifier: Apache-2.0

package varserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/varbridge-foundation/varbridge/lib/value"
	"github.com/varbridge-foundation/varbridge/lib/wire"
)

// Options configures a Conn.
type Options struct {
	// DialTimeout bounds the connect attempt. Zero means 5 seconds.
	DialTimeout time.Duration

	// Logger receives structured log output. If nil, slog.Default()
	// is used. Per-frame events are logged at Debug level.
	Logger *slog.Logger
}

// Conn is a request/response connection to the variable server. One
// request is in flight at a time; the server answers each frame
// before the next is sent.
//
// Conn performs no internal locking. It is intended for sequential
// use by a single owning goroutine; concurrent use without external
// serialization is unsupported.
type Conn struct {
	socketPath string
	options    Options
	conn       *net.UnixConn
	closed     bool
}

// Dial connects to the variable server's Unix socket.
func Dial(socketPath string, options Options) (*Conn, error) {
	timeout := options.DialTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	raw, err := net.DialTimeout("unix", socketPath, timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: dialing %s: %v", ErrServerUnavailable, socketPath, err)
	}
	unixConn, ok := raw.(*net.UnixConn)
	if !ok {
		raw.Close()
		return nil, fmt.Errorf("%w: %s is not a Unix socket connection", ErrServerUnavailable, socketPath)
	}

	conn := &Conn{
		socketPath: socketPath,
		options:    options,
		conn:       unixConn,
	}
	conn.logger().Debug("connected to variable server", "socket_path", socketPath)
	return conn, nil
}

func (c *Conn) logger() *slog.Logger {
	if c.options.Logger != nil {
		return c.options.Logger
	}
	return slog.Default()
}

// Close releases the connection. Safe to call more than once; all
// operations after Close fail with ErrServerUnavailable rather than
// dereferencing a dead connection.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

// fail marks the connection broken after an I/O error. A torn frame
// leaves the stream position unknown, so the connection cannot be
// reused for further exchanges.
func (c *Conn) fail() {
	c.closed = true
	c.conn.Close()
}

// roundTrip sends one request frame and reads one response frame. The
// context's deadline, when present, bounds the whole exchange.
func (c *Conn) roundTrip(ctx context.Context, request *wire.Request) (*wire.Response, error) {
	if c.closed {
		return nil, ErrServerUnavailable
	}

	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetDeadline(deadline)
		defer c.conn.SetDeadline(time.Time{})
	}

	if err := wire.WriteFrame(c.conn, request); err != nil {
		c.fail()
		return nil, fmt.Errorf("%w: sending %s request: %v", ErrServerUnavailable, request.Op, err)
	}

	var response wire.Response
	if err := wire.ReadFrame(c.conn, &response); err != nil {
		c.fail()
		return nil, fmt.Errorf("%w: reading %s response: %v", ErrServerUnavailable, request.Op, err)
	}

	c.logger().Debug("round trip", "op", string(request.Op), "ok", response.OK)
	return &response, nil
}

// FindByName resolves a variable name to its handle. A pure lookup
// with no side effects; an unknown name is a not-found error.
func (c *Conn) FindByName(ctx context.Context, name string) (wire.Handle, error) {
	response, err := c.roundTrip(ctx, &wire.Request{Op: wire.OpFind, Name: name})
	if err != nil {
		return wire.InvalidHandle, err
	}
	if err := responseError(response); err != nil {
		return wire.InvalidHandle, fmt.Errorf("find %q: %w", name, err)
	}
	return response.Handle, nil
}

// GetValue fetches the variable's current value. maxLen bounds string
// payloads: a longer server-side value is truncated at the bound and
// reported via the truncated result, never copied past it. Zero means
// the protocol maximum.
func (c *Conn) GetValue(ctx context.Context, handle wire.Handle, maxLen int) (value.Value, bool, error) {
	response, err := c.roundTrip(ctx, &wire.Request{Op: wire.OpGet, Handle: handle, MaxLen: maxLen})
	if err != nil {
		return value.Value{}, false, err
	}
	if err := responseError(response); err != nil {
		return value.Value{}, false, fmt.Errorf("get %d: %w", handle, err)
	}
	if response.Value == nil {
		return value.Value{}, false, fmt.Errorf("get %d: %w", handle,
			&ServerError{Code: wire.CodeServerError, Message: "response missing value"})
	}

	// Enforce the bound locally as well. The server owns the
	// invariant, but a fixed client-side buffer must never overflow
	// on a misbehaving peer.
	bounded, clientTruncated := response.Value.Bound(maxLen)
	return bounded, response.Truncated || clientTruncated, nil
}

// GetType queries the variable's declared kind.
func (c *Conn) GetType(ctx context.Context, handle wire.Handle) (value.Kind, error) {
	response, err := c.roundTrip(ctx, &wire.Request{Op: wire.OpGetType, Handle: handle})
	if err != nil {
		return "", err
	}
	if err := responseError(response); err != nil {
		return "", fmt.Errorf("get-type %d: %w", handle, err)
	}
	return response.Kind, nil
}

// SetFromString sets the variable from its textual form. The server
// converts the text against the declared kind; kind is the kind the
// client resolved beforehand, letting the server reject a stale
// type query instead of silently misconverting.
func (c *Conn) SetFromString(ctx context.Context, handle wire.Handle, kind value.Kind, text string) error {
	response, err := c.roundTrip(ctx, &wire.Request{
		Op:     wire.OpSet,
		Handle: handle,
		Kind:   kind,
		Text:   text,
	})
	if err != nil {
		return err
	}
	if err := responseError(response); err != nil {
		return fmt.Errorf("set %d: %w", handle, err)
	}
	return nil
}

// RegisterNotification registers this client's interest in events of
// the given kind for the variable. Idempotent per (handle, kind) —
// re-registering is not an error.
func (c *Conn) RegisterNotification(ctx context.Context, handle wire.Handle, kind wire.Notification) error {
	response, err := c.roundTrip(ctx, &wire.Request{
		Op:           wire.OpNotify,
		Handle:       handle,
		Notification: kind,
	})
	if err != nil {
		return err
	}
	if err := responseError(response); err != nil {
		return fmt.Errorf("notify %d %s: %w", handle, kind, err)
	}
	return nil
}

// FetchValidationRequest atomically retrieves the pending validation
// for the transaction id: the variable under validation and the
// candidate new value. A transaction id not currently pending is a
// not-found error — the call never blocks waiting for one.
func (c *Conn) FetchValidationRequest(ctx context.Context, transactionID uint32) (wire.Handle, value.Value, error) {
	response, err := c.roundTrip(ctx, &wire.Request{
		Op:            wire.OpValidateFetch,
		TransactionID: transactionID,
	})
	if err != nil {
		return wire.InvalidHandle, value.Value{}, err
	}
	if err := responseError(response); err != nil {
		return wire.InvalidHandle, value.Value{}, fmt.Errorf("validation %d: %w", transactionID, err)
	}
	if response.Value == nil {
		return wire.InvalidHandle, value.Value{}, fmt.Errorf("validation %d: %w", transactionID,
			&ServerError{Code: wire.CodeServerError, Message: "response missing candidate value"})
	}
	return response.Handle, *response.Value, nil
}

// SendValidationResponse delivers the verdict for a pending
// validation, retiring the transaction. An unknown or already-retired
// id is a protocol-violation error.
func (c *Conn) SendValidationResponse(ctx context.Context, transactionID uint32, accept bool) error {
	verdict := wire.VerdictReject
	if accept {
		verdict = wire.VerdictAccept
	}
	response, err := c.roundTrip(ctx, &wire.Request{
		Op:            wire.OpValidateRespond,
		TransactionID: transactionID,
		Verdict:       verdict,
	})
	if err != nil {
		return err
	}
	if err := responseError(response); err != nil {
		return fmt.Errorf("validation %d verdict: %w", transactionID, err)
	}
	return nil
}
