// Copyright 2026 The Varbridge Authors
// SPDX-License-Identifier: Apache-2.0

package varbridge

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/varbridge-foundation/varbridge/lib/wire"
	"github.com/varbridge-foundation/varbridge/varserver"
)

// PrintSession is an open rendering channel for one print transaction.
// It owns the server-passed descriptor exclusively until Close; the
// buffered writer on top of it is the only sanctioned way to reach the
// descriptor.
type PrintSession struct {
	bridge        *Bridge
	transactionID uint32
	handle        wire.Handle

	file   *os.File
	writer *bufio.Writer
	closed bool
}

// OpenPrintSession resolves the pending print request announced by a
// print event into the variable to render and a writable stream over
// the server-provided descriptor. The stream is ready for immediate
// writing.
func (b *Bridge) OpenPrintSession(ctx context.Context, transactionID uint32) (*PrintSession, error) {
	conn, err := b.ensureConn(ctx)
	if err != nil {
		return nil, err
	}
	handle, file, err := conn.OpenPrintChannel(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	return &PrintSession{
		bridge:        b,
		transactionID: transactionID,
		handle:        handle,
		file:          file,
		writer:        bufio.NewWriter(file),
	}, nil
}

// Handle returns the variable this session renders.
func (p *PrintSession) Handle() wire.Handle {
	return p.handle
}

// Write appends rendered text to the session stream.
func (p *PrintSession) Write(data []byte) (int, error) {
	if p.closed {
		return 0, errors.New("print session is closed")
	}
	return p.writer.Write(data)
}

// WriteString appends rendered text to the session stream.
func (p *PrintSession) WriteString(text string) (int, error) {
	if p.closed {
		return 0, errors.New("print session is closed")
	}
	return p.writer.WriteString(text)
}

// Close flushes the stream, releases the descriptor, then tells the
// server the rendering channel is finished, in that order. The local
// flush and release always happen, whatever the server then reports:
// a remote-side failure must never leak the descriptor. The returned
// error distinguishes the server having already closed the channel
// from other server-side failures. A second Close is rejected rather
// than operating on the released descriptor.
func (p *PrintSession) Close(ctx context.Context) error {
	if p.closed {
		return &varserver.ServerError{
			Code:    wire.CodeProtocolViolation,
			Message: fmt.Sprintf("print session %d already closed", p.transactionID),
		}
	}
	p.closed = true

	flushErr := p.writer.Flush()
	releaseErr := p.file.Close()
	p.file = nil

	conn, err := p.bridge.ensureConn(ctx)
	if err != nil {
		return err
	}
	if serverErr := conn.ClosePrintChannel(ctx, p.transactionID); serverErr != nil {
		if varserver.IsProtocolViolation(serverErr) {
			return fmt.Errorf("server already closed print channel %d: %w", p.transactionID, serverErr)
		}
		return fmt.Errorf("server-side close of print channel %d: %w", p.transactionID, serverErr)
	}
	if flushErr != nil {
		return fmt.Errorf("flush print stream: %w", flushErr)
	}
	return releaseErr
}
