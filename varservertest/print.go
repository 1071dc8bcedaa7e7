// Copyright 2026 The Varbridge Authors
// SPDX-License-Identifier: Apache-2.0

package varservertest

import (
	"fmt"
	"net"
	"os"
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/varbridge-foundation/varbridge/lib/wire"
)

// PrintCapture collects the text a client renders into a print
// session. The server reads the pipe until the client releases its
// descriptor, so Output is complete once Done is closed.
type PrintCapture struct {
	reader *os.File
	// writer is the server's copy of the pipe's write end. It is
	// closed once the descriptor has been passed to the client;
	// holding it longer would keep the reader from seeing EOF.
	writer *os.File

	mu     sync.Mutex
	output strings.Builder
	done   chan struct{}
}

func newPrintCapture() (*PrintCapture, error) {
	reader, writer, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("varservertest: create print pipe: %w", err)
	}
	capture := &PrintCapture{
		reader: reader,
		writer: writer,
		done:   make(chan struct{}),
	}
	go capture.drain()
	return capture, nil
}

func (p *PrintCapture) drain() {
	defer close(p.done)
	defer p.reader.Close()
	buffer := make([]byte, 4096)
	for {
		n, err := p.reader.Read(buffer)
		if n > 0 {
			p.mu.Lock()
			p.output.Write(buffer[:n])
			p.mu.Unlock()
		}
		if err != nil {
			// EOF once every write-end copy is released; broken-pipe
			// reads on abrupt client exits end the capture the same
			// way, reporting whatever prefix arrived.
			return
		}
	}
}

// Output returns the text captured so far.
func (p *PrintCapture) Output() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.output.String()
}

// Done is closed once every copy of the write descriptor has been
// released and the capture is complete.
func (p *PrintCapture) Done() <-chan struct{} {
	return p.done
}

func (s *Server) handlePrintOpen(request *wire.Request) *wire.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, ok := s.prints[request.TransactionID]
	if !ok {
		return failure(wire.CodeNotFound,
			fmt.Sprintf("no print transaction %d", request.TransactionID))
	}
	if pending.opened {
		return failure(wire.CodeProtocolViolation,
			fmt.Sprintf("print transaction %d already opened", request.TransactionID))
	}
	pending.opened = true
	return &wire.Response{OK: true, Handle: pending.variable.handle}
}

// sendPrintDescriptor passes the pipe's write end over the connection
// with SCM_RIGHTS, then closes the server's copy. Sending duplicates
// the descriptor into the peer, so the peer's release is what produces
// EOF on the capture side.
func (s *Server) sendPrintDescriptor(conn *net.UnixConn, transactionID uint32) {
	s.mu.Lock()
	pending := s.prints[transactionID]
	s.mu.Unlock()
	if pending == nil || pending.capture.writer == nil {
		return
	}

	// Stream sockets need at least one data byte to carry the
	// ancillary rights message.
	rights := unix.UnixRights(int(pending.capture.writer.Fd()))
	if _, _, err := conn.WriteMsgUnix([]byte{0}, rights, nil); err != nil {
		s.logger.Error("descriptor pass failed", "transaction_id", transactionID, "error", err)
	}
	pending.capture.writer.Close()
	pending.capture.writer = nil
}

func (s *Server) handlePrintClose(request *wire.Request) *wire.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, ok := s.prints[request.TransactionID]
	if !ok {
		return failure(wire.CodeNotFound,
			fmt.Sprintf("no print transaction %d", request.TransactionID))
	}
	if pending.closed {
		return failure(wire.CodeProtocolViolation,
			fmt.Sprintf("print transaction %d already closed", request.TransactionID))
	}
	if !pending.opened {
		return failure(wire.CodeProtocolViolation,
			fmt.Sprintf("print transaction %d was never opened", request.TransactionID))
	}
	pending.closed = true
	return &wire.Response{OK: true}
}
