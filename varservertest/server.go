// Copyright 2026 The Varbridge Authors
// SPDX-License-Identifier: Apache-2.0

package varservertest

import (
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/varbridge-foundation/varbridge/lib/value"
	"github.com/varbridge-foundation/varbridge/lib/wire"
)

// Server is an in-memory variable server speaking the full wire
// protocol over a Unix socket. It backs the package tests and
// cmd/varserver-mock; it is not a production server.
type Server struct {
	socketPath string
	logger     *slog.Logger

	listener *net.UnixListener
	done     chan struct{}
	handlers sync.WaitGroup

	mu              sync.Mutex
	nextHandle      wire.Handle
	nextTransaction uint32
	byName          map[string]*variable
	byHandle        map[wire.Handle]*variable
	subscribers     map[*subscriber]struct{}
	validations     map[uint32]*pendingValidation
	prints          map[uint32]*pendingPrint
}

// variable is one entry in the server's variable table.
type variable struct {
	name   string
	handle wire.Handle
	kind   value.Kind
	val    value.Value

	// notify records registered interest per notification kind.
	// Registration is idempotent; re-registering is not an error.
	notify map[wire.Notification]bool
}

// subscriber is one subscribed event connection. Event writes are
// serialized per subscriber so concurrent raises cannot interleave
// frame bytes.
type subscriber struct {
	mu   sync.Mutex
	conn *net.UnixConn
}

// pendingValidation is a parked candidate write awaiting a verdict.
type pendingValidation struct {
	variable  *variable
	candidate value.Value
}

// pendingPrint is a print transaction. The server holds the write end
// of a pipe until the descriptor has been passed to the client, and
// captures rendered output from the read end.
type pendingPrint struct {
	variable *variable
	capture  *PrintCapture
	opened   bool
	closed   bool
}

// New creates a Server that will listen on socketPath. Call Start to
// begin serving. A nil logger means slog.Default().
func New(socketPath string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		socketPath:  socketPath,
		logger:      logger,
		done:        make(chan struct{}),
		nextHandle:  1,
		byName:      make(map[string]*variable),
		byHandle:    make(map[wire.Handle]*variable),
		subscribers: make(map[*subscriber]struct{}),
		validations: make(map[uint32]*pendingValidation),
		prints:      make(map[uint32]*pendingPrint),
	}
}

// Start binds the socket and begins accepting connections in a
// background goroutine.
func (s *Server) Start() error {
	address := &net.UnixAddr{Name: s.socketPath, Net: "unix"}
	listener, err := net.ListenUnix("unix", address)
	if err != nil {
		return fmt.Errorf("varservertest: listen on %s: %w", s.socketPath, err)
	}
	s.listener = listener

	go s.acceptLoop()
	s.logger.Info("test variable server listening", "socket_path", s.socketPath)
	return nil
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Close shuts the server down: stops accepting, closes all
// connections, and waits for the handlers to drain. Idempotent.
func (s *Server) Close() {
	select {
	case <-s.done:
		return
	default:
	}
	close(s.done)

	if s.listener != nil {
		s.listener.Close()
	}

	s.mu.Lock()
	for sub := range s.subscribers {
		sub.conn.Close()
	}
	s.mu.Unlock()

	s.handlers.Wait()
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.AcceptUnix()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			s.logger.Error("accept error", "error", err)
			continue
		}
		s.handlers.Add(1)
		go func() {
			defer s.handlers.Done()
			s.handleConnection(conn)
		}()
	}
}

// handleConnection serves request/response cycles on one connection
// until the client disconnects. A subscribe request converts the
// connection into an event stream and hands it to the subscriber set.
func (s *Server) handleConnection(conn *net.UnixConn) {
	subscribed := false
	defer func() {
		if !subscribed {
			conn.Close()
		}
	}()

	for {
		var request wire.Request
		if err := wire.ReadFrame(conn, &request); err != nil {
			return
		}

		if request.Op == wire.OpSubscribe {
			if err := wire.WriteFrame(conn, &wire.Response{OK: true}); err != nil {
				return
			}
			s.addSubscriber(conn)
			subscribed = true
			return
		}

		response := s.dispatch(&request)
		if err := wire.WriteFrame(conn, response); err != nil {
			return
		}

		// The descriptor transfer follows the print-open response on
		// the same connection.
		if request.Op == wire.OpPrintOpen && response.OK {
			s.sendPrintDescriptor(conn, request.TransactionID)
		}
	}
}

func (s *Server) dispatch(request *wire.Request) *wire.Response {
	s.logger.Debug("request", "op", string(request.Op))

	switch request.Op {
	case wire.OpFind:
		return s.handleFind(request)
	case wire.OpGet:
		return s.handleGet(request)
	case wire.OpGetType:
		return s.handleGetType(request)
	case wire.OpSet:
		return s.handleSet(request)
	case wire.OpNotify:
		return s.handleNotify(request)
	case wire.OpValidateFetch:
		return s.handleValidateFetch(request)
	case wire.OpValidateRespond:
		return s.handleValidateRespond(request)
	case wire.OpPrintOpen:
		return s.handlePrintOpen(request)
	case wire.OpPrintClose:
		return s.handlePrintClose(request)
	default:
		return failure(wire.CodeServerError, fmt.Sprintf("unrecognized op %q", request.Op))
	}
}

func failure(code wire.ErrorCode, message string) *wire.Response {
	return &wire.Response{OK: false, Code: code, Error: message}
}

func (s *Server) handleFind(request *wire.Request) *wire.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.byName[request.Name]
	if !ok {
		return failure(wire.CodeNotFound, fmt.Sprintf("no variable named %q", request.Name))
	}
	return &wire.Response{OK: true, Handle: entry.handle}
}

func (s *Server) handleGet(request *wire.Request) *wire.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.byHandle[request.Handle]
	if !ok {
		return failure(wire.CodeNotFound, fmt.Sprintf("no variable with handle %d", request.Handle))
	}
	bounded, truncated := entry.val.Bound(request.MaxLen)
	return &wire.Response{OK: true, Value: &bounded, Truncated: truncated}
}

func (s *Server) handleGetType(request *wire.Request) *wire.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.byHandle[request.Handle]
	if !ok {
		return failure(wire.CodeNotFound, fmt.Sprintf("no variable with handle %d", request.Handle))
	}
	return &wire.Response{OK: true, Kind: entry.kind}
}

func (s *Server) handleSet(request *wire.Request) *wire.Response {
	s.mu.Lock()
	entry, ok := s.byHandle[request.Handle]
	if !ok {
		s.mu.Unlock()
		return failure(wire.CodeNotFound, fmt.Sprintf("no variable with handle %d", request.Handle))
	}
	if request.Kind != "" && request.Kind != entry.kind {
		s.mu.Unlock()
		return failure(wire.CodeProtocolViolation,
			fmt.Sprintf("stale type query: variable %q is %s, not %s", entry.name, entry.kind, request.Kind))
	}

	if entry.kind == value.KindString && len(request.Text) > value.MaxStringLen {
		s.mu.Unlock()
		return failure(wire.CodeResourceExhausted,
			fmt.Sprintf("string value exceeds %d bytes", value.MaxStringLen))
	}

	converted, err := value.Parse(entry.kind, request.Text)
	if err != nil {
		s.mu.Unlock()
		return failure(wire.CodeTypeMismatch, err.Error())
	}

	entry.val = converted
	notifyModified := entry.notify[wire.NotifyModified]
	handle := entry.handle
	s.mu.Unlock()

	if notifyModified {
		s.raise(wire.SignalModified, uint32(handle))
	}
	return &wire.Response{OK: true}
}

func (s *Server) handleNotify(request *wire.Request) *wire.Response {
	if !request.Notification.Valid() {
		return failure(wire.CodeServerError,
			fmt.Sprintf("unrecognized notification kind %q", request.Notification))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.byHandle[request.Handle]
	if !ok {
		return failure(wire.CodeNotFound, fmt.Sprintf("no variable with handle %d", request.Handle))
	}
	// Idempotent: re-registering the same (handle, kind) succeeds.
	entry.notify[request.Notification] = true
	return &wire.Response{OK: true}
}

func (s *Server) handleValidateFetch(request *wire.Request) *wire.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, ok := s.validations[request.TransactionID]
	if !ok {
		return failure(wire.CodeNotFound,
			fmt.Sprintf("no pending validation for transaction %d", request.TransactionID))
	}
	candidate := pending.candidate
	return &wire.Response{OK: true, Handle: pending.variable.handle, Value: &candidate}
}

func (s *Server) handleValidateRespond(request *wire.Request) *wire.Response {
	s.mu.Lock()
	pending, ok := s.validations[request.TransactionID]
	if !ok {
		s.mu.Unlock()
		return failure(wire.CodeProtocolViolation,
			fmt.Sprintf("transaction %d is not pending", request.TransactionID))
	}
	if request.Verdict != wire.VerdictAccept && request.Verdict != wire.VerdictReject {
		s.mu.Unlock()
		return failure(wire.CodeServerError, fmt.Sprintf("unrecognized verdict %q", request.Verdict))
	}

	delete(s.validations, request.TransactionID)

	var notifyHandle wire.Handle
	raiseModified := false
	if request.Verdict == wire.VerdictAccept {
		pending.variable.val = pending.candidate
		if pending.variable.notify[wire.NotifyModified] {
			raiseModified = true
			notifyHandle = pending.variable.handle
		}
	}
	s.mu.Unlock()

	if raiseModified {
		s.raise(wire.SignalModified, uint32(notifyHandle))
	}
	return &wire.Response{OK: true}
}

// addSubscriber registers an event connection. The connection is
// closed on server shutdown or when an event write fails.
func (s *Server) addSubscriber(conn *net.UnixConn) {
	sub := &subscriber{conn: conn}
	s.mu.Lock()
	s.subscribers[sub] = struct{}{}
	s.mu.Unlock()
}

// raise pushes an event frame to every subscriber. Failed subscribers
// are dropped; the test asserts on what healthy subscribers received.
func (s *Server) raise(signal int, payload uint32) {
	event := &wire.Event{Signal: signal, Payload: payload}

	s.mu.Lock()
	targets := make([]*subscriber, 0, len(s.subscribers))
	for sub := range s.subscribers {
		targets = append(targets, sub)
	}
	s.mu.Unlock()

	for _, sub := range targets {
		sub.mu.Lock()
		err := wire.WriteFrame(sub.conn, event)
		sub.mu.Unlock()
		if err != nil {
			s.logger.Debug("dropping subscriber", "error", err)
			sub.conn.Close()
			s.mu.Lock()
			delete(s.subscribers, sub)
			s.mu.Unlock()
		}
	}
}
