// Copyright 2026 The Varbridge Authors
// SPDX-License-Identifier: Apache-2.0

package varservertest

import (
	"fmt"

	"github.com/varbridge-foundation/varbridge/lib/value"
	"github.com/varbridge-foundation/varbridge/lib/wire"
)

// Define adds a variable to the server's table and returns its handle.
// The initial value is parsed according to kind.
func (s *Server) Define(name string, kind value.Kind, text string) (wire.Handle, error) {
	if !kind.Valid() {
		return wire.InvalidHandle, fmt.Errorf("varservertest: invalid kind %q", kind)
	}
	initial, err := value.Parse(kind, text)
	if err != nil {
		return wire.InvalidHandle, fmt.Errorf("varservertest: define %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byName[name]; exists {
		return wire.InvalidHandle, fmt.Errorf("varservertest: variable %q already defined", name)
	}
	entry := &variable{
		name:   name,
		handle: s.nextHandle,
		kind:   kind,
		val:    initial,
		notify: make(map[wire.Notification]bool),
	}
	s.nextHandle++
	s.byName[name] = entry
	s.byHandle[entry.handle] = entry
	return entry.handle, nil
}

// Value reports the current value of a variable by name.
func (s *Server) Value(name string) (value.Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.byName[name]
	if !ok {
		return value.Value{}, false
	}
	return entry.val, true
}

// Registered reports whether the named variable has a registration for
// the given notification kind.
func (s *Server) Registered(name string, kind wire.Notification) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.byName[name]
	return ok && entry.notify[kind]
}

// ProposeValue models another client writing to a validated variable:
// the candidate is parked under a fresh transaction id and a validate
// event is raised. The write is not applied until an accept verdict
// arrives. The named variable must have a validate registration.
func (s *Server) ProposeValue(name, text string) (uint32, error) {
	s.mu.Lock()
	entry, ok := s.byName[name]
	if !ok {
		s.mu.Unlock()
		return 0, fmt.Errorf("varservertest: no variable named %q", name)
	}
	if !entry.notify[wire.NotifyValidate] {
		s.mu.Unlock()
		return 0, fmt.Errorf("varservertest: %q has no validate registration", name)
	}
	candidate, err := value.Parse(entry.kind, text)
	if err != nil {
		s.mu.Unlock()
		return 0, fmt.Errorf("varservertest: propose %s: %w", name, err)
	}

	s.nextTransaction++
	transactionID := s.nextTransaction
	s.validations[transactionID] = &pendingValidation{
		variable:  entry,
		candidate: candidate,
	}
	s.mu.Unlock()

	s.raise(wire.SignalValidate, transactionID)
	return transactionID, nil
}

// ValidationPending reports whether a validation transaction is still
// awaiting a verdict.
func (s *Server) ValidationPending(transactionID uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.validations[transactionID]
	return ok
}

// RequestPrint asks a registered client to render the named variable:
// a pipe-backed print transaction is created and a print event raised.
// The returned capture collects everything the client writes into the
// session. The variable must have a print registration.
func (s *Server) RequestPrint(name string) (uint32, *PrintCapture, error) {
	s.mu.Lock()
	entry, ok := s.byName[name]
	if !ok {
		s.mu.Unlock()
		return 0, nil, fmt.Errorf("varservertest: no variable named %q", name)
	}
	if !entry.notify[wire.NotifyPrint] {
		s.mu.Unlock()
		return 0, nil, fmt.Errorf("varservertest: %q has no print registration", name)
	}

	capture, err := newPrintCapture()
	if err != nil {
		s.mu.Unlock()
		return 0, nil, err
	}
	s.nextTransaction++
	transactionID := s.nextTransaction
	s.prints[transactionID] = &pendingPrint{
		variable: entry,
		capture:  capture,
	}
	s.mu.Unlock()

	s.raise(wire.SignalPrint, transactionID)
	return transactionID, capture, nil
}

// RaiseCalc raises a calc event for the named variable, as the server
// would before serving a read of a calculated variable.
func (s *Server) RaiseCalc(name string) error {
	s.mu.Lock()
	entry, ok := s.byName[name]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("varservertest: no variable named %q", name)
	}
	if !entry.notify[wire.NotifyCalc] {
		s.mu.Unlock()
		return fmt.Errorf("varservertest: %q has no calc registration", name)
	}
	handle := entry.handle
	s.mu.Unlock()

	s.raise(wire.SignalCalc, uint32(handle))
	return nil
}

// RaiseEvent pushes a raw event frame to all subscribers. Tests use it
// for cases the higher-level helpers do not model, such as server-side
// timer ticks.
func (s *Server) RaiseEvent(signal int, payload uint32) {
	s.raise(signal, payload)
}
