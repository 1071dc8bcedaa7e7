// Copyright 2026 The Varbridge Authors
// SPDX-License-Identifier: Apache-2.0

package varserver

import (
	"errors"
	"fmt"

	"github.com/varbridge-foundation/varbridge/lib/wire"
)

// ErrServerUnavailable indicates that no connection to the variable
// server exists or the connection was lost mid-exchange. It is fatal
// to all subsequent calls on the same Conn until a new connection is
// dialed. Test with errors.Is.
var ErrServerUnavailable = errors.New("varserver: server unavailable")

// ServerError represents a structured failure response from the
// variable server. Callers can use errors.As to extract the code:
//
//	var serverErr *varserver.ServerError
//	if errors.As(err, &serverErr) {
//	    if serverErr.Code == wire.CodeNotFound { ... }
//	}
//
// Or the IsNotFound / IsTypeMismatch / IsProtocolViolation /
// IsResourceExhausted helpers for the common cases.
type ServerError struct {
	// Code is the wire error code (e.g., "not-found").
	Code wire.ErrorCode

	// Message is the human-readable error description from the server.
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("varserver: %s: %s", e.Code, e.Message)
}

// IsServerError checks whether err is a *ServerError with the given code.
func IsServerError(err error, code wire.ErrorCode) bool {
	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		return serverErr.Code == code
	}
	return false
}

// IsNotFound reports a name, handle, or transaction lookup miss — a
// normal, recoverable outcome.
func IsNotFound(err error) bool { return IsServerError(err, wire.CodeNotFound) }

// IsTypeMismatch reports a failed text-to-value conversion during set.
func IsTypeMismatch(err error) bool { return IsServerError(err, wire.CodeTypeMismatch) }

// IsProtocolViolation reports an operation on a retired or unknown
// transaction, or a double close.
func IsProtocolViolation(err error) bool { return IsServerError(err, wire.CodeProtocolViolation) }

// IsResourceExhausted reports a value too large for a fixed bound.
func IsResourceExhausted(err error) bool { return IsServerError(err, wire.CodeResourceExhausted) }

// responseError converts a failed Response into a *ServerError. A
// response without a code (an old or misbehaving server) maps to
// CodeServerError rather than being treated as success.
func responseError(response *wire.Response) error {
	if response.OK {
		return nil
	}
	code := response.Code
	if code == "" {
		code = wire.CodeServerError
	}
	return &ServerError{Code: code, Message: response.Error}
}
