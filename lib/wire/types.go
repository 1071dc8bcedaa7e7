// Copyright 2026 The Varbridge Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"github.com/varbridge-foundation/varbridge/lib/value"
)

// Handle is a server-assigned identifier for a named variable. It is
// stable for the life of the server-side variable, copyable, and
// comparable; clients never dereference it locally.
type Handle uint32

// InvalidHandle is the zero Handle. The server never assigns it.
const InvalidHandle Handle = 0

// Op is the request type on the client→server connection.
type Op string

// Request ops. One request produces exactly one [Response] on the same
// connection, except "subscribe", which converts the connection into a
// one-way event stream after its response.
const (
	OpFind            Op = "find"
	OpGet             Op = "get"
	OpGetType         Op = "get-type"
	OpSet             Op = "set"
	OpNotify          Op = "notify"
	OpSubscribe       Op = "subscribe"
	OpValidateFetch   Op = "validate-fetch"
	OpValidateRespond Op = "validate-respond"
	OpPrintOpen       Op = "print-open"
	OpPrintClose      Op = "print-close"
)

// Verdict values for OpValidateRespond.
const (
	VerdictAccept = "accept"
	VerdictReject = "reject"
)

// ErrorCode classifies a failed response. The codes mirror the client
// error taxonomy; ServerUnavailable has no code because it is a
// client-side condition (the connection itself failed).
type ErrorCode string

const (
	// CodeNotFound: name, handle, or transaction id lookup miss. A
	// normal, recoverable outcome.
	CodeNotFound ErrorCode = "not-found"

	// CodeTypeMismatch: text could not be converted to the variable's
	// declared type during a set.
	CodeTypeMismatch ErrorCode = "type-mismatch"

	// CodeProtocolViolation: operating on a retired or unknown
	// transaction id, or closing an already-closed channel.
	CodeProtocolViolation ErrorCode = "protocol-violation"

	// CodeResourceExhausted: a value exceeded a fixed buffer bound.
	CodeResourceExhausted ErrorCode = "resource-exhausted"

	// CodeServerError: any other server-side failure.
	CodeServerError ErrorCode = "server-error"
)

// Request is a client→server frame.
type Request struct {
	// Op selects the operation. Always present.
	Op Op `cbor:"op"`

	// Name addresses a variable by name (find, get).
	Name string `cbor:"name,omitempty"`

	// Handle addresses a variable directly (get-type, set, notify).
	Handle Handle `cbor:"handle,omitempty"`

	// Text is the textual value for set. The server converts it
	// against the variable's declared kind.
	Text string `cbor:"text,omitempty"`

	// Kind is the declared kind the client resolved before a set.
	// The server rejects the set with protocol-violation when it
	// disagrees with the variable's actual kind, catching stale
	// type queries.
	Kind value.Kind `cbor:"kind,omitempty"`

	// Notification is the event kind for notify.
	Notification Notification `cbor:"notification,omitempty"`

	// MaxLen bounds string payloads in the get response. Zero means
	// the server default (value.MaxStringLen).
	MaxLen int `cbor:"max_len,omitempty"`

	// TransactionID correlates validate-fetch, validate-respond,
	// print-open, and print-close with the event that announced the
	// transaction.
	TransactionID uint32 `cbor:"transaction_id,omitempty"`

	// Verdict is "accept" or "reject" for validate-respond.
	Verdict string `cbor:"verdict,omitempty"`
}

// Response is a server→client frame answering one Request.
type Response struct {
	// OK indicates whether the request succeeded.
	OK bool `cbor:"ok"`

	// Code classifies the failure when OK is false.
	Code ErrorCode `cbor:"code,omitempty"`

	// Error is the human-readable failure description.
	Error string `cbor:"error,omitempty"`

	// Handle is the resolved variable handle (find, validate-fetch,
	// print-open).
	Handle Handle `cbor:"handle,omitempty"`

	// Kind is the variable's declared kind (get-type).
	Kind value.Kind `cbor:"kind,omitempty"`

	// Value is the variable's current value (get) or the candidate
	// value under validation (validate-fetch).
	Value *value.Value `cbor:"value,omitempty"`

	// Truncated reports that a string payload was cut at the
	// requested bound (get).
	Truncated bool `cbor:"truncated,omitempty"`
}

// Event is a server→client frame on a subscribed connection. It is
// the wire form of the signal the original transport delivered: the
// signal number plus the signal's integer side-payload.
type Event struct {
	// Signal is one of the Signal* constants.
	Signal int `cbor:"signal"`

	// Payload carries the transaction id for validate and print
	// events, and the variable handle for modified and calc events.
	Payload uint32 `cbor:"payload,omitempty"`
}
