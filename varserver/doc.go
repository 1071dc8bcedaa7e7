// Copyright 2026 The Varbridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package varserver is the typed client for the variable server's
// Unix socket protocol. It covers exactly the server surface the
// bridge consumes: name resolution, value fetch with a bounded
// buffer, text-driven set with a preceding type query, notification
// registration, the two-phase validation exchange, print channel
// open/close with out-of-band descriptor transfer, and the event
// stream subscription.
//
// A [Conn] carries request/response frames in lockstep; [Conn.Subscribe]
// opens a second, one-way connection for event frames so notifications
// never interleave with responses. All failures surface as either
// [ErrServerUnavailable] (the connection itself failed — fatal until
// redialed) or a [*ServerError] carrying the wire error code.
//
// The package performs no caching: every call is a live round trip.
package varserver
