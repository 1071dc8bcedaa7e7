// Copyright 2026 The Varbridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package varservertest provides an in-memory variable server for
// tests and local development. It speaks the complete wire protocol
// over a Unix socket, including event push to subscribers and
// descriptor passing for print sessions, and exposes a control API
// (Define, ProposeValue, RequestPrint) for driving server-initiated
// flows from test code.
package varservertest
