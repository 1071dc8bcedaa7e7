// Copyright 2026 The Varbridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package varbridge exposes a variable server to embedding
// environments as a small capability table: variable lookup, bounded
// reads, text writes, notification registration, a blocking event
// wait, the two-phase validation exchange, and print sessions over
// server-passed descriptors.
//
// A Bridge owns one lazily opened server session. It is built for the
// sequential, blocking style of its callers: one goroutine drives the
// wait loop and dispatches on the returned signal number, issuing the
// follow-up calls (ValidateStart/ValidateEnd, OpenPrintSession) before
// waiting again. Validation and print transactions correlate solely by
// transaction id.
package varbridge
