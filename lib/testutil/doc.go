// Copyright 2026 The Varbridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for varbridge packages.
//
// [SocketDir] creates a temporary directory in /tmp suitable for Unix
// domain sockets (sun_path is limited to 108 bytes, which deeply
// nested test temp directories can exceed).
//
// [RequireReceive], [RequireSend], and [RequireClosed] encapsulate the
// timeout safety valve pattern (select with time.After fallback) so
// that individual tests do not need direct time.After calls.
//
// [UniqueTransactionID] generates monotonically increasing transaction
// ids for tests that share a server across subtests.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable. This package has no
// varbridge-internal dependencies.
package testutil
