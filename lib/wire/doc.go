// Copyright 2026 The Varbridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire defines the frame types for the client↔variable-server
// Unix socket protocol. Both the varserver client and varservertest
// import this package so the wire contract is defined once rather than
// mirrored.
//
// Frames are length-prefixed CBOR ([WriteFrame], [ReadFrame]). A
// request connection carries [Request]/[Response] pairs in lockstep;
// a subscribed connection carries a one-way stream of [Event] frames,
// each the wire form of a delivered notification signal. The signal
// numbers and their bijective mapping to [Notification] kinds are
// fixed at compile time ([SignalFor], [NotificationFor]) because
// callers hardcode dispatch on them.
package wire
