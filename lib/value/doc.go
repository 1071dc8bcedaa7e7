// Copyright 2026 The Varbridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package value defines the tagged-union representation of variable
// values exchanged with the variable server.
//
// [Value] pairs a [Kind] with exactly one payload field; every
// consumer switches exhaustively on the kind with a defined fallback
// for kinds it does not recognize. [Parse] and [Value.Format] define
// the canonical text form used by the set path (values are always
// supplied as text and converted against the variable's declared
// type). String payloads are bounded by [MaxStringLen]; [Value.Bound]
// applies a caller-supplied tighter bound and reports truncation.
package value
