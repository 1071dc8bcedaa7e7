// Copyright 2026 The Varbridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding used by every frame of the
// variable-server wire protocol. Encoding is deterministic (RFC 8949
// Core Deterministic Encoding) so identical frames are byte-identical;
// decoding ignores unknown fields for forward compatibility.
//
// Consumers import only this package, not fxamacker/cbor directly, so
// the encoder configuration is defined in exactly one place.
package codec
