// Copyright 2026 The Varbridge Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/varbridge-foundation/varbridge/lib/codec"
)

// MaxFrameSize bounds a single frame. Large enough for any value
// payload within value.MaxStringLen plus headroom; anything bigger is
// a corrupt stream, not a legitimate frame.
const MaxFrameSize = 1 << 20

// WriteFrame encodes v to CBOR and writes it with a 4-byte big-endian
// length prefix.
//
// Exact-length framing, rather than a streaming decoder, keeps the
// byte-stream position deterministic between frames. The print-open
// exchange passes a file descriptor out-of-band immediately after a
// response frame, which would race a decoder's read-ahead buffer.
func WriteFrame(w io.Writer, v any) error {
	payload, err := codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("wire: encoding frame: %w", err)
	}
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("wire: frame size %d exceeds limit %d", len(payload), MaxFrameSize)
	}

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("wire: writing frame header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("wire: writing frame payload: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame and decodes it into v. It
// reads exactly the frame's bytes from r and nothing more.
func ReadFrame(r io.Reader, v any) error {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		// Propagate EOF unchanged so callers can distinguish a
		// cleanly closed stream from a torn frame.
		if err == io.EOF {
			return io.EOF
		}
		return fmt.Errorf("wire: reading frame header: %w", err)
	}

	length := binary.BigEndian.Uint32(header[:])
	if length > MaxFrameSize {
		return fmt.Errorf("wire: frame size %d exceeds limit %d", length, MaxFrameSize)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return fmt.Errorf("wire: reading frame payload: %w", err)
	}
	if err := codec.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("wire: decoding frame: %w", err)
	}
	return nil
}
