// Copyright 2026 The Varbridge Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/varbridge-foundation/varbridge/lib/value"
)

func TestFrameRoundTrip(t *testing.T) {
	var buffer bytes.Buffer

	request := &Request{
		Op:     OpSet,
		Handle: 12,
		Kind:   value.KindInt32,
		Text:   "25",
	}
	if err := WriteFrame(&buffer, request); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	var decoded Request
	if err := ReadFrame(&buffer, &decoded); err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if decoded.Op != OpSet || decoded.Handle != 12 || decoded.Kind != value.KindInt32 || decoded.Text != "25" {
		t.Fatalf("round trip mangled request: %+v", decoded)
	}
}

func TestFrameSequence(t *testing.T) {
	// Multiple frames on one stream decode in order with no residue.
	var buffer bytes.Buffer
	for _, signal := range []int{SignalModified, SignalValidate, SignalTimer} {
		if err := WriteFrame(&buffer, &Event{Signal: signal, Payload: 7}); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}
	for _, want := range []int{SignalModified, SignalValidate, SignalTimer} {
		var event Event
		if err := ReadFrame(&buffer, &event); err != nil {
			t.Fatalf("ReadFrame: %v", err)
		}
		if event.Signal != want || event.Payload != 7 {
			t.Fatalf("got event %+v, want signal %d payload 7", event, want)
		}
	}
	if buffer.Len() != 0 {
		t.Fatalf("%d residual bytes after decoding all frames", buffer.Len())
	}
}

func TestReadFrameEOF(t *testing.T) {
	var event Event
	err := ReadFrame(bytes.NewReader(nil), &event)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("empty stream: got %v, want io.EOF", err)
	}

	// A torn length prefix is an unexpected EOF, not a clean one.
	err = ReadFrame(bytes.NewReader([]byte{0, 0}), &event)
	if errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("torn prefix: got %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	// Length prefix far beyond MaxFrameSize: rejected before any
	// allocation or payload read.
	header := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	var event Event
	err := ReadFrame(bytes.NewReader(header), &event)
	if err == nil || !strings.Contains(err.Error(), "exceeds limit") {
		t.Fatalf("oversized length accepted: %v", err)
	}
}

func TestWriteFrameRejectsOversizedPayload(t *testing.T) {
	request := &Request{Op: OpSet, Text: strings.Repeat("x", MaxFrameSize+1)}
	if err := WriteFrame(io.Discard, request); err == nil {
		t.Fatal("oversized payload accepted")
	}
}

func TestSignalMappingIsBijective(t *testing.T) {
	kinds := []Notification{NotifyModified, NotifyCalc, NotifyValidate, NotifyPrint}
	seen := make(map[int]Notification)
	for _, kind := range kinds {
		signal, ok := SignalFor(kind)
		if !ok {
			t.Fatalf("SignalFor(%s) not ok", kind)
		}
		if previous, duplicate := seen[signal]; duplicate {
			t.Fatalf("signal %d assigned to both %s and %s", signal, previous, kind)
		}
		seen[signal] = kind

		back, ok := NotificationFor(signal)
		if !ok || back != kind {
			t.Fatalf("NotificationFor(%d) = (%s, %v), want %s", signal, back, ok, kind)
		}
	}

	// The timer signal is in the wait set but is not registerable.
	if _, ok := NotificationFor(SignalTimer); ok {
		t.Fatal("SignalTimer mapped to a notification kind")
	}
}

func TestSignalNumbersAreStable(t *testing.T) {
	// Callers hardcode dispatch on these; a renumbering is a breaking
	// protocol change, not a refactor.
	stable := map[int]int{
		SignalTimer:    39,
		SignalModified: 40,
		SignalCalc:     41,
		SignalValidate: 42,
		SignalPrint:    43,
	}
	for got, want := range stable {
		if got != want {
			t.Fatalf("signal renumbered: got %d, want %d", got, want)
		}
	}
}
