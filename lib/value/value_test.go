// Copyright 2026 The Varbridge Authors
// SPDX-License-Identifier: Apache-2.0

package value

import (
	"strings"
	"testing"
)

func TestParseRoundTrip(t *testing.T) {
	cases := []struct {
		kind Kind
		text string
		want Value
	}{
		{KindString, "hello", String("hello")},
		{KindInt16, "-42", Int16(-42)},
		{KindUint16, "65535", Uint16(65535)},
		{KindInt32, "-2147483648", Int32(-2147483648)},
		{KindUint32, "4294967295", Uint32(4294967295)},
		{KindInt64, "-9000000000", Int64(-9000000000)},
		{KindUint64, "18000000000", Uint64(18000000000)},
		{KindFloat, "21.5", Float(21.5)},
	}
	for _, c := range cases {
		parsed, err := Parse(c.kind, c.text)
		if err != nil {
			t.Fatalf("Parse(%s, %q): %v", c.kind, c.text, err)
		}
		if !parsed.Equal(c.want) {
			t.Errorf("Parse(%s, %q) = %+v, want %+v", c.kind, c.text, parsed, c.want)
		}
		if got := parsed.Format(); got != c.text {
			t.Errorf("Format after Parse(%s, %q) = %q", c.kind, c.text, got)
		}
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	cases := []struct {
		kind Kind
		text string
	}{
		{KindInt16, "not a number"},
		{KindInt16, "70000"},
		{KindUint16, "-1"},
		{KindUint32, "4294967296"},
		{KindFloat, "one point five"},
		{Kind("complex"), "1+2i"},
	}
	for _, c := range cases {
		if _, err := Parse(c.kind, c.text); err == nil {
			t.Errorf("Parse(%s, %q) succeeded, want error", c.kind, c.text)
		}
	}
}

func TestParseRejectsOversizedString(t *testing.T) {
	long := strings.Repeat("x", MaxStringLen+1)
	if _, err := Parse(KindString, long); err == nil {
		t.Fatal("Parse accepted a string over MaxStringLen")
	}
	exact, err := Parse(KindString, strings.Repeat("x", MaxStringLen))
	if err != nil {
		t.Fatalf("Parse rejected a string at exactly MaxStringLen: %v", err)
	}
	if len(exact.Text) != MaxStringLen {
		t.Fatalf("payload length = %d, want %d", len(exact.Text), MaxStringLen)
	}
}

func TestBoundTruncatesStrings(t *testing.T) {
	v := String("temperature reading")

	bounded, truncated := v.Bound(11)
	if !truncated {
		t.Fatal("Bound reported no truncation for an oversized payload")
	}
	if bounded.Text != "temperature" {
		t.Fatalf("bounded payload = %q", bounded.Text)
	}

	// Within the bound: untouched.
	same, truncated := v.Bound(100)
	if truncated || same.Text != v.Text {
		t.Fatalf("Bound(100) = (%q, %v), want untouched", same.Text, truncated)
	}

	// Non-string kinds pass through whatever the bound.
	number := Int32(7)
	passed, truncated := number.Bound(1)
	if truncated || !passed.Equal(number) {
		t.Fatalf("Bound mangled a non-string value: %+v", passed)
	}
}

func TestEqualDistinguishesKinds(t *testing.T) {
	if Int32(1).Equal(Int64(1)) {
		t.Error("values of different kinds compared equal")
	}
	if !Float(2.5).Equal(Float(2.5)) {
		t.Error("identical floats compared unequal")
	}
	if String("a").Equal(String("b")) {
		t.Error("different strings compared equal")
	}
}

func TestKindValid(t *testing.T) {
	for _, kind := range []Kind{KindString, KindInt16, KindUint16, KindInt32, KindUint32, KindInt64, KindUint64, KindFloat} {
		if !kind.Valid() {
			t.Errorf("%s reported invalid", kind)
		}
	}
	if Kind("bool").Valid() {
		t.Error("unrecognized kind reported valid")
	}
}
