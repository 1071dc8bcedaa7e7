// Copyright 2026 The Varbridge Authors
// SPDX-License-Identifier: Apache-2.0

package value

import (
	"fmt"
	"strconv"
)

// Kind identifies the declared type of a variable. The payload of a
// [Value] is interpreted solely through its Kind.
type Kind string

// The variable kinds supported by the server's type system.
const (
	KindString Kind = "string"
	KindInt16  Kind = "int16"
	KindUint16 Kind = "uint16"
	KindInt32  Kind = "int32"
	KindUint32 Kind = "uint32"
	KindInt64  Kind = "int64"
	KindUint64 Kind = "uint64"
	KindFloat  Kind = "float"
)

// MaxStringLen is the upper bound on string payloads. The server
// enforces the same bound on its side; a string arriving above it must
// be truncated or rejected at the client boundary, never copied past
// the bound.
const MaxStringLen = 8192

// Value is a tagged union of the variable kinds. Exactly one payload
// field is meaningful, selected by Kind: Text for string, Int for the
// signed integer kinds, Uint for the unsigned integer kinds, and Float
// for float. Values are plain data — copyable and comparable via
// [Value.Equal].
type Value struct {
	Kind Kind `cbor:"kind" json:"kind"`

	// Text is the payload for KindString.
	Text string `cbor:"text,omitempty" json:"text,omitempty"`

	// Int is the payload for KindInt16, KindInt32, and KindInt64.
	Int int64 `cbor:"int,omitempty" json:"int,omitempty"`

	// Uint is the payload for KindUint16, KindUint32, and KindUint64.
	Uint uint64 `cbor:"uint,omitempty" json:"uint,omitempty"`

	// Float is the payload for KindFloat. float32 matches the width
	// of the server's float type.
	Float float32 `cbor:"float,omitempty" json:"float,omitempty"`
}

// String returns a Value of KindString. The text is truncated at
// MaxStringLen; use [Bound] first when truncation must be reported
// instead of applied.
func String(text string) Value {
	if len(text) > MaxStringLen {
		text = text[:MaxStringLen]
	}
	return Value{Kind: KindString, Text: text}
}

// Int16 returns a Value of KindInt16.
func Int16(v int16) Value { return Value{Kind: KindInt16, Int: int64(v)} }

// Uint16 returns a Value of KindUint16.
func Uint16(v uint16) Value { return Value{Kind: KindUint16, Uint: uint64(v)} }

// Int32 returns a Value of KindInt32.
func Int32(v int32) Value { return Value{Kind: KindInt32, Int: int64(v)} }

// Uint32 returns a Value of KindUint32.
func Uint32(v uint32) Value { return Value{Kind: KindUint32, Uint: uint64(v)} }

// Int64 returns a Value of KindInt64.
func Int64(v int64) Value { return Value{Kind: KindInt64, Int: v} }

// Uint64 returns a Value of KindUint64.
func Uint64(v uint64) Value { return Value{Kind: KindUint64, Uint: v} }

// Float returns a Value of KindFloat.
func Float(v float32) Value { return Value{Kind: KindFloat, Float: v} }

// Parse converts canonical text into a Value of the given kind. Range
// overflow and malformed text return an error; the caller maps it to
// the type-mismatch condition. An unrecognized kind is an error, not
// a panic — new server-side kinds must degrade cleanly.
func Parse(kind Kind, text string) (Value, error) {
	switch kind {
	case KindString:
		if len(text) > MaxStringLen {
			return Value{}, fmt.Errorf("value: string payload exceeds %d bytes", MaxStringLen)
		}
		return Value{Kind: KindString, Text: text}, nil
	case KindInt16:
		v, err := strconv.ParseInt(text, 10, 16)
		if err != nil {
			return Value{}, fmt.Errorf("value: parsing %q as int16: %w", text, err)
		}
		return Int16(int16(v)), nil
	case KindUint16:
		v, err := strconv.ParseUint(text, 10, 16)
		if err != nil {
			return Value{}, fmt.Errorf("value: parsing %q as uint16: %w", text, err)
		}
		return Uint16(uint16(v)), nil
	case KindInt32:
		v, err := strconv.ParseInt(text, 10, 32)
		if err != nil {
			return Value{}, fmt.Errorf("value: parsing %q as int32: %w", text, err)
		}
		return Int32(int32(v)), nil
	case KindUint32:
		v, err := strconv.ParseUint(text, 10, 32)
		if err != nil {
			return Value{}, fmt.Errorf("value: parsing %q as uint32: %w", text, err)
		}
		return Uint32(uint32(v)), nil
	case KindInt64:
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("value: parsing %q as int64: %w", text, err)
		}
		return Int64(v), nil
	case KindUint64:
		v, err := strconv.ParseUint(text, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("value: parsing %q as uint64: %w", text, err)
		}
		return Uint64(v), nil
	case KindFloat:
		v, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return Value{}, fmt.Errorf("value: parsing %q as float: %w", text, err)
		}
		return Float(float32(v)), nil
	default:
		return Value{}, fmt.Errorf("value: unrecognized kind %q", kind)
	}
}

// Format renders the payload in the canonical text form accepted by
// [Parse]. An unrecognized kind renders as an empty string.
func (v Value) Format() string {
	switch v.Kind {
	case KindString:
		return v.Text
	case KindInt16, KindInt32, KindInt64:
		return strconv.FormatInt(v.Int, 10)
	case KindUint16, KindUint32, KindUint64:
		return strconv.FormatUint(v.Uint, 10)
	case KindFloat:
		return strconv.FormatFloat(float64(v.Float), 'g', -1, 32)
	default:
		return ""
	}
}

// Equal reports whether two values have the same kind and payload.
// Only the payload field selected by the kind participates.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.Text == other.Text
	case KindInt16, KindInt32, KindInt64:
		return v.Int == other.Int
	case KindUint16, KindUint32, KindUint64:
		return v.Uint == other.Uint
	case KindFloat:
		return v.Float == other.Float
	default:
		return false
	}
}

// Bound enforces the string payload limit against maxLen (capped at
// MaxStringLen). It returns the value with the payload truncated and
// reports whether truncation occurred, so callers can choose between
// deterministic truncation and rejection. Non-string kinds pass
// through untouched.
func (v Value) Bound(maxLen int) (Value, bool) {
	if v.Kind != KindString {
		return v, false
	}
	if maxLen <= 0 || maxLen > MaxStringLen {
		maxLen = MaxStringLen
	}
	if len(v.Text) <= maxLen {
		return v, false
	}
	v.Text = v.Text[:maxLen]
	return v, true
}

// Valid reports whether the kind is one of the recognized kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindString, KindInt16, KindUint16, KindInt32, KindUint32,
		KindInt64, KindUint64, KindFloat:
		return true
	}
	return false
}
