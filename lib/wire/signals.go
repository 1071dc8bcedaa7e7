// Copyright 2026 The Varbridge Authors
// SPDX-License-Identifier: Apache-2.0

package wire

// Notification is the kind of event a client can register interest in
// for a variable. Exactly one kind maps to exactly one signal number;
// the mapping is fixed at compile time and exported so callers can
// hardcode dispatch on it.
type Notification string

const (
	// NotifyModified: the variable's value changed.
	NotifyModified Notification = "modified"

	// NotifyCalc: the variable is about to be read and the client is
	// expected to compute and set its value.
	NotifyCalc Notification = "calc"

	// NotifyValidate: another client proposed a new value; this
	// client must accept or reject it via the validation exchange.
	NotifyValidate Notification = "validate"

	// NotifyPrint: another client asked for the variable's textual
	// rendering; this client must serve it through a print session.
	NotifyPrint Notification = "print"
)

// sigRTMin is the first POSIX realtime signal as seen by glibc
// userspace on Linux (the kernel reserves 32 and 33 for the NPTL
// implementation). The event protocol numbers its signals relative to
// this base so they match the server's native signal assignments.
const sigRTMin = 34

// Signal numbers delivered in events. Stable across builds — callers
// hardcode dispatch on them. SignalTimer is the fixed timer signal
// included in the blocking-wait set; it is not a registerable
// notification kind.
const (
	SignalTimer    = sigRTMin + 5
	SignalModified = sigRTMin + 6
	SignalCalc     = sigRTMin + 7
	SignalValidate = sigRTMin + 8
	SignalPrint    = sigRTMin + 9
)

// SignalFor returns the signal number delivered for a notification
// kind. ok is false for unrecognized kinds.
func SignalFor(kind Notification) (signal int, ok bool) {
	switch kind {
	case NotifyModified:
		return SignalModified, true
	case NotifyCalc:
		return SignalCalc, true
	case NotifyValidate:
		return SignalValidate, true
	case NotifyPrint:
		return SignalPrint, true
	default:
		return 0, false
	}
}

// NotificationFor returns the notification kind announced by a signal
// number. ok is false for SignalTimer and unrecognized signals.
func NotificationFor(signal int) (kind Notification, ok bool) {
	switch signal {
	case SignalModified:
		return NotifyModified, true
	case SignalCalc:
		return NotifyCalc, true
	case SignalValidate:
		return NotifyValidate, true
	case SignalPrint:
		return NotifyPrint, true
	default:
		return "", false
	}
}

// Valid reports whether the notification kind is recognized.
func (n Notification) Valid() bool {
	_, ok := SignalFor(n)
	return ok
}
