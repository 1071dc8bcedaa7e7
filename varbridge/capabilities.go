// Copyright 2026 The Varbridge Authors
// SPDX-License-Identifier: Apache-2.0

package varbridge

import (
	"context"

	"github.com/varbridge-foundation/varbridge/lib/value"
	"github.com/varbridge-foundation/varbridge/lib/wire"
)

// Capability names for the operation table a hosting environment
// installs. Hosts bind each name to the matching CapabilitySet field;
// the names are part of the contract and stable across builds.
const (
	CapFind              = "find"
	CapGet               = "get"
	CapSet               = "set"
	CapNotify            = "notify"
	CapWait              = "wait"
	CapValidateStart     = "validate_start"
	CapValidateEnd       = "validate_end"
	CapOpenPrintSession  = "open_print_session"
	CapClosePrintSession = "close_print_session"
	CapTeardown          = "__unload"
)

// CapabilitySet is the operation table exposed to a hosting
// environment: the nine bridge operations plus the teardown hook, all
// bound to one Bridge. Marshalling these into a concrete scripting
// runtime is the host's concern; the set defines only the contract.
type CapabilitySet struct {
	Find          func(ctx context.Context, name string) (wire.Handle, error)
	Get           func(ctx context.Context, name string) (value.Value, error)
	Set           func(ctx context.Context, ref Ref, text string) error
	Notify        func(ctx context.Context, handle wire.Handle, kind wire.Notification) error
	Wait          func() (signal int, payload uint32, err error)
	ValidateStart func(ctx context.Context, transactionID uint32) (wire.Handle, value.Value, error)
	ValidateEnd   func(ctx context.Context, transactionID uint32, accept bool) error
	OpenPrint     func(ctx context.Context, transactionID uint32) (*PrintSession, error)

	// Teardown closes the bridge when the hosting context unloads.
	Teardown func() error
}

// Capabilities returns the operation table bound to this bridge. The
// first operation through the table performs the lazy connection
// setup; Teardown closes it.
func (b *Bridge) Capabilities() CapabilitySet {
	return CapabilitySet{
		Find:          b.Find,
		Get:           b.Get,
		Set:           b.Set,
		Notify:        b.Notify,
		Wait:          b.Wait,
		ValidateStart: b.ValidateStart,
		ValidateEnd:   b.ValidateEnd,
		OpenPrint:     b.OpenPrintSession,
		Teardown:      b.Close,
	}
}

// Constants returns the numeric identifiers exported alongside the
// capability table: the signal number per event kind and the
// notification kinds by name. Callers hardcode dispatch on these, so
// the values are stable across builds.
func Constants() map[string]int {
	return map[string]int{
		"SIG_VAR_TIMER":    wire.SignalTimer,
		"SIG_VAR_MODIFIED": wire.SignalModified,
		"SIG_VAR_CALC":     wire.SignalCalc,
		"SIG_VAR_VALIDATE": wire.SignalValidate,
		"SIG_VAR_PRINT":    wire.SignalPrint,
	}
}

// NotificationKinds returns the registerable notification kinds by
// exported name, for hosts that surface them as named constants.
func NotificationKinds() map[string]wire.Notification {
	return map[string]wire.Notification{
		"NOTIFY_MODIFIED": wire.NotifyModified,
		"NOTIFY_CALC":     wire.NotifyCalc,
		"NOTIFY_VALIDATE": wire.NotifyValidate,
		"NOTIFY_PRINT":    wire.NotifyPrint,
	}
}
