// Copyright 2026 The Varbridge Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/varbridge-foundation/varbridge/lib/wire"
	"github.com/varbridge-foundation/varbridge/varbridge"
)

// runWatch registers the requested notification kinds on one variable,
// then blocks in the event loop. Validate events are answered with the
// configured verdict; print events are served by rendering the
// variable's current value into the session.
func runWatch(ctx context.Context, bridge *varbridge.Bridge, args []string, timeout time.Duration, acceptAll bool, logger *slog.Logger) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: varbridge watch <name> [kind...]")
	}
	name := args[0]
	kinds := []wire.Notification{wire.NotifyModified}
	if len(args) > 1 {
		kinds = kinds[:0]
		for _, raw := range args[1:] {
			kind := wire.Notification(raw)
			if !kind.Valid() {
				return fmt.Errorf("unrecognized notification kind %q", raw)
			}
			kinds = append(kinds, kind)
		}
	}

	setupCtx, cancel := withDeadline(ctx, timeout)
	handle, err := bridge.Find(setupCtx, name)
	if err != nil {
		cancel()
		return err
	}
	for _, kind := range kinds {
		if err := bridge.Notify(setupCtx, handle, kind); err != nil {
			cancel()
			return fmt.Errorf("register %s: %w", kind, err)
		}
	}
	cancel()

	logger.Info("watching", "name", name, "handle", handle, "kinds", kinds)
	for {
		signal, payload, err := bridge.Wait()
		if err != nil {
			return err
		}
		if err := dispatch(ctx, bridge, signal, payload, timeout, acceptAll); err != nil {
			logger.Error("event handling failed",
				"signal", signal, "payload", payload, "error", err)
		}
	}
}

func dispatch(ctx context.Context, bridge *varbridge.Bridge, signal int, payload uint32, timeout time.Duration, acceptAll bool) error {
	ctx, cancel := withDeadline(ctx, timeout)
	defer cancel()

	switch signal {
	case wire.SignalTimer:
		fmt.Println("timer")
		return nil

	case wire.SignalModified:
		result, err := bridge.GetByHandle(ctx, wire.Handle(payload))
		if err != nil {
			return err
		}
		fmt.Printf("modified handle=%d value=%s\n", payload, result.Format())
		return nil

	case wire.SignalCalc:
		fmt.Printf("calc handle=%d\n", payload)
		return nil

	case wire.SignalValidate:
		handle, candidate, err := bridge.ValidateStart(ctx, payload)
		if err != nil {
			return err
		}
		verdict := "reject"
		if acceptAll {
			verdict = "accept"
		}
		fmt.Printf("validate txn=%d handle=%d candidate=%s verdict=%s\n",
			payload, handle, candidate.Format(), verdict)
		return bridge.ValidateEnd(ctx, payload, acceptAll)

	case wire.SignalPrint:
		session, err := bridge.OpenPrintSession(ctx, payload)
		if err != nil {
			return err
		}
		result, err := bridge.GetByHandle(ctx, session.Handle())
		if err == nil {
			_, err = session.WriteString(result.Format())
		}
		if closeErr := session.Close(ctx); err == nil {
			err = closeErr
		}
		if err != nil {
			return err
		}
		fmt.Printf("print txn=%d handle=%d\n", payload, session.Handle())
		return nil

	default:
		fmt.Printf("signal=%d payload=%d\n", signal, payload)
		return nil
	}
}
