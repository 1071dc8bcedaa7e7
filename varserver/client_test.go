// Copyright 2026 The Varbridge Authors
// SPDX-License-Identifier: Apache-2.0

package varserver_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/varbridge-foundation/varbridge/lib/testutil"
	"github.com/varbridge-foundation/varbridge/lib/value"
	"github.com/varbridge-foundation/varbridge/lib/wire"
	"github.com/varbridge-foundation/varbridge/varserver"
	"github.com/varbridge-foundation/varbridge/varservertest"
)

func startServer(t *testing.T) *varservertest.Server {
	t.Helper()
	socketPath := filepath.Join(testutil.SocketDir(t), "varserver.sock")
	server := varservertest.New(socketPath, nil)
	if err := server.Start(); err != nil {
		t.Fatalf("starting test server: %v", err)
	}
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *varservertest.Server) *varserver.Conn {
	t.Helper()
	conn, err := varserver.Dial(server.SocketPath(), varserver.Options{
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("dialing test server: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func define(t *testing.T, server *varservertest.Server, name string, kind value.Kind, text string) wire.Handle {
	t.Helper()
	handle, err := server.Define(name, kind, text)
	if err != nil {
		t.Fatalf("defining %s: %v", name, err)
	}
	return handle
}

func TestFindGetSet(t *testing.T) {
	server := startServer(t)
	handle := define(t, server, "/sys/test/temperature", value.KindInt32, "21")
	conn := dial(t, server)
	ctx := context.Background()

	found, err := conn.FindByName(ctx, "/sys/test/temperature")
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if found != handle {
		t.Fatalf("FindByName = %d, want %d", found, handle)
	}

	current, truncated, err := conn.GetValue(ctx, found, 0)
	if err != nil || truncated {
		t.Fatalf("GetValue = (%+v, %v, %v)", current, truncated, err)
	}
	if !current.Equal(value.Int32(21)) {
		t.Fatalf("initial value = %+v, want 21", current)
	}

	kind, err := conn.GetType(ctx, found)
	if err != nil || kind != value.KindInt32 {
		t.Fatalf("GetType = (%s, %v)", kind, err)
	}

	if err := conn.SetFromString(ctx, found, kind, "25"); err != nil {
		t.Fatalf("SetFromString: %v", err)
	}
	current, _, err = conn.GetValue(ctx, found, 0)
	if err != nil {
		t.Fatalf("GetValue after set: %v", err)
	}
	if !current.Equal(value.Int32(25)) {
		t.Fatalf("value after set = %+v, want 25", current)
	}
}

func TestFindUnknownName(t *testing.T) {
	server := startServer(t)
	conn := dial(t, server)

	_, err := conn.FindByName(context.Background(), "/sys/test/missing")
	if !varserver.IsNotFound(err) {
		t.Fatalf("FindByName on unknown name: %v, want not-found", err)
	}
}

func TestSetTypeMismatch(t *testing.T) {
	server := startServer(t)
	handle := define(t, server, "/sys/test/count", value.KindUint16, "0")
	conn := dial(t, server)
	ctx := context.Background()

	err := conn.SetFromString(ctx, handle, value.KindUint16, "minus one")
	if !varserver.IsTypeMismatch(err) {
		t.Fatalf("unconvertible text: %v, want type-mismatch", err)
	}

	// A stale declared kind is a protocol violation, applied before
	// any conversion attempt.
	err = conn.SetFromString(ctx, handle, value.KindInt64, "1")
	if !varserver.IsProtocolViolation(err) {
		t.Fatalf("stale kind: %v, want protocol-violation", err)
	}

	// Neither failure changed the stored value.
	if current, _ := server.Value("/sys/test/count"); !current.Equal(value.Uint16(0)) {
		t.Fatalf("value changed by failed sets: %+v", current)
	}
}

func TestGetValueTruncatesAtBound(t *testing.T) {
	server := startServer(t)
	longText := strings.Repeat("a", 64)
	handle := define(t, server, "/sys/test/status", value.KindString, longText)
	conn := dial(t, server)

	bounded, truncated, err := conn.GetValue(context.Background(), handle, 16)
	if err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	if !truncated {
		t.Fatal("oversized value fetched without truncation report")
	}
	if bounded.Text != longText[:16] {
		t.Fatalf("bounded payload = %q (len %d)", bounded.Text, len(bounded.Text))
	}
}

func TestRegisterNotificationIdempotent(t *testing.T) {
	server := startServer(t)
	handle := define(t, server, "/sys/test/flag", value.KindUint16, "0")
	conn := dial(t, server)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := conn.RegisterNotification(ctx, handle, wire.NotifyModified); err != nil {
			t.Fatalf("RegisterNotification attempt %d: %v", i+1, err)
		}
	}
	if !server.Registered("/sys/test/flag", wire.NotifyModified) {
		t.Fatal("registration not recorded")
	}

	err := conn.RegisterNotification(ctx, wire.Handle(9999), wire.NotifyModified)
	if !varserver.IsNotFound(err) {
		t.Fatalf("unknown handle: %v, want not-found", err)
	}
}

func TestSubscribeDeliversModifiedEvents(t *testing.T) {
	server := startServer(t)
	handle := define(t, server, "/sys/test/speed", value.KindUint32, "0")
	conn := dial(t, server)
	ctx := context.Background()

	if err := conn.RegisterNotification(ctx, handle, wire.NotifyModified); err != nil {
		t.Fatalf("RegisterNotification: %v", err)
	}
	stream, err := conn.Subscribe(ctx, 8)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer stream.Close()

	if err := conn.SetFromString(ctx, handle, value.KindUint32, "88"); err != nil {
		t.Fatalf("SetFromString: %v", err)
	}

	event := testutil.RequireReceive(t, stream.Events(), 5*time.Second, "modified event")
	if event.Signal != wire.SignalModified || event.Payload != uint32(handle) {
		t.Fatalf("event = %+v, want signal %d payload %d", event, wire.SignalModified, handle)
	}
}

func TestValidationRoundTrip(t *testing.T) {
	server := startServer(t)
	handle := define(t, server, "/sys/test/setpoint", value.KindInt32, "20")
	conn := dial(t, server)
	ctx := context.Background()

	if err := conn.RegisterNotification(ctx, handle, wire.NotifyValidate); err != nil {
		t.Fatalf("RegisterNotification: %v", err)
	}
	stream, err := conn.Subscribe(ctx, 8)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer stream.Close()

	transactionID, err := server.ProposeValue("/sys/test/setpoint", "30")
	if err != nil {
		t.Fatalf("ProposeValue: %v", err)
	}

	event := testutil.RequireReceive(t, stream.Events(), 5*time.Second, "validate event")
	if event.Signal != wire.SignalValidate || event.Payload != transactionID {
		t.Fatalf("event = %+v, want validate txn %d", event, transactionID)
	}

	candidateHandle, candidate, err := conn.FetchValidationRequest(ctx, transactionID)
	if err != nil {
		t.Fatalf("FetchValidationRequest: %v", err)
	}
	if candidateHandle != handle || !candidate.Equal(value.Int32(30)) {
		t.Fatalf("fetched (%d, %+v), want (%d, 30)", candidateHandle, candidate, handle)
	}

	if err := conn.SendValidationResponse(ctx, transactionID, false); err != nil {
		t.Fatalf("SendValidationResponse: %v", err)
	}
	if server.ValidationPending(transactionID) {
		t.Fatal("transaction still pending after verdict")
	}
	if current, _ := server.Value("/sys/test/setpoint"); !current.Equal(value.Int32(20)) {
		t.Fatalf("rejected candidate was applied: %+v", current)
	}

	// The transaction is retired; a second verdict is a protocol
	// violation, not a silent success.
	err = conn.SendValidationResponse(ctx, transactionID, false)
	if !varserver.IsProtocolViolation(err) {
		t.Fatalf("second verdict: %v, want protocol-violation", err)
	}
}

func TestValidationAcceptApplies(t *testing.T) {
	server := startServer(t)
	define(t, server, "/sys/test/limit", value.KindInt32, "10")
	conn := dial(t, server)
	ctx := context.Background()

	handle, _ := conn.FindByName(ctx, "/sys/test/limit")
	if err := conn.RegisterNotification(ctx, handle, wire.NotifyValidate); err != nil {
		t.Fatalf("RegisterNotification: %v", err)
	}
	transactionID, err := server.ProposeValue("/sys/test/limit", "15")
	if err != nil {
		t.Fatalf("ProposeValue: %v", err)
	}
	if err := conn.SendValidationResponse(ctx, transactionID, true); err != nil {
		t.Fatalf("SendValidationResponse: %v", err)
	}
	if current, _ := server.Value("/sys/test/limit"); !current.Equal(value.Int32(15)) {
		t.Fatalf("accepted candidate not applied: %+v", current)
	}
}

func TestFetchValidationUnknownTransaction(t *testing.T) {
	server := startServer(t)
	conn := dial(t, server)

	start := time.Now()
	_, _, err := conn.FetchValidationRequest(context.Background(), testutil.UniqueTransactionID())
	if !varserver.IsNotFound(err) {
		t.Fatalf("unknown transaction: %v, want not-found", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("lookup miss took %v; must fail fast, never block", elapsed)
	}
}

func TestPrintChannel(t *testing.T) {
	server := startServer(t)
	handle := define(t, server, "/sys/test/report", value.KindString, "ready")
	conn := dial(t, server)
	ctx := context.Background()

	if err := conn.RegisterNotification(ctx, handle, wire.NotifyPrint); err != nil {
		t.Fatalf("RegisterNotification: %v", err)
	}
	transactionID, capture, err := server.RequestPrint("/sys/test/report")
	if err != nil {
		t.Fatalf("RequestPrint: %v", err)
	}

	printHandle, file, err := conn.OpenPrintChannel(ctx, transactionID)
	if err != nil {
		t.Fatalf("OpenPrintChannel: %v", err)
	}
	if printHandle != handle {
		t.Fatalf("print handle = %d, want %d", printHandle, handle)
	}

	if _, err := file.WriteString("status: ready"); err != nil {
		t.Fatalf("writing to print stream: %v", err)
	}
	if err := file.Close(); err != nil {
		t.Fatalf("releasing descriptor: %v", err)
	}
	if err := conn.ClosePrintChannel(ctx, transactionID); err != nil {
		t.Fatalf("ClosePrintChannel: %v", err)
	}

	testutil.RequireClosed(t, capture.Done(), 5*time.Second, "print capture completion")
	if got := capture.Output(); got != "status: ready" {
		t.Fatalf("captured output = %q", got)
	}

	err = conn.ClosePrintChannel(ctx, transactionID)
	if !varserver.IsProtocolViolation(err) {
		t.Fatalf("second close: %v, want protocol-violation", err)
	}
}

func TestDialUnavailableServer(t *testing.T) {
	socketPath := filepath.Join(testutil.SocketDir(t), "absent.sock")
	_, err := varserver.Dial(socketPath, varserver.Options{DialTimeout: time.Second})
	if err == nil {
		t.Fatal("Dial succeeded with no server listening")
	}
}
