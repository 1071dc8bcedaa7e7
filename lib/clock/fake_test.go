// Copyright 2026 The Varbridge Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

func TestFakeClockNow(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fake := Fake(start)

	if !fake.Now().Equal(start) {
		t.Fatalf("Now() = %v, want %v", fake.Now(), start)
	}
	fake.Advance(90 * time.Second)
	if want := start.Add(90 * time.Second); !fake.Now().Equal(want) {
		t.Fatalf("Now() after Advance = %v, want %v", fake.Now(), want)
	}
}

func TestFakeClockAfter(t *testing.T) {
	fake := Fake(time.Unix(0, 0))
	ch := fake.After(time.Minute)

	select {
	case <-ch:
		t.Fatal("After fired before the clock advanced")
	default:
	}

	fake.Advance(time.Minute)
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("After did not fire once the deadline passed")
	}
}

func TestFakeClockTicker(t *testing.T) {
	fake := Fake(time.Unix(0, 0))
	ticker := fake.NewTicker(10 * time.Second)
	defer ticker.Stop()

	fake.Advance(10 * time.Second)
	select {
	case <-ticker.C:
	case <-time.After(time.Second):
		t.Fatal("ticker did not fire on the first interval")
	}

	// A multi-interval advance fires per interval but drops ticks the
	// single-slot channel cannot hold.
	fake.Advance(30 * time.Second)
	select {
	case <-ticker.C:
	case <-time.After(time.Second):
		t.Fatal("ticker did not fire after a multi-interval advance")
	}

	ticker.Stop()
	fake.Advance(time.Minute)
	select {
	case <-ticker.C:
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestFakeClockSleepWakes(t *testing.T) {
	fake := Fake(time.Unix(0, 0))
	woke := make(chan struct{})

	go func() {
		fake.Sleep(5 * time.Second)
		close(woke)
	}()

	fake.WaitForTimers(1)
	fake.Advance(5 * time.Second)

	select {
	case <-woke:
	case <-time.After(time.Second):
		t.Fatal("Sleep did not wake after the deadline")
	}
}

func TestRealClockBasics(t *testing.T) {
	real := Real()
	before := time.Now()
	if real.Now().Before(before.Add(-time.Minute)) {
		t.Fatal("Real clock far behind wall time")
	}
	select {
	case <-real.After(0):
	case <-time.After(time.Second):
		t.Fatal("After(0) did not deliver promptly")
	}
}
