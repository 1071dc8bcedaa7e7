// Copyright 2026 The Varbridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time operations for testability. Production
// code injects Real(); tests inject Fake() and drive it with Advance.
//
// The bridge's event dispatcher uses a Clock to synthesize timer
// events at a configured interval, so wait-loop tests never depend on
// wall-clock timing.
package clock
