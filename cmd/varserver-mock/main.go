// Copyright 2026 The Varbridge Authors
// SPDX-License-Identifier: Apache-2.0

// varserver-mock runs the in-memory variable server on a Unix socket,
// loading its variable table from a JSONC definitions file. It exists
// for developing and demonstrating bridge consumers without a real
// variable server: it speaks the full wire protocol, pushes events to
// subscribers, and can raise periodic timer events.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/varbridge-foundation/varbridge/lib/version"
	"github.com/varbridge-foundation/varbridge/lib/wire"
	"github.com/varbridge-foundation/varbridge/varservertest"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var socketPath string
	var definitionsPath string
	var timerInterval time.Duration
	var logLevel string

	flagSet := pflag.NewFlagSet("varserver-mock", pflag.ContinueOnError)
	flagSet.StringVar(&socketPath, "socket", "/tmp/varserver-mock.sock", "Unix socket to listen on")
	flagSet.StringVar(&definitionsPath, "vars", "", "JSONC variable definitions file")
	flagSet.DurationVar(&timerInterval, "timer-interval", 0, "raise timer events at this interval (0 disables)")
	flagSet.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("varserver-mock")
		return nil
	}
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(logLevel),
	}))

	server := varservertest.New(socketPath, logger)
	if definitionsPath != "" {
		definitions, err := varservertest.LoadDefinitions(definitionsPath)
		if err != nil {
			return err
		}
		if err := server.DefineAll(definitions); err != nil {
			return err
		}
		logger.Info("loaded variable definitions",
			"path", definitionsPath, "count", len(definitions))
	}

	// Stale socket from a previous run.
	os.Remove(socketPath)

	if err := server.Start(); err != nil {
		return err
	}
	defer server.Close()
	defer os.Remove(socketPath)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	if timerInterval > 0 {
		ticker := time.NewTicker(timerInterval)
		defer ticker.Stop()
		go func() {
			for range ticker.C {
				server.RaiseEvent(wire.SignalTimer, 0)
			}
		}()
	}

	received := <-stop
	logger.Info("shutting down", "signal", received.String())
	return nil
}

func parseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
