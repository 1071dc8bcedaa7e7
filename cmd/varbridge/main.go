// Copyright 2026 The Varbridge Authors
// SPDX-License-Identifier: Apache-2.0

// varbridge is the command-line client for a variable server. The
// find, get, set, and notify subcommands issue one operation each;
// watch enters the blocking event loop and services validate and
// print events until interrupted.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/varbridge-foundation/varbridge/lib/config"
	"github.com/varbridge-foundation/varbridge/lib/version"
	"github.com/varbridge-foundation/varbridge/lib/wire"
	"github.com/varbridge-foundation/varbridge/varbridge"
)

const usage = `Usage: varbridge <command> [flags]

Commands:
  find <name>             resolve a variable name to its handle
  get <name>              print a variable's current value
  set <name> <value>      write a textual value to a variable
  notify <name> <kind>    register for modified|calc|validate|print events
  watch <name> [kind...]  block in the event loop and service events

Global flags:
  --socket PATH     variable server socket (overrides configuration)
  --timeout DUR     per-operation deadline (default 5s)
  --log-level LVL   debug, info, warn, error (default warn)
`

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("missing command")
	}
	command := os.Args[1]

	switch command {
	case "--version":
		version.Print("varbridge")
		return nil
	case "--help", "-h", "help":
		fmt.Print(usage)
		return nil
	}

	var socketPath string
	var configPath string
	var timeout time.Duration
	var logLevel string
	var acceptAll bool

	flagSet := pflag.NewFlagSet("varbridge "+command, pflag.ContinueOnError)
	flagSet.StringVar(&socketPath, "socket", "", "variable server socket")
	flagSet.StringVar(&configPath, "config", "", "configuration file path")
	flagSet.DurationVar(&timeout, "timeout", 5*time.Second, "per-operation deadline")
	flagSet.StringVar(&logLevel, "log-level", "warn", "log level")
	flagSet.BoolVar(&acceptAll, "accept", false, "watch: accept validation candidates instead of rejecting")
	if err := flagSet.Parse(os.Args[2:]); err != nil {
		return err
	}
	args := flagSet.Args()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(logLevel),
	}))

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	options, err := varbridge.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	if socketPath != "" {
		options.SocketPath = socketPath
	}
	options.Logger = logger

	bridge := varbridge.New(options)
	defer bridge.Close()

	ctx := context.Background()
	switch command {
	case "find":
		return runFind(ctx, bridge, args, timeout)
	case "get":
		return runGet(ctx, bridge, args, timeout)
	case "set":
		return runSet(ctx, bridge, args, timeout)
	case "notify":
		return runNotify(ctx, bridge, args, timeout)
	case "watch":
		return runWatch(ctx, bridge, args, timeout, acceptAll, logger)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unrecognized command %q", command)
	}
}

// loadConfig resolves configuration from the --config flag, then the
// VARBRIDGE_CONFIG environment variable, then built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if os.Getenv("VARBRIDGE_CONFIG") != "" {
		return config.Load()
	}
	return config.Default(), nil
}

func parseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func withDeadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func runFind(ctx context.Context, bridge *varbridge.Bridge, args []string, timeout time.Duration) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: varbridge find <name>")
	}
	ctx, cancel := withDeadline(ctx, timeout)
	defer cancel()

	handle, err := bridge.Find(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Println(handle)
	return nil
}

func runGet(ctx context.Context, bridge *varbridge.Bridge, args []string, timeout time.Duration) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: varbridge get <name>")
	}
	ctx, cancel := withDeadline(ctx, timeout)
	defer cancel()

	result, err := bridge.Get(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Println(result.Format())
	return nil
}

func runSet(ctx context.Context, bridge *varbridge.Bridge, args []string, timeout time.Duration) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: varbridge set <name> <value>")
	}
	ctx, cancel := withDeadline(ctx, timeout)
	defer cancel()

	return bridge.Set(ctx, varbridge.ByName(args[0]), args[1])
}

func runNotify(ctx context.Context, bridge *varbridge.Bridge, args []string, timeout time.Duration) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: varbridge notify <name> <kind>")
	}
	kind := wire.Notification(args[1])
	if !kind.Valid() {
		return fmt.Errorf("unrecognized notification kind %q", args[1])
	}
	ctx, cancel := withDeadline(ctx, timeout)
	defer cancel()

	handle, err := bridge.Find(ctx, args[0])
	if err != nil {
		return err
	}
	return bridge.Notify(ctx, handle, kind)
}
