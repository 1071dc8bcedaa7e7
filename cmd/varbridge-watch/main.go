// Copyright 2026 The Varbridge Authors
// SPDX-License-Identifier: Apache-2.0

// varbridge-watch is a terminal UI showing a live table of variable
// values. It registers for modified events on every named variable and
// refreshes the affected row as events arrive.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/varbridge-foundation/varbridge/lib/config"
	"github.com/varbridge-foundation/varbridge/lib/version"
	"github.com/varbridge-foundation/varbridge/lib/wire"
	"github.com/varbridge-foundation/varbridge/varbridge"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var socketPath string
	var configPath string
	var timeout time.Duration

	flagSet := pflag.NewFlagSet("varbridge-watch", pflag.ContinueOnError)
	flagSet.StringVar(&socketPath, "socket", "", "variable server socket")
	flagSet.StringVar(&configPath, "config", "", "configuration file path")
	flagSet.DurationVar(&timeout, "timeout", 5*time.Second, "per-operation deadline")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("varbridge-watch")
		return nil
	}
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}
	names := flagSet.Args()
	if len(names) == 0 {
		return fmt.Errorf("usage: varbridge-watch [flags] <name>...")
	}

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
	// The terminal owns stderr while the TUI runs.
	options.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))

	bridge := varbridge.New(options)
	defer bridge.Close()

	rows, err := resolveVariables(bridge, names, timeout)
	if err != nil {
		return err
	}

	model := newModel(bridge, rows, timeout)
	program := tea.NewProgram(model, tea.WithAltScreen())

	// The wait loop runs outside the program and feeds events in;
	// closing the bridge on exit unblocks it.
	go func() {
		for {
			signal, payload, err := bridge.Wait()
			if err != nil {
				program.Send(streamLostMsg{err: err})
				return
			}
			program.Send(eventMsg{signal: signal, payload: payload})
		}
	}()

	_, err = program.Run()
	return err
}

// resolveVariables looks up every requested variable, registers for
// its modified events, and fetches the starting value.
func resolveVariables(bridge *varbridge.Bridge, names []string, timeout time.Duration) ([]variableRow, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	rows := make([]variableRow, 0, len(names))
	for _, name := range names {
		handle, err := bridge.Find(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("find %s: %w", name, err)
		}
		if err := bridge.Notify(ctx, handle, wire.NotifyModified); err != nil {
			return nil, fmt.Errorf("register %s: %w", name, err)
		}
		current, err := bridge.Get(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", name, err)
		}
		rows = append(rows, variableRow{
			name:   name,
			handle: handle,
			value:  current,
		})
	}
	return rows, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if os.Getenv("VARBRIDGE_CONFIG") != "" {
		return config.Load()
	}
	return config.Default(), nil
}
