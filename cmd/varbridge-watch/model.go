// Copyright 2026 The Varbridge Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/varbridge-foundation/varbridge/lib/value"
	"github.com/varbridge-foundation/varbridge/lib/wire"
	"github.com/varbridge-foundation/varbridge/varbridge"
)

// eventMsg is one event from the bridge wait loop.
type eventMsg struct {
	signal  int
	payload uint32
}

// streamLostMsg reports that the wait loop exited.
type streamLostMsg struct {
	err error
}

// variableRow is one watched variable.
type variableRow struct {
	name   string
	handle wire.Handle
	value  value.Value
}

var (
	baseStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

type model struct {
	bridge  *varbridge.Bridge
	timeout time.Duration

	rows     []variableRow
	byHandle map[wire.Handle]int
	table    table.Model

	eventCount int
	lastEvent  string
	streamErr  error
}

func newModel(bridge *varbridge.Bridge, rows []variableRow, timeout time.Duration) *model {
	byHandle := make(map[wire.Handle]int, len(rows))
	for i, row := range rows {
		byHandle[row.handle] = i
	}

	columns := []table.Column{
		{Title: "Variable", Width: 28},
		{Title: "Handle", Width: 8},
		{Title: "Kind", Width: 8},
		{Title: "Value", Width: 32},
	}
	tableModel := table.New(
		table.WithColumns(columns),
		table.WithHeight(len(rows)+1),
		table.WithFocused(true),
	)
	styles := table.DefaultStyles()
	styles.Header = headerStyle
	tableModel.SetStyles(styles)

	m := &model{
		bridge:   bridge,
		timeout:  timeout,
		rows:     rows,
		byHandle: byHandle,
		table:    tableModel,
	}
	m.rebuildRows()
	return m
}

func (m *model) rebuildRows() {
	tableRows := make([]table.Row, len(m.rows))
	for i, row := range m.rows {
		tableRows[i] = table.Row{
			row.name,
			fmt.Sprintf("%d", row.handle),
			string(row.value.Kind),
			row.value.Format(),
		}
	}
	m.table.SetRows(tableRows)
}

func (m *model) Init() tea.Cmd {
	return nil
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width - 4)

	case eventMsg:
		m.eventCount++
		m.applyEvent(msg)

	case streamLostMsg:
		m.streamErr = msg.err
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// applyEvent refreshes the row a modified event names. Other event
// kinds only update the status line; servicing validation and print
// requests belongs to the varbridge watch subcommand, not the viewer.
func (m *model) applyEvent(event eventMsg) {
	switch event.signal {
	case wire.SignalModified:
		index, ok := m.byHandle[wire.Handle(event.payload)]
		if !ok {
			m.lastEvent = fmt.Sprintf("modified (unwatched handle %d)", event.payload)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		current, err := m.bridge.GetByHandle(ctx, m.rows[index].handle)
		if err != nil {
			m.lastEvent = fmt.Sprintf("refresh %s failed: %v", m.rows[index].name, err)
			return
		}
		m.rows[index].value = current
		m.rebuildRows()
		m.lastEvent = fmt.Sprintf("modified %s = %s", m.rows[index].name, current.Format())

	case wire.SignalTimer:
		m.lastEvent = "timer"

	default:
		m.lastEvent = fmt.Sprintf("signal %d payload %d", event.signal, event.payload)
	}
}

func (m *model) View() string {
	status := fmt.Sprintf("%d events", m.eventCount)
	if m.lastEvent != "" {
		status += "  " + m.lastEvent
	}
	view := baseStyle.Render(m.table.View()) + "\n" + statusStyle.Render(status)
	if m.streamErr != nil {
		view += "\n" + errorStyle.Render(m.streamErr.Error())
	}
	return view + "\n" + statusStyle.Render("q to quit")
}
