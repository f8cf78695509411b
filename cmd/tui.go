// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/lumper/internal/source"
	"github.com/Thermoquad/lumper/pkg/lump"
)

// Event log entry
type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for information
}

// TUI model
type emulateModel struct {
	engine        *lump.Engine
	connInfo      string
	stats         *lump.Statistics
	eventLog      []eventLogEntry
	maxLogEntries int
	connectedAt   time.Time
	valueInput    textinput.Model
	inputStatus   string
	inputErr      bool
	width         int
	height        int
	quitting      bool
}

// Messages
type emulateTickMsg time.Time
type engineEventMsg lump.Event

// formatUptime formats a duration as a human-friendly string
func formatUptime(d time.Duration) string {
	if d < time.Second {
		return "0 seconds"
	}

	seconds := int64(d / time.Second)
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	seconds %= 60
	minutes %= 60
	hours %= 24

	plural := func(n int64, unit string) string {
		if n == 1 {
			return "1 " + unit
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}

	parts := []string{}
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, plural(seconds, "second"))
	}

	// Join with commas and "and" for last item
	if len(parts) == 1 {
		return parts[0]
	}
	if len(parts) == 2 {
		return parts[0] + " and " + parts[1]
	}
	last := parts[len(parts)-1]
	rest := strings.Join(parts[:len(parts)-1], ", ")
	return rest + ", and " + last
}

func initialEmulateModel(engine *lump.Engine, connInfo string) emulateModel {
	ti := textinput.New()
	ti.Placeholder = "1 2 3 or [1, 2, 3]"
	ti.CharLimit = 128
	ti.Width = 40
	ti.Focus()

	return emulateModel{
		engine:        engine,
		connInfo:      connInfo,
		stats:         lump.NewStatistics(),
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		valueInput:    ti,
		width:         80,
		height:        24,
	}
}

func (m emulateModel) Init() tea.Cmd {
	return tea.Batch(
		emulateTickCmd(),
		textinput.Blink,
		tea.EnterAltScreen,
	)
}

func emulateTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return emulateTickMsg(t)
	})
}

func (m emulateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			m.submitValues()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case emulateTickMsg:
		m.stats.CalculateRates()
		return m, emulateTickCmd()

	case engineEventMsg:
		m.handleEvent(lump.Event(msg))
		return m, nil
	}

	var cmd tea.Cmd
	m.valueInput, cmd = m.valueInput.Update(msg)
	return m, cmd
}

// submitValues sets the payload from the input line
func (m *emulateModel) submitValues() {
	values, err := source.ParseValues(m.valueInput.Value())
	if err == nil {
		err = m.engine.SetPayload(values...)
	}
	if err != nil {
		m.inputStatus = err.Error()
		m.inputErr = true
		return
	}
	m.inputStatus = fmt.Sprintf("payload set to %v", values)
	m.inputErr = false
	m.valueInput.Reset()
}

func (m *emulateModel) handleEvent(ev lump.Event) {
	m.stats.Update(ev)

	switch ev.Kind {
	case lump.EventStateChange:
		if ev.State == lump.Connected {
			m.connectedAt = ev.Time
		}
		m.addLogEntry(ev.Time, fmt.Sprintf("Link %s", ev.State), false)
	case lump.EventModeSelect:
		m.addLogEntry(ev.Time, fmt.Sprintf("Hub selected mode %d", ev.Mode), false)
	case lump.EventText:
		m.addLogEntry(ev.Time, fmt.Sprintf("Hub wrote %q", ev.Text), false)
	case lump.EventLinkTimeout, lump.EventTransmitFailure:
		m.connectedAt = time.Time{}
		m.addLogEntry(ev.Time, fmt.Sprintf("%s: %v", ev.Kind, ev.Err), true)
	case lump.EventHandshakeFailed, lump.EventMalformedControl:
		m.addLogEntry(ev.Time, fmt.Sprintf("%s: %v", ev.Kind, ev.Err), true)
	}
}

func (m *emulateModel) addLogEntry(ts time.Time, message string, isError bool) {
	if ts.IsZero() {
		ts = time.Now()
	}
	m.eventLog = append(m.eventLog, eventLogEntry{
		timestamp: ts,
		message:   message,
		isError:   isError,
	})

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

// payloadValues decodes the current payload with the active mode's type
func (m emulateModel) payloadValues() string {
	mode, ok := m.engine.Modes().Mode(int(m.engine.ActiveMode()))
	if !ok {
		return "(mode not in table)"
	}
	values, err := lump.DecodePayload(mode.Format.Type, m.engine.Payload())
	if err != nil {
		return err.Error()
	}
	return fmt.Sprintf("%v", values)
}

func (m emulateModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("LUMPER - SENSOR EMULATOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("Port: %s | Press Esc to quit", m.connInfo)))
	s.WriteString("\n\n")

	// Link status
	state := m.engine.State()
	switch state {
	case lump.Connected:
		s.WriteString(statsValueStyle.Render("✓ Connected"))
		if !m.connectedAt.IsZero() {
			s.WriteString(headerStyle.Render(" for " + formatUptime(time.Since(m.connectedAt))))
		}
	case lump.Handshaking:
		s.WriteString(warningStyle.Render("⏳ Handshaking..."))
	default:
		s.WriteString(warningStyle.Render("⏳ Waiting for hub..."))
	}
	s.WriteString("\n\n")

	// Statistics
	m.stats.CalculateRates()
	heartbeats, acks := m.engine.Counters()
	modeName := "?"
	if mode, ok := m.engine.Modes().Mode(int(m.engine.ActiveMode())); ok {
		modeName = mode.Name
	}

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Mode:"), statsValueStyle.Render(fmt.Sprintf("%d %s", m.engine.ActiveMode(), modeName)),
		statsLabelStyle.Render("Heartbeats:"), statsValueStyle.Render(fmt.Sprintf("%d", heartbeats)),
		statsLabelStyle.Render("Acks:"), statsValueStyle.Render(fmt.Sprintf("%d", acks)),
	))
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
		statsLabelStyle.Render("Handshakes:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.Handshakes)),
		statsLabelStyle.Render("Frames:"), statsValueStyle.Render(fmt.Sprintf("%d (%d bytes)", m.stats.FramesSent, m.stats.BytesSent)),
	))
	if errs := m.stats.Errors(); errs > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s (%s: %d, %s: %d, %s: %d)\n",
			statsLabelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d", errs)),
			headerStyle.Render("handshake"), m.stats.HandshakeFailures,
			headerStyle.Render("timeouts"), m.stats.LinkTimeouts,
			headerStyle.Render("malformed"), m.stats.MalformedControl,
		))
	}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		statsLabelStyle.Render("Frame Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f frames/s", m.stats.FrameRate)),
		statsLabelStyle.Render("Heartbeat Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f beats/s", m.stats.HeartbeatRate)),
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Payload
	payloadContent := strings.Builder{}
	payloadContent.WriteString(fmt.Sprintf("%s %s\n",
		statsLabelStyle.Render("Values:"), statsValueStyle.Render(m.payloadValues()),
	))
	payloadContent.WriteString(fmt.Sprintf("%s % X\n", statsLabelStyle.Render("Frame:"), []byte(m.engine.Payload())))
	if text := m.engine.LastText(); text != "" {
		payloadContent.WriteString(fmt.Sprintf("%s %q\n", statsLabelStyle.Render("Hub text:"), text))
	}
	payloadContent.WriteString(statsLabelStyle.Render("Set:") + " " + m.valueInput.View())
	if m.inputStatus != "" {
		payloadContent.WriteString("\n")
		if m.inputErr {
			payloadContent.WriteString(errorStyle.Render(m.inputStatus))
		} else {
			payloadContent.WriteString(headerStyle.Render(m.inputStatus))
		}
	}
	s.WriteString(boxStyle.Render(payloadContent.String()))
	s.WriteString("\n\n")

	// Event log
	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	// Calculate how many log entries we can show
	logHeight := m.height - 20
	if logHeight < 5 {
		logHeight = 5
	}

	logContent := strings.Builder{}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("01/02/06 15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					warningStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}
