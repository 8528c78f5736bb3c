package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mcdev12/fieldboss/go/internal/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)

	tabStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("240"))

	tabSelectedStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Foreground(lipgloss.Color("170")).
				Background(lipgloss.Color("235"))

	rowStyle = lipgloss.NewStyle().
			Padding(0, 1)

	spawningStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("214")).
			Bold(true)

	alertOnStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("196")).
			Bold(true)

	alertOffStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("52"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	inactiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	inputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("170"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// emptyText is shown when the selected resource has no active timers.
const emptyText = "No active timers."

func (m *Model) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(m.view.Summary))
	sb.WriteString("\n\n")
	sb.WriteString(m.tabsView())
	sb.WriteString("\n")
	sb.WriteString(boxStyle.Render(m.timelineView()))
	sb.WriteString("\n\n")
	sb.WriteString(m.inputView())
	sb.WriteString("\n")
	sb.WriteString(m.statusView())
	sb.WriteString("\n\n")
	sb.WriteString(helpStyle.Render("Boss: Tab/Shift+Tab | Start: <channel> <kind> Enter | Audio: a | Volume: +/- | Quit: q"))

	return sb.String()
}

func (m *Model) tabsView() string {
	var tabs []string
	for _, r := range models.Resources() {
		if r == m.view.Resource {
			tabs = append(tabs, tabSelectedStyle.Render(string(r)))
		} else {
			tabs = append(tabs, tabStyle.Render(string(r)))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m *Model) timelineView() string {
	if len(m.view.Timers) == 0 {
		return inactiveStyle.Render(emptyText)
	}

	lines := make([]string, 0, len(m.view.Timers))
	for _, t := range m.view.Timers {
		line := TimelineRow(t)
		switch {
		case t.RemainingSec <= models.AlertThresholdSec && t.RemainingSec%2 == 0:
			lines = append(lines, alertOnStyle.Render(line))
		case t.RemainingSec <= models.AlertThresholdSec:
			lines = append(lines, alertOffStyle.Render(line))
		case t.Kind == models.KindVariantSpawning:
			lines = append(lines, spawningStyle.Render(line))
		default:
			lines = append(lines, rowStyle.Render(line))
		}
	}
	return strings.Join(lines, "\n")
}

// TimelineRow formats one active timer.
func TimelineRow(t models.Timer) string {
	return fmt.Sprintf("%d channel - %s - %s", t.Channel, t.Kind, models.FormatRemaining(t.RemainingSec))
}

func (m *Model) inputView() string {
	var kinds []string
	for i, k := range m.view.Resource.Kinds() {
		kinds = append(kinds, fmt.Sprintf("%d=%s", i+1, k))
	}
	prompt := "> " + m.input
	if m.pending {
		prompt += " (waiting)"
	}
	return inputStyle.Render(prompt) + "  " + helpStyle.Render(strings.Join(kinds, ", "))
}

func (m *Model) statusView() string {
	audio := "off"
	if m.view.AudioEnabled {
		audio = "on"
	}
	line := fmt.Sprintf("audio %s, volume %d%%", audio, int(m.volume*100+0.5))
	if m.status != "" {
		line += " | " + m.status
	}
	return inactiveStyle.Render(line)
}
