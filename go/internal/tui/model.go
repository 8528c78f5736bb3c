package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mcdev12/fieldboss/go/internal/models"
	"github.com/mcdev12/fieldboss/go/internal/reconcile"
	"github.com/mcdev12/fieldboss/go/internal/timers"
)

// Controller is the part of the session the terminal drives.
type Controller interface {
	View() reconcile.View
	CycleResource(delta int)
	RequestTimer(ctx context.Context, channelInput string, kind models.Kind) error
	ToggleAudio()
	SetVolume(v float64)
	Volume() float64
}

// ViewMsg carries a fresh snapshot from the session.
type ViewMsg struct {
	View reconcile.View
}

type requestDoneMsg struct {
	channel string
	kind    models.Kind
	err     error
}

const volumeStep = 0.1

// requestTimeout bounds one store round trip started from the keyboard.
const requestTimeout = 10 * time.Second

type Model struct {
	ctl     Controller
	view    reconcile.View
	input   string
	status  string
	volume  float64
	pending bool
}

func NewModel(ctl Controller) *Model {
	return &Model{
		ctl:    ctl,
		view:   ctl.View(),
		volume: ctl.Volume(),
	}
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ViewMsg:
		m.view = msg.View
		return m, nil
	case requestDoneMsg:
		m.pending = false
		m.status = requestStatus(msg)
		return m, nil
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}
	return m, nil
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "tab":
		m.ctl.CycleResource(1)
	case "shift+tab":
		m.ctl.CycleResource(-1)
	case "a":
		m.ctl.ToggleAudio()
	case "+", "=":
		m.setVolume(m.volume + volumeStep)
	case "-":
		m.setVolume(m.volume - volumeStep)
	case "backspace":
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
	case "esc":
		m.input = ""
	case "enter":
		return m, m.submit()
	default:
		if msg.Type == tea.KeySpace {
			m.input += " "
		} else if msg.Type == tea.KeyRunes {
			for _, r := range msg.Runes {
				if r >= '0' && r <= '9' {
					m.input += string(r)
				}
			}
		}
	}
	return m, nil
}

func (m *Model) setVolume(v float64) {
	// Round to one decimal so repeated steps land on clean values.
	v = float64(int(v*10+0.5)) / 10
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	m.volume = v
	m.ctl.SetVolume(v)
}

// submit parses "<channel> <kind-number>" and starts the request off the UI loop.
func (m *Model) submit() tea.Cmd {
	channel, kind, err := parseInput(m.input, m.view.Resource)
	if err != nil {
		m.status = err.Error()
		return nil
	}
	m.input = ""
	m.pending = true
	m.status = fmt.Sprintf("starting %s on channel %s...", kind, channel)

	ctl := m.ctl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return requestDoneMsg{channel: channel, kind: kind, err: ctl.RequestTimer(ctx, channel, kind)}
	}
}

var errInputFormat = errors.New("enter <channel> <kind number>")

func parseInput(input string, resource models.Resource) (string, models.Kind, error) {
	fields := strings.Fields(input)
	if len(fields) != 2 {
		return "", "", errInputFormat
	}
	kinds := resource.Kinds()
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 1 || n > len(kinds) {
		return "", "", fmt.Errorf("kind must be 1-%d", len(kinds))
	}
	return fields[0], kinds[n-1], nil
}

func requestStatus(msg requestDoneMsg) string {
	switch {
	case msg.err == nil:
		return fmt.Sprintf("started %s on channel %s", msg.kind, msg.channel)
	case errors.Is(msg.err, timers.ErrDuplicate):
		return fmt.Sprintf("%s already running on channel %s", msg.kind, msg.channel)
	case errors.Is(msg.err, timers.ErrBusy):
		return "another request is still running"
	case timers.IsValidation(msg.err):
		return msg.err.Error()
	default:
		return "could not reach the timer store"
	}
}
