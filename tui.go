package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vox/client"
	"vox/config"
	"vox/protocol"
)

// Watch messages, fed by the subscription goroutine.
type StateMsg struct {
	State   protocol.State
	IdleHot bool
}
type LevelMsg struct{ V float64 }
type SpectrumMsg struct{ Bands []float32 }
type ConnLostMsg struct{ Err error }
type watchTickMsg time.Time

const (
	spectrumRows   = 8
	bandWidth      = 4
	meterWidth     = 32
	reconnectDelay = time.Second
)

// Styles are precomputed; View runs every frame.
var (
	watchTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	watchDimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	watchHelpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	watchRecStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	watchBusyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	watchErrStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("208"))
	watchMeterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))

	// Classic analyzer gradient, red at the top row down to green.
	spectrumRowColors = [spectrumRows]string{"196", "208", "220", "226", "190", "154", "118", "82"}
	spectrumRowStyles [spectrumRows]lipgloss.Style
)

func init() {
	for i, c := range spectrumRowColors {
		spectrumRowStyles[i] = lipgloss.NewStyle().Foreground(lipgloss.Color(c))
	}
}

type watchModel struct {
	socket string

	connected bool
	connErr   error

	state    protocol.State
	idleHot  bool
	level    float64
	peak     float64
	bands    []float32
	recStart time.Time

	frame         int
	width, height int
}

func newWatchModel(socket string) watchModel {
	return watchModel{socket: socket, state: protocol.StateIdle}
}

func watchTick() tea.Cmd {
	return tea.Tick(60*time.Millisecond, func(t time.Time) tea.Msg {
		return watchTickMsg(t)
	})
}

func (m watchModel) Init() tea.Cmd {
	return watchTick()
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}

	case watchTickMsg:
		m.frame++
		if m.state != protocol.StateRecording {
			// Let the meter fall back to zero between recordings.
			m.level *= 0.8
		}
		return m, watchTick()

	case StateMsg:
		if msg.State == protocol.StateRecording && m.state != protocol.StateRecording {
			m.recStart = time.Now()
			m.peak = 0
		}
		m.state = msg.State
		m.idleHot = msg.IdleHot
		m.connected = true
		m.connErr = nil

	case LevelMsg:
		m.level = m.level*0.6 + msg.V*0.4
		if msg.V > m.peak {
			m.peak = msg.V
		}
		m.connected = true

	case SpectrumMsg:
		m.bands = msg.Bands
		m.connected = true

	case ConnLostMsg:
		m.connected = false
		m.connErr = msg.Err
		m.state = protocol.StateIdle
		m.level = 0
		m.bands = nil
	}
	return m, nil
}

func (m watchModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var lines []string
	lines = append(lines, watchTitleStyle.Render("vox monitor"))
	lines = append(lines, watchDimStyle.Render(m.socket))
	lines = append(lines, "")

	if !m.connected {
		dots := strings.Repeat(".", m.frame/8%4)
		lines = append(lines, watchBusyStyle.Render("connecting to service"+dots))
		if m.connErr != nil {
			lines = append(lines, watchDimStyle.Render(m.connErr.Error()))
		}
	} else {
		lines = append(lines, m.stateLine())
		lines = append(lines, m.modelLine())
		lines = append(lines, "")
		lines = append(lines, m.meterLine())
		lines = append(lines, "")
		lines = append(lines, strings.Split(renderSpectrum(m.bands), "\n")...)
	}

	lines = append(lines, "")
	lines = append(lines, watchHelpStyle.Render("q to quit"))
	lines = append(lines, watchHelpStyle.Render("vox "+version))

	return strings.Join(lines, "\n")
}

func (m watchModel) stateLine() string {
	switch m.state {
	case protocol.StateRecording:
		return watchRecStyle.Render(fmt.Sprintf("● %s %.1fs", m.state.Display(), time.Since(m.recStart).Seconds()))
	case protocol.StateTranscribing:
		return watchBusyStyle.Render("◌ " + m.state.Display())
	case protocol.StateError:
		return watchErrStyle.Render("● " + m.state.Display())
	}
	return watchDimStyle.Render("○ " + m.state.Display())
}

func (m watchModel) modelLine() string {
	if m.idleHot {
		return watchDimStyle.Render("model: loaded")
	}
	return watchDimStyle.Render("model: cold (loads on first use)")
}

func (m watchModel) meterLine() string {
	level := m.level
	if level > 1 {
		level = 1
	}
	filled := int(level*meterWidth + 0.5)
	bar := watchMeterStyle.Render(strings.Repeat("█", filled)) +
		watchDimStyle.Render(strings.Repeat("░", meterWidth-filled))
	return fmt.Sprintf("level [%s] %3.0f%%  peak %3.0f%%", bar, level*100, m.peak*100)
}

// renderSpectrum draws one column per band, two half-block steps per
// row, loudest bins reaching the red rows at the top.
func renderSpectrum(bands []float32) string {
	if len(bands) == 0 {
		return watchDimStyle.Render("(waiting for spectrum)")
	}
	empty := strings.Repeat(" ", bandWidth)
	var b strings.Builder
	for row := 0; row < spectrumRows; row++ {
		fromBottom := spectrumRows - 1 - row
		for i, v := range bands {
			if i > 0 {
				b.WriteByte(' ')
			}
			if v < 0 {
				v = 0
			}
			if v > 1 {
				v = 1
			}
			halves := int(float64(v)*float64(2*spectrumRows) + 0.5)
			switch {
			case halves >= 2*(fromBottom+1):
				b.WriteString(spectrumRowStyles[row].Render(strings.Repeat("█", bandWidth)))
			case halves == 2*fromBottom+1:
				b.WriteString(spectrumRowStyles[row].Render(strings.Repeat("▄", bandWidth)))
			default:
				b.WriteString(empty)
			}
		}
		if row < spectrumRows-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// runWatch subscribes to the service and renders its events until the
// user quits. A dropped service is retried forever; the view shows the
// gap instead of exiting.
func runWatch(cfg config.Config) int {
	socketPath, err := config.ExpandSocketPath(cfg.Service.SocketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	p := tea.NewProgram(newWatchModel(socketPath), tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := client.New(socketPath)
	go func() {
		for {
			err := c.Subscribe(ctx, func(ev protocol.Event) {
				switch e := ev.(type) {
				case protocol.StateEvent:
					p.Send(StateMsg{State: e.State, IdleHot: e.IdleHot})
				case protocol.LevelEvent:
					p.Send(LevelMsg{V: e.V})
				case protocol.SpectrumEvent:
					p.Send(SpectrumMsg{Bands: e.Bands})
				case protocol.StatusEvent:
					p.Send(StateMsg{State: e.State, IdleHot: e.IdleHot})
					p.Send(LevelMsg{V: e.Level})
				}
			})
			if ctx.Err() != nil {
				return
			}
			p.Send(ConnLostMsg{Err: err})
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
			}
		}
	}()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
