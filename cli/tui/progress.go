package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/slipstream-io/framecap/comm"
)

// FrameMsg carries a new running-maximum frame into the display.
type FrameMsg struct {
	Latest int32
	Target int32
}

// DoneMsg ends the display with the recording's outcome.
type DoneMsg struct {
	Status  string
	Message string
}

// ProgressModel is a Bubble Tea model showing recording progress.
type ProgressModel struct {
	replayPath string
	bar        progress.Model

	latest int32
	target int32
	seen   bool

	done     bool
	status   string
	message  string
	width    int
	quitting bool
}

// NewProgressModel creates a progress model for one recording.
func NewProgressModel(replayPath string) ProgressModel {
	return ProgressModel{
		replayPath: replayPath,
		bar:        progress.New(progress.WithDefaultGradient()),
	}
}

// Init implements tea.Model.
func (m ProgressModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = msg.Width - 12
		if m.bar.Width > 60 {
			m.bar.Width = 60
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case FrameMsg:
		m.latest = msg.Latest
		m.target = msg.Target
		m.seen = true
		return m, m.bar.SetPercent(m.percent())

	case DoneMsg:
		m.done = true
		m.status = msg.Status
		m.message = msg.Message
		return m, tea.Sequence(m.bar.SetPercent(m.percent()), tea.Quit)

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}

	return m, nil
}

// percent maps the latest frame onto [0, 1]. Frames count up from the
// pre-game lead-in, so the origin is the first frame code, not zero.
func (m ProgressModel) percent() float64 {
	if !m.seen || m.target <= comm.FirstFrame {
		return 0
	}
	p := float64(m.latest-comm.FirstFrame) / float64(m.target-comm.FirstFrame)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// View implements tea.Model.
func (m ProgressModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Recording"))
	b.WriteString("\n\n")

	b.WriteString(LabelStyle.Render("Replay"))
	b.WriteString(ValueStyle.Render(m.replayPath))
	b.WriteString("\n")

	b.WriteString(LabelStyle.Render("Frame"))
	if m.seen {
		b.WriteString(ValueStyle.Render(fmt.Sprintf("%d / %d", m.latest, m.target)))
	} else {
		b.WriteString(ValueStyle.Render("waiting for engine"))
	}
	b.WriteString("\n\n")

	b.WriteString(m.bar.View())
	b.WriteString("\n")

	if m.done {
		b.WriteString("\n")
		b.WriteString(OutcomeStyle(m.status).Render(m.status))
		if m.message != "" {
			b.WriteString(ValueStyle.Render(": " + m.message))
		}
		b.WriteString("\n")
	}

	help := HelpStyle.Render("Press q or Ctrl+C to detach")
	return BoxStyle.Render(b.String()) + "\n" + help
}

// keyMap defines key bindings.
type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// Display is a running progress display. Safe to feed from the
// recording goroutine.
type Display struct {
	program *tea.Program
	done    chan struct{}
}

// RunProgress starts the progress display for one recording.
func RunProgress(replayPath string) *Display {
	d := &Display{
		program: tea.NewProgram(NewProgressModel(replayPath)),
		done:    make(chan struct{}),
	}
	go func() {
		defer close(d.done)
		_, _ = d.program.Run()
	}()
	return d
}

// SendFrame feeds a new running-maximum frame into the display.
func (d *Display) SendFrame(latest, target int32) {
	d.program.Send(FrameMsg{Latest: latest, Target: target})
}

// Finish shows the outcome and waits for the display to exit.
func (d *Display) Finish(status, message string) {
	d.program.Send(DoneMsg{Status: status, Message: message})
	<-d.done
}
