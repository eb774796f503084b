package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/slipstream-io/framecap/comm"
)

func TestProgressModel_InitialView(t *testing.T) {
	m := NewProgressModel("/data/match.replay")

	view := m.View()
	if !strings.Contains(view, "/data/match.replay") {
		t.Errorf("view missing replay path:\n%s", view)
	}
	if !strings.Contains(view, "waiting for engine") {
		t.Errorf("view missing waiting state:\n%s", view)
	}
}

func TestProgressModel_FrameUpdate(t *testing.T) {
	m := NewProgressModel("/data/match.replay")

	updated, _ := m.Update(FrameMsg{Latest: 1200, Target: 4200})
	m = updated.(ProgressModel)

	view := m.View()
	if !strings.Contains(view, "1200 / 4200") {
		t.Errorf("view missing frame counter:\n%s", view)
	}
}

func TestProgressModel_Percent(t *testing.T) {
	m := NewProgressModel("x")

	if got := m.percent(); got != 0 {
		t.Errorf("percent before any frame = %v, want 0", got)
	}

	updated, _ := m.Update(FrameMsg{Latest: comm.FirstFrame, Target: 877})
	m = updated.(ProgressModel)
	if got := m.percent(); got != 0 {
		t.Errorf("percent at first frame = %v, want 0", got)
	}

	updated, _ = m.Update(FrameMsg{Latest: 877, Target: 877})
	m = updated.(ProgressModel)
	if got := m.percent(); got != 1 {
		t.Errorf("percent at target = %v, want 1", got)
	}

	updated, _ = m.Update(FrameMsg{Latest: 5000, Target: 877})
	m = updated.(ProgressModel)
	if got := m.percent(); got != 1 {
		t.Errorf("percent past target = %v, want clamped to 1", got)
	}
}

func TestProgressModel_Done(t *testing.T) {
	m := NewProgressModel("x")

	updated, cmd := m.Update(DoneMsg{Status: "success"})
	m = updated.(ProgressModel)
	if cmd == nil {
		t.Fatal("done update returned no command")
	}

	view := m.View()
	if !strings.Contains(view, "success") {
		t.Errorf("view missing outcome:\n%s", view)
	}
}

func TestProgressModel_QuitKey(t *testing.T) {
	m := NewProgressModel("x")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = updated.(ProgressModel)
	if cmd == nil {
		t.Fatal("quit key returned no command")
	}
	if m.View() != "" {
		t.Error("view should be empty after quit")
	}
}
