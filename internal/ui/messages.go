package ui

import (
	"time"

	"github.com/JadenB/Luxamp-sub000/internal/app"
	tea "github.com/charmbracelet/bubbletea"
)

type statusTickMsg time.Time

// FrameMsg carries one refresh result into the dashboard.
type FrameMsg app.Tick

type presetSavedMsg struct {
	name string
	err  error
}

type presetDeletedMsg struct {
	name string
	err  error
}

func statusTickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return statusTickMsg(t)
	})
}

// Forward returns a tick hook that delivers frames to p.
func Forward(p *tea.Program) func(app.Tick) {
	return func(t app.Tick) { p.Send(FrameMsg(t)) }
}
