// Package ui is the terminal dashboard.
package ui

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/JadenB/Luxamp-sub000/internal/analysis"
	"github.com/JadenB/Luxamp-sub000/internal/app"
	"github.com/JadenB/Luxamp-sub000/internal/light"
	"github.com/JadenB/Luxamp-sub000/internal/preset"
	"github.com/JadenB/Luxamp-sub000/internal/visualizer"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	spectrumBands  = 16
	spectrumHeight = 5
	springFPS      = 60
)

// Backend is what the dashboard controls.
type Backend interface {
	Status() app.Status
	TogglePause() bool
	TogglePower() bool
	PresetNames() []string
	ApplyPreset(name string)
	SavePreset(name string) error
	DeletePreset(name string) error
	DriverNames() (brightness, color string)
	CycleDriver(ch app.Channel, delta int) string
	ToggleInvert(ch app.Channel) bool
	ToggleDynamicRange(ch app.Channel) bool
	CyclePattern() light.Pattern
}

// Model is the Bubbletea model for the dashboard.
type Model struct {
	backend Backend
	status  app.Status
	width   int

	frame    visualizer.Frame
	meters   springField
	bands    springField
	smoother *analysis.BandSmoother
	levels   []float64

	presets   []string
	presetIdx int
	// focus is the mapper the driver, invert and range keys act on.
	focus app.Channel

	naming  bool
	input   textinput.Model
	msg     string
	msgTime time.Time

	quitting bool
}

func New(b Backend) Model {
	in := textinput.New()
	in.Placeholder = "preset name"
	in.CharLimit = 40

	m := Model{
		backend:  b,
		status:   b.Status(),
		meters:   newSpringField(springFPS, 6, 0.7),
		bands:    newSpringField(springFPS, 8, 0.8),
		smoother: analysis.NewBandSmoother(0.3),
		levels:   make([]float64, spectrumBands),
		presets:  b.PresetNames(),
		input:    in,
	}
	m.meters.resize(2)
	m.bands.resize(spectrumBands)
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(statusTickCmd(), tea.SetWindowTitle("luxamp"))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m.handleMsg(msg)
}

func (m Model) handleMsg(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.naming {
			return m.handleNamingKey(msg)
		}
		return m.handleKey(msg)

	case FrameMsg:
		m.frame = msg.Frame
		m.meters.step(0, float64(msg.Frame.Brightness.OutputVal))
		m.meters.step(1, float64(msg.Frame.ColorData.OutputVal))
		if msg.Features != nil {
			for i, v := range m.smoother.Update(msg.Features.Bands(spectrumBands)) {
				m.levels[i] = min(max(m.bands.step(i, float64(v)), 0), 1)
			}
		}
		return m, nil

	case statusTickMsg:
		m.status = m.backend.Status()
		if m.msg != "" && time.Since(m.msgTime) > 5*time.Second {
			m.msg = ""
		}
		return m, statusTickCmd()

	case presetSavedMsg:
		if msg.err != nil {
			m.setMessage("Save failed: " + describeErr(msg.err))
			return m, nil
		}
		m.presets = m.backend.PresetNames()
		m.presetIdx = max(slices.Index(m.presets, msg.name), 0)
		m.setMessage(fmt.Sprintf("Saved %s", msg.name))
		return m, nil

	case presetDeletedMsg:
		if msg.err != nil {
			m.setMessage("Delete failed: " + describeErr(msg.err))
			return m, nil
		}
		m.presets = m.backend.PresetNames()
		m.presetIdx = 0
		m.backend.ApplyPreset(m.presets[0])
		m.setMessage(fmt.Sprintf("Deleted %s", msg.name))
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if isQuit(msg) {
		m.quitting = true
		return m, tea.Sequence(tea.SetWindowTitle(""), tea.Quit)
	}
	switch msg.String() {
	case " ":
		m.status.Paused = m.backend.TogglePause()
	case "o":
		m.status.LightOn = m.backend.TogglePower()
	case "n":
		m.cyclePreset(1)
	case "p":
		m.cyclePreset(-1)
	case "s":
		m.naming = true
		m.input.SetValue("")
		if name := m.currentPreset(); name != preset.DefaultName {
			m.input.SetValue(name)
		}
		return m, m.input.Focus()
	case "tab":
		m.focus = 1 - m.focus
	case "r":
		m.setMessage(fmt.Sprintf("%s driver %s", m.focus, m.backend.CycleDriver(m.focus, 1)))
	case "R":
		m.setMessage(fmt.Sprintf("%s driver %s", m.focus, m.backend.CycleDriver(m.focus, -1)))
	case "i":
		m.setMessage(fmt.Sprintf("%s invert %s", m.focus, onOff(m.backend.ToggleInvert(m.focus))))
	case "y":
		m.setMessage(fmt.Sprintf("%s dynamic range %s", m.focus, onOff(m.backend.ToggleDynamicRange(m.focus))))
	case "m":
		m.status.Pattern = m.backend.CyclePattern().String()
		m.setMessage("pattern " + m.status.Pattern)
	case "d":
		name := m.currentPreset()
		b := m.backend
		return m, func() tea.Msg {
			return presetDeletedMsg{name: name, err: b.DeletePreset(name)}
		}
	}
	return m, nil
}

func (m Model) handleNamingKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.naming = false
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		m.naming = false
		m.input.Blur()
		name := strings.TrimSpace(m.input.Value())
		b := m.backend
		return m, func() tea.Msg {
			return presetSavedMsg{name: name, err: b.SavePreset(name)}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) cyclePreset(delta int) {
	if len(m.presets) == 0 {
		return
	}
	m.presetIdx = (m.presetIdx + delta + len(m.presets)) % len(m.presets)
	m.backend.ApplyPreset(m.presets[m.presetIdx])
}

func (m Model) currentPreset() string {
	if m.presetIdx < len(m.presets) {
		return m.presets[m.presetIdx]
	}
	return preset.DefaultName
}

func (m *Model) setMessage(s string) {
	m.msg = s
	m.msgTime = time.Now()
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// driverLabel shows a driver with its place in the driver list, e.g. "Bass Volume 7/9".
func driverLabel(name string) string {
	names := visualizer.DriverNames()
	return fmt.Sprintf("%s %d/%d", name, slices.Index(names, name)+1, len(names))
}

func describeErr(err error) string {
	switch {
	case errors.Is(err, preset.ErrReservedName):
		return "the Default preset is read-only"
	case errors.Is(err, preset.ErrEmptyName):
		return "enter a name"
	}
	return err.Error()
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	w := m.width
	if w < 40 {
		w = 60
	}
	meterWidth := max(w-40, 10)

	var b strings.Builder
	b.WriteString("\n  " + headerStyle.Render("luxamp") + "\n\n")

	title := m.status.Source
	if m.status.Duration > 0 {
		title += "  " + formatDuration(m.status.Elapsed) + " / " + formatDuration(m.status.Duration)
	}
	if m.status.Album != "" {
		title += "  " + m.status.Album
	}
	if m.status.Paused {
		title += "  (paused)"
	}
	b.WriteString("  " + titleStyle.Render(title) + "\n\n")

	brightDriver, colorDriver := m.backend.DriverNames()
	swatch := strings.Split(renderSwatch(m.frame.Color, 6, 2), "\n")
	marker := [2]string{"  ", "  "}
	marker[m.focus] = "> "
	meterLines := []string{
		marker[0] + labelStyle.Render("brightness") + renderMeter(m.meters.pos[0], meterWidth) + " " +
			valueStyle.Render(fmt.Sprintf("%.2f  %s %s", m.frame.Brightness.OutputVal, driverLabel(brightDriver),
				formatRange(m.frame.Brightness.DynamicMin, m.frame.Brightness.DynamicMax))),
		marker[1] + labelStyle.Render("color") + renderMeter(m.meters.pos[1], meterWidth) + " " +
			valueStyle.Render(fmt.Sprintf("%.2f  %s %s", m.frame.ColorData.OutputVal, driverLabel(colorDriver),
				formatRange(m.frame.ColorData.DynamicMin, m.frame.ColorData.DynamicMax))),
	}
	for i := range meterLines {
		b.WriteString("  " + swatch[i] + "  " + meterLines[i] + "\n")
	}
	b.WriteString("\n")

	for _, line := range strings.Split(renderSpectrum(m.levels, w-4, spectrumHeight), "\n") {
		b.WriteString("  " + spectrumStyle.Render(line) + "\n")
	}
	b.WriteString("\n")

	power := "off"
	if m.status.LightOn {
		power = "on"
	}
	device := m.status.Device
	if m.status.Path != "" {
		device += " " + m.status.Path
	}
	line := fmt.Sprintf("device %s    light %s", device, power)
	if m.status.Pattern != "" && m.status.Pattern != light.PatternNone.String() {
		line += "    pattern " + m.status.Pattern
	}
	b.WriteString("  " + statusStyle.Render(line) + "\n")

	names := make([]string, len(m.presets))
	for i, n := range m.presets {
		if i == m.presetIdx {
			names[i] = currentPresetStyle.Render(n)
		} else {
			names[i] = presetStyle.Render(n)
		}
	}
	b.WriteString("  " + labelStyle.Render("presets") + strings.Join(names, "  ") + "\n")

	if m.naming {
		b.WriteString("  " + m.input.View() + "\n")
	} else if m.msg != "" {
		b.WriteString("  " + helpStyle.Render(m.msg) + "\n")
	}
	b.WriteString("\n  " + helpStyle.Render(helpText(m.naming)) + "\n")
	return b.String()
}
