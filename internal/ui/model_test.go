package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/JadenB/Luxamp-sub000/internal/analysis"
	"github.com/JadenB/Luxamp-sub000/internal/app"
	"github.com/JadenB/Luxamp-sub000/internal/light"
	"github.com/JadenB/Luxamp-sub000/internal/preset"
	"github.com/JadenB/Luxamp-sub000/internal/visualizer"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/lucasb-eyer/go-colorful"
)

type fakeBackend struct {
	status  app.Status
	presets []string
	applied []string
	saved   []string
	deleted []string

	drivers  [2]int
	inverted [2]bool
	dynamic  [2]bool
	pattern  light.Pattern
}

func (f *fakeBackend) Status() app.Status { return f.status }
func (f *fakeBackend) TogglePause() bool {
	f.status.Paused = !f.status.Paused
	return f.status.Paused
}
func (f *fakeBackend) TogglePower() bool {
	f.status.LightOn = !f.status.LightOn
	return f.status.LightOn
}
func (f *fakeBackend) PresetNames() []string   { return append([]string(nil), f.presets...) }
func (f *fakeBackend) ApplyPreset(name string) { f.applied = append(f.applied, name) }
func (f *fakeBackend) SavePreset(name string) error {
	if name == preset.DefaultName {
		return preset.ErrReservedName
	}
	f.saved = append(f.saved, name)
	f.presets = append(f.presets, name)
	return nil
}
func (f *fakeBackend) DeletePreset(name string) error {
	if name == preset.DefaultName {
		return preset.ErrReservedName
	}
	f.deleted = append(f.deleted, name)
	for i, n := range f.presets {
		if n == name {
			f.presets = append(f.presets[:i], f.presets[i+1:]...)
			break
		}
	}
	return nil
}
func (f *fakeBackend) DriverNames() (string, string) {
	names := visualizer.DriverNames()
	return names[f.drivers[app.Brightness]], names[f.drivers[app.Color]]
}
func (f *fakeBackend) CycleDriver(ch app.Channel, delta int) string {
	names := visualizer.DriverNames()
	f.drivers[ch] = (f.drivers[ch] + delta + len(names)) % len(names)
	return names[f.drivers[ch]]
}
func (f *fakeBackend) ToggleInvert(ch app.Channel) bool {
	f.inverted[ch] = !f.inverted[ch]
	return f.inverted[ch]
}
func (f *fakeBackend) ToggleDynamicRange(ch app.Channel) bool {
	f.dynamic[ch] = !f.dynamic[ch]
	return f.dynamic[ch]
}
func (f *fakeBackend) CyclePattern() light.Pattern {
	f.pattern = (f.pattern + 1) % light.Pattern(len(light.PatternNames()))
	f.status.Pattern = f.pattern.String()
	return f.pattern
}

func newBackend() *fakeBackend {
	return &fakeBackend{
		status:  app.Status{Device: "ready", Path: "/dev/ttyUSB0", Source: "Microphone", Pattern: "none"},
		presets: []string{preset.DefaultName, "Chill", "Party"},
		drivers: [2]int{visualizer.DriverRMS, visualizer.DriverPitch},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestCyclePresetsWraps(t *testing.T) {
	b := newBackend()
	m := New(b)

	m, _ = m.handleMsg(key("p"))
	if m.presetIdx != 2 {
		t.Fatalf("expected wrap to last preset, got index %d", m.presetIdx)
	}
	m, _ = m.handleMsg(key("n"))
	if m.presetIdx != 0 {
		t.Fatalf("expected wrap to first preset, got index %d", m.presetIdx)
	}
	if got := strings.Join(b.applied, ","); got != "Party,Default" {
		t.Fatalf("expected presets applied in order, got %q", got)
	}
}

func TestPauseAndPowerKeys(t *testing.T) {
	b := newBackend()
	m := New(b)

	m, _ = m.handleMsg(key(" "))
	if !m.status.Paused {
		t.Fatal("expected paused after space")
	}
	m, _ = m.handleMsg(key("o"))
	if !m.status.LightOn {
		t.Fatal("expected light on after o")
	}
}

func TestSavePresetFlow(t *testing.T) {
	b := newBackend()
	m := New(b)

	m, _ = m.handleMsg(key("s"))
	if !m.naming {
		t.Fatal("expected naming mode after s")
	}
	for _, r := range "Late" {
		m, _ = m.handleMsg(key(string(r)))
	}
	m, cmd := m.handleMsg(key("enter"))
	if m.naming {
		t.Fatal("expected naming mode to end on enter")
	}
	if cmd == nil {
		t.Fatal("expected save command")
	}
	m, _ = m.handleMsg(cmd())
	if len(b.saved) != 1 || b.saved[0] != "Late" {
		t.Fatalf("expected preset Late saved, got %v", b.saved)
	}
	if got := m.currentPreset(); got != "Late" {
		t.Fatalf("expected Late selected, got %q", got)
	}
}

func TestSaveCancelledByEsc(t *testing.T) {
	b := newBackend()
	m := New(b)

	m, _ = m.handleMsg(key("s"))
	m, cmd := m.handleMsg(key("esc"))
	if m.naming || cmd != nil {
		t.Fatal("expected esc to leave naming mode without a command")
	}
	if len(b.saved) != 0 {
		t.Fatalf("expected nothing saved, got %v", b.saved)
	}
}

func TestDeleteDefaultReportsError(t *testing.T) {
	b := newBackend()
	m := New(b)

	_, cmd := m.handleMsg(key("d"))
	m, _ = m.handleMsg(cmd())
	if !strings.Contains(m.msg, "read-only") {
		t.Fatalf("expected read-only message, got %q", m.msg)
	}
	if len(b.deleted) != 0 {
		t.Fatalf("expected nothing deleted, got %v", b.deleted)
	}
}

func TestDeleteSelectsDefault(t *testing.T) {
	b := newBackend()
	m := New(b)
	m, _ = m.handleMsg(key("n"))

	_, cmd := m.handleMsg(key("d"))
	m, _ = m.handleMsg(cmd())
	if len(b.deleted) != 1 || b.deleted[0] != "Chill" {
		t.Fatalf("expected Chill deleted, got %v", b.deleted)
	}
	if m.presetIdx != 0 || len(m.presets) != 2 {
		t.Fatalf("expected Default selected among 2 presets, got %d of %v", m.presetIdx, m.presets)
	}
}

func TestFrameMsgUpdatesView(t *testing.T) {
	m := New(newBackend())
	spectrum := make([]float32, 512)
	spectrum[40] = 10
	frame := visualizer.Frame{
		Color:      colorful.Hsv(120, 1, 1),
		Brightness: visualizer.Data{OutputVal: 0.8},
		ColorData:  visualizer.Data{OutputVal: 0.3},
	}
	for i := 0; i < 30; i++ {
		m, _ = m.handleMsg(FrameMsg{Frame: frame, Features: &analysis.Features{Spectrum: spectrum}})
	}
	if m.meters.pos[0] < 0.5 {
		t.Fatalf("expected brightness meter to approach 0.8, got %v", m.meters.pos[0])
	}

	view := m.View()
	for _, want := range []string{"luxamp", "Microphone", "Root Mean Square", "Pitch", "/dev/ttyUSB0", "Party"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected view to contain %q", want)
		}
	}
}

func TestRenderMeterClamps(t *testing.T) {
	if got := renderMeter(2, 10); got != strings.Repeat("━", 10) {
		t.Fatalf("expected full meter, got %q", got)
	}
	if got := renderMeter(-1, 10); got != strings.Repeat("─", 10) {
		t.Fatalf("expected empty meter, got %q", got)
	}
}

func TestRenderSpectrumHeight(t *testing.T) {
	out := renderSpectrum([]float64{0, 0.5, 1}, 30, 4)
	if rows := strings.Count(out, "\n") + 1; rows != 4 {
		t.Fatalf("expected 4 rows, got %d", rows)
	}
	if !strings.Contains(out, "█") {
		t.Fatal("expected a full bar for level 1")
	}
}

func TestQuitKey(t *testing.T) {
	m := New(newBackend())
	m, cmd := m.handleMsg(key("q"))
	if !m.quitting || cmd == nil {
		t.Fatal("expected quit")
	}
	if m.View() != "" {
		t.Fatal("expected empty view after quit")
	}
}

func TestViewShowsFileProgress(t *testing.T) {
	b := newBackend()
	b.status.Source = "Song"
	b.status.Elapsed = 83 * time.Second
	b.status.Duration = 225 * time.Second
	m := New(b)
	if view := m.View(); !strings.Contains(view, "1:23 / 3:45") {
		t.Fatalf("expected progress in view, got %q", view)
	}
	if got := formatDuration(-time.Second); got != "0:00" {
		t.Fatalf("expected 0:00 for negative duration, got %q", got)
	}
}

func TestMapperKeysFollowFocus(t *testing.T) {
	b := newBackend()
	m := New(b)

	m, _ = m.handleMsg(key("r"))
	if b.drivers[app.Brightness] != visualizer.DriverPitch {
		t.Fatalf("expected brightness on Pitch, got driver %d", b.drivers[app.Brightness])
	}
	if !strings.Contains(m.msg, "brightness driver Pitch") {
		t.Fatalf("expected driver message, got %q", m.msg)
	}

	m, _ = m.handleMsg(key("tab"))
	if m.focus != app.Color {
		t.Fatalf("expected color focus after tab, got %v", m.focus)
	}
	m, _ = m.handleMsg(key("R"))
	m, _ = m.handleMsg(key("R"))
	m, _ = m.handleMsg(key("R"))
	if b.drivers[app.Color] != 8 {
		t.Fatalf("expected color driver to wrap to the last driver, got %d", b.drivers[app.Color])
	}
	m, _ = m.handleMsg(key("i"))
	m, _ = m.handleMsg(key("y"))
	if !b.inverted[app.Color] || b.inverted[app.Brightness] || !b.dynamic[app.Color] {
		t.Fatalf("expected only color toggled, got invert %v dynamic %v", b.inverted, b.dynamic)
	}
	if m.msg != "color dynamic range on" {
		t.Fatalf("expected range message, got %q", m.msg)
	}

	view := m.View()
	for _, want := range []string{"Treble Volume 9/9", "Pitch 3/9", "> "} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected view to contain %q", want)
		}
	}
}

func TestPatternKeyCycles(t *testing.T) {
	b := newBackend()
	m := New(b)

	m, _ = m.handleMsg(key("m"))
	if m.status.Pattern != "strobe" {
		t.Fatalf("expected strobe, got %q", m.status.Pattern)
	}
	if !strings.Contains(m.View(), "pattern strobe") {
		t.Fatal("expected pattern in status line")
	}
	for i := 0; i < len(light.PatternNames())-1; i++ {
		m, _ = m.handleMsg(key("m"))
	}
	if m.status.Pattern != "none" {
		t.Fatalf("expected cycle back to none, got %q", m.status.Pattern)
	}
	m.msg = ""
	if strings.Contains(m.View(), "pattern none") {
		t.Fatal("expected no pattern in status line once stopped")
	}
}

func TestViewShowsAlbum(t *testing.T) {
	b := newBackend()
	b.status.Source = "Band - Song"
	b.status.Album = "Record"
	if view := New(b).View(); !strings.Contains(view, "Band - Song  Record") {
		t.Fatalf("expected title and album, got %q", view)
	}
}
