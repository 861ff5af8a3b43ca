// Package app wires audio capture, analysis, the visualizer and the light
// output together and drives them at a fixed refresh rate.
package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/JadenB/Luxamp-sub000/internal/analysis"
	"github.com/JadenB/Luxamp-sub000/internal/audio"
	"github.com/JadenB/Luxamp-sub000/internal/config"
	"github.com/JadenB/Luxamp-sub000/internal/fixture"
	"github.com/JadenB/Luxamp-sub000/internal/light"
	"github.com/JadenB/Luxamp-sub000/internal/logging"
	"github.com/JadenB/Luxamp-sub000/internal/preset"
	"github.com/JadenB/Luxamp-sub000/internal/serial"
	"github.com/JadenB/Luxamp-sub000/internal/visualizer"
	"github.com/sirupsen/logrus"
)

// Options configures an App. Zero values fall back to the saved settings.
type Options struct {
	// DevicePath connects to this port instead of the saved one.
	DevicePath string
	Legacy     bool
	// Input plays a file instead of capturing the microphone.
	Input string
	Mute  bool

	DelayMS       *int
	MaxBrightness float64
	RefreshRate   int

	// Pattern drives the light with a generated sequence instead of audio.
	Pattern light.Pattern
	Period  time.Duration
	// Modulator names the shaping of the color position.
	Modulator string
	// EvolvingRate > 0 lets the hue drift as the color channel rises.
	EvolvingRate float64

	// Test hooks.
	Open   serial.Opener
	Ports  func() ([]string, error)
	Source audio.Source
}

// Tick is the result of one refresh.
type Tick struct {
	Frame    visualizer.Frame
	Features *analysis.Features
}

// Channel selects one of the two visualizer mappers.
type Channel int

const (
	Brightness Channel = iota
	Color
)

func (c Channel) String() string {
	if c == Color {
		return "color"
	}
	return "brightness"
}

// Status is a snapshot of the connection and playback state.
type Status struct {
	Device  string
	Path    string
	LightOn bool
	Paused  bool
	Source  string
	Album   string
	// Pattern is "none" while the visualizer drives the light.
	Pattern string
	// Elapsed and Duration are set for file sources.
	Elapsed  time.Duration
	Duration time.Duration
}

type progressSource interface {
	Position() time.Duration
	Duration() time.Duration
}

type taggedSource interface {
	Metadata() audio.Metadata
}

// link is a connected controller, new or legacy.
type link interface {
	Connect(path string) error
	Disconnect()
	Path() string
	Status() string
}

type deviceLink struct{ *serial.Device }

func (l deviceLink) Status() string { return l.State().String() }

type legacyLink struct{ *serial.LegacyDevice }

func (l legacyLink) Status() string {
	if l.Active() {
		return "connected"
	}
	return "disconnected"
}

// App owns every long-lived component.
type App struct {
	settings *config.Settings
	slot     *audio.Slot
	source   audio.Source
	analyzer *analysis.Analyzer
	vis      *visualizer.Visualizer
	presets  *preset.Manager
	light    *light.Controller
	patterns *light.PatternPlayer
	link     link
	ports    func() ([]string, error)
	log      *logrus.Entry

	devicePath string
	pattern    light.Pattern
	period     time.Duration
	refresh    chan time.Duration

	mu     sync.Mutex
	paused bool
	onTick []func(Tick)
	buf    []float32
}

// New builds an App from settings and opts. Nothing is started until Run.
func New(settings *config.Settings, opts Options) (*App, error) {
	a := &App{
		settings:   settings,
		slot:       audio.NewSlot(audio.FrameSize),
		analyzer:   analysis.NewAnalyzer(audio.SampleRate, audio.FrameSize),
		vis:        visualizer.New(),
		ports:      opts.Ports,
		log:        logging.For("app"),
		devicePath: opts.DevicePath,
		pattern:    opts.Pattern,
		period:     opts.Period,
		refresh:    make(chan time.Duration, 1),
		buf:        make([]float32, audio.FrameSize),
	}
	if a.ports == nil {
		a.ports = serial.Ports
	}

	if err := a.applyOverrides(opts); err != nil {
		return nil, err
	}

	presets, err := preset.NewManager(a.vis, settings)
	if err != nil {
		return nil, err
	}
	a.presets = presets
	a.presets.Apply(preset.DefaultName)
	a.vis.SetModulator(visualizer.ModulatorByName(opts.Modulator))
	if opts.EvolvingRate > 0 {
		a.vis.SetEvolvingColor(true, opts.EvolvingRate)
	}

	switch {
	case opts.Source != nil:
		a.source = opts.Source
	case opts.Input != "":
		p, err := audio.NewFilePlayer(opts.Input, a.slot, opts.Mute)
		if err != nil {
			return nil, err
		}
		a.source = p
	default:
		a.source = audio.NewMicrophone(a.slot)
	}

	if opts.Legacy {
		dev := serial.NewLegacyDevice(serial.LegacyConfig{
			Open:   opts.Open,
			OnOff:  func() { a.light.OffReported() },
			OnOpen: a.rememberDevice,
		})
		a.link = legacyLink{dev}
		a.light = light.NewController(light.NewLegacyOutput(dev))
	} else {
		dev := serial.NewDevice(fixture.StripRGBChannelCount, serial.Config{
			Open:    opts.Open,
			OnReady: a.rememberDevice,
			OnState: func(s serial.State) { a.log.WithField("state", s).Debug("device state") },
		})
		a.link = deviceLink{dev}
		a.light = light.NewController(fixture.NewStripRGB(dev))
	}
	a.patterns = light.NewPatternPlayer(a.light)
	// a running pattern owns the light
	a.vis.Observe(visualizer.ObserverFunc(func(fr visualizer.Frame) {
		if a.patterns.Pattern() == light.PatternNone {
			a.light.Visualized(fr)
		}
	}))
	return a, nil
}

func (a *App) applyOverrides(opts Options) error {
	if opts.DelayMS != nil {
		if err := a.settings.SetDelayMS(*opts.DelayMS); err != nil {
			return err
		}
	}
	if opts.MaxBrightness > 0 {
		if err := a.settings.SetMaxBrightness(opts.MaxBrightness); err != nil {
			return err
		}
	}
	if opts.RefreshRate > 0 {
		if err := a.settings.SetRefreshRate(opts.RefreshRate); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) rememberDevice(path string) {
	if err := a.settings.SetDevicePath(path); err != nil {
		a.log.WithError(err).Warn("saving device path")
	}
}

func (a *App) Settings() *config.Settings         { return a.settings }
func (a *App) Visualizer() *visualizer.Visualizer { return a.vis }
func (a *App) Presets() *preset.Manager           { return a.presets }
func (a *App) Light() *light.Controller           { return a.light }

// OnTick registers fn to receive every refresh result. It must be called
// before Run.
func (a *App) OnTick(fn func(Tick)) {
	a.mu.Lock()
	a.onTick = append(a.onTick, fn)
	a.mu.Unlock()
}

// Status reports the current state.
func (a *App) Status() Status {
	a.mu.Lock()
	paused := a.paused
	a.mu.Unlock()
	st := Status{
		Device:  a.link.Status(),
		Path:    a.link.Path(),
		LightOn: a.light.IsOn(),
		Paused:  paused,
		Source:  a.source.Name(),
		Pattern: a.patterns.Pattern().String(),
	}
	if t, ok := a.source.(taggedSource); ok {
		m := t.Metadata()
		st.Source, st.Album = m.Label(), m.Album
	}
	if p, ok := a.source.(progressSource); ok {
		st.Elapsed, st.Duration = p.Position(), p.Duration()
	}
	return st
}

// TogglePause stops or resumes visualization and reports the new state.
func (a *App) TogglePause() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.paused = !a.paused
	return a.paused
}

// TogglePower switches the light and reports whether it is now on.
func (a *App) TogglePower() bool { return a.light.Toggle() }

func (a *App) PresetNames() []string { return a.presets.Names() }

func (a *App) ApplyPreset(name string) { a.presets.Apply(name) }

func (a *App) SavePreset(name string) error { return a.presets.SaveCurrentSettings(name) }

func (a *App) DeletePreset(name string) error { return a.presets.Delete(name) }

// SetPattern starts p, or returns the light to the visualizer for
// PatternNone. The period is kept from the last pattern.
func (a *App) SetPattern(p light.Pattern) {
	a.patterns.Start(p, a.period, a.settings.RefreshRate())
}

// CyclePattern switches to the next pattern, "none" included, and returns it.
func (a *App) CyclePattern() light.Pattern {
	next := (a.patterns.Pattern() + 1) % light.Pattern(len(light.PatternNames()))
	a.SetPattern(next)
	return next
}

func (a *App) updateMapper(ch Channel, fn func(m *visualizer.Mapper)) {
	if ch == Color {
		a.vis.UpdateColor(fn)
		return
	}
	a.vis.UpdateBrightness(fn)
}

// CycleDriver moves ch to the next (delta > 0) or previous driver and returns
// its name.
func (a *App) CycleDriver(ch Channel, delta int) string {
	drivers := visualizer.Drivers()
	var name string
	a.updateMapper(ch, func(m *visualizer.Mapper) {
		i := slices.IndexFunc(drivers, func(d visualizer.Driver) bool { return d.ID() == m.Driver().ID() })
		i = ((i+delta)%len(drivers) + len(drivers)) % len(drivers)
		m.SetDriverByID(drivers[i].ID())
		name = drivers[i].Name()
	})
	return name
}

// ToggleInvert flips inversion of ch and reports the new state.
func (a *App) ToggleInvert(ch Channel) bool {
	var on bool
	a.updateMapper(ch, func(m *visualizer.Mapper) {
		m.Invert = !m.Invert
		on = m.Invert
	})
	return on
}

// ToggleDynamicRange switches ch between fixed and adaptive input bounds and
// reports whether adaptive bounds are now used.
func (a *App) ToggleDynamicRange(ch Channel) bool {
	var on bool
	a.updateMapper(ch, func(m *visualizer.Mapper) {
		m.SetUseDynamicRange(!m.UseDynamicRange())
		on = m.UseDynamicRange()
	})
	return on
}

// DriverNames returns the drivers feeding brightness and color.
func (a *App) DriverNames() (brightness, color string) {
	s := a.vis.Settings()
	return visualizer.DriverByID(s.Brightness.DriverID).Name(), visualizer.DriverByID(s.Color.DriverID).Name()
}

// Connect opens path, replacing any current connection.
func (a *App) Connect(path string) error {
	return a.link.Connect(path)
}

// Step analyzes the latest audio and runs the visualizer once. It does
// nothing while paused.
func (a *App) Step() (Tick, bool) {
	a.mu.Lock()
	if a.paused {
		a.mu.Unlock()
		return Tick{}, false
	}
	a.slot.Latest(a.buf)
	feats := a.analyzer.Analyze(a.buf)
	hooks := slices.Clone(a.onTick)
	a.mu.Unlock()

	t := Tick{Frame: a.vis.Visualize(feats), Features: feats}
	for _, fn := range hooks {
		fn(t)
	}
	return t, true
}

// autoConnect connects to the requested port, or to the saved one when it is
// currently plugged in.
func (a *App) autoConnect() {
	path := a.devicePath
	if path == "" {
		saved := a.settings.DevicePath()
		if saved == "" {
			return
		}
		ports, err := a.ports()
		if err != nil {
			a.log.WithError(err).Warn("listing ports")
			return
		}
		if !slices.Contains(ports, saved) {
			a.log.WithField("path", saved).Info("saved device not present")
			return
		}
		path = saved
	}
	if err := a.link.Connect(path); err != nil {
		a.log.WithError(err).WithField("path", path).Warn("connecting")
	}
}

func refreshPeriod(hz int) time.Duration {
	if hz <= 0 {
		hz = config.DefaultRefreshRate
	}
	return time.Second / time.Duration(hz)
}

// Run starts the audio source and the refresh loop. It returns when ctx is
// done or the source ends, turning the light off on the way out.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	unfollow := a.light.Follow(a.settings)
	defer unfollow()
	unsub := a.settings.Subscribe(func(e config.Event) {
		if e.Key != config.KeyRefreshRate {
			return
		}
		select {
		case a.refresh <- refreshPeriod(e.Values.RefreshRate):
		default:
		}
	})
	defer unsub()

	go func() {
		if err := a.settings.Watch(ctx); err != nil {
			a.log.WithError(err).Warn("settings watcher stopped")
		}
	}()

	a.autoConnect()
	a.light.TurnOn()
	if a.pattern != light.PatternNone {
		a.SetPattern(a.pattern)
	}
	defer func() {
		a.patterns.Stop()
		a.light.TurnOff()
		a.light.Close()
		a.link.Disconnect()
	}()

	srcErr := make(chan error, 1)
	go func() { srcErr <- a.source.Run(ctx) }()

	a.log.WithFields(logrus.Fields{
		"source":  a.source.Name(),
		"refresh": a.settings.RefreshRate(),
	}).Info("running")

	ticker := time.NewTicker(refreshPeriod(a.settings.RefreshRate()))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-srcErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("audio source: %w", err)
			}
			return nil
		case d := <-a.refresh:
			ticker.Reset(d)
		case <-ticker.C:
			a.Step()
		}
	}
}
