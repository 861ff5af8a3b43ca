package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/JadenB/Luxamp-sub000/internal/app"
	"github.com/JadenB/Luxamp-sub000/internal/audio"
	"github.com/JadenB/Luxamp-sub000/internal/config"
	"github.com/JadenB/Luxamp-sub000/internal/light"
	"github.com/JadenB/Luxamp-sub000/internal/logging"
	"github.com/JadenB/Luxamp-sub000/internal/preset"
	"github.com/JadenB/Luxamp-sub000/internal/serial"
	"github.com/JadenB/Luxamp-sub000/internal/ui"
	"github.com/JadenB/Luxamp-sub000/internal/visualizer"
	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
)

var version = "0.1.0"

// Globals are flags shared by every command.
type Globals struct {
	Config   string `short:"c" type:"path" help:"Settings file (default: user config dir)."`
	LogLevel string `default:"info" enum:"debug,info,warn,error" help:"Log level."`
	LogFile  string `type:"path" help:"Write logs to this file."`
}

// CLI is the command line.
type CLI struct {
	Globals

	Version kong.VersionFlag `short:"v" help:"Show version information."`

	Run     RunCmd     `cmd:"" default:"withargs" help:"Visualize audio on the light (default)."`
	Devices DevicesCmd `cmd:"" help:"List serial ports."`
	Presets PresetsCmd `cmd:"" help:"List saved presets."`
}

type RunCmd struct {
	Device        string  `short:"d" help:"Serial port of the light controller (default: last used)."`
	Legacy        bool    `help:"Talk to a controller using the older color/power protocol."`
	Input         string  `short:"i" type:"existingfile" help:"Play an audio file instead of capturing the microphone."`
	Mute          bool    `help:"With --input, analyze without playing sound."`
	Delay         int     `default:"-1" help:"Delay in milliseconds before colors are sent (default: saved value)."`
	MaxBrightness float64 `help:"Scale every color, 0 to 1 (default: saved value)."`
	RefreshRate   int     `help:"Visualizer updates per second (default: saved value)."`
	Headless      bool    `help:"Run without the dashboard."`

	Pattern      string        `default:"none" enum:"none,strobe,fade,jump,candle" help:"Drive the light with a generated pattern instead of audio."`
	Period       time.Duration `default:"1s" help:"Pattern step period."`
	Modulator    string        `default:"linear" enum:"linear,sine,low,high" help:"Shaping of the color position."`
	EvolvingRate float64       `help:"Let the hue drift by this rate as the color channel rises (0 disables)."`
}

func loadSettings(g *Globals) (*config.Settings, error) {
	path := g.Config
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return config.Load(path)
}

func (r *RunCmd) Run(g *Globals) error {
	if r.Input != "" && !isSupported(r.Input) {
		return fmt.Errorf("unsupported format %s (supported: %s)", filepath.Ext(r.Input), strings.Join(audio.Formats, ", "))
	}

	logFile := g.LogFile
	if logFile == "" && !r.Headless {
		if dir, err := os.UserCacheDir(); err == nil {
			logFile = filepath.Join(dir, "luxamp", "luxamp.log")
		}
	}
	closer, err := logging.Setup(logging.Options{Level: g.LogLevel, File: logFile})
	if err != nil {
		return err
	}
	defer closer.Close()

	settings, err := loadSettings(g)
	if err != nil {
		return err
	}

	pattern, err := light.ParsePattern(r.Pattern)
	if err != nil {
		return err
	}
	opts := app.Options{
		DevicePath:    r.Device,
		Legacy:        r.Legacy,
		Input:         r.Input,
		Mute:          r.Mute,
		MaxBrightness: r.MaxBrightness,
		RefreshRate:   r.RefreshRate,
		Pattern:       pattern,
		Period:        r.Period,
		Modulator:     r.Modulator,
		EvolvingRate:  r.EvolvingRate,
	}
	if r.Delay >= 0 {
		opts.DelayMS = &r.Delay
	}
	a, err := app.New(settings, opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if r.Headless {
		return a.Run(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	program := tea.NewProgram(ui.New(a), tea.WithAltScreen(), tea.WithContext(ctx))
	a.OnTick(ui.Forward(program))

	done := make(chan error, 1)
	go func() {
		done <- a.Run(ctx)
		program.Quit()
	}()

	_, uiErr := program.Run()
	interrupted := ctx.Err() != nil
	cancel()
	runErr := <-done
	if uiErr != nil && !interrupted {
		return uiErr
	}
	return runErr
}

func isSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, f := range audio.Formats {
		if f == ext {
			return true
		}
	}
	return false
}

type DevicesCmd struct{}

func (DevicesCmd) Run() error {
	ports, err := serial.Ports()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("no serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Println(p)
	}
	return nil
}

type PresetsCmd struct{}

func (PresetsCmd) Run(g *Globals) error {
	logging.Discard()
	settings, err := loadSettings(g)
	if err != nil {
		return err
	}
	m, err := preset.NewManager(visualizer.New(), settings)
	if err != nil {
		return err
	}
	for _, n := range m.Names() {
		fmt.Println(n)
	}
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("luxamp"),
		kong.Description("Music visualizer for serial RGB lights."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)
	err := ctx.Run(&cli.Globals)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
