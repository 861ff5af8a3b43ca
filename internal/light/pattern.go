package light

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/JadenB/Luxamp-sub000/internal/logging"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/sirupsen/logrus"
)

// Pattern is a generated color sequence that drives the light without audio.
type Pattern int

const (
	PatternNone Pattern = iota
	PatternStrobe
	PatternFade
	PatternJump
	PatternCandle
)

var patternNames = []string{"none", "strobe", "fade", "jump", "candle"}

// PatternNames lists every pattern name, "none" first.
func PatternNames() []string { return append([]string(nil), patternNames...) }

func (p Pattern) String() string {
	if p < 0 || int(p) >= len(patternNames) {
		return "unknown"
	}
	return patternNames[p]
}

// ParsePattern resolves a pattern name.
func ParsePattern(name string) (Pattern, error) {
	for i, n := range patternNames {
		if n == name {
			return Pattern(i), nil
		}
	}
	return PatternNone, fmt.Errorf("unknown pattern %q", name)
}

const defaultPeriod = time.Second

var jumpColors = []colorful.Color{
	{R: 1},         // red
	{R: 1, G: 0.5}, // orange
	{R: 1, G: 1},   // yellow
	{G: 1},         // green
	{G: 1, B: 1},   // cyan
	{B: 1},         // blue
	{R: 1, B: 1},   // magenta
}

var candleColor = colorful.Color{R: 1, G: 0.5}

// continuous patterns update at the refresh rate; the others step once per
// period.
func (p Pattern) continuous() bool { return p == PatternFade || p == PatternCandle }

// interval is how often the pattern produces a color.
func (p Pattern) interval(period time.Duration, hz int) time.Duration {
	if p.continuous() {
		return time.Second / time.Duration(max(hz, 1))
	}
	return period
}

// ColorAt returns the color for update n. A fade sweeps the hue circle once
// every seven periods.
func (p Pattern) ColorAt(n int64, period time.Duration, hz int) colorful.Color {
	switch p {
	case PatternStrobe:
		if n%2 == 0 {
			return colorful.Color{R: 1, G: 1, B: 1}
		}
		return colorful.Color{}
	case PatternJump:
		return jumpColors[n%int64(len(jumpColors))]
	case PatternFade:
		ticks := period.Seconds() * float64(max(hz, 1)) * 7
		hue := math.Mod(float64(n)/ticks, 1)
		return colorful.Hsv(hue*360, 1, 1)
	case PatternCandle:
		return candleColor
	}
	return colorful.Color{}
}

// ColorSink takes generated colors. *Controller implements it.
type ColorSink interface {
	SetColor(colorful.Color)
}

// PatternPlayer runs at most one pattern at a time.
type PatternPlayer struct {
	sink ColorSink
	log  *logrus.Entry

	mu      sync.Mutex
	pattern Pattern
	period  time.Duration
	stop    chan struct{}
	done    chan struct{}
}

func NewPatternPlayer(sink ColorSink) *PatternPlayer {
	return &PatternPlayer{sink: sink, log: logging.For("light"), period: defaultPeriod}
}

// Start replaces the running pattern. The first color is sent before Start
// returns. PatternNone stops. A period <= 0 keeps the previous one.
func (pp *PatternPlayer) Start(p Pattern, period time.Duration, hz int) {
	pp.Stop()
	if p == PatternNone {
		return
	}

	pp.mu.Lock()
	if period > 0 {
		pp.period = period
	}
	period = pp.period
	pp.pattern = p
	stop, done := make(chan struct{}), make(chan struct{})
	pp.stop, pp.done = stop, done
	pp.mu.Unlock()

	pp.log.WithFields(logrus.Fields{"pattern": p, "period": period}).Info("pattern started")
	pp.sink.SetColor(p.ColorAt(0, period, hz))
	go pp.run(p, period, hz, stop, done)
}

func (pp *PatternPlayer) run(p Pattern, period time.Duration, hz int, stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.interval(period, hz))
	defer ticker.Stop()
	for n := int64(1); ; n++ {
		select {
		case <-stop:
			return
		case <-ticker.C:
			pp.sink.SetColor(p.ColorAt(n, period, hz))
		}
	}
}

// Stop halts the running pattern and waits for its last color to be sent.
func (pp *PatternPlayer) Stop() {
	pp.mu.Lock()
	stop, done := pp.stop, pp.done
	pp.stop, pp.done = nil, nil
	pp.pattern = PatternNone
	pp.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// Pattern returns the running pattern, or PatternNone.
func (pp *PatternPlayer) Pattern() Pattern {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	return pp.pattern
}

func (pp *PatternPlayer) Period() time.Duration {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	return pp.period
}
