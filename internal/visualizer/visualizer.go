// Package visualizer maps audio features to a color through two independent
// channels, brightness and color position.
package visualizer

import (
	"math"
	"sync"

	"github.com/JadenB/Luxamp-sub000/internal/analysis"
	"github.com/lucasb-eyer/go-colorful"
)

const (
	defaultEvolvingRate = 0.3
	evolvingScale       = 1.0 / 7
)

// Frame is what a Visualizer emits on every tick.
type Frame struct {
	Color      colorful.Color
	Brightness Data
	ColorData  Data
}

// Observer receives every Frame a Visualizer produces.
type Observer interface {
	Visualized(Frame)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Frame)

func (f ObserverFunc) Visualized(fr Frame) { f(fr) }

// Settings is the full persisted configuration of a Visualizer.
type Settings struct {
	Gradient   Gradient
	Brightness MapperSettings
	Color      MapperSettings
}

// Visualizer owns the brightness and color mappers and composes their outputs
// through a gradient. It is safe for concurrent use.
type Visualizer struct {
	mu         sync.Mutex
	brightness *Mapper
	color      *Mapper
	gradient   Gradient
	modulator  Modulator

	evolving       bool
	evolvingRate   float64
	evolvingOffset float64
	lastColorVal   float32

	observers []*observerEntry
}

type observerEntry struct{ o Observer }

func New() *Visualizer {
	return &Visualizer{
		brightness:   NewMapper(),
		color:        NewMapper(),
		gradient:     DefaultGradient(),
		modulator:    LinearModulator(),
		evolvingRate: defaultEvolvingRate,
	}
}

// Visualize runs both mappers on f and notifies observers. The gradient's own
// brightness is discarded; the brightness mapper alone sets it.
func (v *Visualizer) Visualize(f *analysis.Features) Frame {
	v.mu.Lock()
	bd := v.brightness.GenerateMapping(f)
	cd := v.color.GenerateMapping(f)

	g := v.gradient.At(v.modulator.ValueAt(float64(cd.OutputVal)))
	h, s, _ := g.Hsv()
	hue := h / 360

	if v.evolving {
		if diff := cd.OutputVal - v.lastColorVal; diff > 0 {
			v.evolvingOffset += float64(diff) * v.evolvingRate * evolvingScale
		}
		hue += v.evolvingOffset
		if hue > 1 {
			hue = math.Mod(hue, 1)
		}
		v.lastColorVal = cd.OutputVal
	}

	fr := Frame{
		Color:      colorful.Hsv(hue*360, s, float64(bd.OutputVal)),
		Brightness: bd,
		ColorData:  cd,
	}
	observers := make([]Observer, len(v.observers))
	for i, e := range v.observers {
		observers[i] = e.o
	}
	v.mu.Unlock()

	for _, o := range observers {
		o.Visualized(fr)
	}
	return fr
}

// Observe registers o and returns a function that removes it.
func (v *Visualizer) Observe(o Observer) (unsubscribe func()) {
	e := &observerEntry{o: o}
	v.mu.Lock()
	v.observers = append(v.observers, e)
	v.mu.Unlock()

	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		for i, cur := range v.observers {
			if cur == e {
				v.observers = append(v.observers[:i], v.observers[i+1:]...)
				return
			}
		}
	}
}

// Settings captures the gradient and both mapper configurations.
func (v *Visualizer) Settings() Settings {
	v.mu.Lock()
	defer v.mu.Unlock()
	return Settings{
		Gradient:   v.gradient,
		Brightness: v.brightness.Settings(),
		Color:      v.color.Settings(),
	}
}

// ApplySettings replaces the gradient and both mapper configurations.
func (v *Visualizer) ApplySettings(s Settings) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gradient = s.Gradient
	v.brightness.Apply(s.Brightness)
	v.color.Apply(s.Color)
}

// SetGradient replaces the gradient.
func (v *Visualizer) SetGradient(g Gradient) {
	v.mu.Lock()
	v.gradient = g
	v.mu.Unlock()
}

// SetModulator sets the shaping applied to the color position.
func (v *Visualizer) SetModulator(m Modulator) {
	v.mu.Lock()
	v.modulator = m
	v.mu.Unlock()
}

// SetEvolvingColor enables a slow hue drift that advances whenever the color
// channel rises. rate <= 0 keeps the current rate.
func (v *Visualizer) SetEvolvingColor(on bool, rate float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.evolving = on
	if rate > 0 {
		v.evolvingRate = rate
	}
	if !on {
		v.evolvingOffset = 0
		v.lastColorVal = 0
	}
}

// UpdateBrightness runs fn on the brightness mapper under the lock.
func (v *Visualizer) UpdateBrightness(fn func(m *Mapper)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fn(v.brightness)
}

// UpdateColor runs fn on the color mapper under the lock.
func (v *Visualizer) UpdateColor(fn func(m *Mapper)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fn(v.color)
}
