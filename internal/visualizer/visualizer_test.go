package visualizer

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/JadenB/Luxamp-sub000/internal/analysis"
	"github.com/lucasb-eyer/go-colorful"
)

func newTestVisualizer() *Visualizer {
	v := New()
	v.UpdateBrightness(func(m *Mapper) { m.SetDriverByID(DriverRMS) })
	v.UpdateColor(func(m *Mapper) { m.SetDriverByID(DriverPitch) })
	return v
}

func visualizeN(v *Visualizer, f *analysis.Features, n int) Frame {
	var fr Frame
	for i := 0; i < n; i++ {
		fr = v.Visualize(f)
	}
	return fr
}

func TestVisualizeUsesGradientHueAndMapperBrightness(t *testing.T) {
	v := newTestVisualizer()

	fr := visualizeN(v, &analysis.Features{RMS: 10}, 20)
	if got := fr.Color.Hex(); got != "#ff0000" {
		t.Fatalf("low color position = %s, want #ff0000", got)
	}

	fr = visualizeN(v, &analysis.Features{RMS: 10, Pitch: 8000}, 20)
	if got := fr.Color.Hex(); got != "#ffff00" {
		t.Fatalf("high color position = %s, want #ffff00", got)
	}

	fr = visualizeN(newTestVisualizer(), &analysis.Features{Pitch: 8000}, 5)
	if _, _, val := fr.Color.Hsv(); val != 0 {
		t.Fatalf("silent brightness value = %v, want 0", val)
	}
}

func TestVisualizeEvolvingColorShiftsHue(t *testing.T) {
	v := newTestVisualizer()
	v.SetEvolvingColor(true, 0)

	fr := visualizeN(v, &analysis.Features{RMS: 10, Pitch: 8000}, 20)
	h, _, _ := fr.Color.Hsv()
	want := (60.0/360 + defaultEvolvingRate/7) * 360
	if math.Abs(h-want) > 0.1 {
		t.Fatalf("hue = %v, want %v", h, want)
	}
}

func TestObserveAndUnsubscribe(t *testing.T) {
	v := New()
	calls := 0
	stop := v.Observe(ObserverFunc(func(Frame) { calls++ }))

	v.Visualize(&analysis.Features{})
	stop()
	v.Visualize(&analysis.Features{})
	if calls != 1 {
		t.Fatalf("observer called %d times, want 1", calls)
	}
}

func TestGradientAt(t *testing.T) {
	g := DefaultGradient()
	if got := g.At(0.5).Hex(); got != "#ff8000" {
		t.Fatalf("At(0.5) = %s, want #ff8000", got)
	}
	if got := g.At(-1).Hex(); got != "#ff0000" {
		t.Fatalf("At(-1) = %s, want #ff0000", got)
	}
}

func TestGradientJSON(t *testing.T) {
	g := DefaultGradient()
	b, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back Gradient
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !back.Equal(g) {
		t.Fatalf("decoded gradient %s differs", b)
	}

	if err := json.Unmarshal([]byte(`{"stops":[{"location":0,"color":"red"}]}`), &back); err == nil {
		t.Fatal("expected error for non-hex color")
	}
}

func TestGradientJSONKeepsExactComponents(t *testing.T) {
	g := NewGradient(Stop{Location: 0.5, Color: colorful.Color{R: 1, G: 0.25, B: 0.1}})
	b, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back Gradient
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got := back.Stops[0].Color; got != g.Stops[0].Color {
		t.Fatalf("decoded color = %v, want %v", got, g.Stops[0].Color)
	}

	if err := json.Unmarshal([]byte(`{"stops":[{"location":0,"color":"#ff4000"}]}`), &back); err != nil {
		t.Fatalf("Unmarshal hex only: %v", err)
	}
	if got := back.Stops[0].Color.Hex(); got != "#ff4000" {
		t.Fatalf("hex only color = %s, want #ff4000", got)
	}
	if back.Equal(g) {
		t.Fatal("expected gradients with different components to differ")
	}
}

func TestModulators(t *testing.T) {
	if got := SineModulator().ValueAt(0.25); math.Abs(got-1) > 1e-9 {
		t.Fatalf("sine(0.25) = %v, want 1", got)
	}
	if got := SineModulator().ValueAt(2); got != 0.5 {
		t.Fatalf("sine(2) = %v, want 0.5", got)
	}
	if got := LinearModulator().ValueAt(1.5); got != 1 {
		t.Fatalf("linear(1.5) = %v, want 1", got)
	}
	if got := ConstantModulator(3).ValueAt(0); got != 1 {
		t.Fatalf("constant(3) = %v, want 1", got)
	}
}
